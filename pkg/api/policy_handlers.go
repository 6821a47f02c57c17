package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cardinalsites/samlauth/pkg/config"
	"github.com/cardinalsites/samlauth/pkg/httputil"
	"github.com/cardinalsites/samlauth/pkg/login"
	"github.com/cardinalsites/samlauth/pkg/rolemap"
)

// PolicyHandlers handles policy administration HTTP requests
type PolicyHandlers struct {
	policies  *config.PolicyStore
	newClient login.ClientFactory
}

// NewPolicyHandlers creates a new policy handlers instance
func NewPolicyHandlers(policies *config.PolicyStore, newClient login.ClientFactory) *PolicyHandlers {
	return &PolicyHandlers{
		policies:  policies,
		newClient: newClient,
	}
}

// RegisterRoutes registers policy administration routes
func (h *PolicyHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/policies/authorization", h.getAuthorization).Methods("GET")
	router.HandleFunc("/api/v1/policies/authorization", h.putAuthorization).Methods("PUT")

	router.HandleFunc("/api/v1/policies/role-mapping", h.getRoleMapping).Methods("GET")
	router.HandleFunc("/api/v1/policies/role-mapping/rules", h.addRule).Methods("POST")
	router.HandleFunc("/api/v1/policies/role-mapping/rules/{index}", h.removeRule).Methods("DELETE")
	router.HandleFunc("/api/v1/policies/role-mapping/reevaluate", h.putReevaluate).Methods("PUT")
	router.HandleFunc("/api/v1/policies/workgroup-api", h.putWorkgroupAPI).Methods("PUT")

	router.HandleFunc("/api/v1/workgroup/status", h.workgroupStatus).Methods("GET")
	router.HandleFunc("/api/v1/workgroup/users/{sunetid}", h.userWorkgroups).Methods("GET")
	router.HandleFunc("/api/v1/workgroup/workgroups/{name}", h.workgroupValidity).Methods("GET")
}

// getAuthorization handles GET /api/v1/policies/authorization
func (h *PolicyHandlers) getAuthorization(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, h.policies.Document().Allowed)
}

// putAuthorization handles PUT /api/v1/policies/authorization
func (h *PolicyHandlers) putAuthorization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Restrict     bool     `json:"restrict"`
		Users        []string `json:"users"`
		Affiliations []string `json:"affiliations"`
		Groups       []string `json:"groups"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.policies.SetAllowed(req.Restrict, req.Users, req.Affiliations, req.Groups); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteSuccess(w, h.policies.Document().Allowed)
}

// getRoleMapping handles GET /api/v1/policies/role-mapping
func (h *PolicyHandlers) getRoleMapping(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, h.policies.Document().RoleMapping)
}

// addRule handles POST /api/v1/policies/role-mapping/rules
func (h *PolicyHandlers) addRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role      string `json:"role"`
		Attribute string `json:"attribute"`
		Value     string `json:"value"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Role, "role") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Value, "value") {
		return
	}

	rule := rolemap.Rule{Role: req.Role, Attribute: req.Attribute, Value: req.Value}
	added, err := h.policies.AddMapping(rule)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if !added {
		httputil.WriteConflict(w, "mapping already exists")
		return
	}

	httputil.WriteCreated(w, rule.Normalize())
}

// removeRule handles DELETE /api/v1/policies/role-mapping/rules/{index}
func (h *PolicyHandlers) removeRule(w http.ResponseWriter, r *http.Request) {
	index, ok := httputil.ParsePathIntOrError(w, r, "index")
	if !ok {
		return
	}

	if err := h.policies.RemoveMapping(index); err != nil {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}

	httputil.WriteNoContent(w)
}

// putReevaluate handles PUT /api/v1/policies/role-mapping/reevaluate
func (h *PolicyHandlers) putReevaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.policies.SetReevaluate(rolemap.ReevaluateMode(req.Mode)); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteSuccess(w, map[string]string{"mode": req.Mode})
}

// putWorkgroupAPI handles PUT /api/v1/policies/workgroup-api
func (h *PolicyHandlers) putWorkgroupAPI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cert    string `json:"cert"`
		Key     string `json:"key"`
		Timeout int    `json:"timeout"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.policies.SetWorkgroupAPI(req.Cert, req.Key, req.Timeout); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteNoContent(w)
}

// workgroupStatus handles GET /api/v1/workgroup/status
func (h *PolicyHandlers) workgroupStatus(w http.ResponseWriter, r *http.Request) {
	client := directoryClient(h.newClient)
	if client == nil {
		httputil.WriteServiceUnavailable(w, "workgroup api not configured")
		return
	}

	connected := client.ConnectionSuccessful(r.Context())
	status := http.StatusOK
	if !connected {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, map[string]bool{"connected": connected})
}

// userWorkgroups handles GET /api/v1/workgroup/users/{sunetid}
func (h *PolicyHandlers) userWorkgroups(w http.ResponseWriter, r *http.Request) {
	sunetid, ok := httputil.ParsePathStringOrError(w, r, "sunetid")
	if !ok {
		return
	}

	client := directoryClient(h.newClient)
	if client == nil {
		httputil.WriteServiceUnavailable(w, "workgroup api not configured")
		return
	}

	groups := client.UserWorkgroups(r.Context(), sunetid)

	httputil.WriteSuccess(w, map[string]interface{}{
		"sunetid":    sunetid,
		"workgroups": groups,
	})
}

// workgroupValidity handles GET /api/v1/workgroup/workgroups/{name}
func (h *PolicyHandlers) workgroupValidity(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	client := directoryClient(h.newClient)
	if client == nil {
		httputil.WriteServiceUnavailable(w, "workgroup api not configured")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"workgroup": name,
		"valid":     client.IsWorkgroupValid(r.Context(), name),
	})
}
