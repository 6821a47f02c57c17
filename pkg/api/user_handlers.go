package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cardinalsites/samlauth/pkg/httputil"
	"github.com/cardinalsites/samlauth/pkg/provision"
)

// UserHandlers handles account provisioning HTTP requests
type UserHandlers struct {
	provisioner *provision.Provisioner
	store       *provision.Store
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(provisioner *provision.Provisioner, store *provision.Store) *UserHandlers {
	return &UserHandlers{
		provisioner: provisioner,
		store:       store,
	}
}

// RegisterRoutes registers account provisioning routes
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/users", h.createUser).Methods("POST")
	router.HandleFunc("/api/v1/users/{sunetid}", h.getUser).Methods("GET")
	router.HandleFunc("/api/v1/mappings/entitlement", h.mapEntitlementRole).Methods("POST")
}

// createUser handles POST /api/v1/users
func (h *UserHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req provision.CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.SunetID, "sunetid") {
		return
	}

	user, err := h.provisioner.CreateUser(r.Context(), req)
	if err != nil {
		if errors.Is(err, provision.ErrUserExists) {
			httputil.WriteConflict(w, err.Error())
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteCreated(w, user)
}

// getUser handles GET /api/v1/users/{sunetid}
func (h *UserHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	sunetid, ok := httputil.ParsePathStringOrError(w, r, "sunetid")
	if !ok {
		return
	}

	user, err := h.store.GetUser(r.Context(), sunetid)
	if err != nil {
		httputil.WriteNotFoundError(w, "user not found: "+sunetid)
		return
	}

	httputil.WriteSuccess(w, user)
}

// mapEntitlementRole handles POST /api/v1/mappings/entitlement
func (h *UserHandlers) mapEntitlementRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entitlement string `json:"entitlement"`
		Role        string `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Entitlement, "entitlement") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Role, "role") {
		return
	}

	if err := h.provisioner.MapEntitlementRole(r.Context(), req.Entitlement, req.Role); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteCreated(w, map[string]string{
		"entitlement": req.Entitlement,
		"role":        req.Role,
	})
}
