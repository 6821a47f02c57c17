package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cardinalsites/samlauth/pkg/authz"
	"github.com/cardinalsites/samlauth/pkg/httputil"
	"github.com/cardinalsites/samlauth/pkg/login"
	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/provision"
	"github.com/cardinalsites/samlauth/pkg/saml"
)

// LoginHandlers handles the SAML login flow
type LoginHandlers struct {
	provider    *saml.Provider
	sync        *login.SyncService
	store       *provision.Store
	provisioner *provision.Provisioner
	logger      *observability.Logger
}

// NewLoginHandlers creates a new login handlers instance. The store and
// provisioner are optional; without them accounts are not persisted.
func NewLoginHandlers(provider *saml.Provider, sync *login.SyncService, store *provision.Store, provisioner *provision.Provisioner, logger *observability.Logger) *LoginHandlers {
	return &LoginHandlers{
		provider:    provider,
		sync:        sync,
		store:       store,
		provisioner: provisioner,
		logger:      logger,
	}
}

// RegisterRoutes registers the SAML endpoints
func (h *LoginHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/saml/login", h.startLogin).Methods("GET")
	router.HandleFunc("/saml/acs", h.consumeAssertion).Methods("POST")
}

// startLogin handles GET /saml/login by redirecting to the identity
// provider. An optional ReturnTo query parameter rides along as relay
// state.
func (h *LoginHandlers) startLogin(w http.ResponseWriter, r *http.Request) {
	relayState := httputil.ParseQueryString(r, "ReturnTo", "")

	url, err := h.provider.AuthURL(relayState)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// consumeAssertion handles POST /saml/acs
func (h *LoginHandlers) consumeAssertion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteBadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	encoded := r.PostFormValue("SAMLResponse")
	if encoded == "" {
		httputil.WriteBadRequest(w, "SAMLResponse is required")
		return
	}

	assertion, err := h.provider.Consume(encoded)
	if err != nil {
		h.logger.WithError(err).Warn("Rejected SAML response")
		httputil.WriteBadRequest(w, "invalid SAML response")
		return
	}

	account, persisted, err := h.loadAccount(r, assertion.Name)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load account")
		httputil.WriteInternalError(w, err)
		return
	}

	changed, err := h.sync.Sync(r.Context(), account, assertion.Attributes)
	if err != nil {
		if errors.Is(err, authz.ErrUnauthorized) {
			httputil.WriteForbidden(w, "login not permitted")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	if changed && persisted {
		if err := h.store.ReplaceUserRoles(r.Context(), account.Name, account.Roles); err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"account":     account,
		"relay_state": r.PostFormValue("RelayState"),
	})
}

// loadAccount fetches the stored account, provisioning it on first login
// when a provisioner is available. Only a genuinely missing row counts as a
// first login; any other storage failure aborts, because syncing from an
// empty baseline would later overwrite the roles the account really holds.
// The persisted flag tells the caller whether role changes can be written
// back.
func (h *LoginHandlers) loadAccount(r *http.Request, name string) (*login.Account, bool, error) {
	account := &login.Account{Name: name}
	if h.store == nil {
		return account, false, nil
	}

	user, err := h.store.GetUser(r.Context(), name)
	if errors.Is(err, sql.ErrNoRows) {
		if h.provisioner == nil {
			return account, false, nil
		}
		user, err = h.provisioner.CreateUser(r.Context(), provision.CreateUserRequest{SunetID: name})
	}
	if err != nil {
		return nil, false, err
	}

	account.Email = user.Email
	account.Roles = user.Roles
	return account, true, nil
}
