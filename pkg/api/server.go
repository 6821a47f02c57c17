package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cardinalsites/samlauth/pkg/config"
	"github.com/cardinalsites/samlauth/pkg/httputil"
	"github.com/cardinalsites/samlauth/pkg/login"
	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/provision"
	"github.com/cardinalsites/samlauth/pkg/saml"
	"github.com/cardinalsites/samlauth/pkg/workgroup"
)

// Options carries the server dependencies. Provider, Provisioner, Store,
// and Health are optional; routes depending on a missing one are not
// registered.
type Options struct {
	Policies    *config.PolicyStore
	Sync        *login.SyncService
	NewClient   login.ClientFactory
	Provider    *saml.Provider
	Provisioner *provision.Provisioner
	Store       *provision.Store
	Health      *observability.HealthChecker
	Metrics     *observability.Metrics
	Logger      *observability.Logger
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}

	s := &Server{
		router: mux.NewRouter(),
		logger: opts.Logger,
	}

	policyHandlers := NewPolicyHandlers(opts.Policies, opts.NewClient)
	policyHandlers.RegisterRoutes(s.router)

	if opts.Provider != nil {
		loginHandlers := NewLoginHandlers(opts.Provider, opts.Sync, opts.Store, opts.Provisioner, opts.Logger)
		loginHandlers.RegisterRoutes(s.router)
	}

	if opts.Provisioner != nil {
		userHandlers := NewUserHandlers(opts.Provisioner, opts.Store)
		userHandlers.RegisterRoutes(s.router)
	}

	if opts.Health != nil {
		s.router.HandleFunc("/health/live", opts.Health.Liveness).Methods("GET")
		s.router.HandleFunc("/health/ready", opts.Health.Readiness).Methods("GET")
	}

	if opts.Metrics != nil {
		s.router.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")
	}

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(opts.Logger),
		httputil.RecoveryMiddleware(opts.Logger),
		httputil.MaxBytesMiddleware(1<<20),
	)(s.router)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}

// directoryClient builds a fresh workgroup client for one request.
func directoryClient(newClient login.ClientFactory) workgroup.Client {
	if newClient == nil {
		return nil
	}
	return newClient()
}
