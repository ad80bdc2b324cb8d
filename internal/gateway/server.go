package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/monitoring"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// APIPrefix is the mount point of the versioned API
const APIPrefix = "/api/v1"

// TokenVerifier turns a bearer token into the authenticated caller
type TokenVerifier interface {
	ValidateToken(token string) (rbac.Caller, error)
}

// RouteRegistrar mounts authenticated routes on the versioned API router
type RouteRegistrar interface {
	RegisterRoutes(api *mux.Router)
}

// PublicRouteRegistrar mounts routes that bypass bearer authentication
type PublicRouteRegistrar interface {
	RegisterPublicRoutes(public *mux.Router)
}

// Config holds the HTTP server configuration
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	// RequestsPerMin limits public auth requests per client IP; zero disables the limiter
	RequestsPerMin int
}

// Dependencies are the collaborators the server wires into its router
type Dependencies struct {
	Logger     *logger.Logger
	Responder  *api.Responder
	Tokens     TokenVerifier
	Metrics    *monitoring.MetricsCollector
	Monitoring *monitoring.MonitoringMiddleware
	Health     *monitoring.HealthManager
	// Store is probed on every API request; nil disables the guard
	Store monitoring.HealthChecker
}

// Server is the HTTP entry point: one router, public and authenticated API subrouters
type Server struct {
	router         *mux.Router
	server         *http.Server
	logger         *logger.Logger
	responder      *api.Responder
	tokens         TokenVerifier
	limiter        *RateLimiter
	metrics        *monitoring.MetricsCollector
	store          monitoring.HealthChecker
	allowedOrigins []string
}

// NewServer builds the router. Public registrars are mounted before authenticated ones
// so that their literal paths win.
func NewServer(config *Config, deps *Dependencies, public []PublicRouteRegistrar, services []RouteRegistrar) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		logger:         deps.Logger,
		responder:      deps.Responder,
		tokens:         deps.Tokens,
		metrics:        deps.Metrics,
		store:          deps.Store,
		allowedOrigins: config.AllowedOrigins,
	}
	if config.RequestsPerMin > 0 {
		s.limiter = NewRateLimiter(config.RequestsPerMin, time.Minute)
	}

	s.setupMiddleware(deps.Monitoring)
	s.setupRoutes(deps, public, services)

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// setupMiddleware installs the router-wide middleware
func (s *Server) setupMiddleware(mm *monitoring.MonitoringMiddleware) {
	if mm != nil {
		s.router.Use(mm.HTTPMiddleware)
	}
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
}

// setupRoutes sets up the routing
func (s *Server) setupRoutes(deps *Dependencies, public []PublicRouteRegistrar, services []RouteRegistrar) {
	if deps.Health != nil {
		s.router.HandleFunc("/health", deps.Health.HTTPHandler()).Methods(http.MethodGet)
	}
	if deps.Metrics != nil {
		s.router.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := s.router.PathPrefix(APIPrefix).Subrouter()
	v1.Use(s.storeGuard)

	publicRouter := v1.NewRoute().Subrouter()
	publicRouter.Use(s.rateLimitMiddleware)
	for _, registrar := range public {
		registrar.RegisterPublicRoutes(publicRouter)
	}

	protected := v1.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)
	for _, registrar := range services {
		registrar.RegisterRoutes(protected)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.responder.Error(w, r, types.NewNotFoundError(types.ErrCodeNotFound, "route not found"))
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until the server is shut down. It returns nil after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.StartCleanup(ctx, 10*time.Minute)
	}

	s.logger.WithComponent("gateway").WithField("addr", s.server.Addr).Info("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.WithComponent("gateway").Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
