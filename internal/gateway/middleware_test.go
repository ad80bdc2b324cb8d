package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/monitoring"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

type stubVerifier struct {
	callers map[string]rbac.Caller
}

func (v *stubVerifier) ValidateToken(token string) (rbac.Caller, error) {
	caller, ok := v.callers[token]
	if !ok {
		return rbac.Caller{}, errors.New("unknown token")
	}
	return caller, nil
}

type stubStore struct {
	status monitoring.HealthStatus
}

func (s *stubStore) Check(ctx context.Context) monitoring.HealthCheck {
	return monitoring.HealthCheck{Name: "database", Status: s.status, Message: "connection refused"}
}

type authRoutes struct{}

func (authRoutes) RegisterPublicRoutes(public *mux.Router) {
	public.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)
}

type whoamiRoutes struct{}

func (whoamiRoutes) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		caller, ok := rbac.CallerFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		userID, _ := r.Context().Value(logger.UserIDKey).(string)
		w.Header().Set("X-Caller", caller.ID+"|"+string(caller.Role)+"|"+userID)
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
}

const patientToken = "patient-token"

func createTestServer(t *testing.T, config *Config, store monitoring.HealthChecker) *Server {
	t.Helper()
	log := logger.NewNop()

	if config == nil {
		config = &Config{Addr: ":0", AllowedOrigins: []string{"*"}}
	}

	health := monitoring.NewHealthManager("clinic-api", "test")
	deps := &Dependencies{
		Logger:    log,
		Responder: api.NewResponder(log, false),
		Tokens: &stubVerifier{callers: map[string]rbac.Caller{
			patientToken: {ID: testAccountID, Role: types.RolePatient},
		}},
		Metrics: monitoring.NewMetricsCollector("clinic_api_test"),
		Health:  health,
		Store:   store,
	}

	return NewServer(config, deps, []PublicRouteRegistrar{authRoutes{}}, []RouteRegistrar{whoamiRoutes{}})
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestCORSMiddleware(t *testing.T) {
	server := createTestServer(t, &Config{AllowedOrigins: []string{"https://clinic.example.com"}}, nil)
	handler := server.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://clinic.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "https://clinic.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/test", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	server := createTestServer(t, nil, nil)

	w := serve(server, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthMiddleware(t *testing.T) {
	server := createTestServer(t, nil, nil)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + patientToken, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer forged", http.StatusUnauthorized},
		{"valid token", "Bearer " + patientToken, http.StatusOK},
		{"scheme is case-insensitive", "bearer " + patientToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := serve(server, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, testAccountID+"|patient|"+testAccountID, w.Header().Get("X-Caller"))
			} else {
				assert.Contains(t, w.Body.String(), types.ErrCodeUnauthorized)
			}
		})
	}
}

func TestPublicRoutesSkipAuthentication(t *testing.T) {
	server := createTestServer(t, nil, nil)

	w := serve(server, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_PerClientIP(t *testing.T) {
	server := createTestServer(t, &Config{RequestsPerMin: 2}, nil)

	login := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = ip + ":51234"
		return serve(server, req)
	}

	first := login("192.0.2.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := login("192.0.2.1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := login("192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "0", third.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, login("192.0.2.2").Code)

	// Authenticated routes are not throttled by the login limiter
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.RemoteAddr = "192.0.2.1:51234"
		req.Header.Set("Authorization", "Bearer "+patientToken)
		require.Equal(t, http.StatusOK, serve(server, req).Code)
	}
}

func TestStoreGuard(t *testing.T) {
	store := &stubStore{status: monitoring.HealthStatusUnhealthy}
	server := createTestServer(t, nil, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+patientToken)
	w := serve(server, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), types.ErrCodeStoreUnavailable)

	// The guard runs before authentication
	w = serve(server, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	store.status = monitoring.HealthStatusHealthy
	w = serve(server, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	server := createTestServer(t, nil, nil)

	w := serve(server, httptest.NewRequest(http.MethodGet, "/api/v2/nothing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "route not found")
}

func TestHealthEndpointIsPublic(t *testing.T) {
	server := createTestServer(t, nil, nil)

	w := serve(server, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"BEARER abc", "abc", true},
		{"Bearer", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:40000"
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")
	assert.Equal(t, "203.0.113.1", clientIP(req))
}

func TestServerShutdownBeforeStart(t *testing.T) {
	server := createTestServer(t, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, server.Shutdown(ctx))
}
