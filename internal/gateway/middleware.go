package gateway

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/monitoring"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Preflight requests never reach the handlers
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// securityHeadersMiddleware adds security headers
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// storeGuard answers 503 while the store health probe fails
func (s *Server) storeGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store != nil {
			check := s.store.Check(r.Context())
			if check.Status != monitoring.HealthStatusHealthy {
				s.logger.WithContext(r.Context()).WithField("check", check.Name).Warn("Store unavailable: " + check.Message)
				if s.metrics != nil {
					s.metrics.RecordSystemError("store_unavailable", "gateway")
				}
				s.responder.Error(w, r, types.NewUnavailableError(types.ErrCodeStoreUnavailable,
					"service temporarily unavailable", nil))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the bearer token and attaches the caller to the request
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.rejectToken(w, r, "missing_token")
			return
		}

		caller, err := s.tokens.ValidateToken(token)
		if err != nil {
			s.logger.WithContext(r.Context()).WithError(err).Debug("Token validation failed")
			s.rejectToken(w, r, "invalid_token")
			return
		}

		ctx := rbac.WithCaller(r.Context(), caller)
		ctx = context.WithValue(ctx, logger.UserIDKey, caller.ID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rejectToken(w http.ResponseWriter, r *http.Request, reason string) {
	s.logger.Security(r.Context(), "authentication_failed", "", map[string]interface{}{
		"reason": reason,
		"path":   r.URL.Path,
	})
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt("bearer", "failure")
	}
	s.responder.Error(w, r, types.NewAuthenticationError(types.ErrCodeUnauthorized, "authentication required"))
}

// rateLimitMiddleware throttles requests per client IP
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		allowed := s.limiter.Allow(ip)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.limiter.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(s.limiter.Remaining(ip)))
		if !allowed {
			s.logger.Security(r.Context(), "rate_limit_exceeded", "", map[string]interface{}{
				"client_ip": ip,
				"path":      r.URL.Path,
			})
			s.responder.Error(w, r, types.NewRateLimitError(types.ErrCodeRateLimitExceeded, "too many requests"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
