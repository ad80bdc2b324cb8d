package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// Caller returns the authenticated caller attached by the auth middleware
func Caller(r *http.Request) (rbac.Caller, error) {
	caller, ok := rbac.CallerFromContext(r.Context())
	if !ok || caller.ID == "" {
		return rbac.Caller{}, types.NewAuthenticationError(types.ErrCodeUnauthorized, "authentication required")
	}
	return caller, nil
}

// PathParam returns a mux path variable
func PathParam(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// QueryInt parses an optional integer query parameter
func QueryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, types.NewValidationError(types.ErrCodeInvalidInput, "invalid "+name, map[string]interface{}{"value": raw})
	}
	return value, nil
}
