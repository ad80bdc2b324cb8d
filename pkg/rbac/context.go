package rbac

import (
	"context"
	"net/http"
)

type contextKey string

const (
	callerKey     contextKey = "caller"
	routeShapeKey contextKey = "route_shape"
)

// RouteShape tags which form of a self-or-other route matched
type RouteShape int

const (
	// RouteShapeUnknown means the router attached no tag
	RouteShapeUnknown RouteShape = iota
	// RouteShapeSelf is the caller-relative form, e.g. /patient/me
	RouteShapeSelf
	// RouteShapeByID is the parameterized form, e.g. /patient/{patientId}
	RouteShapeByID
)

func (s RouteShape) String() string {
	switch s {
	case RouteShapeSelf:
		return "self"
	case RouteShapeByID:
		return "by_id"
	default:
		return "unknown"
	}
}

// WithCaller stores the authenticated caller in ctx
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the authenticated caller, if any
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok
}

// WithRouteShape stores the route shape in ctx
func WithRouteShape(ctx context.Context, shape RouteShape) context.Context {
	return context.WithValue(ctx, routeShapeKey, shape)
}

// RouteShapeFromContext returns the shape tagged by the router
func RouteShapeFromContext(ctx context.Context) RouteShape {
	shape, _ := ctx.Value(routeShapeKey).(RouteShape)
	return shape
}

// TagRoute wraps a handler so that requests reaching it carry shape.
// The router applies it per route at registration time.
func TagRoute(shape RouteShape, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(WithRouteShape(r.Context(), shape)))
	}
}
