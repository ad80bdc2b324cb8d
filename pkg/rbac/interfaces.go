package rbac

import "context"

// PolicyEngine decides whether a caller may perform an action on a resource
type PolicyEngine interface {
	Decide(ctx context.Context, req *AccessRequest) *AccessDecision
	// Authorize is Decide returning an authorization error on deny
	Authorize(ctx context.Context, req *AccessRequest) error
}

// SubjectResolver determines which patient a self-or-other route addresses
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, caller Caller, params map[string]string, shape RouteShape) (string, error)
}
