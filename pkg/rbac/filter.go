package rbac

import "context"

// Filter keeps the items the caller may list. view maps an item to its policy resource.
func Filter[T any](ctx context.Context, engine PolicyEngine, caller Caller, items []T, view func(T) Resource) []T {
	visible := make([]T, 0, len(items))
	for _, item := range items {
		decision := engine.Decide(ctx, &AccessRequest{Caller: caller, Resource: view(item), Action: ActionList})
		if decision.Allowed {
			visible = append(visible, item)
		}
	}
	return visible
}
