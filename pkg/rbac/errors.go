package rbac

import (
	"github.com/medrex/clinic-api/pkg/types"
)

// ErrorCodeAccessDenied is the code attached to every policy denial
const ErrorCodeAccessDenied = "ACCESS_DENIED"

// DenialError converts a negative decision into the surfaced authorization error.
// The message never describes the record, only the reason.
func DenialError(decision *AccessDecision) error {
	if decision == nil || decision.Allowed {
		return nil
	}
	reason := decision.Reason
	if reason == "" {
		reason = ReasonNotAuthorized
	}
	return types.NewAuthorizationError(ErrorCodeAccessDenied, reason)
}
