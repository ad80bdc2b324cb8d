package rbac

import (
	"context"

	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// PatientIDParam is the path parameter naming the patient on by-id routes
const PatientIDParam = "patientId"

// Resolver decides which patient a self-or-other route addresses
type Resolver struct {
	accounts interfaces.AccountLookup
	logger   *logger.Logger
}

// NewResolver creates a subject resolver backed by the account store
func NewResolver(accounts interfaces.AccountLookup, log *logger.Logger) *Resolver {
	return &Resolver{accounts: accounts, logger: log}
}

// ResolveSubject returns the patient id the request is about.
// Patients always resolve to themselves, whatever parameters are present.
// The shape comes from the router tag, never from the request path.
func (r *Resolver) ResolveSubject(ctx context.Context, caller rbac.Caller, params map[string]string, shape rbac.RouteShape) (string, error) {
	if caller.Is(rbac.RolePatient) {
		return caller.ID, nil
	}

	switch shape {
	case rbac.RouteShapeSelf:
		r.logger.WithContext(ctx).WithField("role", caller.Role).
			Error("Caller-relative patient route reached by non-patient caller")
		return "", types.NewValidationError(types.ErrCodeRouteMisconfigured,
			"route requires a patient caller", map[string]interface{}{"role": caller.Role})
	case rbac.RouteShapeByID:
	default:
		return "", types.NewValidationError(types.ErrCodeRouteMisconfigured,
			"route shape not set", nil)
	}

	patientID := params[PatientIDParam]
	if err := types.ValidateID(PatientIDParam, patientID); err != nil {
		return "", err
	}

	account, err := r.accounts.GetByID(ctx, patientID)
	if err != nil {
		if types.IsNotFound(err) {
			return "", types.NewNotFoundError(types.ErrCodeNotFound, "patient not found")
		}
		return "", err
	}
	if account.Role != rbac.RolePatient {
		return "", types.NewNotFoundError(types.ErrCodeNotFound, "patient not found")
	}

	return account.ID, nil
}
