package clinical

import (
	"context"
	"time"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// Service manages prescriptions and medical records
type Service struct {
	logger        *logger.Logger
	prescriptions interfaces.PrescriptionRepository
	records       interfaces.MedicalRecordRepository
	appointments  interfaces.AppointmentLookup
	accounts      interfaces.AccountLookup
	policy        rbac.PolicyEngine
	resolver      rbac.SubjectResolver
	responder     *api.Responder
	now           func() time.Time
}

// NewService creates a new clinical service
func NewService(
	log *logger.Logger,
	prescriptions interfaces.PrescriptionRepository,
	records interfaces.MedicalRecordRepository,
	appointments interfaces.AppointmentLookup,
	accounts interfaces.AccountLookup,
	policy rbac.PolicyEngine,
	resolver rbac.SubjectResolver,
	responder *api.Responder,
) *Service {
	return &Service{
		logger:        log,
		prescriptions: prescriptions,
		records:       records,
		appointments:  appointments,
		accounts:      accounts,
		policy:        policy,
		resolver:      resolver,
		responder:     responder,
		now:           time.Now,
	}
}

// requireDoctorCaller rejects anyone but a doctor from authoring clinical records
func requireDoctorCaller(caller rbac.Caller, what string) error {
	if !caller.Is(rbac.RoleDoctor) {
		return types.NewAuthorizationError(rbac.ErrorCodeAccessDenied, "only doctors can create "+what)
	}
	return nil
}

func (s *Service) requirePatient(ctx context.Context, patientID string) error {
	patient, err := s.accounts.GetByID(ctx, patientID)
	if err != nil {
		if types.IsNotFound(err) {
			return types.NewNotFoundError(types.ErrCodeNotFound, "patient not found")
		}
		return err
	}
	if patient.Role != rbac.RolePatient {
		return types.NewNotFoundError(types.ErrCodeNotFound, "patient not found")
	}
	return nil
}

// linkedAppointment checks that an optional appointment reference names a visit of
// the same doctor and patient
func (s *Service) linkedAppointment(ctx context.Context, appointmentID, doctorID, patientID string) (*string, error) {
	if appointmentID == "" {
		return nil, nil
	}
	if err := types.ValidateID("appointmentId", appointmentID); err != nil {
		return nil, err
	}

	apt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.DoctorID != doctorID || apt.PatientID != patientID {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "appointment belongs to a different doctor or patient",
			map[string]interface{}{"field": "appointmentId"})
	}
	return &apt.ID, nil
}

// scopeForCaller narrows a listing to what the caller's role can ever see. ok is false
// when the role sees nothing of this kind.
func scopeForCaller(caller rbac.Caller, patientID, doctorID *string, pharmacistSees bool) bool {
	switch caller.Role {
	case rbac.RoleAdmin:
		return true
	case rbac.RoleDoctor:
		*doctorID = caller.ID
		return true
	case rbac.RolePatient:
		*patientID = caller.ID
		return true
	case rbac.RolePharmacist:
		return pharmacistSees
	}
	return false
}

func emptyUpdate() error {
	return types.NewValidationError(types.ErrCodeInvalidInput, "no updates provided", nil)
}
