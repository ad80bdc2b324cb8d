package scheduling

import (
	"context"
	"time"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/monitoring"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// Service manages appointment booking, status transitions and availability
type Service struct {
	logger     *logger.Logger
	repository interfaces.AppointmentRepository
	accounts   interfaces.AccountLookup
	policy     rbac.PolicyEngine
	resolver   rbac.SubjectResolver
	metrics    *monitoring.MetricsCollector
	responder  *api.Responder
	now        func() time.Time
}

// New creates a new scheduling service. metrics may be nil.
func New(
	log *logger.Logger,
	repository interfaces.AppointmentRepository,
	accounts interfaces.AccountLookup,
	policy rbac.PolicyEngine,
	resolver rbac.SubjectResolver,
	metrics *monitoring.MetricsCollector,
	responder *api.Responder,
) *Service {
	return &Service{
		logger:     log,
		repository: repository,
		accounts:   accounts,
		policy:     policy,
		resolver:   resolver,
		metrics:    metrics,
		responder:  responder,
		now:        time.Now,
	}
}

// CreateAppointment books a slot. Patients book for themselves; admins name the patient.
func (s *Service) CreateAppointment(ctx context.Context, caller rbac.Caller, req *types.AppointmentRequest) (*types.Appointment, error) {
	patientID := req.PatientID
	if caller.Is(rbac.RolePatient) {
		patientID = caller.ID
	}

	if err := types.ValidateID("patientId", patientID); err != nil {
		return nil, err
	}
	if err := types.ValidateID("doctorId", req.DoctorID); err != nil {
		return nil, err
	}

	date, err := s.bookableDate(req.Date)
	if err != nil {
		return nil, err
	}
	if !ValidSlot(req.TimeSlot) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "unknown time slot",
			map[string]interface{}{"field": "timeSlot", "allowed": slotCatalog})
	}

	apt := &types.Appointment{
		ID:        types.NewID(),
		PatientID: patientID,
		DoctorID:  req.DoctorID,
		Date:      date,
		TimeSlot:  req.TimeSlot,
		Reason:    req.Reason,
		Status:    types.StatusPending,
	}

	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.AppointmentResource(apt), Action: rbac.ActionCreate,
	}); err != nil {
		return nil, err
	}

	if _, err := s.requireDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}
	if !caller.Is(rbac.RolePatient) {
		if err := s.requirePatient(ctx, patientID); err != nil {
			return nil, err
		}
	}

	if err := s.ensureSlotFree(ctx, apt.DoctorID, apt.Date, apt.TimeSlot); err != nil {
		s.recordBooking("conflict")
		return nil, err
	}

	now := s.now().UTC()
	apt.CreatedAt = now
	apt.UpdatedAt = now

	if err := s.repository.Create(ctx, apt); err != nil {
		if types.ErrorTypeOf(err) == types.ErrorTypeConflict {
			s.recordBooking("conflict")
		}
		return nil, err
	}

	s.recordBooking("created")
	s.logger.Audit(ctx, caller.ID, "create", string(rbac.ResourceAppointment), true, map[string]interface{}{
		"appointment_id": apt.ID,
		"doctor_id":      apt.DoctorID,
		"patient_id":     apt.PatientID,
	})

	return apt, nil
}

// GetAppointment returns one appointment visible to the caller
func (s *Service) GetAppointment(ctx context.Context, caller rbac.Caller, id string) (*types.Appointment, error) {
	return s.load(ctx, caller, id, rbac.ActionRead, "")
}

// ListAppointments returns the caller's appointments, narrowed by filters
func (s *Service) ListAppointments(ctx context.Context, caller rbac.Caller, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	scoped := *filters
	switch caller.Role {
	case rbac.RolePatient:
		scoped.PatientID = caller.ID
	case rbac.RoleDoctor:
		scoped.DoctorID = caller.ID
	case rbac.RoleAdmin:
	default:
		return []*types.Appointment{}, nil
	}

	appointments, err := s.repository.List(ctx, &scoped)
	if err != nil {
		return nil, err
	}
	return rbac.Filter(ctx, s.policy, caller, appointments, rbac.AppointmentResource), nil
}

// ListPatientAppointments serves the self-or-other patient routes
func (s *Service) ListPatientAppointments(ctx context.Context, caller rbac.Caller, params map[string]string, shape rbac.RouteShape) ([]*types.Appointment, error) {
	patientID, err := s.resolver.ResolveSubject(ctx, caller, params, shape)
	if err != nil {
		return nil, err
	}

	appointments, err := s.repository.List(ctx, &types.AppointmentFilters{PatientID: patientID})
	if err != nil {
		return nil, err
	}
	return rbac.Filter(ctx, s.policy, caller, appointments, rbac.AppointmentResource), nil
}

// GetAvailability computes the free slots of a doctor on a date
func (s *Service) GetAvailability(ctx context.Context, doctorID, rawDate string) (*types.Availability, error) {
	if err := types.ValidateID("doctorId", doctorID); err != nil {
		return nil, err
	}
	date, err := NormalizeDate(rawDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	booked, err := s.repository.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	return &types.Availability{
		DoctorID:       doctorID,
		Date:           date,
		AvailableSlots: AvailableSlots(booked),
	}, nil
}

// UpdateAppointment applies clinical annotations or a reschedule. A status in the
// payload is checked as a status transition as well.
func (s *Service) UpdateAppointment(ctx context.Context, caller rbac.Caller, id string, updates *types.AppointmentUpdates) (*types.Appointment, error) {
	if updates.Empty() {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "no updates provided", nil)
	}

	existing, err := s.load(ctx, caller, id, rbac.ActionUpdate, "")
	if err != nil {
		return nil, err
	}

	if updates.Status != nil {
		if !updates.Status.Valid() {
			return nil, invalidStatus(*updates.Status)
		}
		if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
			Caller: caller, Resource: rbac.AppointmentResource(existing),
			Action: rbac.ActionUpdateStatus, TargetStatus: string(*updates.Status),
		}); err != nil {
			return nil, err
		}
	}

	if updates.TimeSlot != nil && !ValidSlot(*updates.TimeSlot) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "unknown time slot",
			map[string]interface{}{"field": "timeSlot", "allowed": slotCatalog})
	}

	status := existing.Status
	if updates.Status != nil {
		status = *updates.Status
	}
	reopened := existing.Status == types.StatusCancelled && status != types.StatusCancelled

	if updates.Date != nil || updates.TimeSlot != nil || reopened {
		date, slot := existing.Date, existing.TimeSlot
		if updates.Date != nil {
			date = MidnightUTC(*updates.Date)
			if date.Before(MidnightUTC(s.now().UTC())) {
				return nil, types.NewValidationError(types.ErrCodeInvalidInput, "date cannot be in the past",
					map[string]interface{}{"field": "date"})
			}
			updates.Date = &date
		}
		if updates.TimeSlot != nil {
			slot = *updates.TimeSlot
		}
		// A cancelled appointment holds no slot until it is reopened.
		moved := !date.Equal(existing.Date) || slot != existing.TimeSlot
		if status != types.StatusCancelled && (moved || reopened) {
			if err := s.ensureSlotFree(ctx, existing.DoctorID, date, slot); err != nil {
				return nil, err
			}
		}
	}

	updated, err := s.repository.Update(ctx, existing.ID, updates)
	if err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, caller.ID, "update", string(rbac.ResourceAppointment), true, map[string]interface{}{
		"appointment_id": updated.ID,
	})
	return updated, nil
}

// UpdateStatus moves an appointment to status. Setting the current status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, caller rbac.Caller, id string, status types.AppointmentStatus) (*types.Appointment, error) {
	if err := types.ValidateID("id", id); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalidStatus(status)
	}

	existing, err := s.load(ctx, caller, id, rbac.ActionUpdateStatus, string(status))
	if err != nil {
		return nil, err
	}

	if existing.Status == status {
		return existing, nil
	}

	updated, err := s.repository.Update(ctx, existing.ID, &types.AppointmentUpdates{Status: &status})
	if err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, caller.ID, "update_status", string(rbac.ResourceAppointment), true, map[string]interface{}{
		"appointment_id": updated.ID,
		"from":           existing.Status,
		"to":             status,
	})
	return updated, nil
}

// CancelAppointment is UpdateStatus to cancelled
func (s *Service) CancelAppointment(ctx context.Context, caller rbac.Caller, id string) (*types.Appointment, error) {
	return s.UpdateStatus(ctx, caller, id, types.StatusCancelled)
}

// DeleteAppointment removes an appointment
func (s *Service) DeleteAppointment(ctx context.Context, caller rbac.Caller, id string) error {
	existing, err := s.load(ctx, caller, id, rbac.ActionDelete, "")
	if err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, existing.ID); err != nil {
		return err
	}

	s.logger.Audit(ctx, caller.ID, "delete", string(rbac.ResourceAppointment), true, map[string]interface{}{
		"appointment_id": existing.ID,
	})
	return nil
}

// load validates the id, fetches the appointment and checks the action, in that order
func (s *Service) load(ctx context.Context, caller rbac.Caller, id string, action rbac.Action, target string) (*types.Appointment, error) {
	if err := types.ValidateID("id", id); err != nil {
		return nil, err
	}

	apt, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.AppointmentResource(apt), Action: action, TargetStatus: target,
	}); err != nil {
		return nil, err
	}

	return apt, nil
}

func (s *Service) bookableDate(raw string) (time.Time, error) {
	date, err := NormalizeDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	if date.Before(MidnightUTC(s.now().UTC())) {
		return time.Time{}, types.NewValidationError(types.ErrCodeInvalidInput, "date cannot be in the past",
			map[string]interface{}{"field": "date"})
	}
	return date, nil
}

func (s *Service) ensureSlotFree(ctx context.Context, doctorID string, date time.Time, slot string) error {
	booked, err := s.repository.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return err
	}
	for _, label := range booked {
		if label == slot {
			return types.NewConflictError(types.ErrCodeSlotTaken, "time slot is already booked", nil)
		}
	}
	return nil
}

func (s *Service) requireDoctor(ctx context.Context, doctorID string) (*types.Account, error) {
	doctor, err := s.accounts.GetByID(ctx, doctorID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "doctor not found")
		}
		return nil, err
	}
	if doctor.Role != rbac.RoleDoctor {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "doctor not found")
	}
	if !doctor.IsApproved {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "doctor is not accepting appointments",
			map[string]interface{}{"field": "doctorId"})
	}
	return doctor, nil
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

func (s *Service) recordBooking(status string) {
	if s.metrics != nil {
		s.metrics.RecordBooking(status)
	}
}

func invalidStatus(status types.AppointmentStatus) error {
	return types.NewValidationError(types.ErrCodeInvalidInput, "invalid appointment status",
		map[string]interface{}{"field": "status", "value": status})
}
