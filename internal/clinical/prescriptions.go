package clinical

import (
	"context"
	"fmt"
	"strings"

	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// CreatePrescription issues a prescription and links it to the matching medical record:
// the one named in the request, else the record of the same appointment, else the
// newest record of the same doctor and patient.
func (s *Service) CreatePrescription(ctx context.Context, caller rbac.Caller, req *types.PrescriptionRequest) (*types.Prescription, error) {
	if err := requireDoctorCaller(caller, "prescriptions"); err != nil {
		return nil, err
	}
	if err := types.ValidateID("patientId", req.PatientID); err != nil {
		return nil, err
	}
	if err := validateMedications(req.Medications); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rx := &types.Prescription{
		ID:          types.NewID(),
		PatientID:   req.PatientID,
		DoctorID:    caller.ID,
		Medications: req.Medications,
		Notes:       req.Notes,
		Status:      types.PrescriptionActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.PrescriptionResource(rx), Action: rbac.ActionCreate,
	}); err != nil {
		return nil, err
	}

	if err := s.requirePatient(ctx, rx.PatientID); err != nil {
		return nil, err
	}

	appointmentID, err := s.linkedAppointment(ctx, req.AppointmentID, rx.DoctorID, rx.PatientID)
	if err != nil {
		return nil, err
	}
	rx.AppointmentID = appointmentID

	record, err := s.recordForPrescription(ctx, req.MedicalRecordID, appointmentID, rx)
	if err != nil {
		return nil, err
	}
	if record != nil {
		rx.MedicalRecordID = &record.ID
	}

	if err := s.prescriptions.Create(ctx, rx); err != nil {
		return nil, err
	}

	// No transaction spans both writes; a failed link leaves the prescription standing.
	if record != nil {
		if err := s.records.AppendPrescription(ctx, record.ID, rx.ID); err != nil {
			s.logger.WithContext(ctx).WithError(err).
				WithField("prescription_id", rx.ID).
				WithField("medical_record_id", record.ID).
				Error("Failed to link prescription to medical record")
		}
	}

	s.logger.Audit(ctx, caller.ID, "create", string(rbac.ResourcePrescription), true, map[string]interface{}{
		"prescription_id": rx.ID,
		"patient_id":      rx.PatientID,
		"medications":     len(rx.Medications),
	})
	return rx, nil
}

// recordForPrescription picks the medical record a new prescription is filed under
func (s *Service) recordForPrescription(ctx context.Context, recordID string, appointmentID *string, rx *types.Prescription) (*types.MedicalRecord, error) {
	if recordID != "" {
		if err := types.ValidateID("medicalRecordId", recordID); err != nil {
			return nil, err
		}
		record, err := s.records.GetByID(ctx, recordID)
		if err != nil {
			return nil, err
		}
		if record.DoctorID != rx.DoctorID || record.PatientID != rx.PatientID {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "medical record belongs to a different doctor or patient",
				map[string]interface{}{"field": "medicalRecordId"})
		}
		return record, nil
	}

	if appointmentID != nil {
		record, err := s.records.GetByAppointment(ctx, *appointmentID)
		if err == nil {
			return record, nil
		}
		if !types.IsNotFound(err) {
			return nil, err
		}
	}

	record, err := s.records.GetLatestForPair(ctx, rx.DoctorID, rx.PatientID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// GetPrescription returns one prescription visible to the caller
func (s *Service) GetPrescription(ctx context.Context, caller rbac.Caller, id string) (*types.Prescription, error) {
	return s.loadPrescription(ctx, caller, id, rbac.ActionRead)
}

// ListPrescriptions returns the prescriptions the caller may see. Pharmacists see all.
func (s *Service) ListPrescriptions(ctx context.Context, caller rbac.Caller, filters *types.PrescriptionFilters) ([]*types.Prescription, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, invalidPrescriptionStatus(filters.Status)
	}

	scoped := *filters
	if !scopeForCaller(caller, &scoped.PatientID, &scoped.DoctorID, true) {
		return []*types.Prescription{}, nil
	}

	prescriptions, err := s.prescriptions.List(ctx, &scoped)
	if err != nil {
		return nil, err
	}
	return rbac.Filter(ctx, s.policy, caller, prescriptions, rbac.PrescriptionResource), nil
}

// ListPatientPrescriptions serves the self-or-other patient routes
func (s *Service) ListPatientPrescriptions(ctx context.Context, caller rbac.Caller, params map[string]string, shape rbac.RouteShape) ([]*types.Prescription, error) {
	patientID, err := s.resolver.ResolveSubject(ctx, caller, params, shape)
	if err != nil {
		return nil, err
	}

	prescriptions, err := s.prescriptions.List(ctx, &types.PrescriptionFilters{PatientID: patientID})
	if err != nil {
		return nil, err
	}
	return rbac.Filter(ctx, s.policy, caller, prescriptions, rbac.PrescriptionResource), nil
}

// UpdatePrescription edits medications, notes or status
func (s *Service) UpdatePrescription(ctx context.Context, caller rbac.Caller, id string, updates *types.PrescriptionUpdates) (*types.Prescription, error) {
	existing, err := s.loadPrescription(ctx, caller, id, rbac.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if updates.Medications == nil && updates.Notes == nil && updates.Status == nil {
		return nil, emptyUpdate()
	}
	if updates.Medications != nil {
		if err := validateMedications(*updates.Medications); err != nil {
			return nil, err
		}
	}
	if updates.Status != nil && !updates.Status.Valid() {
		return nil, invalidPrescriptionStatus(*updates.Status)
	}

	updated, err := s.prescriptions.Update(ctx, existing.ID, updates)
	if err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, caller.ID, "update", string(rbac.ResourcePrescription), true, map[string]interface{}{
		"prescription_id": updated.ID,
		"status":          updated.Status,
	})
	return updated, nil
}

// DeletePrescription removes a prescription
func (s *Service) DeletePrescription(ctx context.Context, caller rbac.Caller, id string) error {
	existing, err := s.loadPrescription(ctx, caller, id, rbac.ActionDelete)
	if err != nil {
		return err
	}

	if err := s.prescriptions.Delete(ctx, existing.ID); err != nil {
		return err
	}

	s.logger.Audit(ctx, caller.ID, "delete", string(rbac.ResourcePrescription), true, map[string]interface{}{
		"prescription_id": existing.ID,
	})
	return nil
}

// loadPrescription validates the id, fetches the prescription and checks the action
func (s *Service) loadPrescription(ctx context.Context, caller rbac.Caller, id string, action rbac.Action) (*types.Prescription, error) {
	if err := types.ValidateID("id", id); err != nil {
		return nil, err
	}

	rx, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.PrescriptionResource(rx), Action: action,
	}); err != nil {
		return nil, err
	}

	return rx, nil
}

func validateMedications(medications []types.Medication) error {
	if len(medications) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "at least one medication is required",
			map[string]interface{}{"field": "medications"})
	}

	for i, m := range medications {
		missing := []string{}
		if strings.TrimSpace(m.Name) == "" {
			missing = append(missing, "name")
		}
		if strings.TrimSpace(m.Dosage) == "" {
			missing = append(missing, "dosage")
		}
		if strings.TrimSpace(m.Frequency) == "" {
			missing = append(missing, "frequency")
		}
		if strings.TrimSpace(m.Duration) == "" {
			missing = append(missing, "duration")
		}
		if len(missing) > 0 {
			return types.NewValidationError(types.ErrCodeInvalidInput,
				fmt.Sprintf("medication %d is missing %s", i+1, strings.Join(missing, ", ")),
				map[string]interface{}{"field": fmt.Sprintf("medications[%d]", i)})
		}
	}
	return nil
}

func invalidPrescriptionStatus(status types.PrescriptionStatus) error {
	return types.NewValidationError(types.ErrCodeInvalidInput, "invalid prescription status",
		map[string]interface{}{"field": "status", "value": status})
}
