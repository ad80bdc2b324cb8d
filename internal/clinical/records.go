package clinical

import (
	"context"

	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// CreateMedicalRecord files a visit record authored by the calling doctor
func (s *Service) CreateMedicalRecord(ctx context.Context, caller rbac.Caller, req *types.MedicalRecordRequest) (*types.MedicalRecord, error) {
	if err := requireDoctorCaller(caller, "medical records"); err != nil {
		return nil, err
	}
	if err := types.ValidateID("patientId", req.PatientID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := &types.MedicalRecord{
		ID:              types.NewID(),
		PatientID:       req.PatientID,
		DoctorID:        caller.ID,
		VitalSigns:      req.VitalSigns,
		Diagnosis:       req.Diagnosis,
		Symptoms:        req.Symptoms,
		Treatment:       req.Treatment,
		Notes:           req.Notes,
		PrescriptionIDs: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if rec.Symptoms == nil {
		rec.Symptoms = []string{}
	}

	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.MedicalRecordResource(rec), Action: rbac.ActionCreate,
	}); err != nil {
		return nil, err
	}

	if err := s.requirePatient(ctx, rec.PatientID); err != nil {
		return nil, err
	}

	appointmentID, err := s.linkedAppointment(ctx, req.AppointmentID, rec.DoctorID, rec.PatientID)
	if err != nil {
		return nil, err
	}
	rec.AppointmentID = appointmentID

	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, caller.ID, "create", string(rbac.ResourceMedicalRecord), true, map[string]interface{}{
		"medical_record_id": rec.ID,
		"patient_id":        rec.PatientID,
	})
	return rec, nil
}

// GetMedicalRecord returns one record visible to the caller
func (s *Service) GetMedicalRecord(ctx context.Context, caller rbac.Caller, id string) (*types.MedicalRecord, error) {
	return s.loadRecord(ctx, caller, id, rbac.ActionRead)
}

// ListMedicalRecords returns the records the caller may see
func (s *Service) ListMedicalRecords(ctx context.Context, caller rbac.Caller) ([]*types.MedicalRecord, error) {
	filters := &types.MedicalRecordFilters{}
	if !scopeForCaller(caller, &filters.PatientID, &filters.DoctorID, false) {
		return []*types.MedicalRecord{}, nil
	}

	records, err := s.records.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	return rbac.Filter(ctx, s.policy, caller, records, rbac.MedicalRecordResource), nil
}

// ListPatientRecords serves the self-or-other patient routes
func (s *Service) ListPatientRecords(ctx context.Context, caller rbac.Caller, params map[string]string, shape rbac.RouteShape) ([]*types.MedicalRecord, error) {
	patientID, err := s.resolver.ResolveSubject(ctx, caller, params, shape)
	if err != nil {
		return nil, err
	}

	records, err := s.records.List(ctx, &types.MedicalRecordFilters{PatientID: patientID})
	if err != nil {
		return nil, err
	}
	return rbac.Filter(ctx, s.policy, caller, records, rbac.MedicalRecordResource), nil
}

// UpdateMedicalRecord edits a record. Only its author and administrators get here.
func (s *Service) UpdateMedicalRecord(ctx context.Context, caller rbac.Caller, id string, updates *types.MedicalRecordUpdates) (*types.MedicalRecord, error) {
	existing, err := s.loadRecord(ctx, caller, id, rbac.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if updates.VitalSigns == nil && updates.Diagnosis == nil && updates.Symptoms == nil &&
		updates.Treatment == nil && updates.Notes == nil {
		return nil, emptyUpdate()
	}

	updated, err := s.records.Update(ctx, existing.ID, updates)
	if err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, caller.ID, "update", string(rbac.ResourceMedicalRecord), true, map[string]interface{}{
		"medical_record_id": updated.ID,
	})
	return updated, nil
}

// DeleteMedicalRecord removes a record
func (s *Service) DeleteMedicalRecord(ctx context.Context, caller rbac.Caller, id string) error {
	existing, err := s.loadRecord(ctx, caller, id, rbac.ActionDelete)
	if err != nil {
		return err
	}

	if err := s.records.Delete(ctx, existing.ID); err != nil {
		return err
	}

	s.logger.Audit(ctx, caller.ID, "delete", string(rbac.ResourceMedicalRecord), true, map[string]interface{}{
		"medical_record_id": existing.ID,
	})
	return nil
}

func (s *Service) loadRecord(ctx context.Context, caller rbac.Caller, id string, action rbac.Action) (*types.MedicalRecord, error) {
	if err := types.ValidateID("id", id); err != nil {
		return nil, err
	}

	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.MedicalRecordResource(rec), Action: action,
	}); err != nil {
		return nil, err
	}

	return rec, nil
}
