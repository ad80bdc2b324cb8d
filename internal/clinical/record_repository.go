package clinical

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/medrex/clinic-api/pkg/database"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/types"
)

const recordColumns = `id, patient_id, doctor_id, appointment_id, vital_signs, diagnosis, symptoms,
		treatment, notes, prescription_ids, created_at, updated_at`

// MedicalRecordRepository implements medical record persistence
type MedicalRecordRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewMedicalRecordRepository creates a new medical record repository
func NewMedicalRecordRepository(db *database.DB, log *logger.Logger) interfaces.MedicalRecordRepository {
	return &MedicalRecordRepository{
		db:     db,
		logger: log,
	}
}

func scanRecord(row rowScanner) (*types.MedicalRecord, error) {
	var rec types.MedicalRecord
	var appointmentID sql.NullString
	var vitals []byte
	symptoms := pq.StringArray{}
	prescriptionIDs := pq.StringArray{}

	err := row.Scan(
		&rec.ID,
		&rec.PatientID,
		&rec.DoctorID,
		&appointmentID,
		&vitals,
		&rec.Diagnosis,
		&symptoms,
		&rec.Treatment,
		&rec.Notes,
		&prescriptionIDs,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.AppointmentID = nullableString(appointmentID)
	if len(vitals) > 0 {
		if err := json.Unmarshal(vitals, &rec.VitalSigns); err != nil {
			return nil, fmt.Errorf("failed to decode vital signs: %w", err)
		}
	}

	rec.Symptoms = []string(symptoms)
	if rec.Symptoms == nil {
		rec.Symptoms = []string{}
	}
	rec.PrescriptionIDs = []string(prescriptionIDs)
	if rec.PrescriptionIDs == nil {
		rec.PrescriptionIDs = []string{}
	}

	return &rec, nil
}

// Create creates a new medical record
func (r *MedicalRecordRepository) Create(ctx context.Context, rec *types.MedicalRecord) error {
	vitals, err := json.Marshal(rec.VitalSigns)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to encode vital signs", err)
	}

	query := `
		INSERT INTO medical_records (
			id, patient_id, doctor_id, appointment_id, vital_signs, diagnosis, symptoms,
			treatment, notes, prescription_ids, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.PatientID,
		rec.DoctorID,
		rec.AppointmentID,
		vitals,
		rec.Diagnosis,
		pq.Array(rec.Symptoms),
		rec.Treatment,
		rec.Notes,
		pq.Array(rec.PrescriptionIDs),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "insert", "medical_records", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to create medical record", err)
	}

	return nil
}

// GetByID retrieves a medical record by ID
func (r *MedicalRecordRepository) GetByID(ctx context.Context, id string) (*types.MedicalRecord, error) {
	return r.getOne(ctx, `SELECT `+recordColumns+` FROM medical_records WHERE id = $1`, id)
}

// GetByAppointment returns the newest record written for an appointment
func (r *MedicalRecordRepository) GetByAppointment(ctx context.Context, appointmentID string) (*types.MedicalRecord, error) {
	return r.getOne(ctx, `SELECT `+recordColumns+` FROM medical_records
		WHERE appointment_id = $1 ORDER BY created_at DESC LIMIT 1`, appointmentID)
}

// GetLatestForPair returns the newest record a doctor wrote for a patient
func (r *MedicalRecordRepository) GetLatestForPair(ctx context.Context, doctorID, patientID string) (*types.MedicalRecord, error) {
	return r.getOne(ctx, `SELECT `+recordColumns+` FROM medical_records
		WHERE doctor_id = $1 AND patient_id = $2 ORDER BY created_at DESC LIMIT 1`, doctorID, patientID)
}

func (r *MedicalRecordRepository) getOne(ctx context.Context, query string, args ...interface{}) (*types.MedicalRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "medical record not found")
		}
		r.logger.DatabaseOperation(ctx, "select", "medical_records", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get medical record", err)
	}
	return rec, nil
}

// AppendPrescription adds a prescription reference to a record
func (r *MedicalRecordRepository) AppendPrescription(ctx context.Context, recordID, prescriptionID string) error {
	query := `
		UPDATE medical_records
		SET prescription_ids = array_append(prescription_ids, $1::uuid), updated_at = $2
		WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, prescriptionID, time.Now().UTC(), recordID)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "update", "medical_records", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to link prescription", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "medical record not found")
	}

	return nil
}

// Update applies the provided fields and returns the stored record
func (r *MedicalRecordRepository) Update(ctx context.Context, id string, updates *types.MedicalRecordUpdates) (*types.MedicalRecord, error) {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	add := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if updates.VitalSigns != nil {
		vitals, err := json.Marshal(updates.VitalSigns)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to encode vital signs", err)
		}
		add("vital_signs", vitals)
	}
	if updates.Diagnosis != nil {
		add("diagnosis", *updates.Diagnosis)
	}
	if updates.Symptoms != nil {
		add("symptoms", pq.Array(*updates.Symptoms))
	}
	if updates.Treatment != nil {
		add("treatment", *updates.Treatment)
	}
	if updates.Notes != nil {
		add("notes", *updates.Notes)
	}

	if len(setParts) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "no updates provided", nil)
	}

	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE medical_records SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setParts, ", "), argIndex, recordColumns)
	args = append(args, id)

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "medical record not found")
		}
		r.logger.DatabaseOperation(ctx, "update", "medical_records", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to update medical record", err)
	}

	return rec, nil
}

// Delete removes a medical record
func (r *MedicalRecordRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM medical_records WHERE id = $1`, id)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "delete", "medical_records", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to delete medical record", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "medical record not found")
	}

	return nil
}

// List retrieves medical records matching filters, newest first
func (r *MedicalRecordRepository) List(ctx context.Context, filters *types.MedicalRecordFilters) ([]*types.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM medical_records WHERE 1=1`

	args := []interface{}{}
	argIndex := 1

	if filters != nil {
		if filters.PatientID != "" {
			query += fmt.Sprintf(" AND patient_id = $%d", argIndex)
			args = append(args, filters.PatientID)
			argIndex++
		}
		if filters.DoctorID != "" {
			query += fmt.Sprintf(" AND doctor_id = $%d", argIndex)
			args = append(args, filters.DoctorID)
			argIndex++
		}
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "select", "medical_records", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to list medical records", err)
	}
	defer rows.Close()

	records := []*types.MedicalRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to scan medical record", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to iterate medical records", err)
	}

	return records, nil
}
