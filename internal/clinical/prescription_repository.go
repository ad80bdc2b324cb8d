package clinical

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/medrex/clinic-api/pkg/database"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/types"
)

const prescriptionColumns = `id, patient_id, doctor_id, appointment_id, medical_record_id, medications,
		notes, status, created_at, updated_at`

// PrescriptionRepository implements prescription persistence. Medications are kept
// as an ordered JSONB array.
type PrescriptionRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewPrescriptionRepository creates a new prescription repository
func NewPrescriptionRepository(db *database.DB, log *logger.Logger) interfaces.PrescriptionRepository {
	return &PrescriptionRepository{
		db:     db,
		logger: log,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrescription(row rowScanner) (*types.Prescription, error) {
	var rx types.Prescription
	var appointmentID, recordID sql.NullString
	var medications []byte

	err := row.Scan(
		&rx.ID,
		&rx.PatientID,
		&rx.DoctorID,
		&appointmentID,
		&recordID,
		&medications,
		&rx.Notes,
		&rx.Status,
		&rx.CreatedAt,
		&rx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rx.AppointmentID = nullableString(appointmentID)
	rx.MedicalRecordID = nullableString(recordID)

	rx.Medications = []types.Medication{}
	if len(medications) > 0 {
		if err := json.Unmarshal(medications, &rx.Medications); err != nil {
			return nil, fmt.Errorf("failed to decode medications: %w", err)
		}
	}

	return &rx, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Create creates a new prescription
func (r *PrescriptionRepository) Create(ctx context.Context, rx *types.Prescription) error {
	medications, err := json.Marshal(rx.Medications)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to encode medications", err)
	}

	query := `
		INSERT INTO prescriptions (
			id, patient_id, doctor_id, appointment_id, medical_record_id, medications,
			notes, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.ExecContext(ctx, query,
		rx.ID,
		rx.PatientID,
		rx.DoctorID,
		rx.AppointmentID,
		rx.MedicalRecordID,
		medications,
		rx.Notes,
		string(rx.Status),
		rx.CreatedAt,
		rx.UpdatedAt,
	)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "insert", "prescriptions", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to create prescription", err)
	}

	return nil
}

// GetByID retrieves a prescription by ID
func (r *PrescriptionRepository) GetByID(ctx context.Context, id string) (*types.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = $1`

	rx, err := scanPrescription(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "prescription not found")
		}
		r.logger.DatabaseOperation(ctx, "select", "prescriptions", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get prescription", err)
	}
	return rx, nil
}

// Update applies the provided fields and returns the stored prescription
func (r *PrescriptionRepository) Update(ctx context.Context, id string, updates *types.PrescriptionUpdates) (*types.Prescription, error) {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if updates.Medications != nil {
		medications, err := json.Marshal(*updates.Medications)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to encode medications", err)
		}
		setParts = append(setParts, fmt.Sprintf("medications = $%d", argIndex))
		args = append(args, medications)
		argIndex++
	}
	if updates.Notes != nil {
		setParts = append(setParts, fmt.Sprintf("notes = $%d", argIndex))
		args = append(args, *updates.Notes)
		argIndex++
	}
	if updates.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(*updates.Status))
		argIndex++
	}

	if len(setParts) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "no updates provided", nil)
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now().UTC())
	argIndex++

	query := fmt.Sprintf("UPDATE prescriptions SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setParts, ", "), argIndex, prescriptionColumns)
	args = append(args, id)

	rx, err := scanPrescription(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "prescription not found")
		}
		r.logger.DatabaseOperation(ctx, "update", "prescriptions", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to update prescription", err)
	}

	return rx, nil
}

// Delete removes a prescription
func (r *PrescriptionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "delete", "prescriptions", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to delete prescription", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "prescription not found")
	}

	return nil
}

// List retrieves prescriptions matching filters, newest first
func (r *PrescriptionRepository) List(ctx context.Context, filters *types.PrescriptionFilters) ([]*types.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE 1=1`

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
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argIndex)
			args = append(args, string(filters.Status))
			argIndex++
		}
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "select", "prescriptions", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to list prescriptions", err)
	}
	defer rows.Close()

	prescriptions := []*types.Prescription{}
	for rows.Next() {
		rx, err := scanPrescription(rows)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to scan prescription", err)
		}
		prescriptions = append(prescriptions, rx)
	}

	if err := rows.Err(); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to iterate prescriptions", err)
	}

	return prescriptions, nil
}
