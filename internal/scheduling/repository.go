package scheduling

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/medrex/clinic-api/pkg/database"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/types"
)

const appointmentColumns = `id, patient_id, doctor_id, appointment_date, time_slot, reason, status,
		diagnosis, notes, follow_up_date, created_at, updated_at`

// Repository implements the AppointmentRepository interface
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new appointment repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.AppointmentRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*types.Appointment, error) {
	apt := &types.Appointment{}
	var followUp sql.NullTime
	err := row.Scan(
		&apt.ID,
		&apt.PatientID,
		&apt.DoctorID,
		&apt.Date,
		&apt.TimeSlot,
		&apt.Reason,
		&apt.Status,
		&apt.Diagnosis,
		&apt.Notes,
		&followUp,
		&apt.CreatedAt,
		&apt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if followUp.Valid {
		t := followUp.Time
		apt.FollowUpDate = &t
	}
	apt.Date = apt.Date.UTC()
	return apt, nil
}

// slotConflict maps a violation of the live-slot index to a conflict
func slotConflict(err error) error {
	if database.IsUniqueViolation(err) {
		return types.NewConflictError(types.ErrCodeSlotTaken, "time slot is already booked", err)
	}
	return nil
}

// Create inserts a new appointment
func (r *Repository) Create(ctx context.Context, apt *types.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, appointment_date, time_slot, reason, status,
			diagnosis, notes, follow_up_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		apt.ID,
		apt.PatientID,
		apt.DoctorID,
		apt.Date,
		apt.TimeSlot,
		apt.Reason,
		string(apt.Status),
		apt.Diagnosis,
		apt.Notes,
		apt.FollowUpDate,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		if conflict := slotConflict(err); conflict != nil {
			return conflict
		}
		r.logger.DatabaseOperation(ctx, "insert", "appointments", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	apt, err := scanAppointment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "appointment not found")
		}
		r.logger.DatabaseOperation(ctx, "select", "appointments", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get appointment", err)
	}

	return apt, nil
}

// Update applies the provided fields and returns the stored appointment
func (r *Repository) Update(ctx context.Context, id string, updates *types.AppointmentUpdates) (*types.Appointment, error) {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	add := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if updates.Date != nil {
		add("appointment_date", *updates.Date)
	}
	if updates.TimeSlot != nil {
		add("time_slot", *updates.TimeSlot)
	}
	if updates.Reason != nil {
		add("reason", *updates.Reason)
	}
	if updates.Status != nil {
		add("status", string(*updates.Status))
	}
	if updates.Diagnosis != nil {
		add("diagnosis", *updates.Diagnosis)
	}
	if updates.Notes != nil {
		add("notes", *updates.Notes)
	}
	if updates.FollowUpDate != nil {
		add("follow_up_date", *updates.FollowUpDate)
	}

	if len(setParts) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "no updates provided", nil)
	}

	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE appointments SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setParts, ", "), argIndex, appointmentColumns)
	args = append(args, id)

	apt, err := scanAppointment(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "appointment not found")
		}
		if conflict := slotConflict(err); conflict != nil {
			return nil, conflict
		}
		r.logger.DatabaseOperation(ctx, "update", "appointments", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to update appointment", err)
	}

	return apt, nil
}

// Delete removes an appointment
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "delete", "appointments", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to delete appointment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "appointment not found")
	}

	return nil
}

// List retrieves appointments matching filters, newest date first
func (r *Repository) List(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`

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
		if filters.Date != nil {
			query += fmt.Sprintf(" AND appointment_date = $%d", argIndex)
			args = append(args, *filters.Date)
			argIndex++
		}
		if filters.FromDate != nil {
			query += fmt.Sprintf(" AND appointment_date >= $%d", argIndex)
			args = append(args, *filters.FromDate)
			argIndex++
		}
		if filters.ToDate != nil {
			query += fmt.Sprintf(" AND appointment_date <= $%d", argIndex)
			args = append(args, *filters.ToDate)
			argIndex++
		}
	}

	query += " ORDER BY appointment_date DESC, time_slot ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "select", "appointments", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to list appointments", err)
	}
	defer rows.Close()

	appointments := []*types.Appointment{}
	for rows.Next() {
		apt, err := scanAppointment(rows)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to scan appointment", err)
		}
		appointments = append(appointments, apt)
	}

	if err := rows.Err(); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to iterate appointments", err)
	}

	return appointments, nil
}

// BookedSlots returns slot labels of the doctor's non-cancelled appointments on date
func (r *Repository) BookedSlots(ctx context.Context, doctorID string, date time.Time) ([]string, error) {
	query := `
		SELECT time_slot FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status <> $3`

	rows, err := r.db.QueryContext(ctx, query, doctorID, date, string(types.StatusCancelled))
	if err != nil {
		r.logger.DatabaseOperation(ctx, "select", "appointments", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to load booked slots", err)
	}
	defer rows.Close()

	slots := []string{}
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to scan slot", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to iterate slots", err)
	}

	return slots, nil
}
