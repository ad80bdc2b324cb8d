package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medrex/clinic-api/pkg/database"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/types"
)

// Repository runs aggregate queries across the clinic tables
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new reporting repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.ReportingRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

// conditions accumulates a WHERE clause with positional arguments
type conditions struct {
	parts []string
	args  []interface{}
}

func (c *conditions) add(expr string, value interface{}) {
	c.args = append(c.args, value)
	c.parts = append(c.parts, fmt.Sprintf(expr, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.parts) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.parts, " AND ")
}

// CountAccountsByRole returns the number of accounts per role
func (r *Repository) CountAccountsByRole(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, "accounts", `SELECT role, COUNT(*) FROM accounts GROUP BY role`)
}

// CountPendingApprovals returns the number of accounts awaiting approval
func (r *Repository) CountPendingApprovals(ctx context.Context) (int, error) {
	return r.count(ctx, "accounts", `SELECT COUNT(*) FROM accounts WHERE is_approved = $1`, false)
}

// CountAppointmentsByStatus returns appointment counts per status for the filters
func (r *Repository) CountAppointmentsByStatus(ctx context.Context, filters *types.AppointmentFilters) (map[string]int, error) {
	c := &conditions{}
	if filters != nil {
		if filters.PatientID != "" {
			c.add("patient_id = $%d", filters.PatientID)
		}
		if filters.DoctorID != "" {
			c.add("doctor_id = $%d", filters.DoctorID)
		}
		if filters.Status != "" {
			c.add("status = $%d", string(filters.Status))
		}
		if filters.Date != nil {
			c.add("appointment_date = $%d", *filters.Date)
		}
		if filters.FromDate != nil {
			c.add("appointment_date >= $%d", *filters.FromDate)
		}
		if filters.ToDate != nil {
			c.add("appointment_date <= $%d", *filters.ToDate)
		}
	}

	query := `SELECT status, COUNT(*) FROM appointments` + c.where() + ` GROUP BY status`
	return r.groupCount(ctx, "appointments", query, c.args...)
}

// CountAppointmentsByDoctor returns appointment counts per doctor id within [from, to]
func (r *Repository) CountAppointmentsByDoctor(ctx context.Context, from, to time.Time) (map[string]int, error) {
	query := `SELECT doctor_id, COUNT(*) FROM appointments
		WHERE appointment_date >= $1 AND appointment_date <= $2 GROUP BY doctor_id`
	return r.groupCount(ctx, "appointments", query, from, to)
}

// CountPrescriptions returns the number of prescriptions matching filters
func (r *Repository) CountPrescriptions(ctx context.Context, filters *types.PrescriptionFilters) (int, error) {
	c := &conditions{}
	if filters != nil {
		if filters.PatientID != "" {
			c.add("patient_id = $%d", filters.PatientID)
		}
		if filters.DoctorID != "" {
			c.add("doctor_id = $%d", filters.DoctorID)
		}
		if filters.Status != "" {
			c.add("status = $%d", string(filters.Status))
		}
	}
	return r.count(ctx, "prescriptions", `SELECT COUNT(*) FROM prescriptions`+c.where(), c.args...)
}

// CountMedicalRecords returns the number of medical records matching filters
func (r *Repository) CountMedicalRecords(ctx context.Context, filters *types.MedicalRecordFilters) (int, error) {
	c := &conditions{}
	if filters != nil {
		if filters.PatientID != "" {
			c.add("patient_id = $%d", filters.PatientID)
		}
		if filters.DoctorID != "" {
			c.add("doctor_id = $%d", filters.DoctorID)
		}
	}
	return r.count(ctx, "medical_records", `SELECT COUNT(*) FROM medical_records`+c.where(), c.args...)
}

func (r *Repository) count(ctx context.Context, table, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		r.logger.DatabaseOperation(ctx, "count", table, err)
		return 0, types.NewInternalError(types.ErrCodeInternalError, "failed to count "+table, err)
	}
	return n, nil
}

func (r *Repository) groupCount(ctx context.Context, table, query string, args ...interface{}) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "count", table, err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to count "+table, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to scan "+table+" count", err)
		}
		counts[key] = n
	}

	if err := rows.Err(); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to iterate "+table+" counts", err)
	}

	return counts, nil
}
