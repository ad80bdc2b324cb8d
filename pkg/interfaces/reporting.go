package interfaces

import (
	"context"
	"time"

	"github.com/medrex/clinic-api/pkg/types"
)

// ReportingRepository runs aggregate queries for dashboards and reports
type ReportingRepository interface {
	CountAccountsByRole(ctx context.Context) (map[string]int, error)
	CountPendingApprovals(ctx context.Context) (int, error)
	CountAppointmentsByStatus(ctx context.Context, filters *types.AppointmentFilters) (map[string]int, error)
	CountAppointmentsByDoctor(ctx context.Context, from, to time.Time) (map[string]int, error)
	CountPrescriptions(ctx context.Context, filters *types.PrescriptionFilters) (int, error)
	CountMedicalRecords(ctx context.Context, filters *types.MedicalRecordFilters) (int, error)
}
