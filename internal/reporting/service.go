package reporting

import (
	"context"
	"math"
	"time"

	"github.com/medrex/clinic-api/internal/scheduling"
	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// Dashboard counter names
const (
	CounterPatients             = "totalPatients"
	CounterDoctors              = "totalDoctors"
	CounterPharmacists          = "totalPharmacists"
	CounterAdmins               = "totalAdmins"
	CounterPendingApprovals     = "pendingApprovals"
	CounterLowStock             = "lowStockItems"
	CounterExpiringSoon         = "expiringItems"
	CounterTodayAppointments    = "todayAppointments"
	CounterUpcomingAppointments = "upcomingAppointments"
	CounterPrescriptionsIssued  = "prescriptionsIssued"
	CounterActivePrescriptions  = "activePrescriptions"
	CounterMedicalRecords       = "medicalRecords"
	appointmentStatusSuffix     = "Appointments"
)

// expiringWindowDays matches the default look-ahead of the inventory expiring listing
const expiringWindowDays = 30

const dateLayout = "2006-01-02"

// defaultReportDays is the range of an appointment report when no bounds are given
const defaultReportDays = 30

// Service aggregates counters for dashboards and admin reports
type Service struct {
	logger     *logger.Logger
	repository interfaces.ReportingRepository
	inventory  interfaces.InventoryRepository
	policy     rbac.PolicyEngine
	responder  *api.Responder
	now        func() time.Time
}

// NewService creates a new reporting service
func NewService(log *logger.Logger, repository interfaces.ReportingRepository, inventory interfaces.InventoryRepository,
	policy rbac.PolicyEngine, responder *api.Responder) *Service {
	return &Service{
		logger:     log,
		repository: repository,
		inventory:  inventory,
		policy:     policy,
		responder:  responder,
		now:        time.Now,
	}
}

// DashboardStats returns the counters relevant to the caller's role, scoped to the caller
func (s *Service) DashboardStats(ctx context.Context, caller rbac.Caller) (*types.DashboardStats, error) {
	stats := &types.DashboardStats{Role: caller.Role, Counters: make(map[string]int)}

	var err error
	switch caller.Role {
	case types.RoleAdmin:
		err = s.adminCounters(ctx, stats.Counters)
	case types.RoleDoctor:
		err = s.doctorCounters(ctx, caller.ID, stats.Counters)
	case types.RolePatient:
		err = s.patientCounters(ctx, caller.ID, stats.Counters)
	case types.RolePharmacist:
		err = s.pharmacistCounters(ctx, stats.Counters)
	default:
		return nil, types.NewAuthorizationError(rbac.ErrorCodeAccessDenied, rbac.ReasonNotAuthorized)
	}
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *Service) adminCounters(ctx context.Context, counters map[string]int) error {
	byRole, err := s.repository.CountAccountsByRole(ctx)
	if err != nil {
		return err
	}
	counters[CounterPatients] = byRole[string(types.RolePatient)]
	counters[CounterDoctors] = byRole[string(types.RoleDoctor)]
	counters[CounterPharmacists] = byRole[string(types.RolePharmacist)]
	counters[CounterAdmins] = byRole[string(types.RoleAdmin)]

	if counters[CounterPendingApprovals], err = s.repository.CountPendingApprovals(ctx); err != nil {
		return err
	}

	byStatus, err := s.repository.CountAppointmentsByStatus(ctx, nil)
	if err != nil {
		return err
	}
	addStatusCounters(counters, byStatus)

	lowStock, err := s.inventory.LowStock(ctx)
	if err != nil {
		return err
	}
	counters[CounterLowStock] = len(lowStock)
	return nil
}

func (s *Service) doctorCounters(ctx context.Context, doctorID string, counters map[string]int) error {
	byStatus, err := s.repository.CountAppointmentsByStatus(ctx, &types.AppointmentFilters{DoctorID: doctorID})
	if err != nil {
		return err
	}
	addStatusCounters(counters, byStatus)

	today := s.today()
	todayByStatus, err := s.repository.CountAppointmentsByStatus(ctx, &types.AppointmentFilters{DoctorID: doctorID, Date: &today})
	if err != nil {
		return err
	}
	counters[CounterTodayAppointments] = openAppointments(todayByStatus)

	counters[CounterPrescriptionsIssued], err = s.repository.CountPrescriptions(ctx, &types.PrescriptionFilters{DoctorID: doctorID})
	return err
}

func (s *Service) patientCounters(ctx context.Context, patientID string, counters map[string]int) error {
	today := s.today()
	upcoming, err := s.repository.CountAppointmentsByStatus(ctx, &types.AppointmentFilters{PatientID: patientID, FromDate: &today})
	if err != nil {
		return err
	}
	counters[CounterUpcomingAppointments] = openAppointments(upcoming)

	if counters[CounterActivePrescriptions], err = s.repository.CountPrescriptions(ctx, &types.PrescriptionFilters{
		PatientID: patientID, Status: types.PrescriptionActive,
	}); err != nil {
		return err
	}

	counters[CounterMedicalRecords], err = s.repository.CountMedicalRecords(ctx, &types.MedicalRecordFilters{PatientID: patientID})
	return err
}

func (s *Service) pharmacistCounters(ctx context.Context, counters map[string]int) error {
	var err error
	if counters[CounterActivePrescriptions], err = s.repository.CountPrescriptions(ctx, &types.PrescriptionFilters{
		Status: types.PrescriptionActive,
	}); err != nil {
		return err
	}

	lowStock, err := s.inventory.LowStock(ctx)
	if err != nil {
		return err
	}
	counters[CounterLowStock] = len(lowStock)

	expiring, err := s.inventory.ExpiringBefore(ctx, s.now().UTC().AddDate(0, 0, expiringWindowDays))
	if err != nil {
		return err
	}
	counters[CounterExpiringSoon] = len(expiring)
	return nil
}

// AppointmentReport aggregates appointments in [from, to]. Zero bounds default to the last 30 days.
func (s *Service) AppointmentReport(ctx context.Context, caller rbac.Caller, from, to time.Time) (*types.AppointmentReport, error) {
	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.Resource{Kind: rbac.ResourceReport}, Action: rbac.ActionRead,
	}); err != nil {
		return nil, err
	}

	if to.IsZero() {
		to = s.today()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultReportDays)
	}
	if from.After(to) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "from must not be after to",
			map[string]interface{}{"from": from.Format(dateLayout), "to": to.Format(dateLayout)})
	}

	byStatus, err := s.repository.CountAppointmentsByStatus(ctx, &types.AppointmentFilters{FromDate: &from, ToDate: &to})
	if err != nil {
		return nil, err
	}
	byDoctor, err := s.repository.CountAppointmentsByDoctor(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &types.AppointmentReport{From: from, To: to, ByStatus: byStatus, ByDoctor: byDoctor}
	for _, n := range byStatus {
		report.Total += n
	}

	s.logger.Audit(ctx, caller.ID, "read", string(rbac.ResourceReport), true, map[string]interface{}{
		"report": "appointments",
		"total":  report.Total,
	})
	return report, nil
}

// InventoryReport summarizes stock levels and value
func (s *Service) InventoryReport(ctx context.Context, caller rbac.Caller) (*types.InventoryReport, error) {
	if err := s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.InventoryResource(""), Action: rbac.ActionList,
	}); err != nil {
		return nil, err
	}

	items, err := s.inventory.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	report := &types.InventoryReport{Items: len(items), ValueByCategory: make(map[string]float64)}
	for _, item := range items {
		value := float64(item.Quantity) * item.UnitPrice
		report.TotalUnits += item.Quantity
		report.TotalValue += value
		report.ValueByCategory[item.Category] += value

		if item.LowStock() {
			report.LowStock++
		}
		if item.ExpiryDate != nil && item.ExpiryDate.Before(now) {
			report.Expired++
		}
	}

	report.TotalValue = roundCents(report.TotalValue)
	for category, value := range report.ValueByCategory {
		report.ValueByCategory[category] = roundCents(value)
	}

	return report, nil
}

func (s *Service) today() time.Time {
	return scheduling.MidnightUTC(s.now())
}

// addStatusCounters writes one counter per appointment status, e.g. pendingAppointments
func addStatusCounters(counters map[string]int, byStatus map[string]int) {
	for _, status := range []types.AppointmentStatus{
		types.StatusPending, types.StatusConfirmed, types.StatusCompleted, types.StatusCancelled,
	} {
		counters[string(status)+appointmentStatusSuffix] = byStatus[string(status)]
	}
}

// openAppointments counts appointments that still require attendance
func openAppointments(byStatus map[string]int) int {
	return byStatus[string(types.StatusPending)] + byStatus[string(types.StatusConfirmed)]
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
