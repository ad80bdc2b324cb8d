package reporting

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-api/internal/scheduling"
	"github.com/medrex/clinic-api/pkg/api"
)

// RegisterRoutes mounts the dashboard and report routes on the authenticated subrouter
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/dashboard/stats", s.dashboardStatsHandler).Methods(http.MethodGet)

	reports := api.PathPrefix("/reports").Subrouter()
	reports.HandleFunc("/appointments", s.appointmentReportHandler).Methods(http.MethodGet)
	reports.HandleFunc("/inventory", s.inventoryReportHandler).Methods(http.MethodGet)

	s.logger.WithComponent("reporting").Info("Reporting routes configured")
}

func (s *Service) dashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	stats, err := s.DashboardStats(r.Context(), caller)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, stats)
}

func (s *Service) appointmentReportHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	from, err := optionalDate(r, "from")
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}
	to, err := optionalDate(r, "to")
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	report, err := s.AppointmentReport(r.Context(), caller, from, to)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, report)
}

func (s *Service) inventoryReportHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	report, err := s.InventoryReport(r.Context(), caller)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, report)
}

// optionalDate returns the zero time when the query parameter is absent
func optionalDate(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return scheduling.NormalizeDate(raw)
}
