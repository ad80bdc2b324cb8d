package scheduling

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// RegisterRoutes mounts the appointment routes on the authenticated /api/v1 subrouter.
// Literal segments are registered before their {id} siblings.
func (s *Service) RegisterRoutes(api *mux.Router) {
	apts := api.PathPrefix("/appointments").Subrouter()

	apts.HandleFunc("", s.createAppointmentHandler).Methods(http.MethodPost)
	apts.HandleFunc("", s.listAppointmentsHandler).Methods(http.MethodGet)
	apts.HandleFunc("/doctors/{doctorId}/availability", s.availabilityHandler).Methods(http.MethodGet)
	apts.HandleFunc("/patient/me", rbac.TagRoute(rbac.RouteShapeSelf, s.patientAppointmentsHandler)).Methods(http.MethodGet)
	apts.HandleFunc("/patient/{patientId}", rbac.TagRoute(rbac.RouteShapeByID, s.patientAppointmentsHandler)).Methods(http.MethodGet)

	apts.HandleFunc("/{id}", s.getAppointmentHandler).Methods(http.MethodGet)
	apts.HandleFunc("/{id}", s.updateAppointmentHandler).Methods(http.MethodPut)
	apts.HandleFunc("/{id}/status", s.updateStatusHandler).Methods(http.MethodPatch)
	apts.HandleFunc("/{id}/cancel", s.cancelAppointmentHandler).Methods(http.MethodPut)
	apts.HandleFunc("/{id}", s.deleteAppointmentHandler).Methods(http.MethodDelete)

	s.logger.WithComponent("scheduling").Info("Appointment routes configured")
}

// updateRequest is the PUT payload; the date arrives as text and is normalized
type updateRequest struct {
	types.AppointmentUpdates
	Date *string `json:"date,omitempty"`
}

type statusRequest struct {
	Status types.AppointmentStatus `json:"status"`
}

func (s *Service) createAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var req types.AppointmentRequest
	if err := api.Decode(r, &req); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	apt, err := s.CreateAppointment(r.Context(), caller, &req)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusCreated, apt)
}

func (s *Service) listAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	filters, err := parseAppointmentFilters(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	appointments, err := s.ListAppointments(r.Context(), caller, filters)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, appointments)
}

func (s *Service) availabilityHandler(w http.ResponseWriter, r *http.Request) {
	availability, err := s.GetAvailability(r.Context(), api.PathParam(r, "doctorId"), r.URL.Query().Get("date"))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, availability)
}

func (s *Service) patientAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	appointments, err := s.ListPatientAppointments(r.Context(), caller, mux.Vars(r), rbac.RouteShapeFromContext(r.Context()))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, appointments)
}

func (s *Service) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	apt, err := s.GetAppointment(r.Context(), caller, api.PathParam(r, "id"))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, apt)
}

func (s *Service) updateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var req updateRequest
	if err := api.Decode(r, &req); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	updates := req.AppointmentUpdates
	if req.Date != nil {
		date, err := NormalizeDate(*req.Date)
		if err != nil {
			s.responder.Error(w, r, err)
			return
		}
		updates.Date = &date
	}

	apt, err := s.UpdateAppointment(r.Context(), caller, api.PathParam(r, "id"), &updates)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, apt)
}

func (s *Service) updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var req statusRequest
	if err := api.Decode(r, &req); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	apt, err := s.UpdateStatus(r.Context(), caller, api.PathParam(r, "id"), req.Status)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, apt)
}

func (s *Service) cancelAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	apt, err := s.CancelAppointment(r.Context(), caller, api.PathParam(r, "id"))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, apt)
}

func (s *Service) deleteAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	if err := s.DeleteAppointment(r.Context(), caller, api.PathParam(r, "id")); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.Message(w, http.StatusOK, "Appointment deleted successfully")
}

// parseAppointmentFilters reads status and date query parameters
func parseAppointmentFilters(r *http.Request) (*types.AppointmentFilters, error) {
	filters := &types.AppointmentFilters{}
	query := r.URL.Query()

	if status := query.Get("status"); status != "" {
		filters.Status = types.AppointmentStatus(status)
		if !filters.Status.Valid() {
			return nil, invalidStatus(filters.Status)
		}
	}

	if raw := query.Get("date"); raw != "" {
		date, err := NormalizeDate(raw)
		if err != nil {
			return nil, err
		}
		filters.Date = &date
	}

	return filters, nil
}
