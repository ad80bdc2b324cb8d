package clinical

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// RegisterRoutes mounts the prescription and medical record routes on the
// authenticated /api/v1 subrouter
func (s *Service) RegisterRoutes(api *mux.Router) {
	rx := api.PathPrefix("/prescriptions").Subrouter()
	rx.HandleFunc("", s.createPrescriptionHandler).Methods(http.MethodPost)
	rx.HandleFunc("", s.listPrescriptionsHandler).Methods(http.MethodGet)
	rx.HandleFunc("/patient/me", rbac.TagRoute(rbac.RouteShapeSelf, s.patientPrescriptionsHandler)).Methods(http.MethodGet)
	rx.HandleFunc("/patient/{patientId}", rbac.TagRoute(rbac.RouteShapeByID, s.patientPrescriptionsHandler)).Methods(http.MethodGet)
	rx.HandleFunc("/{id}", s.getPrescriptionHandler).Methods(http.MethodGet)
	rx.HandleFunc("/{id}", s.updatePrescriptionHandler).Methods(http.MethodPut)
	rx.HandleFunc("/{id}", s.deletePrescriptionHandler).Methods(http.MethodDelete)

	records := api.PathPrefix("/medical-records").Subrouter()
	records.HandleFunc("", s.createRecordHandler).Methods(http.MethodPost)
	records.HandleFunc("", s.listRecordsHandler).Methods(http.MethodGet)
	records.HandleFunc("/patient/me", rbac.TagRoute(rbac.RouteShapeSelf, s.patientRecordsHandler)).Methods(http.MethodGet)
	records.HandleFunc("/patient/{patientId}", rbac.TagRoute(rbac.RouteShapeByID, s.patientRecordsHandler)).Methods(http.MethodGet)
	records.HandleFunc("/{id}", s.getRecordHandler).Methods(http.MethodGet)
	records.HandleFunc("/{id}", s.updateRecordHandler).Methods(http.MethodPut)
	records.HandleFunc("/{id}", s.deleteRecordHandler).Methods(http.MethodDelete)

	s.logger.WithComponent("clinical").Info("Clinical routes configured")
}

func (s *Service) createPrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var req types.PrescriptionRequest
	if err := api.Decode(r, &req); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	rx, err := s.CreatePrescription(r.Context(), caller, &req)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusCreated, rx)
}

func (s *Service) listPrescriptionsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	filters := &types.PrescriptionFilters{Status: types.PrescriptionStatus(r.URL.Query().Get("status"))}

	prescriptions, err := s.ListPrescriptions(r.Context(), caller, filters)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, prescriptions)
}

func (s *Service) patientPrescriptionsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	prescriptions, err := s.ListPatientPrescriptions(r.Context(), caller, mux.Vars(r), rbac.RouteShapeFromContext(r.Context()))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, prescriptions)
}

func (s *Service) getPrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	rx, err := s.GetPrescription(r.Context(), caller, api.PathParam(r, "id"))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, rx)
}

func (s *Service) updatePrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var updates types.PrescriptionUpdates
	if err := api.Decode(r, &updates); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	rx, err := s.UpdatePrescription(r.Context(), caller, api.PathParam(r, "id"), &updates)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, rx)
}

func (s *Service) deletePrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	if err := s.DeletePrescription(r.Context(), caller, api.PathParam(r, "id")); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.Message(w, http.StatusOK, "Prescription deleted successfully")
}

func (s *Service) createRecordHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var req types.MedicalRecordRequest
	if err := api.Decode(r, &req); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	rec, err := s.CreateMedicalRecord(r.Context(), caller, &req)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusCreated, rec)
}

func (s *Service) listRecordsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	records, err := s.ListMedicalRecords(r.Context(), caller)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, records)
}

func (s *Service) patientRecordsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	records, err := s.ListPatientRecords(r.Context(), caller, mux.Vars(r), rbac.RouteShapeFromContext(r.Context()))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, records)
}

func (s *Service) getRecordHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	rec, err := s.GetMedicalRecord(r.Context(), caller, api.PathParam(r, "id"))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, rec)
}

func (s *Service) updateRecordHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var updates types.MedicalRecordUpdates
	if err := api.Decode(r, &updates); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	rec, err := s.UpdateMedicalRecord(r.Context(), caller, api.PathParam(r, "id"), &updates)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, rec)
}

func (s *Service) deleteRecordHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	if err := s.DeleteMedicalRecord(r.Context(), caller, api.PathParam(r, "id")); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.Message(w, http.StatusOK, "Medical record deleted successfully")
}
