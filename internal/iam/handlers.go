package iam

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/types"
)

// RegisterPublicRoutes mounts the unauthenticated auth routes
func (s *Service) RegisterPublicRoutes(public *mux.Router) {
	public.HandleFunc("/auth/register", s.registerHandler).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", s.loginHandler).Methods(http.MethodPost)
}

// RegisterRoutes mounts the account routes on the authenticated /api/v1 subrouter
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/auth/me", s.meHandler).Methods(http.MethodGet)

	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("", s.listUsersHandler).Methods(http.MethodGet)
	users.HandleFunc("/pending", s.listPendingHandler).Methods(http.MethodGet)
	users.HandleFunc("/doctors", s.listDoctorsHandler).Methods(http.MethodGet)
	users.HandleFunc("/me", s.meHandler).Methods(http.MethodGet)
	users.HandleFunc("/me", s.updateMeHandler).Methods(http.MethodPut)

	users.HandleFunc("/{id}", s.getUserHandler).Methods(http.MethodGet)
	users.HandleFunc("/{id}", s.updateUserHandler).Methods(http.MethodPut)
	users.HandleFunc("/{id}/approve", s.approveUserHandler).Methods(http.MethodPut)
	users.HandleFunc("/{id}", s.deleteUserHandler).Methods(http.MethodDelete)

	s.logger.WithComponent("iam").Info("Account routes configured")
}

func (s *Service) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req types.RegistrationRequest
	if err := api.Decode(r, &req); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	account, err := s.Register(r.Context(), &req)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusCreated, account)
}

func (s *Service) loginHandler(w http.ResponseWriter, r *http.Request) {
	var creds types.Credentials
	if err := api.Decode(r, &creds); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	token, err := s.Login(r.Context(), &creds)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, token)
}

func (s *Service) meHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	account, err := s.Me(r.Context(), caller)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, account)
}

func (s *Service) updateMeHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var updates types.AccountUpdates
	if err := api.Decode(r, &updates); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	account, err := s.UpdateMe(r.Context(), caller, &updates)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, account)
}

func (s *Service) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	filters := &types.AccountFilters{Role: types.UserRole(r.URL.Query().Get("role"))}
	if filters.Limit, err = api.QueryInt(r, "limit", 0); err != nil {
		s.responder.Error(w, r, err)
		return
	}
	if filters.Offset, err = api.QueryInt(r, "offset", 0); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	accounts, err := s.ListUsers(r.Context(), caller, filters)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, accounts)
}

func (s *Service) listPendingHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	accounts, err := s.ListPending(r.Context(), caller)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, accounts)
}

func (s *Service) listDoctorsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	doctors, err := s.ListDoctors(r.Context(), caller)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, doctors)
}

func (s *Service) getUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	account, err := s.GetUser(r.Context(), caller, api.PathParam(r, "id"))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, account)
}

func (s *Service) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var updates types.AccountUpdates
	if err := api.Decode(r, &updates); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	account, err := s.UpdateUser(r.Context(), caller, api.PathParam(r, "id"), &updates)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, account)
}

func (s *Service) approveUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	account, err := s.ApproveUser(r.Context(), caller, api.PathParam(r, "id"))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, account)
}

func (s *Service) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	if err := s.DeleteUser(r.Context(), caller, api.PathParam(r, "id")); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.Message(w, http.StatusOK, "User deleted successfully")
}
