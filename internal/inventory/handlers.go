package inventory

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/types"
)

// RegisterRoutes mounts the inventory routes on the authenticated /api/v1 subrouter.
// Literal segments are registered before /{id}.
func (s *Service) RegisterRoutes(api *mux.Router) {
	inv := api.PathPrefix("/inventory").Subrouter()

	inv.HandleFunc("", s.listItemsHandler).Methods(http.MethodGet)
	inv.HandleFunc("", s.createItemHandler).Methods(http.MethodPost)
	inv.HandleFunc("/categories", s.categoriesHandler).Methods(http.MethodGet)
	inv.HandleFunc("/low-stock", s.lowStockHandler).Methods(http.MethodGet)
	inv.HandleFunc("/expiring", s.expiringHandler).Methods(http.MethodGet)

	inv.HandleFunc("/{id}", s.getItemHandler).Methods(http.MethodGet)
	inv.HandleFunc("/{id}", s.updateItemHandler).Methods(http.MethodPut)
	inv.HandleFunc("/{id}", s.deleteItemHandler).Methods(http.MethodDelete)

	s.logger.WithComponent("inventory").Info("Inventory routes configured")
}

func (s *Service) listItemsHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	query := r.URL.Query()
	filters := &types.InventoryFilters{
		Category: query.Get("category"),
		Search:   query.Get("search"),
	}

	items, err := s.ListItems(r.Context(), caller, filters)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, items)
}

func (s *Service) createItemHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var item types.InventoryItem
	if err := api.Decode(r, &item); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	created, err := s.CreateItem(r.Context(), caller, &item)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusCreated, created)
}

func (s *Service) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	categories, err := s.Categories(r.Context(), caller)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, categories)
}

func (s *Service) lowStockHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	items, err := s.LowStock(r.Context(), caller)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, items)
}

func (s *Service) expiringHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	days, err := api.QueryInt(r, "days", DefaultExpiryWindowDays)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	items, err := s.Expiring(r.Context(), caller, days)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, items)
}

func (s *Service) getItemHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	item, err := s.GetItem(r.Context(), caller, api.PathParam(r, "id"))
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, item)
}

func (s *Service) updateItemHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	var updates types.InventoryUpdates
	if err := api.Decode(r, &updates); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	item, err := s.UpdateItem(r.Context(), caller, api.PathParam(r, "id"), &updates)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.JSON(w, http.StatusOK, item)
}

func (s *Service) deleteItemHandler(w http.ResponseWriter, r *http.Request) {
	caller, err := api.Caller(r)
	if err != nil {
		s.responder.Error(w, r, err)
		return
	}

	if err := s.DeleteItem(r.Context(), caller, api.PathParam(r, "id")); err != nil {
		s.responder.Error(w, r, err)
		return
	}

	s.responder.Message(w, http.StatusOK, "Inventory item deleted successfully")
}
