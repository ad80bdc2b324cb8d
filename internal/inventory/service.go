package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/medrex/clinic-api/pkg/api"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/rbac"
	"github.com/medrex/clinic-api/pkg/types"
)

// DefaultExpiryWindowDays is the look-ahead of the expiring listing when none is given
const DefaultExpiryWindowDays = 30

// Service manages the pharmacy stock. Writes are admin-only.
type Service struct {
	logger     *logger.Logger
	repository interfaces.InventoryRepository
	policy     rbac.PolicyEngine
	responder  *api.Responder
	now        func() time.Time
}

// NewService creates a new inventory service
func NewService(log *logger.Logger, repository interfaces.InventoryRepository, policy rbac.PolicyEngine, responder *api.Responder) *Service {
	return &Service{
		logger:     log,
		repository: repository,
		policy:     policy,
		responder:  responder,
		now:        time.Now,
	}
}

// CreateItem adds a stock entry stamped with the creating admin
func (s *Service) CreateItem(ctx context.Context, caller rbac.Caller, item *types.InventoryItem) (*types.InventoryItem, error) {
	if err := s.authorize(ctx, caller, "", rbac.ActionCreate); err != nil {
		return nil, err
	}

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "name is required",
			map[string]interface{}{"field": "name"})
	}
	if err := validateAmounts(&item.Quantity, &item.ReorderLevel, &item.UnitPrice); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item.ID = types.NewID()
	item.LastUpdatedBy = caller.ID
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.repository.Create(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, caller.ID, "create", string(rbac.ResourceInventory), true, map[string]interface{}{
		"item_id":  item.ID,
		"quantity": item.Quantity,
	})
	return item, nil
}

// GetItem returns one stock entry
func (s *Service) GetItem(ctx context.Context, caller rbac.Caller, id string) (*types.InventoryItem, error) {
	return s.load(ctx, caller, id, rbac.ActionRead)
}

// ListItems returns stock entries filtered by category or search text
func (s *Service) ListItems(ctx context.Context, caller rbac.Caller, filters *types.InventoryFilters) ([]*types.InventoryItem, error) {
	if err := s.authorize(ctx, caller, "", rbac.ActionList); err != nil {
		return nil, err
	}
	return s.repository.List(ctx, filters)
}

// Categories returns the distinct categories in use
func (s *Service) Categories(ctx context.Context, caller rbac.Caller) ([]string, error) {
	if err := s.authorize(ctx, caller, "", rbac.ActionList); err != nil {
		return nil, err
	}
	return s.repository.Categories(ctx)
}

// LowStock returns entries at or below their reorder level
func (s *Service) LowStock(ctx context.Context, caller rbac.Caller) ([]*types.InventoryItem, error) {
	if err := s.authorize(ctx, caller, "", rbac.ActionList); err != nil {
		return nil, err
	}
	return s.repository.LowStock(ctx)
}

// Expiring returns entries expiring within days from now, including already expired ones
func (s *Service) Expiring(ctx context.Context, caller rbac.Caller, days int) ([]*types.InventoryItem, error) {
	if err := s.authorize(ctx, caller, "", rbac.ActionList); err != nil {
		return nil, err
	}
	if days < 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "days must not be negative",
			map[string]interface{}{"field": "days"})
	}

	cutoff := s.now().UTC().AddDate(0, 0, days)
	return s.repository.ExpiringBefore(ctx, cutoff)
}

// UpdateItem edits a stock entry and stamps the mutating admin
func (s *Service) UpdateItem(ctx context.Context, caller rbac.Caller, id string, updates *types.InventoryUpdates) (*types.InventoryItem, error) {
	existing, err := s.load(ctx, caller, id, rbac.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if updates.Name != nil {
		name := strings.TrimSpace(*updates.Name)
		if name == "" {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "name cannot be empty",
				map[string]interface{}{"field": "name"})
		}
		updates.Name = &name
	}
	if err := validateAmounts(updates.Quantity, updates.ReorderLevel, updates.UnitPrice); err != nil {
		return nil, err
	}

	updated, err := s.repository.Update(ctx, existing.ID, updates, caller.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Audit(ctx, caller.ID, "update", string(rbac.ResourceInventory), true, map[string]interface{}{
		"item_id":  updated.ID,
		"quantity": updated.Quantity,
	})
	return updated, nil
}

// DeleteItem removes a stock entry
func (s *Service) DeleteItem(ctx context.Context, caller rbac.Caller, id string) error {
	existing, err := s.load(ctx, caller, id, rbac.ActionDelete)
	if err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, existing.ID); err != nil {
		return err
	}

	s.logger.Audit(ctx, caller.ID, "delete", string(rbac.ResourceInventory), true, map[string]interface{}{
		"item_id": existing.ID,
	})
	return nil
}

func (s *Service) load(ctx context.Context, caller rbac.Caller, id string, action rbac.Action) (*types.InventoryItem, error) {
	if err := types.ValidateID("id", id); err != nil {
		return nil, err
	}

	item, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, caller, item.ID, action); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) authorize(ctx context.Context, caller rbac.Caller, id string, action rbac.Action) error {
	return s.policy.Authorize(ctx, &rbac.AccessRequest{
		Caller: caller, Resource: rbac.InventoryResource(id), Action: action,
	})
}

func validateAmounts(quantity, reorderLevel *int, unitPrice *float64) error {
	if quantity != nil && *quantity < 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "quantity must not be negative",
			map[string]interface{}{"field": "quantity"})
	}
	if reorderLevel != nil && *reorderLevel < 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "reorder level must not be negative",
			map[string]interface{}{"field": "reorderLevel"})
	}
	if unitPrice != nil && *unitPrice < 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "unit price must not be negative",
			map[string]interface{}{"field": "unitPrice"})
	}
	return nil
}
