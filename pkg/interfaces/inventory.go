package interfaces

import (
	"context"
	"time"

	"github.com/medrex/clinic-api/pkg/types"
)

// InventoryRepository defines the interface for stock persistence
type InventoryRepository interface {
	Create(ctx context.Context, item *types.InventoryItem) error
	GetByID(ctx context.Context, id string) (*types.InventoryItem, error)
	Update(ctx context.Context, id string, updates *types.InventoryUpdates, updatedBy string) (*types.InventoryItem, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters *types.InventoryFilters) ([]*types.InventoryItem, error)
	Categories(ctx context.Context) ([]string, error)
	LowStock(ctx context.Context) ([]*types.InventoryItem, error)
	ExpiringBefore(ctx context.Context, cutoff time.Time) ([]*types.InventoryItem, error)
}
