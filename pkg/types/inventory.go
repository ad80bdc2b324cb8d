package types

import "time"

// InventoryItem is a stock entry managed by admins
type InventoryItem struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Category      string     `json:"category" db:"category"`
	Description   string     `json:"description" db:"description"`
	Quantity      int        `json:"quantity" db:"quantity"`
	ReorderLevel  int        `json:"reorderLevel" db:"reorder_level"`
	UnitPrice     float64    `json:"unitPrice" db:"unit_price"`
	ExpiryDate    *time.Time `json:"expiryDate,omitempty" db:"expiry_date"`
	Supplier      string     `json:"supplier" db:"supplier"`
	LastUpdatedBy string     `json:"lastUpdatedBy" db:"last_updated_by"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// LowStock reports whether the item is at or below its reorder threshold
func (i *InventoryItem) LowStock() bool {
	return i.Quantity <= i.ReorderLevel
}

// InventoryUpdates represents explicitly provided inventory fields
type InventoryUpdates struct {
	Name         *string    `json:"name,omitempty"`
	Category     *string    `json:"category,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Quantity     *int       `json:"quantity,omitempty"`
	ReorderLevel *int       `json:"reorderLevel,omitempty"`
	UnitPrice    *float64   `json:"unitPrice,omitempty"`
	ExpiryDate   *time.Time `json:"expiryDate,omitempty"`
	Supplier     *string    `json:"supplier,omitempty"`
}

// InventoryFilters narrows inventory listings
type InventoryFilters struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
}
