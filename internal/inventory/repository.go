package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/medrex/clinic-api/pkg/database"
	"github.com/medrex/clinic-api/pkg/interfaces"
	"github.com/medrex/clinic-api/pkg/logger"
	"github.com/medrex/clinic-api/pkg/types"
)

const itemColumns = `id, name, category, description, quantity, reorder_level, unit_price, expiry_date,
		supplier, last_updated_by, created_at, updated_at`

// Repository implements inventory persistence
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new inventory repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.InventoryRepository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*types.InventoryItem, error) {
	var item types.InventoryItem
	var expiry sql.NullTime
	var updatedBy sql.NullString

	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Category,
		&item.Description,
		&item.Quantity,
		&item.ReorderLevel,
		&item.UnitPrice,
		&expiry,
		&item.Supplier,
		&updatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expiry.Valid {
		t := expiry.Time
		item.ExpiryDate = &t
	}
	item.LastUpdatedBy = updatedBy.String
	return &item, nil
}

// Create creates a new inventory item
func (r *Repository) Create(ctx context.Context, item *types.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (
			id, name, category, description, quantity, reorder_level, unit_price, expiry_date,
			supplier, last_updated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Name,
		item.Category,
		item.Description,
		item.Quantity,
		item.ReorderLevel,
		item.UnitPrice,
		item.ExpiryDate,
		item.Supplier,
		nullIfEmpty(item.LastUpdatedBy),
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "insert", "inventory_items", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to create inventory item", err)
	}

	return nil
}

// GetByID retrieves an inventory item by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*types.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "inventory item not found")
		}
		r.logger.DatabaseOperation(ctx, "select", "inventory_items", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get inventory item", err)
	}
	return item, nil
}

// Update applies the provided fields, stamps the mutating admin and returns the stored item
func (r *Repository) Update(ctx context.Context, id string, updates *types.InventoryUpdates, updatedBy string) (*types.InventoryItem, error) {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	add := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if updates.Name != nil {
		add("name", *updates.Name)
	}
	if updates.Category != nil {
		add("category", *updates.Category)
	}
	if updates.Description != nil {
		add("description", *updates.Description)
	}
	if updates.Quantity != nil {
		add("quantity", *updates.Quantity)
	}
	if updates.ReorderLevel != nil {
		add("reorder_level", *updates.ReorderLevel)
	}
	if updates.UnitPrice != nil {
		add("unit_price", *updates.UnitPrice)
	}
	if updates.ExpiryDate != nil {
		add("expiry_date", *updates.ExpiryDate)
	}
	if updates.Supplier != nil {
		add("supplier", *updates.Supplier)
	}

	if len(setParts) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "no updates provided", nil)
	}

	add("last_updated_by", updatedBy)
	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE inventory_items SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setParts, ", "), argIndex, itemColumns)
	args = append(args, id)

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "inventory item not found")
		}
		r.logger.DatabaseOperation(ctx, "update", "inventory_items", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to update inventory item", err)
	}

	return item, nil
}

// Delete removes an inventory item
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "delete", "inventory_items", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to delete inventory item", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "inventory item not found")
	}

	return nil
}

// List retrieves items matching filters, ordered by name
func (r *Repository) List(ctx context.Context, filters *types.InventoryFilters) ([]*types.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE 1=1`

	args := []interface{}{}
	argIndex := 1

	if filters != nil {
		if filters.Category != "" {
			query += fmt.Sprintf(" AND category = $%d", argIndex)
			args = append(args, filters.Category)
			argIndex++
		}
		if filters.Search != "" {
			query += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex)
			args = append(args, "%"+filters.Search+"%")
			argIndex++
		}
	}

	query += " ORDER BY name ASC"
	return r.query(ctx, query, args...)
}

// Categories returns the distinct non-empty categories in use
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM inventory_items WHERE category <> '' ORDER BY category ASC`)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "select", "inventory_items", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to list categories", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to scan category", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to iterate categories", err)
	}

	return categories, nil
}

// LowStock returns items at or below their reorder level, scarcest first
func (r *Repository) LowStock(ctx context.Context) ([]*types.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items
		WHERE quantity <= reorder_level ORDER BY quantity ASC, name ASC`
	return r.query(ctx, query)
}

// ExpiringBefore returns items whose expiry date is on or before cutoff, soonest first.
// Items that already expired are included.
func (r *Repository) ExpiringBefore(ctx context.Context, cutoff time.Time) ([]*types.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items
		WHERE expiry_date IS NOT NULL AND expiry_date <= $1 ORDER BY expiry_date ASC`
	return r.query(ctx, query, cutoff)
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]*types.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "select", "inventory_items", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to list inventory items", err)
	}
	defer rows.Close()

	items := []*types.InventoryItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to scan inventory item", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to iterate inventory items", err)
	}

	return items, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
