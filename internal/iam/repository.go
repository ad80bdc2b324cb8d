package iam

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

const accountColumns = `id, email, password_hash, role, is_approved, first_name, last_name, phone,
		date_of_birth, gender, address, specialization, license_number, created_at, updated_at`

// AccountRepository implements account persistence
type AccountRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB, log *logger.Logger) interfaces.AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: log,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*types.Account, error) {
	var account types.Account
	var dob sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.IsApproved,
		&account.FirstName,
		&account.LastName,
		&account.Phone,
		&dob,
		&account.Gender,
		&account.Address,
		&account.Specialization,
		&account.LicenseNumber,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dob.Valid {
		t := dob.Time
		account.DateOfBirth = &t
	}
	return &account, nil
}

func duplicateEmail(err error) error {
	if database.IsUniqueViolation(err) {
		return types.NewConflictError(types.ErrCodeDuplicateEmail, "An account with this email already exists", err)
	}
	return nil
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *types.Account) error {
	query := `
		INSERT INTO accounts (
			id, email, password_hash, role, is_approved, first_name, last_name, phone,
			date_of_birth, gender, address, specialization, license_number, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		string(account.Role),
		account.IsApproved,
		account.FirstName,
		account.LastName,
		account.Phone,
		account.DateOfBirth,
		account.Gender,
		account.Address,
		account.Specialization,
		account.LicenseNumber,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if conflict := duplicateEmail(err); conflict != nil {
			return conflict
		}
		r.logger.DatabaseOperation(ctx, "insert", "accounts", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to create account", err)
	}

	r.logger.WithContext(ctx).WithField("account_id", account.ID).WithField("role", account.Role).Info("Account created")
	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*types.Account, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves an account by its normalized email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*types.Account, error) {
	return r.getOne(ctx, "email", email)
}

func (r *AccountRepository) getOne(ctx context.Context, column, value string) (*types.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s = $1`, accountColumns, column)

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "account not found")
		}
		r.logger.DatabaseOperation(ctx, "select", "accounts", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get account", err)
	}
	return account, nil
}

// Update applies the provided fields and returns the stored account
func (r *AccountRepository) Update(ctx context.Context, id string, updates *types.AccountUpdates) (*types.Account, error) {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	add := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if updates.Email != nil {
		add("email", *updates.Email)
	}
	if updates.FirstName != nil {
		add("first_name", *updates.FirstName)
	}
	if updates.LastName != nil {
		add("last_name", *updates.LastName)
	}
	if updates.Phone != nil {
		add("phone", *updates.Phone)
	}
	if updates.DateOfBirth != nil {
		add("date_of_birth", *updates.DateOfBirth)
	}
	if updates.Gender != nil {
		add("gender", *updates.Gender)
	}
	if updates.Address != nil {
		add("address", *updates.Address)
	}
	if updates.Specialization != nil {
		add("specialization", *updates.Specialization)
	}
	if updates.LicenseNumber != nil {
		add("license_number", *updates.LicenseNumber)
	}
	if updates.Role != nil {
		add("role", string(*updates.Role))
	}
	if updates.IsApproved != nil {
		add("is_approved", *updates.IsApproved)
	}

	if len(setParts) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "no updates provided", nil)
	}

	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setParts, ", "), argIndex, accountColumns)
	args = append(args, id)

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "account not found")
		}
		if conflict := duplicateEmail(err); conflict != nil {
			return nil, conflict
		}
		r.logger.DatabaseOperation(ctx, "update", "accounts", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to update account", err)
	}

	return account, nil
}

// Delete removes an account. Clinical records referencing it cascade.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "delete", "accounts", err)
		return types.NewInternalError(types.ErrCodeInternalError, "failed to delete account", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "account not found")
	}

	return nil
}

// List retrieves accounts matching filters, newest first
func (r *AccountRepository) List(ctx context.Context, filters *types.AccountFilters) ([]*types.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`

	args := []interface{}{}
	argIndex := 1

	if filters != nil {
		if filters.Role != "" {
			query += fmt.Sprintf(" AND role = $%d", argIndex)
			args = append(args, string(filters.Role))
			argIndex++
		}
		if filters.IsApproved != nil {
			query += fmt.Sprintf(" AND is_approved = $%d", argIndex)
			args = append(args, *filters.IsApproved)
			argIndex++
		}
	}

	query += " ORDER BY created_at DESC"

	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filters.Limit)
		argIndex++
	}
	if filters != nil && filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filters.Offset)
		argIndex++
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.DatabaseOperation(ctx, "select", "accounts", err)
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to list accounts", err)
	}
	defer rows.Close()

	accounts := []*types.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to scan account", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to iterate accounts", err)
	}

	return accounts, nil
}
