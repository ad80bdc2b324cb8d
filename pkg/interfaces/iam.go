package interfaces

import (
	"context"

	"github.com/medrex/clinic-api/pkg/types"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	Create(ctx context.Context, account *types.Account) error
	GetByID(ctx context.Context, id string) (*types.Account, error)
	GetByEmail(ctx context.Context, email string) (*types.Account, error)
	Update(ctx context.Context, id string, updates *types.AccountUpdates) (*types.Account, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters *types.AccountFilters) ([]*types.Account, error)
}

// AccountLookup is the read-only slice of AccountRepository used by the
// policy layer and the record services to check referenced accounts.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*types.Account, error)
}

// PasswordManager defines the interface for password operations
type PasswordManager interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hashedPassword, password string) (bool, error)
}

// TokenIssuer signs bearer tokens for authenticated accounts
type TokenIssuer interface {
	IssueToken(account *types.Account) (*types.AuthToken, error)
}
