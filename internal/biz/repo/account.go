package repo

import (
	"context"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
)

// AccountRepo is the account credential store interface.
// Responsible for persisting per-account credentials and session blobs (SQLite).
type AccountRepo interface {
	// Get loads an account by phone. Returns (nil, nil) when absent.
	Get(ctx context.Context, phone string) (*domain.Account, error)

	// Save creates or replaces an account record
	Save(ctx context.Context, account *domain.Account) error

	// Update applies a partial update to an existing record
	Update(ctx context.Context, phone string, update domain.AccountUpdate) error

	// Delete removes an account record
	Delete(ctx context.Context, phone string) error

	// ListPhones lists all stored account phones
	ListPhones(ctx context.Context) ([]string, error)
}
