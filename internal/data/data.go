package data

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/repo"
	"github.com/WebiksInc/cultural-agents-micro-services/telegram"
)

// Repositories contains all repositories
type Repositories struct {
	Accounts repo.AccountRepo
	Clients  repo.ClientFactory
}

// NewRepositories creates all repositories. base is the application-lifetime
// context the provider connections run under.
func NewRepositories(base context.Context, dbPath string, device telegram.DeviceInfo, log zerolog.Logger) (*Repositories, error) {
	accountRepo, err := NewAccountRepo(dbPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Accounts: accountRepo,
		Clients:  NewClientFactory(base, accountRepo, device, log),
	}, nil
}
