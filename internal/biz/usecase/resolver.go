package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/repo"
)

// ResolverUsecase resolves identifiers to conversation targets.
//
// The provider only resolves opaque numeric IDs after a bulk dialog listing
// has been performed on the connection; usernames and phone numbers resolve
// directly. The resolver therefore performs that listing at most once per
// account (the "warm") when a resolution fails with not-found, then retries
// exactly once. The asymmetry is the provider's, not ours; don't fix it here.
type ResolverUsecase struct {
	dialogPageSize int
	log            zerolog.Logger

	mu     sync.Mutex
	warmed map[string]bool
	flight singleflight.Group
}

// NewResolverUsecase creates a new entity resolver
func NewResolverUsecase(dialogPageSize int, log zerolog.Logger) *ResolverUsecase {
	return &ResolverUsecase{
		dialogPageSize: dialogPageSize,
		log:            log,
		warmed:         make(map[string]bool),
	}
}

// Resolve resolves an identifier on the account's connection, warming the
// entity cache once per account when the first attempt reports not-found.
func (uc *ResolverUsecase) Resolve(ctx context.Context, conn repo.Conn, phone, identifier string) (domain.Entity, error) {
	ent, err := conn.ResolveEntity(ctx, identifier)
	if err == nil {
		return ent, nil
	}
	if !errors.Is(err, domain.ErrEntityNotFound) {
		return domain.Entity{}, err
	}

	warmed, warmErr := uc.warmOnce(ctx, conn, phone)
	if warmErr != nil {
		return domain.Entity{}, warmErr
	}
	if !warmed {
		// Cache was already warm, so the identifier genuinely doesn't resolve
		return domain.Entity{}, err
	}

	uc.log.Debug().Str("phone", phone).Str("identifier", identifier).
		Msg("retrying resolution after cache warm")
	ent, retryErr := conn.ResolveEntity(ctx, identifier)
	if retryErr != nil {
		return domain.Entity{}, retryErr
	}
	return ent, nil
}

// warmOnce performs the bulk dialog listing at most once per account.
// Returns whether a warm was performed by this call (or a concurrent one).
func (uc *ResolverUsecase) warmOnce(ctx context.Context, conn repo.Conn, phone string) (bool, error) {
	uc.mu.Lock()
	already := uc.warmed[phone]
	uc.mu.Unlock()
	if already {
		return false, nil
	}

	_, err, _ := uc.flight.Do(phone, func() (interface{}, error) {
		uc.mu.Lock()
		if uc.warmed[phone] {
			uc.mu.Unlock()
			return nil, nil
		}
		uc.mu.Unlock()

		if _, err := conn.ListDialogs(ctx, uc.dialogPageSize); err != nil {
			return nil, fmt.Errorf("warm entity cache %s: %w", phone, err)
		}

		uc.mu.Lock()
		uc.warmed[phone] = true
		uc.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClearWarm drops the warm flag for one account. Invoked by the pool whenever
// the account's connection is dropped or re-established.
func (uc *ResolverUsecase) ClearWarm(phone string) {
	uc.mu.Lock()
	delete(uc.warmed, phone)
	uc.mu.Unlock()
}

// ClearAllWarm drops every warm flag
func (uc *ResolverUsecase) ClearAllWarm() {
	uc.mu.Lock()
	uc.warmed = make(map[string]bool)
	uc.mu.Unlock()
}

// Warmed reports whether the account's entity cache has been warmed
func (uc *ResolverUsecase) Warmed(phone string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.warmed[phone]
}
