package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/repo"
)

// warmClearer is the slice of the resolver the pool needs: warm flags must
// never survive the connection they were established on.
type warmClearer interface {
	ClearWarm(phone string)
	ClearAllWarm()
}

// PoolUsecase owns the account → live connection mapping. At most one pooled
// connection exists per account at any instant.
type PoolUsecase struct {
	accounts repo.AccountRepo
	factory  repo.ClientFactory
	warm     warmClearer
	retries  int
	log      zerolog.Logger

	mu    sync.Mutex
	conns map[string]repo.Conn

	// Collapses concurrent connect attempts for the same account into one
	flight singleflight.Group
}

// NewPoolUsecase creates a new connection pool
func NewPoolUsecase(accounts repo.AccountRepo, factory repo.ClientFactory, warm warmClearer, connectRetries int, log zerolog.Logger) *PoolUsecase {
	if connectRetries < 1 {
		connectRetries = 1
	}
	return &PoolUsecase{
		accounts: accounts,
		factory:  factory,
		warm:     warm,
		retries:  connectRetries,
		log:      log,
		conns:    make(map[string]repo.Conn),
	}
}

type ensureResult struct {
	conn repo.Conn
	ok   bool
}

// EnsureConnection returns the pooled connection for the account, lazily
// establishing one from the stored session. ok=false means no verified
// session exists; not an error, callers decide how to react (see Acquire).
// Concurrent calls for the same account share a single connect attempt.
func (uc *PoolUsecase) EnsureConnection(ctx context.Context, phone string) (repo.Conn, bool, error) {
	uc.mu.Lock()
	if conn, ok := uc.conns[phone]; ok {
		uc.mu.Unlock()
		return conn, true, nil
	}
	uc.mu.Unlock()

	v, err, _ := uc.flight.Do(phone, func() (interface{}, error) {
		return uc.connect(ctx, phone)
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(ensureResult)
	return r.conn, r.ok, nil
}

func (uc *PoolUsecase) connect(ctx context.Context, phone string) (ensureResult, error) {
	// A caller that lost the singleflight race sees the winner's entry here
	uc.mu.Lock()
	if conn, ok := uc.conns[phone]; ok {
		uc.mu.Unlock()
		return ensureResult{conn: conn, ok: true}, nil
	}
	uc.mu.Unlock()

	account, err := uc.accounts.Get(ctx, phone)
	if err != nil {
		return ensureResult{}, fmt.Errorf("load account %s: %w", phone, err)
	}
	if account == nil || !account.HasSession() {
		return ensureResult{}, nil
	}

	conn := uc.factory.NewConn(account)
	var connectErr error
	for attempt := 1; attempt <= uc.retries; attempt++ {
		connectErr = conn.Connect(ctx)
		if connectErr == nil {
			break
		}
		uc.log.Warn().Str("phone", phone).Int("attempt", attempt).Err(connectErr).
			Msg("connect attempt failed")
	}
	if connectErr != nil {
		return ensureResult{}, fmt.Errorf("%w: %s", domain.ErrTransientConnection, connectErr)
	}

	// A stored session can be revoked server-side; that leaves the account
	// effectively logged out, not transiently unreachable.
	authorized, err := conn.Authorized(ctx)
	if err != nil {
		uc.closeQuietly(ctx, phone, conn)
		return ensureResult{}, fmt.Errorf("%w: %s", domain.ErrTransientConnection, err)
	}
	if !authorized {
		uc.closeQuietly(ctx, phone, conn)
		return ensureResult{}, nil
	}

	// Fresh transport, cold entity cache
	uc.warm.ClearWarm(phone)

	uc.mu.Lock()
	uc.conns[phone] = conn
	uc.mu.Unlock()

	uc.log.Info().Str("phone", phone).Msg("account connected")
	return ensureResult{conn: conn, ok: true}, nil
}

// Acquire is EnsureConnection with the "no session" outcome decided: it
// becomes ErrNotAuthenticated.
func (uc *PoolUsecase) Acquire(ctx context.Context, phone string) (repo.Conn, error) {
	conn, ok, err := uc.EnsureConnection(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotAuthenticated, phone)
	}
	return conn, nil
}

// RegisterConnection inserts an already-connected handle, straight after an
// interactive login. Any previous entry for the account is closed first.
func (uc *PoolUsecase) RegisterConnection(phone string, conn repo.Conn) {
	uc.mu.Lock()
	old := uc.conns[phone]
	uc.conns[phone] = conn
	uc.mu.Unlock()

	uc.warm.ClearWarm(phone)

	if old != nil {
		uc.closeQuietly(context.Background(), phone, old)
	}
}

// Disconnect closes the account's connection. The pool entry and warm flag
// are removed unconditionally; close failures are logged, never propagated.
func (uc *PoolUsecase) Disconnect(ctx context.Context, phone string) {
	uc.mu.Lock()
	conn, ok := uc.conns[phone]
	delete(uc.conns, phone)
	uc.mu.Unlock()

	uc.warm.ClearWarm(phone)

	if ok {
		uc.closeQuietly(ctx, phone, conn)
	}
}

// DisconnectAll concurrently disconnects every pooled account. One account's
// failure never blocks the rest, and the pool is empty once this returns.
// The wait is bounded by ctx; stragglers are abandoned when it expires.
func (uc *PoolUsecase) DisconnectAll(ctx context.Context) {
	uc.mu.Lock()
	conns := uc.conns
	uc.conns = make(map[string]repo.Conn)
	uc.mu.Unlock()

	uc.warm.ClearAllWarm()

	var g errgroup.Group
	for phone, conn := range conns {
		phone, conn := phone, conn
		g.Go(func() error {
			uc.closeQuietly(ctx, phone, conn)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
		uc.log.Info().Int("accounts", len(conns)).Msg("pool drained")
	case <-ctx.Done():
		uc.log.Warn().Msg("shutdown deadline elapsed before all disconnects finished")
	}
}

// Size returns the number of pooled connections
func (uc *PoolUsecase) Size() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.conns)
}

func (uc *PoolUsecase) closeQuietly(ctx context.Context, phone string, conn repo.Conn) {
	if err := conn.Disconnect(ctx); err != nil {
		uc.log.Warn().Str("phone", phone).Err(err).Msg("disconnect failed")
	}
}
