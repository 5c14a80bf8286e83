package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/repo"
)

// AuthUsecase handles the interactive phone-code login flow. The connection
// opened for SendCode is parked until VerifyCode completes the login and
// hands it to the pool, so a session token never needs to exist on disk
// before the account is usable.
type AuthUsecase struct {
	accounts repo.AccountRepo
	factory  repo.ClientFactory
	pool     *PoolUsecase
	log      zerolog.Logger

	mu      sync.Mutex
	pending map[string]*pendingLogin
}

type pendingLogin struct {
	conn     repo.Conn
	codeHash string
}

// NewAuthUsecase creates a new auth usecase
func NewAuthUsecase(accounts repo.AccountRepo, factory repo.ClientFactory, pool *PoolUsecase, log zerolog.Logger) *AuthUsecase {
	return &AuthUsecase{
		accounts: accounts,
		factory:  factory,
		pool:     pool,
		pending:  make(map[string]*pendingLogin),
		log:      log,
	}
}

// SendCode stores the account credentials and asks the provider to deliver a
// login code to the phone
func (uc *AuthUsecase) SendCode(ctx context.Context, phone string, apiID int, apiHash string) error {
	account, err := uc.accounts.Get(ctx, phone)
	if err != nil {
		return fmt.Errorf("load account %s: %w", phone, err)
	}
	if account == nil {
		account = &domain.Account{Phone: phone}
	}
	account.APIID = apiID
	account.APIHash = apiHash
	if err := uc.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", phone, err)
	}

	conn := uc.factory.NewConn(account)
	if err := conn.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrTransientConnection, err)
	}

	codeHash, err := conn.SendCode(ctx)
	if err != nil {
		if cerr := conn.Disconnect(ctx); cerr != nil {
			uc.log.Warn().Str("phone", phone).Err(cerr).Msg("disconnect failed")
		}
		return err
	}

	uc.mu.Lock()
	old := uc.pending[phone]
	uc.pending[phone] = &pendingLogin{conn: conn, codeHash: codeHash}
	uc.mu.Unlock()

	// A resent code supersedes the previous attempt
	if old != nil {
		if cerr := old.conn.Disconnect(ctx); cerr != nil {
			uc.log.Warn().Str("phone", phone).Err(cerr).Msg("disconnect failed")
		}
	}

	uc.log.Info().Str("phone", phone).Msg("login code sent")
	return nil
}

// VerifyCode completes a pending login and registers the live connection
// in the pool
func (uc *AuthUsecase) VerifyCode(ctx context.Context, phone, code string) error {
	uc.mu.Lock()
	p := uc.pending[phone]
	delete(uc.pending, phone)
	uc.mu.Unlock()

	if p == nil {
		return fmt.Errorf("%w: no pending login for %s", domain.ErrNotAuthenticated, phone)
	}

	if err := p.conn.SignIn(ctx, code, p.codeHash); err != nil {
		if cerr := p.conn.Disconnect(ctx); cerr != nil {
			uc.log.Warn().Str("phone", phone).Err(cerr).Msg("disconnect failed")
		}
		return err
	}

	verified := true
	now := time.Now()
	err := uc.accounts.Update(ctx, phone, domain.AccountUpdate{Verified: &verified, LastAuthAt: &now})
	if err != nil {
		return fmt.Errorf("mark verified %s: %w", phone, err)
	}

	uc.pool.RegisterConnection(phone, p.conn)
	uc.log.Info().Str("phone", phone).Msg("account verified")
	return nil
}
