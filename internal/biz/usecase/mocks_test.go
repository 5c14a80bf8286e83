package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/repo"
)

// Mock implementations shared by the usecase tests

type fakeConn struct {
	mu sync.Mutex

	connectCalls int
	connectDelay time.Duration
	connectErr   error

	disconnectCalls int
	disconnectErr   error

	authorized    bool
	authorizedErr error

	resolveFn    func(identifier string) (domain.Entity, error)
	resolveCalls []string

	dialogs          []domain.Dialog
	dialogsErr       error
	listDialogsCalls int

	listMessagesFn    func(limit int, offsetDate time.Time) ([]domain.Message, error)
	listMessagesCalls int

	sendFn    func(entity domain.Entity, text string, replyTo int) (int, error)
	sendCalls int

	markReadCalls int
	markReadErr   error

	codeHash  string
	signInErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{authorized: true}
}

func (c *fakeConn) Connect(ctx context.Context) error {
	if c.connectDelay > 0 {
		time.Sleep(c.connectDelay)
	}
	c.mu.Lock()
	c.connectCalls++
	c.mu.Unlock()
	return c.connectErr
}

func (c *fakeConn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.disconnectCalls++
	c.mu.Unlock()
	return c.disconnectErr
}

func (c *fakeConn) Authorized(ctx context.Context) (bool, error) {
	return c.authorized, c.authorizedErr
}

func (c *fakeConn) SendCode(ctx context.Context) (string, error) {
	return c.codeHash, nil
}

func (c *fakeConn) SignIn(ctx context.Context, code, codeHash string) error {
	return c.signInErr
}

func (c *fakeConn) Self(ctx context.Context) (domain.Entity, error) {
	return domain.Entity{ID: 1, Kind: domain.EntityUser}, nil
}

func (c *fakeConn) ResolveEntity(ctx context.Context, identifier string) (domain.Entity, error) {
	c.mu.Lock()
	c.resolveCalls = append(c.resolveCalls, identifier)
	c.mu.Unlock()
	if c.resolveFn != nil {
		return c.resolveFn(identifier)
	}
	return domain.Entity{ID: 1, Kind: domain.EntityUser}, nil
}

func (c *fakeConn) ListDialogs(ctx context.Context, limit int) ([]domain.Dialog, error) {
	c.mu.Lock()
	c.listDialogsCalls++
	c.mu.Unlock()
	return c.dialogs, c.dialogsErr
}

func (c *fakeConn) ListMessages(ctx context.Context, entity domain.Entity, limit int, offsetDate time.Time) ([]domain.Message, error) {
	c.mu.Lock()
	c.listMessagesCalls++
	c.mu.Unlock()
	if c.listMessagesFn != nil {
		return c.listMessagesFn(limit, offsetDate)
	}
	return nil, nil
}

func (c *fakeConn) SendMessage(ctx context.Context, entity domain.Entity, text string, replyTo int) (int, error) {
	c.mu.Lock()
	c.sendCalls++
	c.mu.Unlock()
	if c.sendFn != nil {
		return c.sendFn(entity, text, replyTo)
	}
	return 100, nil
}

func (c *fakeConn) MarkRead(ctx context.Context, entity domain.Entity) error {
	c.mu.Lock()
	c.markReadCalls++
	c.mu.Unlock()
	return c.markReadErr
}

func (c *fakeConn) Participants(ctx context.Context, entity domain.Entity) ([]domain.Entity, error) {
	return nil, nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *fakeAccountRepo) Get(ctx context.Context, phone string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[phone], nil
}

func (r *fakeAccountRepo) Save(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.Phone] = account
	return nil
}

func (r *fakeAccountRepo) Update(ctx context.Context, phone string, update domain.AccountUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[phone]
	if !ok {
		return nil
	}
	if update.SessionData != nil {
		account.SessionData = *update.SessionData
	}
	if update.Verified != nil {
		account.Verified = *update.Verified
	}
	if update.LastAuthAt != nil {
		account.LastAuthAt = *update.LastAuthAt
	}
	return nil
}

func (r *fakeAccountRepo) Delete(ctx context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, phone)
	return nil
}

func (r *fakeAccountRepo) ListPhones(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var phones []string
	for phone := range r.accounts {
		phones = append(phones, phone)
	}
	return phones, nil
}

type fakeFactory struct {
	conn *fakeConn
}

func (f *fakeFactory) NewConn(account *domain.Account) repo.Conn {
	return f.conn
}

// fakeWarm records warm-flag clears for pool tests
type fakeWarm struct {
	mu         sync.Mutex
	cleared    []string
	clearedAll bool
}

func (w *fakeWarm) ClearWarm(phone string) {
	w.mu.Lock()
	w.cleared = append(w.cleared, phone)
	w.mu.Unlock()
}

func (w *fakeWarm) ClearAllWarm() {
	w.mu.Lock()
	w.clearedAll = true
	w.mu.Unlock()
}

// verifiedAccount returns a stored account that can be reconnected
func verifiedAccount(phone string) *domain.Account {
	return &domain.Account{
		Phone:       phone,
		APIID:       12345,
		APIHash:     "hash",
		SessionData: []byte("session"),
		Verified:    true,
	}
}
