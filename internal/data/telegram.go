package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/session"
	"github.com/rs/zerolog"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/repo"
	"github.com/WebiksInc/cultural-agents-micro-services/telegram"
)

// telegramConn adapts telegram.Client to the repo.Conn interface
type telegramConn struct {
	client *telegram.Client
}

// NewTelegramConn wraps a telegram client as a provider connection
func NewTelegramConn(client *telegram.Client) repo.Conn {
	return &telegramConn{client: client}
}

func (c *telegramConn) Connect(ctx context.Context) error {
	return c.client.Connect(ctx)
}

func (c *telegramConn) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *telegramConn) Authorized(ctx context.Context) (bool, error) {
	return c.client.Authorized(ctx)
}

func (c *telegramConn) SendCode(ctx context.Context) (string, error) {
	return c.client.SendCode(ctx)
}

func (c *telegramConn) SignIn(ctx context.Context, code, codeHash string) error {
	return c.client.SignIn(ctx, code, codeHash)
}

func (c *telegramConn) Self(ctx context.Context) (domain.Entity, error) {
	ent, err := c.client.Self(ctx)
	if err != nil {
		return domain.Entity{}, mapError(err)
	}
	return toDomainEntity(ent), nil
}

func (c *telegramConn) ResolveEntity(ctx context.Context, identifier string) (domain.Entity, error) {
	ent, err := c.client.ResolveEntity(ctx, identifier)
	if err != nil {
		return domain.Entity{}, mapError(err)
	}
	return toDomainEntity(ent), nil
}

func (c *telegramConn) ListDialogs(ctx context.Context, limit int) ([]domain.Dialog, error) {
	dialogs, err := c.client.ListDialogs(ctx, limit)
	if err != nil {
		return nil, mapError(err)
	}

	var result []domain.Dialog
	for _, d := range dialogs {
		result = append(result, domain.Dialog{
			Entity:      toDomainEntity(d.Entity),
			Title:       d.Title,
			UnreadCount: d.UnreadCount,
		})
	}
	return result, nil
}

func (c *telegramConn) ListMessages(ctx context.Context, entity domain.Entity, limit int, offsetDate time.Time) ([]domain.Message, error) {
	msgs, err := c.client.ListMessages(ctx, fromDomainEntity(entity), limit, offsetDate)
	if err != nil {
		return nil, mapError(err)
	}

	var result []domain.Message
	for _, m := range msgs {
		result = append(result, domain.Message{
			ID:          m.ID,
			Timestamp:   domain.FormatTimestamp(m.Date),
			SenderID:    m.SenderID,
			SenderLabel: m.SenderLabel,
			Text:        m.Text,
			IsOutgoing:  m.Out,
		})
	}
	return result, nil
}

func (c *telegramConn) SendMessage(ctx context.Context, entity domain.Entity, text string, replyTo int) (int, error) {
	id, err := c.client.SendMessage(ctx, fromDomainEntity(entity), text, replyTo)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

func (c *telegramConn) MarkRead(ctx context.Context, entity domain.Entity) error {
	return mapError(c.client.MarkRead(ctx, fromDomainEntity(entity)))
}

func (c *telegramConn) Participants(ctx context.Context, entity domain.Entity) ([]domain.Entity, error) {
	members, err := c.client.Participants(ctx, fromDomainEntity(entity))
	if err != nil {
		return nil, mapError(err)
	}

	var result []domain.Entity
	for _, m := range members {
		result = append(result, toDomainEntity(m))
	}
	return result, nil
}

// mapError translates provider error classes to the domain taxonomy
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, telegram.ErrNotFound):
		return fmt.Errorf("%w: %s", domain.ErrEntityNotFound, err)
	case errors.Is(err, telegram.ErrPermission):
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, err)
	default:
		return err
	}
}

func toDomainEntity(ent telegram.Entity) domain.Entity {
	return domain.Entity{
		ID:         ent.ID,
		AccessHash: ent.AccessHash,
		Name:       ent.Name,
		Username:   ent.Username,
		Kind:       domain.EntityKind(ent.Kind),
	}
}

func fromDomainEntity(ent domain.Entity) telegram.Entity {
	return telegram.Entity{
		ID:         ent.ID,
		AccessHash: ent.AccessHash,
		Name:       ent.Name,
		Username:   ent.Username,
		Kind:       telegram.Kind(ent.Kind),
	}
}

// clientFactory builds telegram connections whose session blobs round-trip
// through the account store
type clientFactory struct {
	base     context.Context // Lifetime of every connection this factory builds
	accounts repo.AccountRepo
	device   telegram.DeviceInfo
	log      zerolog.Logger
}

// NewClientFactory creates a factory for provider connections. base bounds
// the lifetime of the background transports, so it must be the application
// context, never a request one.
func NewClientFactory(base context.Context, accounts repo.AccountRepo, device telegram.DeviceInfo, log zerolog.Logger) repo.ClientFactory {
	return &clientFactory{base: base, accounts: accounts, device: device, log: log}
}

func (f *clientFactory) NewConn(account *domain.Account) repo.Conn {
	client := telegram.NewClient(telegram.Options{
		Phone:   account.Phone,
		APIID:   account.APIID,
		APIHash: account.APIHash,
		Storage: &sessionStorage{accounts: f.accounts, phone: account.Phone},
		Device:  f.device,
		Logger:  f.log,
		Base:    f.base,
	})
	return NewTelegramConn(client)
}

// sessionStorage implements gotd's session.Storage on top of the account
// store, so the MTProto session survives restarts alongside the credentials.
type sessionStorage struct {
	accounts repo.AccountRepo
	phone    string
}

func (s *sessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	account, err := s.accounts.Get(ctx, s.phone)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", s.phone, err)
	}
	if account == nil || len(account.SessionData) == 0 {
		return nil, session.ErrNotFound
	}
	return account.SessionData, nil
}

func (s *sessionStorage) StoreSession(ctx context.Context, data []byte) error {
	err := s.accounts.Update(ctx, s.phone, domain.AccountUpdate{SessionData: &data})
	if err != nil {
		return fmt.Errorf("store session %s: %w", s.phone, err)
	}
	return nil
}
