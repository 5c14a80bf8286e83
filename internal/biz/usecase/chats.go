package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
)

// ChatUsecase exposes the conversation-level operations of the gateway
type ChatUsecase struct {
	pool           *PoolUsecase
	resolver       *ResolverUsecase
	locator        *LocatorUsecase
	dialogPageSize int
}

// NewChatUsecase creates a new chat usecase
func NewChatUsecase(pool *PoolUsecase, resolver *ResolverUsecase, locator *LocatorUsecase, dialogPageSize int) *ChatUsecase {
	return &ChatUsecase{
		pool:           pool,
		resolver:       resolver,
		locator:        locator,
		dialogPageSize: dialogPageSize,
	}
}

// ListChats lists the account's dialogs
func (uc *ChatUsecase) ListChats(ctx context.Context, phone string) ([]domain.Dialog, error) {
	conn, err := uc.pool.Acquire(ctx, phone)
	if err != nil {
		return nil, err
	}
	return conn.ListDialogs(ctx, uc.dialogPageSize)
}

// ChatMessages fetches the limit most recent messages of one chat
func (uc *ChatUsecase) ChatMessages(ctx context.Context, phone, chatID string, limit int) ([]domain.Message, error) {
	conn, err := uc.pool.Acquire(ctx, phone)
	if err != nil {
		return nil, err
	}

	entity, err := uc.resolver.Resolve(ctx, conn, phone, chatID)
	if err != nil {
		return nil, err
	}
	return conn.ListMessages(ctx, entity, limit, time.Time{})
}

// Participants lists the members of a group chat
func (uc *ChatUsecase) Participants(ctx context.Context, phone, chatID string) ([]domain.Entity, error) {
	conn, err := uc.pool.Acquire(ctx, phone)
	if err != nil {
		return nil, err
	}

	entity, err := uc.resolver.Resolve(ctx, conn, phone, chatID)
	if err != nil {
		return nil, err
	}
	return conn.Participants(ctx, entity)
}

// SendRequest describes an outgoing message
type SendRequest struct {
	FromPhone        string
	ToTarget         string
	Text             string
	ReplyTo          int    // Provider-native message ID, 0 for none
	ReplyToTimestamp string // Alternative to ReplyTo; resolved via the locator
}

// Send delivers a text message and returns the provider-assigned message ID.
// When ReplyToTimestamp is set and no message matches it, the send is aborted:
// silently dropping the reply linkage would misattribute the message.
func (uc *ChatUsecase) Send(ctx context.Context, req SendRequest) (int, error) {
	conn, err := uc.pool.Acquire(ctx, req.FromPhone)
	if err != nil {
		return 0, err
	}

	entity, err := uc.resolver.Resolve(ctx, conn, req.FromPhone, req.ToTarget)
	if err != nil {
		return 0, err
	}

	replyTo := req.ReplyTo
	if req.ReplyToTimestamp != "" {
		id, found, err := uc.locator.FindMessageIDByTimestamp(ctx, req.FromPhone, req.ToTarget, req.ReplyToTimestamp)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, fmt.Errorf("%w: no message at timestamp %s", domain.ErrEntityNotFound, req.ReplyToTimestamp)
		}
		replyTo = id
	}

	return conn.SendMessage(ctx, entity, req.Text, replyTo)
}
