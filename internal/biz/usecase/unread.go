package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/repo"
)

// UnreadUsecase correlates a dialog's unread counter with a bounded message
// fetch and marks the dialog read.
//
// The counter read and the fetch are two independent round trips with no
// atomicity guarantee: a message arriving between them can be marked read
// without ever being returned to the caller. That is the provider's shape of
// the operation and callers are expected to tolerate it.
type UnreadUsecase struct {
	pool           *PoolUsecase
	resolver       *ResolverUsecase
	dialogPageSize int
	log            zerolog.Logger
}

// NewUnreadUsecase creates a new unread tracker
func NewUnreadUsecase(pool *PoolUsecase, resolver *ResolverUsecase, dialogPageSize int, log zerolog.Logger) *UnreadUsecase {
	return &UnreadUsecase{
		pool:           pool,
		resolver:       resolver,
		dialogPageSize: dialogPageSize,
		log:            log,
	}
}

// GetUnreadCount returns the unread counter the dialog list reports for the
// entity. An entity missing from the fetched page means nothing unread, not
// an error.
func (uc *UnreadUsecase) GetUnreadCount(ctx context.Context, conn repo.Conn, entity domain.Entity) (int, error) {
	dialogs, err := conn.ListDialogs(ctx, uc.dialogPageSize)
	if err != nil {
		return 0, err
	}
	for _, d := range dialogs {
		if d.Entity.ID == entity.ID {
			return d.UnreadCount, nil
		}
	}
	return 0, nil
}

// FetchAndFilter fetches the count most recent messages from the entity and
// drops the outgoing ones
func (uc *UnreadUsecase) FetchAndFilter(ctx context.Context, conn repo.Conn, entity domain.Entity, count int) ([]domain.Message, error) {
	if count == 0 {
		return []domain.Message{}, nil
	}

	msgs, err := conn.ListMessages(ctx, entity, count, time.Time{})
	if err != nil {
		return nil, err
	}

	incoming := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.IsOutgoing {
			incoming = append(incoming, m)
		}
	}
	return incoming, nil
}

// GetUnreadMessages composes the unread count, the bounded fetch and the
// mark-read call for one target. Returned messages are promised to be marked
// read, so unlike connection cleanup a mark-read failure fails the call.
func (uc *UnreadUsecase) GetUnreadMessages(ctx context.Context, phone, target string) ([]domain.Message, error) {
	conn, err := uc.pool.Acquire(ctx, phone)
	if err != nil {
		return nil, err
	}

	entity, err := uc.resolver.Resolve(ctx, conn, phone, target)
	if err != nil {
		return nil, err
	}

	count, err := uc.GetUnreadCount(ctx, conn, entity)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []domain.Message{}, nil
	}

	msgs, err := uc.FetchAndFilter(ctx, conn, entity, count)
	if err != nil {
		return nil, err
	}

	if err := conn.MarkRead(ctx, entity); err != nil {
		return nil, fmt.Errorf("mark read %s: %w", target, err)
	}

	uc.log.Debug().Str("phone", phone).Str("target", target).
		Int("unread", count).Int("returned", len(msgs)).Msg("unread messages fetched")
	return msgs, nil
}
