package usecase

import (
	"context"
	"fmt"
	"time"
)

// LocatorUsecase finds provider-native message IDs by timestamp.
//
// Message IDs are per-account in Telegram, so a caller that only knows when a
// message was sent (a shared, account-independent fact) needs this lookup to
// reply to or react to it. If two messages share a timestamp at the
// provider's second granularity the lookup cannot tell them apart.
type LocatorUsecase struct {
	pool     *PoolUsecase
	resolver *ResolverUsecase
	window   int
}

// NewLocatorUsecase creates a new message locator. window is the number of
// messages fetched around the target instant, typically 3.
func NewLocatorUsecase(pool *PoolUsecase, resolver *ResolverUsecase, window int) *LocatorUsecase {
	if window < 1 {
		window = 3
	}
	return &LocatorUsecase{pool: pool, resolver: resolver, window: window}
}

// FindMessageIDByTimestamp resolves target and scans a small message window
// for one whose timestamp string is exactly equal to timestamp. A miss
// returns (0, false, nil), a normal outcome rather than an error; callers that need
// the ID must abort the dependent action on a miss.
func (uc *LocatorUsecase) FindMessageIDByTimestamp(ctx context.Context, phone, target, timestamp string) (int, bool, error) {
	conn, err := uc.pool.Acquire(ctx, phone)
	if err != nil {
		return 0, false, err
	}

	ent, err := uc.resolver.Resolve(ctx, conn, phone, target)
	if err != nil {
		return 0, false, err
	}

	at, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return 0, false, fmt.Errorf("parse timestamp %q: %w", timestamp, err)
	}

	// The provider returns messages strictly older than the offset, so one
	// second past the instant makes the window bracket it.
	msgs, err := conn.ListMessages(ctx, ent, uc.window, at.Add(time.Second))
	if err != nil {
		return 0, false, err
	}

	for _, m := range msgs {
		if m.Timestamp == timestamp {
			return m.ID, true, nil
		}
	}
	return 0, false, nil
}
