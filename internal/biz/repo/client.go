package repo

import (
	"context"
	"time"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
)

// Conn is the narrow interface over one account's provider connection.
// It covers exactly the capability set the gateway needs from the wrapped
// MTProto client so the pool, resolver and trackers can be tested against a
// fake implementation.
type Conn interface {
	// Connect establishes the transport and restores the stored session
	Connect(ctx context.Context) error

	// Disconnect tears down the transport. Best-effort; callers remove
	// their bookkeeping regardless of the result.
	Disconnect(ctx context.Context) error

	// Authorized reports whether the restored session is signed in
	Authorized(ctx context.Context) (bool, error)

	// SendCode starts a phone-code login and returns the code hash
	SendCode(ctx context.Context) (string, error)

	// SignIn completes a phone-code login
	SignIn(ctx context.Context, code, codeHash string) error

	// Self returns the entity of the logged-in account
	Self(ctx context.Context) (domain.Entity, error)

	// ResolveEntity resolves a username, phone number or numeric ID.
	// Numeric IDs resolve only after a dialog listing has been performed on
	// this connection; until then the call fails with ErrEntityNotFound.
	ResolveEntity(ctx context.Context, identifier string) (domain.Entity, error)

	// ListDialogs lists a bounded page of the account's conversations
	ListDialogs(ctx context.Context, limit int) ([]domain.Dialog, error)

	// ListMessages fetches up to limit messages from the entity, newest
	// first. A non-zero offsetDate restricts the fetch to messages older
	// than that instant.
	ListMessages(ctx context.Context, entity domain.Entity, limit int, offsetDate time.Time) ([]domain.Message, error)

	// SendMessage sends a text message, optionally as a reply, and returns
	// the provider-native message ID.
	SendMessage(ctx context.Context, entity domain.Entity, text string, replyTo int) (int, error)

	// MarkRead marks the whole entity's history as read
	MarkRead(ctx context.Context, entity domain.Entity) error

	// Participants lists the members of a group or channel
	Participants(ctx context.Context, entity domain.Entity) ([]domain.Entity, error)
}

// ClientFactory builds unconnected provider connections for accounts
type ClientFactory interface {
	NewConn(account *domain.Account) Conn
}
