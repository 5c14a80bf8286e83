package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
)

func notFound(identifier string) error {
	return fmt.Errorf("%w: %s", domain.ErrEntityNotFound, identifier)
}

func TestResolveDirectHitSkipsWarm(t *testing.T) {
	conn := newFakeConn()
	conn.resolveFn = func(identifier string) (domain.Entity, error) {
		return domain.Entity{ID: 7, Username: "alice", Kind: domain.EntityUser}, nil
	}
	resolver := NewResolverUsecase(100, zerolog.Nop())

	ent, err := resolver.Resolve(context.Background(), conn, "+1000", "@alice")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ent.ID != 7 {
		t.Errorf("entity ID = %d, want 7", ent.ID)
	}
	if conn.listDialogsCalls != 0 {
		t.Errorf("expected no warm for a direct hit, got %d dialog listings", conn.listDialogsCalls)
	}
	if resolver.Warmed("+1000") {
		t.Error("account should not be marked warm")
	}
}

func TestResolveWarmsOnceThenRetries(t *testing.T) {
	conn := newFakeConn()
	conn.resolveFn = func(identifier string) (domain.Entity, error) {
		// Numeric IDs resolve only after the dialog listing has run
		if conn.listDialogsCalls == 0 {
			return domain.Entity{}, notFound(identifier)
		}
		return domain.Entity{ID: 42, Kind: domain.EntityGroup}, nil
	}
	resolver := NewResolverUsecase(100, zerolog.Nop())

	ent, err := resolver.Resolve(context.Background(), conn, "+1000", "42")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if ent.ID != 42 {
		t.Errorf("entity ID = %d, want 42", ent.ID)
	}
	if conn.listDialogsCalls != 1 {
		t.Errorf("expected exactly 1 warm, got %d", conn.listDialogsCalls)
	}
	if len(conn.resolveCalls) != 2 {
		t.Errorf("expected 2 resolution attempts, got %d", len(conn.resolveCalls))
	}
	if !resolver.Warmed("+1000") {
		t.Error("account should be marked warm")
	}
}

func TestResolveAtMostOneWarmPerAccount(t *testing.T) {
	conn := newFakeConn()
	conn.resolveFn = func(identifier string) (domain.Entity, error) {
		return domain.Entity{}, notFound(identifier)
	}
	resolver := NewResolverUsecase(100, zerolog.Nop())

	ctx := context.Background()
	if _, err := resolver.Resolve(ctx, conn, "+1000", "42"); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Fatalf("first Resolve error = %v, want ErrEntityNotFound", err)
	}
	if _, err := resolver.Resolve(ctx, conn, "+1000", "43"); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Fatalf("second Resolve error = %v, want ErrEntityNotFound", err)
	}

	if conn.listDialogsCalls != 1 {
		t.Errorf("expected exactly 1 warm across identifiers, got %d", conn.listDialogsCalls)
	}
}

func TestResolveConcurrentMissesShareOneWarm(t *testing.T) {
	conn := newFakeConn()
	conn.resolveFn = func(identifier string) (domain.Entity, error) {
		return domain.Entity{}, notFound(identifier)
	}
	resolver := NewResolverUsecase(100, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = resolver.Resolve(context.Background(), conn, "+1000", fmt.Sprintf("%d", 40+i))
		}(i)
	}
	wg.Wait()

	if conn.listDialogsCalls != 1 {
		t.Errorf("expected exactly 1 warm under concurrency, got %d", conn.listDialogsCalls)
	}
}

func TestResolveOtherErrorsSkipWarm(t *testing.T) {
	conn := newFakeConn()
	conn.resolveFn = func(identifier string) (domain.Entity, error) {
		return domain.Entity{}, fmt.Errorf("%w: %s", domain.ErrPermissionDenied, identifier)
	}
	resolver := NewResolverUsecase(100, zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), conn, "+1000", "42")
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("error = %v, want ErrPermissionDenied", err)
	}
	if conn.listDialogsCalls != 0 {
		t.Errorf("expected no warm for a permission error, got %d", conn.listDialogsCalls)
	}
}

func TestResolveWarmFailurePropagates(t *testing.T) {
	conn := newFakeConn()
	conn.resolveFn = func(identifier string) (domain.Entity, error) {
		return domain.Entity{}, notFound(identifier)
	}
	conn.dialogsErr = errors.New("connection lost")
	resolver := NewResolverUsecase(100, zerolog.Nop())

	if _, err := resolver.Resolve(context.Background(), conn, "+1000", "42"); err == nil {
		t.Fatal("expected warm failure to propagate")
	}
	if resolver.Warmed("+1000") {
		t.Error("failed warm must not set the flag")
	}
}

func TestClearWarmAllowsRewarm(t *testing.T) {
	conn := newFakeConn()
	conn.resolveFn = func(identifier string) (domain.Entity, error) {
		return domain.Entity{}, notFound(identifier)
	}
	resolver := NewResolverUsecase(100, zerolog.Nop())

	ctx := context.Background()
	_, _ = resolver.Resolve(ctx, conn, "+1000", "42")
	resolver.ClearWarm("+1000")
	_, _ = resolver.Resolve(ctx, conn, "+1000", "42")

	if conn.listDialogsCalls != 2 {
		t.Errorf("expected a second warm after the flag was cleared, got %d", conn.listDialogsCalls)
	}
}
