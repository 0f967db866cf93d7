package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tillworks/tillworks/internal/auth"
	"github.com/tillworks/tillworks/internal/shared"
	_ "github.com/tillworks/tillworks/testing"
)

func newSessionManager(t *testing.T) (*auth.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewSessionManager(client, time.Hour), mr
}

func TestIssueAndResolve(t *testing.T) {
	manager, _ := newSessionManager(t)
	ctx := context.Background()

	token, err := manager.Issue(ctx, 7, shared.RoleCashier)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(token) < 43 {
		// 32 bytes base64url-encoded without padding.
		t.Fatalf("token too short for 256 bits of entropy: %q", token)
	}

	sess, err := manager.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess.AccountID != 7 || sess.Role != shared.RoleCashier {
		t.Fatalf("resolved %d/%s, want 7/cashier", sess.AccountID, sess.Role)
	}
	if sess.CreatedAt.IsZero() {
		t.Fatalf("expected created timestamp")
	}
}

func TestTokensAreUnique(t *testing.T) {
	manager, _ := newSessionManager(t)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for range 50 {
		token, err := manager.Issue(ctx, 1, shared.RoleAdmin)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token issued")
		}
		seen[token] = struct{}{}
	}
}

func TestResolveUnknownToken(t *testing.T) {
	manager, _ := newSessionManager(t)

	for _, token := range []string{"", "no-such-token"} {
		if _, err := manager.Resolve(context.Background(), token); !errors.Is(err, shared.ErrUnauthenticated) {
			t.Fatalf("Resolve(%q) = %v, want ErrUnauthenticated", token, err)
		}
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	manager, _ := newSessionManager(t)
	ctx := context.Background()

	token, err := manager.Issue(ctx, 3, shared.RoleManager)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := manager.Invalidate(ctx, token); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := manager.Resolve(ctx, token); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected revoked token to stop resolving, got %v", err)
	}

	// Second revocation and unknown tokens are no-ops.
	if err := manager.Invalidate(ctx, token); err != nil {
		t.Fatalf("repeat invalidate: %v", err)
	}
	if err := manager.Invalidate(ctx, "never-issued"); err != nil {
		t.Fatalf("invalidate unknown: %v", err)
	}
	if err := manager.Invalidate(ctx, ""); err != nil {
		t.Fatalf("invalidate empty: %v", err)
	}
}

func TestInvalidateAll(t *testing.T) {
	manager, _ := newSessionManager(t)
	ctx := context.Background()

	var bobTokens []string
	for range 3 {
		token, err := manager.Issue(ctx, 2, shared.RoleCashier)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		bobTokens = append(bobTokens, token)
	}
	aliceToken, err := manager.Issue(ctx, 1, shared.RoleAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := manager.InvalidateAll(ctx, 2); err != nil {
		t.Fatalf("invalidate all: %v", err)
	}
	for _, token := range bobTokens {
		if _, err := manager.Resolve(ctx, token); !errors.Is(err, shared.ErrUnauthenticated) {
			t.Fatalf("expected token %q revoked, got %v", token, err)
		}
	}
	// Other accounts are untouched.
	if _, err := manager.Resolve(ctx, aliceToken); err != nil {
		t.Fatalf("alice token should survive: %v", err)
	}

	// No sessions for the account is a no-op.
	if err := manager.InvalidateAll(ctx, 99); err != nil {
		t.Fatalf("invalidate all with no sessions: %v", err)
	}
}

func TestPruneIndexes(t *testing.T) {
	manager, mr := newSessionManager(t)
	ctx := context.Background()

	token, err := manager.Issue(ctx, 5, shared.RoleManager)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	keep, err := manager.Issue(ctx, 5, shared.RoleManager)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Simulate TTL expiry of one session key; the index member goes stale.
	mr.Del("session:" + token)

	removed, err := manager.PruneIndexes(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := manager.Resolve(ctx, keep); err != nil {
		t.Fatalf("live session must survive prune: %v", err)
	}
}
