package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tillworks/tillworks/internal/shared"
)

const tokenBytes = 32

// Session is the server-side record behind an opaque bearer token.
type Session struct {
	Token     string
	AccountID int64
	Role      shared.Role
	CreatedAt time.Time
}

type sessionPayload struct {
	AccountID int64     `json:"account_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionManager issues, resolves and revokes session tokens backed by Redis.
// Tokens are 256 bits from crypto/rand; a token resolves if and only if it was
// issued by a login and has not been revoked since.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, ttl: ttl}
}

// Issue creates a session for the account and returns the new token.
func (m *SessionManager) Issue(ctx context.Context, accountID int64, role shared.Role) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(sessionPayload{
		AccountID: accountID,
		Role:      string(role),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, sessionKey(token), payload, m.ttl)
	pipe.SAdd(ctx, accountKey(accountID), token)
	pipe.Expire(ctx, accountKey(accountID), m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the session behind the token. Unknown, revoked and corrupt
// tokens all fail closed with shared.ErrUnauthenticated.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, shared.ErrUnauthenticated
	}
	raw, err := m.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	var payload sessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, shared.ErrUnauthenticated
	}
	return &Session{
		Token:     token,
		AccountID: payload.AccountID,
		Role:      shared.Role(payload.Role),
		CreatedAt: payload.CreatedAt,
	}, nil
}

// Invalidate revokes a single token. Revoking an unknown or already-revoked
// token is a no-op.
func (m *SessionManager) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sess, err := m.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthenticated) {
			return nil
		}
		return err
	}
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	pipe.SRem(ctx, accountKey(sess.AccountID), token)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateAll revokes every live token of the account. Called when an
// account is disabled so its sessions stop resolving immediately.
func (m *SessionManager) InvalidateAll(ctx context.Context, accountID int64) error {
	tokens, err := m.client.SMembers(ctx, accountKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	pipe := m.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, sessionKey(token))
	}
	pipe.Del(ctx, accountKey(accountID))
	_, err = pipe.Exec(ctx)
	return err
}

// PruneIndexes walks the per-account index sets and drops members whose
// session key has already expired. Redis expires the session keys itself; the
// index sets only shed dead members here.
func (m *SessionManager) PruneIndexes(ctx context.Context) (int, error) {
	removed := 0
	var cursor uint64
	for {
		keys, next, err := m.client.Scan(ctx, cursor, "account_sessions:*", 100).Result()
		if err != nil {
			return removed, err
		}
		for _, key := range keys {
			tokens, err := m.client.SMembers(ctx, key).Result()
			if err != nil {
				return removed, err
			}
			for _, token := range tokens {
				n, err := m.client.Exists(ctx, sessionKey(token)).Result()
				if err != nil {
					return removed, err
				}
				if n == 0 {
					if err := m.client.SRem(ctx, key, token).Err(); err != nil {
						return removed, err
					}
					removed++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func sessionKey(token string) string {
	return "session:" + token
}

func accountKey(accountID int64) string {
	return fmt.Sprintf("account_sessions:%d", accountID)
}
