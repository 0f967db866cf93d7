package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tillworks/tillworks/internal/platform/httpx"
	"github.com/tillworks/tillworks/internal/shared"
)

// Gate authenticates requests and enforces per-route role sets. It is the only
// authorization point; handlers never re-check tokens themselves.
type Gate struct {
	logger    *slog.Logger
	sessions  *SessionManager
	directory AccountDirectory
}

// NewGate constructs a Gate.
func NewGate(logger *slog.Logger, sessions *SessionManager, directory AccountDirectory) *Gate {
	return &Gate{logger: logger, sessions: sessions, directory: directory}
}

// BearerToken extracts the session token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// Authenticate resolves the bearer token into an identity and stores it in the
// request context. The account record is re-read on every request so a
// disable takes effect immediately, even for a session issued concurrently
// with the disable.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess, err := g.sessions.Resolve(ctx, BearerToken(r))
		if err != nil {
			g.reject(w, r, err)
			return
		}
		account, err := g.directory.GetByID(ctx, sess.AccountID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				err = shared.ErrUnauthenticated
			}
			g.reject(w, r, err)
			return
		}
		if !account.Enabled {
			g.reject(w, r, shared.ErrUnauthenticated)
			return
		}

		identity := shared.Identity{AccountID: account.ID, Name: account.Name, Role: account.Role}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(ctx, identity)))
	})
}

// RequireRole allows only identities whose role is in the allowed set. Roles
// carry no hierarchy; membership is exact.
func (g *Gate) RequireRole(allowed ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				g.reject(w, r, shared.ErrUnauthenticated)
				return
			}
			if !identity.Role.In(allowed...) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, shared.ErrUnauthenticated) {
		if g.logger != nil {
			g.logger.Error("authenticate request", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondError(w, shared.ErrUnauthenticated)
}
