package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/tillworks/tillworks/internal/accounts"
	"github.com/tillworks/tillworks/internal/audit"
	"github.com/tillworks/tillworks/internal/shared"
)

// AccountDirectory is the slice of the credential store the auth flow needs.
type AccountDirectory interface {
	GetByEmail(ctx context.Context, email string) (*accounts.Account, error)
	GetByID(ctx context.Context, id int64) (*accounts.Account, error)
}

// AuditSink records authentication events.
type AuditSink interface {
	Record(ctx context.Context, ev audit.Event) error
}

// Service wraps the login and logout rules.
type Service struct {
	logger    *slog.Logger
	directory AccountDirectory
	hasher    *shared.PasswordHasher
	sessions  *SessionManager
	audit     AuditSink
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, directory AccountDirectory, hasher *shared.PasswordHasher, sessions *SessionManager, sink AuditSink) *Service {
	return &Service{logger: logger, directory: directory, hasher: hasher, sessions: sessions, audit: sink}
}

// Login verifies credentials and issues a session token. Unknown email,
// disabled account and wrong password all return the same error, after the
// same amount of work, so responses carry no signal about which accounts
// exist. A store failure is not a rejection and propagates as-is.
func (s *Service) Login(ctx context.Context, email, password string) (string, *accounts.Account, error) {
	account, err := s.directory.GetByEmail(ctx, shared.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			return "", nil, shared.ErrInvalidCredentials
		}
		if s.logger != nil {
			s.logger.Error("credential lookup", slog.Any("error", err))
		}
		return "", nil, err
	}
	// The comparison runs before the enabled check so a disabled account
	// costs the same as a wrong password.
	if !s.hasher.Verify(password, account.PasswordHash) || !account.Enabled {
		return "", nil, shared.ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, account.ID, account.Role)
	if err != nil {
		return "", nil, err
	}
	s.recordAudit(ctx, account.ID, "auth.login")
	return token, account, nil
}

// Logout revokes the token. Revoking an unknown token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, err := s.sessions.Resolve(ctx, token)
	if err := s.sessions.Invalidate(ctx, token); err != nil {
		return err
	}
	if err == nil {
		s.recordAudit(ctx, sess.AccountID, "auth.logout")
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, accountID int64, action string) {
	if s.audit == nil {
		return
	}
	ev := audit.Event{
		ActorID:  accountID,
		Action:   action,
		Entity:   "account",
		EntityID: strconv.FormatInt(accountID, 10),
	}
	if err := s.audit.Record(ctx, ev); err != nil && s.logger != nil {
		s.logger.Warn("record audit event", slog.String("action", action), slog.Any("error", err))
	}
}
