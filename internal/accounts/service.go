package accounts

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/tillworks/tillworks/internal/audit"
	"github.com/tillworks/tillworks/internal/shared"
)

// SessionInvalidator revokes every live session of an account. Satisfied by
// the auth session manager.
type SessionInvalidator interface {
	InvalidateAll(ctx context.Context, accountID int64) error
}

// AuditSink records administrative actions.
type AuditSink interface {
	Record(ctx context.Context, ev audit.Event) error
}

// Service implements account administration. Every operation requires an
// admin requester; the router-level gate enforces the same rule, so a
// non-admin request never reaches the store even if a route is miswired.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	hasher   *shared.PasswordHasher
	sessions SessionInvalidator
	audit    AuditSink
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo Repository, hasher *shared.PasswordHasher, sessions SessionInvalidator, sink AuditSink) *Service {
	return &Service{logger: logger, repo: repo, hasher: hasher, sessions: sessions, audit: sink}
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     shared.Role
}

// Create adds a new account.
func (s *Service) Create(ctx context.Context, requester shared.Identity, in CreateInput) (*Account, error) {
	if requester.Role != shared.RoleAdmin {
		return nil, shared.ErrForbidden
	}
	if in.Name == "" || in.Password == "" || !shared.ValidEmail(in.Email) {
		return nil, shared.ErrInvalidInput
	}
	if !in.Role.Valid() {
		return nil, shared.ErrInvalidInput
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.Create(ctx, in.Name, in.Email, hash, in.Role)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, requester, "account.create", account.ID, map[string]any{"role": string(account.Role)})
	return account, nil
}

// List returns all accounts.
func (s *Service) List(ctx context.Context, requester shared.Identity) ([]Account, error) {
	if requester.Role != shared.RoleAdmin {
		return nil, shared.ErrForbidden
	}
	return s.repo.List(ctx)
}

// Disable turns an account off and revokes its sessions. Sessions are
// invalidated before success is acknowledged, so no client can observe a
// disabled account as still authenticated. Disabling an already-disabled
// account re-asserts the state and is not an error.
func (s *Service) Disable(ctx context.Context, requester shared.Identity, targetID int64) (*Account, error) {
	if requester.Role != shared.RoleAdmin {
		return nil, shared.ErrForbidden
	}
	if targetID == requester.AccountID {
		return nil, shared.ErrSelfDisable
	}

	account, err := s.repo.SetEnabled(ctx, targetID, false)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.InvalidateAll(ctx, targetID); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, requester, "account.disable", targetID, nil)
	return account, nil
}

// Enable turns an account back on. Old sessions stay revoked; the account
// must log in again.
func (s *Service) Enable(ctx context.Context, requester shared.Identity, targetID int64) (*Account, error) {
	if requester.Role != shared.RoleAdmin {
		return nil, shared.ErrForbidden
	}
	account, err := s.repo.SetEnabled(ctx, targetID, true)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, requester, "account.enable", targetID, nil)
	return account, nil
}

func (s *Service) recordAudit(ctx context.Context, requester shared.Identity, action string, targetID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	ev := audit.Event{
		ActorID:  requester.AccountID,
		Action:   action,
		Entity:   "account",
		EntityID: strconv.FormatInt(targetID, 10),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, ev); err != nil && s.logger != nil {
		s.logger.Warn("record audit event", slog.String("action", action), slog.Any("error", err))
	}
}
