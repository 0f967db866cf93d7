// Package setup implements first-run system initialization: the one-time
// creation of the bootstrap admin account.
package setup

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/tillworks/tillworks/internal/accounts"
	"github.com/tillworks/tillworks/internal/audit"
	"github.com/tillworks/tillworks/internal/shared"
)

// State is derived from the credential store, never cached: the system is
// uninitialized while no account exists and ready forever after.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
)

// AuditSink records the initialization event.
type AuditSink interface {
	Record(ctx context.Context, ev audit.Event) error
}

// Service gates the system into bootstrap mode while the store is empty.
type Service struct {
	logger *slog.Logger
	repo   accounts.Repository
	hasher *shared.PasswordHasher
	audit  AuditSink
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo accounts.Repository, hasher *shared.PasswordHasher, sink AuditSink) *Service {
	return &Service{logger: logger, repo: repo, hasher: hasher, audit: sink}
}

// State recomputes the system state from the store.
func (s *Service) State(ctx context.Context) (State, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return StateUninitialized, nil
	}
	return StateReady, nil
}

// Initialize creates the bootstrap admin. The repository guarantees at most
// one account is ever created this way, even under concurrent attempts.
func (s *Service) Initialize(ctx context.Context, name, email, password string) (*accounts.Account, error) {
	if name == "" || password == "" || !shared.ValidEmail(email) {
		return nil, shared.ErrInvalidInput
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.CreateBootstrap(ctx, name, email, hash)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		ev := audit.Event{
			ActorID:  account.ID,
			Action:   "system.initialize",
			Entity:   "account",
			EntityID: strconv.FormatInt(account.ID, 10),
		}
		if err := s.audit.Record(ctx, ev); err != nil && s.logger != nil {
			s.logger.Warn("record audit event", slog.Any("error", err))
		}
	}
	return account, nil
}
