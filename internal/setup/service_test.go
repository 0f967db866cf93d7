package setup_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillworks/tillworks/internal/accounts"
	"github.com/tillworks/tillworks/internal/setup"
	"github.com/tillworks/tillworks/internal/shared"
	_ "github.com/tillworks/tillworks/testing"
)

// memRepository mirrors the conditional-insert guarantee of the PostgreSQL
// repository: the empty check and the insert happen under one lock.
type memRepository struct {
	mu       sync.Mutex
	accounts map[int64]*accounts.Account
	nextID   int64
}

func newMemRepository() *memRepository {
	return &memRepository{accounts: make(map[int64]*accounts.Account), nextID: 1}
}

func (m *memRepository) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.accounts)), nil
}

func (m *memRepository) CreateBootstrap(ctx context.Context, name, email, passwordHash string) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.accounts) > 0 {
		return nil, shared.ErrAlreadyInitialized
	}
	return m.insert(name, email, passwordHash, shared.RoleAdmin), nil
}

func (m *memRepository) Create(ctx context.Context, name, email, passwordHash string, role shared.Role) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(name, email, passwordHash, role), nil
}

func (m *memRepository) insert(name, email, passwordHash string, role shared.Role) *accounts.Account {
	account := &accounts.Account{
		ID:           m.nextID,
		Name:         name,
		Email:        shared.NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		Enabled:      true,
	}
	m.accounts[account.ID] = account
	m.nextID++
	return account
}

func (m *memRepository) GetByID(ctx context.Context, id int64) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memRepository) GetByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	normalized := shared.NormalizeEmail(email)
	for _, a := range m.accounts {
		if a.Email == normalized {
			return a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepository) List(ctx context.Context) ([]accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []accounts.Account
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memRepository) SetEnabled(ctx context.Context, id int64, enabled bool) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	a.Enabled = enabled
	return a, nil
}

var _ accounts.Repository = (*memRepository)(nil)

func newSetupService(t *testing.T) (*setup.Service, *memRepository) {
	t.Helper()
	repo := newMemRepository()
	return setup.NewService(nil, repo, shared.NewPasswordHasher(4), nil), repo
}

func TestStateTransition(t *testing.T) {
	service, _ := newSetupService(t)
	ctx := context.Background()

	state, err := service.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, setup.StateUninitialized, state)

	_, err = service.Initialize(ctx, "Alice Admin", "alice@example.com", "admin1234")
	require.NoError(t, err)

	state, err = service.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, setup.StateReady, state)
}

func TestInitializeCreatesBootstrapAdmin(t *testing.T) {
	service, repo := newSetupService(t)
	ctx := context.Background()

	account, err := service.Initialize(ctx, "Alice Admin", "alice@example.com", "admin1234")
	require.NoError(t, err)
	assert.Equal(t, shared.RoleAdmin, account.Role)
	assert.True(t, account.Enabled)
	assert.Equal(t, "alice@example.com", account.Email)
	assert.NotEqual(t, "admin1234", account.PasswordHash)

	hasher := shared.NewPasswordHasher(4)
	stored, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, hasher.Verify("admin1234", stored.PasswordHash))
}

func TestInitializeTwiceFails(t *testing.T) {
	service, _ := newSetupService(t)
	ctx := context.Background()

	_, err := service.Initialize(ctx, "Alice Admin", "alice@example.com", "admin1234")
	require.NoError(t, err)

	_, err = service.Initialize(ctx, "Mallory", "mallory@example.com", "pw")
	require.ErrorIs(t, err, shared.ErrAlreadyInitialized)
}

func TestInitializeInvalidInput(t *testing.T) {
	service, _ := newSetupService(t)
	ctx := context.Background()

	cases := []struct{ name, email, password string }{
		{"", "alice@example.com", "admin1234"},
		{"Alice", "", "admin1234"},
		{"Alice", "not-an-email", "admin1234"},
		{"Alice", "alice@example.com", ""},
	}
	for _, tc := range cases {
		_, err := service.Initialize(ctx, tc.name, tc.email, tc.password)
		require.ErrorIs(t, err, shared.ErrInvalidInput)
	}
}

func TestConcurrentInitialize(t *testing.T) {
	service, repo := newSetupService(t)
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Initialize(ctx, "Alice Admin", "alice@example.com", "admin1234")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, shared.ErrAlreadyInitialized)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one bootstrap must win")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
