package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tillworks/tillworks/internal/platform/db"
	"github.com/tillworks/tillworks/internal/shared"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	Count(ctx context.Context) (int64, error)
	// CreateBootstrap inserts the first admin account if and only if the store
	// is still empty. It returns shared.ErrAlreadyInitialized otherwise.
	CreateBootstrap(ctx context.Context, name, email, passwordHash string) (*Account, error)
	Create(ctx context.Context, name, email, passwordHash string, role shared.Role) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) (*Account, error)
}

const accountColumns = "id, name, email, password_hash, role, enabled, created_at, updated_at"

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Count returns the number of accounts in the store.
func (r *PGRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateBootstrap atomically inserts the first admin. The table lock
// serializes concurrent initialize attempts so the empty check and the insert
// cannot interleave.
func (r *PGRepository) CreateBootstrap(ctx context.Context, name, email, passwordHash string) (*Account, error) {
	var account *Account
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "LOCK TABLE accounts IN EXCLUSIVE MODE"); err != nil {
			return err
		}
		var n int64
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return shared.ErrAlreadyInitialized
		}
		row := tx.QueryRow(ctx,
			"INSERT INTO accounts (name, email, password_hash, role, enabled) VALUES ($1, $2, $3, $4, TRUE) RETURNING "+accountColumns,
			name, shared.NormalizeEmail(email), passwordHash, shared.RoleAdmin)
		acct, err := scanAccount(row)
		if err != nil {
			return err
		}
		account = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Create inserts a new account.
func (r *PGRepository) Create(ctx context.Context, name, email, passwordHash string, role shared.Role) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		"INSERT INTO accounts (name, email, password_hash, role, enabled) VALUES ($1, $2, $3, $4, TRUE) RETURNING "+accountColumns,
		name, shared.NormalizeEmail(email), passwordHash, role)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrDuplicateEmail
		}
		return nil, err
	}
	return account, nil
}

// GetByID fetches an account by primary key.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Account, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id)
	return scanNotFound(scanAccount(row))
}

// GetByEmail fetches an account by normalized email.
func (r *PGRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email = $1", shared.NormalizeEmail(email))
	return scanNotFound(scanAccount(row))
}

// List returns all accounts ordered by creation.
func (r *PGRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// SetEnabled flips the enabled flag and returns the updated record.
func (r *PGRepository) SetEnabled(ctx context.Context, id int64, enabled bool) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		"UPDATE accounts SET enabled = $2, updated_at = NOW() WHERE id = $1 RETURNING "+accountColumns,
		id, enabled)
	return scanNotFound(scanAccount(row))
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.Enabled, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanNotFound(account *Account, err error) (*Account, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return account, nil
}

var _ Repository = (*PGRepository)(nil)
