package accounts

import (
	"time"

	"github.com/tillworks/tillworks/internal/shared"
)

// Account is a login-capable identity. The password hash never leaves the
// accounts and auth packages.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         shared.Role
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
