package shared

import "errors"

var (
	// ErrInvalidInput indicates a malformed or incomplete request payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyInitialized indicates setup was attempted on a configured system.
	ErrAlreadyInitialized = errors.New("system already initialized")
	// ErrInvalidCredentials indicates login failure. It is deliberately the same
	// for unknown email, wrong password and disabled accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a missing or invalid session token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the caller's role does not permit the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the target account does not exist.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrSelfDisable indicates an admin tried to disable their own account.
	// The message is part of the API contract.
	ErrSelfDisable = errors.New("Cannot disable your own account")
)
