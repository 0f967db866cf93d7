package httpx

import (
	"errors"
	"net/http"

	"github.com/tillworks/tillworks/internal/shared"
)

// RespondError maps domain errors to status codes and the error envelope.
// Unrecognized errors are store or infrastructure failures; they surface as a
// generic 500 so internals never leak to clients.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrAlreadyInitialized),
		errors.Is(err, shared.ErrDuplicateEmail),
		errors.Is(err, shared.ErrSelfDisable):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrUnauthenticated):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}
