package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tillworks/tillworks/internal/observability"
	"github.com/tillworks/tillworks/internal/platform/httpx"
	"github.com/tillworks/tillworks/internal/shared"
)

// Handler wires HTTP endpoints for the authentication flow.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, metrics: metrics, validator: validator.New()}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrInvalidInput)
		return
	}

	token, _, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.ObserveLogin("rejected")
		if h.logger != nil {
			h.logger.Info("login rejected", slog.String("remote", r.RemoteAddr))
		}
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveLogin("ok")
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token})
}

// Logout handles POST /api/logout. It succeeds even when the token is unknown
// or already revoked.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), BearerToken(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type identityView struct {
	ID   int64       `json:"id"`
	Name string      `json:"name"`
	Role shared.Role `json:"role"`
}

// Me handles GET /api/me, returning the caller's identity summary.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, identityView{ID: identity.AccountID, Name: identity.Name, Role: identity.Role})
}
