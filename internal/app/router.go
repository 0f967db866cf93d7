package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/tillworks/tillworks/internal/accounts"
	"github.com/tillworks/tillworks/internal/auth"
	"github.com/tillworks/tillworks/internal/observability"
	"github.com/tillworks/tillworks/internal/setup"
	"github.com/tillworks/tillworks/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Gate            *auth.Gate
	AuthHandler     *auth.Handler
	SetupHandler    *setup.Handler
	AccountsHandler *accounts.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router. The public surface is exactly the
// health check, the setup probe and the login/logout pair; every other route
// passes through the authorization gate.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Credential-guessing surface gets a tighter per-IP budget.
		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(20, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
			r.Get("/setup", params.SetupHandler.State)
			r.Post("/setup", params.SetupHandler.Initialize)
			r.Post("/login", params.AuthHandler.Login)
		})

		// Logout stays outside the gate: revoking an already-invalid token
		// must succeed, not 401.
		r.Post("/logout", params.AuthHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(params.Gate.Authenticate)
			r.Get("/me", params.AuthHandler.Me)

			r.Route("/accounts", func(r chi.Router) {
				r.Use(params.Gate.RequireRole(shared.RoleAdmin))
				params.AccountsHandler.MountRoutes(r)
			})
		})
	})

	return r
}
