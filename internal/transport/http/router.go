// Package http assembles the API router: middleware chain, the /api
// sub-routers for user, admin and public routes, and the operational
// endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applicationhandler "covergate/internal/application/handler"
	consultationhandler "covergate/internal/consultation/handler"
	contracthandler "covergate/internal/contract/handler"
	notificationhandler "covergate/internal/notification/handler"
	paymenthandler "covergate/internal/payment/handler"
	statshandler "covergate/internal/stats/handler"
	"covergate/internal/platform/metrics"
	"covergate/internal/platform/middleware"
	"covergate/internal/ratelimit"
	"covergate/internal/transport/http/shared"
)

// requestTimeout is the backstop for request handling; the gateway client
// carries its own timeout.
const requestTimeout = 30 * time.Second

// HealthChecker reports the reachability of one backing service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Applications  *applicationhandler.Handler
	Contracts     *contracthandler.Handler
	Payments      *paymenthandler.Handler
	Notifications *notificationhandler.Handler
	Consultations *consultationhandler.Handler
	Stats         *statshandler.Handler

	TokenValidator middleware.TokenValidator
	RateLimiter    ratelimit.Store
	RateLimit      int
	RateWindow     time.Duration

	Metrics  *metrics.Metrics
	Registry prometheus.Gatherer
	Logger   *slog.Logger

	// Health checks by name; nil checkers are reported as "disabled".
	Health map[string]HealthChecker

	// UploadDir is served read-only under /uploads.
	UploadDir string
}

// NewRouter builds the full route tree.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Latency(deps.Metrics))

	r.Route("/api", func(api chi.Router) {
		// Holder-facing routes.
		api.Group(func(user chi.Router) {
			user.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))
			deps.Applications.RegisterUser(user)
			deps.Contracts.RegisterUser(user)
			deps.Notifications.Register(user)
		})

		// Admin routes.
		api.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))
			admin.Use(middleware.RequireAdmin(deps.Logger))
			deps.Applications.RegisterAdmin(admin)
			deps.Contracts.RegisterAdmin(admin)
			deps.Consultations.RegisterAdmin(admin)
			deps.Stats.RegisterAdmin(admin)
		})

		// Public routes: the gateway callbacks and the consultation intake
		// carry no bearer token, so they get a rate limit instead of auth.
		api.Group(func(public chi.Router) {
			public.Use(middleware.RateLimit(deps.RateLimiter, deps.RateLimit, deps.RateWindow, deps.Logger))
			deps.Payments.Register(public)
			deps.Consultations.RegisterPublic(public)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", healthHandler(deps.Health))

	if deps.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	return r
}

func healthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checkers))
		for name, checker := range checkers {
			switch {
			case checker == nil:
				report[name] = "disabled"
			case checker.Health(ctx) != nil:
				report[name] = "unreachable"
				status = http.StatusServiceUnavailable
			default:
				report[name] = "ok"
			}
		}
		shared.WriteJSON(w, status, report)
	}
}
