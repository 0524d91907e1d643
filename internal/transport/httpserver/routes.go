package httpserver

import (
	"net/http"

	"checkin-app-go/internal/config"
	"checkin-app-go/internal/metrics"
	"checkin-app-go/internal/transport/httpserver/handler"
	authmw "checkin-app-go/internal/transport/httpserver/middleware"
	"checkin-app-go/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the API router. m may be nil when metrics are disabled.
func NewRouter(cfg config.Config, handlers *handler.Handlers, profiles authmw.ProfileStore, m *metrics.Metrics, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(authmw.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(authmw.NewCORS(cfg.CORSOrigins))

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if m != nil {
			r.Use(m.Middleware)
		}

		r.Get("/health", handlers.Health)
		r.Get("/programs", handlers.Programs)

		auth := authmw.NewJWTAuth(cfg.Auth, profiles, log)
		r.Group(func(r chi.Router) {
			r.Use(auth.Optional)

			r.Get("/checkin/active", handlers.ActiveCheckIn)
			r.Post("/guest-checkin", handlers.GuestCheckIn)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Get("/auth/me", handlers.AuthMe)

			r.Post("/checkin", handlers.SubmitCode)
			r.Post("/checkin/start", handlers.StartCheckIn)
			r.Post("/admin/sessions/stop", handlers.StopCheckIn)

			r.Post("/events/{id}/session/start", handlers.StartEventSession)
			r.Post("/events/{id}/session/stop", handlers.StopEventSession)
			r.Get("/events/{id}/roster", handlers.EventRoster)
			r.Get("/events/{id}/sessions", handlers.EventSessions)

			r.Get("/programs/active-sessions", handlers.ActiveProgramSessions)
			r.Post("/programs/checkin/{program}", handlers.ChildrenCheckIn)

			r.Get("/children", handlers.ListChildren)
			r.Post("/children", handlers.RegisterChild)

			r.Get("/staff/programs/roster", handlers.StaffRoster)
			r.Get("/staff/programs/roster/summary", handlers.StaffRosterSummary)
			r.Get("/staff/programs/roster.csv", handlers.StaffRosterCSV)
			r.Post("/staff/programs/session/open", handlers.OpenProgramSession)
			r.Post("/staff/programs/session/close", handlers.CloseProgramSession)
			r.Post("/staff/programs/pickup", handlers.VerifyPickup)
		})
	})

	return r
}
