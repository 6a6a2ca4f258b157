package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rastromax/rastromax-backend/api/controllers"
	"github.com/rastromax/rastromax-backend/api/middleware"
	authsvc "github.com/rastromax/rastromax-backend/internal/auth"
	"github.com/rastromax/rastromax-backend/internal/telemetry"
	"github.com/rastromax/rastromax-backend/internal/tickets"
	"github.com/rastromax/rastromax-backend/internal/trackers"
	"github.com/rastromax/rastromax-backend/internal/users"
	"github.com/rastromax/rastromax-backend/internal/vehicles"
	"github.com/rastromax/rastromax-backend/pkg/auth/session"
	"github.com/rastromax/rastromax-backend/pkg/config"
	"github.com/rastromax/rastromax-backend/pkg/db"
	"github.com/rastromax/rastromax-backend/pkg/enums"
	"github.com/rastromax/rastromax-backend/pkg/logger"
	"github.com/rastromax/rastromax-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        db.Pinger
	Redis     *redis.Client
	Sessions  session.AccessSessionChecker
	Directory middleware.PrincipalDirectory
	Registry  *prometheus.Registry

	Auth      authsvc.Service
	Users     users.Service
	Vehicles  vehicles.Service
	Trackers  trackers.Service
	Tickets   tickets.Service
	Telemetry telemetry.Service
}

// NewRouter assembles the chi router with the full middleware chain.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewLoginRateLimitPolicy(
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(deps.Auth, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, deps.Directory, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, deps.Directory, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.UsersList(deps.Users, logg))
			r.Post("/", controllers.UsersCreate(deps.Users, logg))
			r.Get("/{userId}", controllers.UsersGet(deps.Users, logg))
			r.Put("/{userId}", controllers.UsersUpdate(deps.Users, logg))
			r.With(middleware.RequireRole(logg, enums.RoleAdmin)).
				Delete("/{userId}", controllers.UsersDelete(deps.Users, logg))
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", controllers.VehiclesList(deps.Vehicles, logg))
			r.Post("/", controllers.VehiclesCreate(deps.Vehicles, logg))
			r.Get("/{vehicleId}", controllers.VehiclesGet(deps.Vehicles, logg))
			r.Put("/{vehicleId}", controllers.VehiclesUpdate(deps.Vehicles, logg))
			r.Delete("/{vehicleId}", controllers.VehiclesDelete(deps.Vehicles, logg))
		})

		r.Route("/trackers", func(r chi.Router) {
			r.Get("/", controllers.TrackersList(deps.Trackers, logg))
			r.Post("/", controllers.TrackersCreate(deps.Trackers, logg))
			r.Get("/position", controllers.TrackerPosition(deps.Telemetry, logg))
			r.Get("/status", controllers.TrackerStatus(deps.Telemetry, logg))
			r.Put("/{trackerId}", controllers.TrackersUpdate(deps.Trackers, logg))
			r.Delete("/{trackerId}", controllers.TrackersDelete(deps.Trackers, logg))
		})

		r.Get("/invoices", controllers.InvoicesList(deps.Trackers, logg))

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", controllers.TicketsList(deps.Tickets, logg))
			r.Post("/", controllers.TicketsCreate(deps.Tickets, logg))
			r.Get("/{ticketId}", controllers.TicketsGet(deps.Tickets, logg))
			r.Put("/{ticketId}", controllers.TicketsUpdate(deps.Tickets, logg))
			r.With(middleware.RequireRole(logg, enums.RoleAdmin)).
				Delete("/{ticketId}", controllers.TicketsDelete(deps.Tickets, logg))
			r.Get("/{ticketId}/messages", controllers.TicketMessagesList(deps.Tickets, logg))
			r.Post("/{ticketId}/messages", controllers.TicketMessagesCreate(deps.Tickets, logg))
		})
	})

	return r
}
