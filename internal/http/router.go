package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/carebook/internal/cache"
	"github.com/geocoder89/carebook/internal/config"
	"github.com/geocoder89/carebook/internal/domain/appointment"
	"github.com/geocoder89/carebook/internal/domain/user"
	"github.com/geocoder89/carebook/internal/http/handlers"
	"github.com/geocoder89/carebook/internal/http/middlewares"
	"github.com/geocoder89/carebook/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type AppointmentStore interface {
	ListByUser(ctx context.Context, userID string) ([]appointment.Appointment, error)
	CountUpcomingByUser(ctx context.Context, userID string, now time.Time) (int, error)
}

type SessionManager interface {
	middlewares.SessionReader
	handlers.SessionIssuer
}

// Deps are the collaborators the HTTP layer needs; main wires Postgres or
// in-memory implementations behind them.
type Deps struct {
	Users        handlers.UserStore
	Appointments AppointmentStore
	Doctors      handlers.DoctorLister
	Contacts     handlers.ContactStore
	Booking      handlers.Booker
	Sessions     SessionManager

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Ping     func(ctx context.Context) error
}

func NewRouter(log *slog.Logger, deps Deps, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	handlers.RegisterValidators()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware("carebook"))
	r.Use(middlewares.RequestLogger())
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(cfg.CookieSecure))
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	// health
	ping := func() error {
		if deps.Ping == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	formLimit := cfg.FormRateLimit
	if formLimit <= 0 {
		formLimit = 20
	}
	limiter := middlewares.NewRateLimiter(formLimit, time.Minute)
	limited := limiter.Middleware(middlewares.KeyByRouteAndIP)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Sessions, deps.Prom)
	appointmentsHandler := handlers.NewAppointmentsHandler(deps.Booking, deps.Appointments)
	dashboardHandler := handlers.NewDashboardHandler(deps.Appointments)
	doctorsHandler := handlers.NewDoctorsHandler(deps.Doctors, cache.New(5*time.Minute))
	contactHandler := handlers.NewContactHandler(deps.Contacts)

	// public
	r.GET("/login", authHandler.LoginForm)
	r.POST("/login", limited, authHandler.Login)
	r.GET("/signup", authHandler.SignUpForm)
	r.POST("/signup", limited, authHandler.SignUp)
	r.GET("/register", authHandler.SignUpForm)
	r.POST("/register", limited, authHandler.SignUp)
	r.GET("/logout", authHandler.Logout)
	r.GET("/doctors", doctorsHandler.List)
	r.POST("/contact", limited, contactHandler.Submit)

	// session required
	authed := r.Group("/")
	authed.Use(middlewares.RequireSession(deps.Sessions))
	{
		authed.GET("/dashboard", dashboardHandler.Show)
		authed.GET("/book-appointment", appointmentsHandler.BookingForm)
		authed.POST("/book-appointment", appointmentsHandler.Book)
		authed.POST("/book_appointment", appointmentsHandler.Book)
		authed.GET("/my_appointments", appointmentsHandler.ListMine)
	}

	admin := r.Group("/admin")
	admin.Use(middlewares.RequireSession(deps.Sessions), middlewares.RequireRole(user.RoleAdmin))
	{
		admin.GET("/contact-queries", contactHandler.List)
		admin.PUT("/contact-queries/:id/status", middlewares.RequireJSON(), contactHandler.UpdateStatus)
	}

	log.Debug("router ready", "doctors_allowlist", len(cfg.DoctorAllowlist), "open_doctor_mode", cfg.OpenDoctorMode())

	return r
}
