package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/carebook/internal/auth"
	"github.com/geocoder89/carebook/internal/booking"
	"github.com/geocoder89/carebook/internal/config"
	"github.com/geocoder89/carebook/internal/db"
	httpx "github.com/geocoder89/carebook/internal/http"
	"github.com/geocoder89/carebook/internal/notifications"
	"github.com/geocoder89/carebook/internal/observability"
	"github.com/geocoder89/carebook/internal/redisclient"
	"github.com/geocoder89/carebook/internal/repo/memory"
	"github.com/geocoder89/carebook/internal/repo/postgres"
	"github.com/geocoder89/carebook/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var errShuttingDown = errors.New("shutting down")

type appointmentRepo interface {
	httpx.AppointmentStore
	booking.AppointmentStore
}

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if cfg.Env != "dev" && cfg.SecretKey == config.DefaultSecretKey {
		log.Warn("SECRET_KEY is the development default; sessions can be forged")
	}

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, "carebook", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	var shuttingDown atomic.Bool
	var pings []func(context.Context) error

	deps := httpx.Deps{Prom: prom, Gatherer: reg}
	var appointments appointmentRepo
	var deliveries booking.DeliveryRecorder

	switch cfg.Storage {
	case "memory":
		log.Warn("using in-memory storage; data is lost on restart")

		users := memory.NewUsersRepo()
		appointments = memory.NewAppointmentsRepo()

		deps.Users = users
		deps.Doctors = memory.NewDoctorsRepo(memory.DefaultDoctors()...)
		deps.Contacts = memory.NewContactQueriesRepo()
		deliveries = memory.NewNotificationDeliveriesRepo()

		if err := db.EnsureAdminUser(ctx, users, cfg); err != nil {
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}
	default:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if cfg.DBAutoMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				log.Error("db migrate failed", "err", err)
				os.Exit(1)
			}
		}

		users := postgres.NewUsersRepo(pool, prom)
		appointments = postgres.NewAppointmentsRepo(pool, prom)

		deps.Users = users
		deps.Doctors = postgres.NewDoctorsRepo(pool, prom)
		deps.Contacts = postgres.NewContactQueriesRepo(pool, prom)
		deliveries = postgres.NewNotificationDeliveriesRepo(pool)

		seedCtx, cancel := config.WithTimeout(5 * time.Second)
		err = db.EnsureAdminUser(seedCtx, users, cfg)
		cancel()
		if err != nil {
			log.Error("admin seed failed", "err", err)
			os.Exit(1)
		}

		pings = append(pings, pool.Ping)
	}

	var store session.Store
	switch cfg.SessionStore {
	case "memory":
		store = session.NewMemoryStore(cfg.SessionTTL)
	default:
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		err := rdb.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Error("redis connect failed", "addr", cfg.RedisAddr, "err", err)
			os.Exit(1)
		}

		store = session.NewRedisStore(rdb)
		pings = append(pings, rdb.Ping)
	}
	deps.Appointments = appointments
	deps.Sessions = session.NewManager(store, auth.NewManager(cfg.SecretKey, cfg.SessionTTL), cfg.CookieSecure)

	deps.Booking = booking.NewService(
		appointments,
		newNotifier(cfg, log),
		booking.Config{
			DoctorAllowlist: cfg.DoctorAllowlist,
			Departments:     cfg.Departments,
			Location:        cfg.Location,
		},
		log,
		booking.WithMetrics(prom),
		booking.WithDeliveryRecorder(deliveries),
	)

	deps.Ping = func(ctx context.Context) error {
		if shuttingDown.Load() {
			return errShuttingDown
		}
		for _, ping := range pings {
			if err := ping(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	router := httpx.NewRouter(log, deps, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.Storage, "session_store", cfg.SessionStore)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	shuttingDown.Store(true)
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func newNotifier(cfg config.Config, log *slog.Logger) notifications.Notifier {
	var inner notifications.Notifier
	if cfg.SMTPHost == "" {
		log.Info("SMTP_HOST not set; confirmations are logged only")
		inner = notifications.NewLogNotifier(log)
	} else {
		inner = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.SMTPFrom,
			RatePerSec: cfg.MailRatePerSec,
		})
	}

	return notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		Timeout: cfg.NotifyTimeout,
	})
}
