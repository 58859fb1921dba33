package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/campus-events/apiserver/config"
	"github.com/campus-events/apiserver/internal/clock"
	"github.com/campus-events/apiserver/internal/db"
	"github.com/campus-events/apiserver/internal/handlers"
	"github.com/campus-events/apiserver/internal/mq"
	"github.com/campus-events/apiserver/internal/ratelimit"
	"github.com/campus-events/apiserver/internal/services"
	"github.com/campus-events/apiserver/internal/storage"
	"github.com/campus-events/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	limiter    *ratelimit.Limiter
}

// App holds the services the router is built from.
type App struct {
	DB            *store.DB
	Events        *services.EventService
	Users         *services.UserService
	Registrations *services.RegistrationService
	Payments      *services.PaymentService
	Dashboard     *services.DashboardService
	Auth          *services.AuthService
}

// Options carries the optional collaborators of NewApp.
type Options struct {
	Clock    clock.Clock
	Notifier services.Notifier
	Images   services.ImageStore
	Payment  []services.PaymentOption
}

// NewApp wires repositories and services over an open database.
func NewApp(cfg config.Config, sqlDB *sql.DB, opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	if opts.Notifier == nil {
		opts.Notifier = services.NopNotifier()
	}

	storeDB := store.NewDB(sqlDB, store.DialectFor(cfg.Database.Driver))
	eventRepo := store.NewEventRepository(storeDB)
	userRepo := store.NewUserRepository(storeDB)
	registrationRepo := store.NewRegistrationRepository(storeDB)
	dashboardRepo := store.NewDashboardRepository(storeDB)

	var eventOpts []services.EventOption
	if opts.Images != nil {
		eventOpts = append(eventOpts, services.WithImageStore(opts.Images))
	}

	paymentOpts := []services.PaymentOption{
		services.WithPaymentDelay(cfg.Payment.Delay),
		services.WithSuccessRate(cfg.Payment.SuccessRate),
		services.WithPaymentNotifier(opts.Notifier),
	}
	paymentOpts = append(paymentOpts, opts.Payment...)

	return &App{
		DB:     storeDB,
		Events: services.NewEventService(eventRepo, registrationRepo, opts.Clock, eventOpts...),
		Users:  services.NewUserService(userRepo, opts.Clock),
		Registrations: services.NewRegistrationService(
			storeDB,
			eventRepo,
			userRepo,
			registrationRepo,
			opts.Clock,
			opts.Notifier,
		),
		Payments:  services.NewPaymentService(registrationRepo, opts.Clock, paymentOpts...),
		Dashboard: services.NewDashboardService(dashboardRepo),
		Auth:      services.NewAuthService(cfg.Auth, opts.Clock),
	}
}

// NewRouter builds the HTTP routes. limiter may be nil.
func NewRouter(app *App, corsOrigins []string, limiter handlers.RateLimiter) *chi.Mux {
	requireAdmin := handlers.RequireAdmin(app.Auth)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		handlers.CORS(corsOrigins),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/health", handlers.Health(app.DB))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, app.Auth)
	})
	router.Route("/events", func(r chi.Router) {
		handlers.EventRouter(r, app.Events, app.Registrations, requireAdmin, handlers.RateLimit(limiter, "register"))
	})
	router.Route("/categories", func(r chi.Router) {
		handlers.CategoryRouter(r, app.Events)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, app.Users)
	})
	router.Route("/registrations", func(r chi.Router) {
		handlers.RegistrationRouter(r, app.Registrations, requireAdmin)
	})
	router.Route("/payments", func(r chi.Router) {
		handlers.PaymentRouter(r, app.Payments, handlers.RateLimit(limiter, "payment"))
	})
	router.Route("/dashboard", func(r chi.Router) {
		handlers.DashboardRouter(r, app.Dashboard, requireAdmin)
	})
	if app.Events.ImagesEnabled() {
		router.Route("/images", func(r chi.Router) {
			handlers.ImageRouter(r, app.Events)
		})
	}
	return router
}

// New constructs a Server from configuration, connecting to the database and
// to whichever optional backends are configured.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{db: dbConn}
	opts := Options{Clock: clock.NewSystem()}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = s.close()
		return nil, err
	}
	if queue != nil {
		s.queue = queue
		opts.Notifier = services.NewQueueNotifier(queue, slog.Default())
		slog.Info("notifications enabled", "backend", cfg.MQ.Backend, "channel", queue.Channel())
	}

	images, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = s.close()
		return nil, err
	}
	if images != nil {
		opts.Images = images
		slog.Info("image storage enabled", "backend", cfg.Storage.Backend, "bucket", images.Bucket())
	}

	var limiter handlers.RateLimiter
	s.limiter, err = ratelimit.Open(ctx, cfg.RateLimit)
	switch {
	case err != nil:
		slog.Warn("rate limiting disabled", "error", err)
	case s.limiter != nil:
		limiter = s.limiter
	}

	if cfg.Auth.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set; admin routes are open")
	}

	app := NewApp(cfg, dbConn, opts)
	s.router = NewRouter(app, cfg.CORSOrigins, limiter)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done, then releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.close())
}

func (s *Server) close() error {
	var errs []error
	if s.limiter != nil {
		errs = append(errs, s.limiter.Close())
	}
	if s.queue != nil {
		errs = append(errs, s.queue.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
