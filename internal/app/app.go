package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"aadhaarcli/internal/config"
	apierrors "aadhaarcli/internal/errors"
	"aadhaarcli/internal/infrastructure"
	"aadhaarcli/internal/ingest"
	custommw "aadhaarcli/internal/middleware"
	"aadhaarcli/internal/pipeline"
	"aadhaarcli/internal/services"
	"aadhaarcli/internal/store"
	handlers "aadhaarcli/internal/transport/http"
	"aadhaarcli/internal/validation"
	"aadhaarcli/internal/websocket"
	"aadhaarcli/pkg/contracts"
)

// Options adjusts what New wires
type Options struct {
	// Export writes the report files after each completed run
	Export bool

	// NoStore skips the run history even when the config enables it
	NoStore bool
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Tracer        *pipeline.StageTracer
	Loader        *ingest.Loader
	Pipeline      *pipeline.Manager
	Hub           *websocket.Hub
	Store         *store.Store
	Analysis      *services.AnalysisService
	Health        *services.HealthService
	Validator     *validation.FileValidator
	Router        *chi.Mux
	Server        *http.Server
}

// New wires the analysis stack without the HTTP layer
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.OTel), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Validator:     validation.NewFileValidator(logger),
	}

	if err := a.initializeServices(ctx, opts); err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return a, nil
}

// NewServer wires the analysis stack plus the router and HTTP server
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	a, err := New(ctx, cfg, logger, Options{Export: true})
	if err != nil {
		return nil, err
	}

	a.Hub = websocket.NewHub(a.Tracer.Metrics(), a.Logger)
	a.Pipeline.SetPublisher(a.Hub)
	a.Hub.Start()

	if err := a.setupRouter(); err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.createServer()
	return a, nil
}

func (a *Application) initializeServices(ctx context.Context, opts Options) error {
	tracer, err := pipeline.NewStageTracer(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create stage tracer: %w", err)
	}
	a.Tracer = tracer

	registry, loader, err := pipeline.NewDefaultRegistry(pipeline.Options{
		Anomaly: a.Config.Anomaly,
		Summary: a.Config.Summary,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Loader = loader

	manager, err := pipeline.NewManager(registry, tracer, a.Logger)
	if err != nil {
		return err
	}
	a.Pipeline = manager

	// Keep the interfaces nil when history is disabled
	var runStore services.RunStore
	var pinger services.Pinger
	if a.Config.Store.Enabled && !opts.NoStore {
		s, err := store.Open(ctx, a.Config.Paths.Resolve(a.Config.Store.Path), a.Logger)
		if err != nil {
			return err
		}
		a.Store = s
		runStore, pinger = s, s
	}

	a.Analysis = services.NewAnalysisService(manager, services.AnalysisOptions{
		Paths:  a.Config.Paths,
		Export: opts.Export,
	}, runStore, a.Logger)
	a.Health = services.NewHealthService(contracts.Version, a.Config.Paths, a.Analysis, pinger, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	otelMiddleware, err := custommw.NewOTelMiddleware(a.OTelProviders, a.Tracer.Metrics())
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}

	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
	runHandler := handlers.NewRunHandler(a.Analysis, a.Logger, errorHandler)
	analysisHandler := handlers.NewAnalysisHandler(a.Analysis, a.Logger, errorHandler)
	validator := custommw.NewValidationMiddleware(a.Logger, errorHandler)

	// Probes, scrapes and long-lived subscriptions stay outside logging,
	// timeouts and rate limiting
	r.Mount(config.HealthEndpoint, healthHandler.Routes())
	r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	r.Get(config.WebSocketEndpoint, websocket.Handler(a.Hub, a.Logger))

	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		r.Use(custommw.SecurityHeaders)

		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(custommw.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		r.Route(config.APIBasePath, func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Group(func(r chi.Router) {
				r.Use(custommw.Timeout(a.Config.Server.RequestTimeout, a.Logger))
				r.Get("/version", healthHandler.Version)
				runHandler.RegisterHistoryRoutes(r)
				analysisHandler.RegisterRoutes(r)
			})

			// A run executes inside its request
			r.Group(func(r chi.Router) {
				r.Use(custommw.Timeout(a.Config.Server.RunTimeout, a.Logger))
				r.Use(validator.ValidateRequest)
				r.Post("/runs", runHandler.StartRun)
			})
		})
	})

	a.Router = r
	return nil
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Address(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts serving in the background. A listener failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	if a.Server == nil {
		return errors.New("server not configured; use NewServer")
	}

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://%s", a.Server.Addr)))
	return nil
}

// Stop gracefully stops the server and releases resources
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	}

	a.Close(shutdownCtx)
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return shutdownErr
}

// Close disconnects subscribers, releases the store and flushes telemetry
func (a *Application) Close(ctx context.Context) {
	if a.Hub != nil {
		a.Hub.Stop()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing run store", slog.String("error", err.Error()))
		}
		a.Store = nil
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
		a.OTelProviders = nil
	}
}

// Run serves until interrupted or the listener fails
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck checks the input and output directories
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []error

	report, err := a.Validator.ValidateInputs(a.Config.Paths.InputDirs())
	if err != nil {
		warnings = append(warnings, err)
	}
	if err := a.Validator.ValidateOutputDirectory(a.Config.Paths.Resolve(a.Config.Paths.OutputDir)); err != nil {
		warnings = append(warnings, err)
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %w", errors.Join(warnings...))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed", slog.Int("input_files", report.Total()))
	return nil
}
