package app

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"rosterkit/internal/config"
	"rosterkit/internal/errors"
	"rosterkit/internal/infrastructure"
	customMiddleware "rosterkit/internal/middleware"
	"rosterkit/internal/services"
	handlers "rosterkit/internal/transport/http"
	"rosterkit/internal/validation"
	ws "rosterkit/internal/websocket"
	"rosterkit/pkg/contracts"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

const (
	// VERSION mirrors the contracts package so every surface that reports a
	// version agrees with the build stamp.
	VERSION  = "v" + contracts.Version
	REPO_URL = "https://github.com/rosterkit/rosterkit"
	AppName  = "RosterKit - Roster Cleaning & Reporting"
)

var (
	// BuildTime comes from the contracts package, stamped there by ldflags.
	BuildTime = contracts.BuildTime
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(VERSION))
	h.Write([]byte(contracts.GitCommit))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application wires configuration, services, and the HTTP server for the
// RosterKit web service. Construct it with NewApplication and drive it
// with Run, or Start/Stop for finer control.
type Application struct {
	Config            *config.Config
	Paths             *config.Paths
	Router            *chi.Mux
	Server            *http.Server
	WebSocketHub      *ws.Hub
	OperationsService *services.OperationsService
	DataService       *services.DataService
	HealthService     *services.HealthService
	Logger            *slog.Logger
	OTelProviders     *infrastructure.OTelProviders
	BusinessMetrics   *infrastructure.BusinessMetrics
	RuntimeCollector  *infrastructure.RuntimeCollector
}

// NewApplication loads configuration and builds the full service graph:
// logger, OpenTelemetry providers, websocket hub, pipeline and data
// services, router, and HTTP server.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.String("build_id", BuildID))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	if err := ws.InitOTelMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize WebSocket OpenTelemetry metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the websocket hub and the three application
// services in dependency order. The hub starts immediately so that step
// snapshots from early pipeline runs are not dropped.
func (a *Application) initializeServices() error {
	if a.OTelProviders != nil && a.OTelProviders.Meter != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
		if err != nil {
			a.Logger.Warn("business metrics unavailable, continuing without them",
				slog.String("error", err.Error()))
		} else {
			a.BusinessMetrics = metrics
		}

		collector, err := infrastructure.NewRuntimeCollector(a.OTelProviders.Meter, 15*time.Second)
		if err != nil {
			a.Logger.Warn("runtime metrics unavailable, continuing without them",
				slog.String("error", err.Error()))
		} else {
			a.RuntimeCollector = collector
		}
	}

	hub := ws.NewHub(a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	operationsService, err := services.NewOperationsServiceWithPaths(hub, a.Config, a.Paths, a.BusinessMetrics, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize operations service: %w", err)
	}
	a.OperationsService = operationsService

	dataService, err := services.NewDataServiceWithPaths(a.Config, a.Paths, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize data service: %w", err)
	}
	a.DataService = dataService

	a.HealthService = services.NewHealthServiceWithBuildInfo(
		VERSION,
		REPO_URL,
		BuildTime,
		BuildID,
		a.Paths,
		operationsService,
		operationsService.AuditRecorder(),
		hub,
		a.Logger,
	)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware first; these do not wrap the ResponseWriter and
	// are safe in front of the WebSocket upgrade.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// WebSocket route stays outside the full middleware group. Wrapped
	// writers break the http.Hijacker the upgrade needs.
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).HandleFunc("/ws", a.handleWebSocket)

	// Everything else gets the full stack.
	r.Group(func(r chi.Router) {
		if a.OTelProviders != nil {
			otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
			if err != nil {
				a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
			} else {
				r.Use(otelMiddleware.Handler)
			}
		}
		r.Use(customMiddleware.BusinessMetricsMiddleware(a.BusinessMetrics))

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		a.setupWebRoutes(r)
	})

	// Prometheus exposition outside the middleware group; scrapers do not
	// need request logging or rate limiting.
	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	// Unknown paths and wrong verbs come back as problem JSON rather than
	// the chi plain-text defaults.
	fallback := errors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	r.NotFound(fallback.NotFound)
	r.MethodNotAllowed(fallback.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	errorHandler := errors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.ContentTypeValidator("application/json"))
		r.Use(customMiddleware.NewValidationMiddleware(a.Logger, errorHandler).ValidateRequest)

		// Standard timeout for read-side endpoints.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/health/stats", healthHandler.SystemStats)
			r.Get("/health/detailed", healthHandler.DetailedHealth)
			r.Get("/version", healthHandler.Version)

			metricsHandler := handlers.NewMetricsHandler(a.OperationsService, a.WebSocketHub, a.Logger)
			r.Mount("/metrics", metricsHandler.Routes())

			dataHandler := handlers.NewDataHandler(a.DataService, a.Logger, errorHandler)
			r.Mount("/data", dataHandler.Routes())

			r.Post("/logs", handlers.NewClientLogHandler(a.Logger).Handle)
		})

		// Pipeline endpoints get the long operation timeout; triggering
		// returns immediately but cancel and status calls should not be
		// cut short by the read timeout either.
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.OperationTimeout, a.Logger))

			operationsHandler := handlers.NewOperationsHandler(a.OperationsService, a.WebSocketHub, a.Logger)
			operationsHandler.SetMetrics(a.BusinessMetrics)

			operationsMetricsHandler, err := handlers.NewOperationsMetricsHandler(a.OperationsService, a.Logger)
			if err != nil {
				a.Logger.Error("Failed to create operations metrics handler", slog.String("error", err.Error()))
				r.Mount("/operations", operationsHandler.Routes())
			} else {
				r.Route("/operations", func(r chi.Router) {
					r.Mount("/metrics", operationsMetricsHandler.Routes())
					r.Mount("/", operationsHandler.Routes())
				})
			}

			// Shortcut that starts a cleaning run with a bare source
			// payload, traced like any other pipeline trigger.
			r.Post("/clean", customMiddleware.OperationTraceHandler("clean", func(w http.ResponseWriter, r *http.Request) {
				var params struct {
					Source string `json:"source"`
				}
				if err := render.DecodeJSON(r.Body, &params); err != nil {
					render.Status(r, http.StatusBadRequest)
					render.JSON(w, r, map[string]interface{}{"error": "Invalid request"})
					return
				}
				operationID, err := a.OperationsService.Trigger(r.Context(), services.TriggerRequest{Source: params.Source})
				if err != nil {
					render.Status(r, http.StatusBadRequest)
					render.JSON(w, r, map[string]interface{}{"error": err.Error()})
					return
				}
				render.Status(r, http.StatusAccepted)
				render.JSON(w, r, map[string]interface{}{"operation_id": operationID, "status": "pending"})
			}))
		})
	})
}

// setupWebRoutes configures the HTML pages and static assets served from
// the web directory, plus the generated dashboard artifact.
func (a *Application) setupWebRoutes(r chi.Router) {
	webDir := a.Config.GetWebDir()

	r.Get("/", handlers.ServeMainApp(webDir))
	r.Get("/app", handlers.ServeMainApp(webDir))
	r.Get("/dashboard", handlers.ServeDashboardPage(a.Paths.DashboardHTML))
	r.Get("/test", handlers.ServeTestPage())

	staticDir := a.Paths.StaticDir
	r.Route("/static", func(r chi.Router) {
		r.Use(chimiddleware.Compress(5))
		r.Handle("/*", http.StripPrefix("/static", http.FileServer(http.Dir(staticDir))))
	})
}

// getCORSConfig returns CORS configuration based on environment
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	port := a.Config.Server.Port
	cfg.AllowedOrigins = []string{
		fmt.Sprintf("http://localhost:%d", port),
		fmt.Sprintf("http://127.0.0.1:%d", port),
	}

	if a.isDevelopmentMode() {
		// Allow a separately served frontend during development.
		cfg.AllowedOrigins = append(cfg.AllowedOrigins,
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		)
	} else if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
	}

	a.Logger.Info("CORS configured",
		slog.Bool("development", a.isDevelopmentMode()),
		slog.Any("allowed_origins", cfg.AllowedOrigins))

	return cfg
}

// isDevelopmentMode detects if we're running in development mode
func (a *Application) isDevelopmentMode() bool {
	if a.Config.Logging.Development {
		return true
	}
	switch os.Getenv("GO_ENV") {
	case "development", "dev":
		return true
	}
	switch os.Getenv("ENVIRONMENT") {
	case "development", "dev":
		return true
	}
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the HTTP server and background checks. The cancel
// function is invoked when the listener fails so Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", VERSION),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.Logger.InfoContext(ctx, "Application paths",
		slog.String("executable_dir", a.Paths.ExecutableDir),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("input_dir", a.Paths.InputDir),
		slog.String("output_dir", a.Paths.OutputDir),
		slog.String("web_dir", a.Paths.WebDir),
		slog.String("logs_dir", a.Paths.LogsDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if a.RuntimeCollector != nil {
		go a.RuntimeCollector.Start(ctx)
	}

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	url := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", url))

	go a.openBrowserWhenReady(ctx, url)

	return nil
}

// openBrowserWhenReady polls the health endpoint until the server answers,
// then opens the local browser. Failing to open a browser is not an error
// worth stopping for; the URL is printed instead.
func (a *Application) openBrowserWhenReady(ctx context.Context, url string) {
	healthURL := url + "/api/health"

	for i := 0; i < 10; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		resp, err := http.Get(healthURL)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				if err := openBrowser(url); err != nil {
					a.Logger.WarnContext(ctx, "Failed to open browser",
						slog.String("error", err.Error()),
						slog.String("url", url))
					fmt.Printf("\nRosterKit is running. Open your browser at %s\n\n", url)
				}
				return
			}
		}

		time.Sleep(500 * time.Millisecond)
	}

	a.Logger.WarnContext(ctx, "Server did not become ready for browser opening",
		slog.String("url", healthURL))
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Cancel in-flight runs and release the audit store before the hub
	// goes away; step snapshots still flow during cancellation.
	if err := a.OperationsService.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down operations service", slog.String("error", err.Error()))
	}

	a.WebSocketHub.Stop()

	if a.RuntimeCollector != nil {
		a.RuntimeCollector.Stop()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped, shutting down")
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and hands it to the hub. It runs
// outside the middleware group, so request ID and CORS handling are done
// inline.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("host", r.Host))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// No Origin header means a non-browser client or same-origin
			// request; allow it.
			if origin == "" {
				return true
			}

			if a.isDevelopmentMode() {
				return true
			}

			for _, allowed := range a.getCORSConfig().AllowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}

			a.Logger.WarnContext(ctx, "WebSocket origin rejected",
				slog.String("origin", origin))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	client := ws.NewClientWithTrace(a.WebSocketHub, conn, reqID, a.Logger)
	a.WebSocketHub.Register(client)

	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				a.Logger.ErrorContext(ctx, "WebSocket write pump panic",
					slog.Any("panic", rec),
					slog.String("request_id", reqID))
			}
		}()
		client.WritePump()
	}()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				a.Logger.ErrorContext(ctx, "WebSocket read pump panic",
					slog.Any("panic", rec),
					slog.String("request_id", reqID))
			}
		}()
		client.ReadPump()
	}()
}

// performStartupHealthCheck probes the pipeline directories so permission
// problems surface at startup instead of mid-run. Failures are collected
// into one warning; an empty input directory is normal on first launch.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	validator := validation.NewFileValidator(a.Logger)

	var warnings []string

	if err := validator.ValidateInputDirectory(a.Paths.InputDir, "*.csv"); err != nil {
		warnings = append(warnings, err.Error())
	}

	for _, dir := range []string{a.Paths.OutputDir, a.Paths.VisualizationsDir, a.Paths.LogsDir} {
		if err := validator.ValidateOutputDirectory(dir); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	if !config.FileExists(a.Paths.WebDir) {
		warnings = append(warnings, fmt.Sprintf("web directory not found: %s", a.Paths.WebDir))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}

// openBrowser opens the default browser to the specified URL
func openBrowser(url string) error {
	var lastErr error

	for _, method := range getBrowserOpenMethods(url) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		cmd := exec.CommandContext(ctx, method.cmd, method.args...)

		if err := cmd.Start(); err != nil {
			cancel()
			lastErr = err
			continue
		}

		// Let go of the child; the browser keeps running after we return.
		go func() {
			_ = cmd.Wait()
			cancel()
		}()

		slog.Info("Browser opened",
			slog.String("method", method.name),
			slog.String("url", url))
		return nil
	}

	return fmt.Errorf("failed to open browser: %w", lastErr)
}

// browserMethod represents a method to open the browser
type browserMethod struct {
	name string
	cmd  string
	args []string
}

// getBrowserOpenMethods returns platform-specific browser opening methods
func getBrowserOpenMethods(url string) []browserMethod {
	switch runtime.GOOS {
	case "windows":
		return []browserMethod{
			{name: "start_command", cmd: "cmd", args: []string{"/c", "start", "", url}},
			{name: "rundll32", cmd: "rundll32", args: []string{"url.dll,FileProtocolHandler", url}},
		}
	case "darwin":
		return []browserMethod{
			{name: "open", cmd: "open", args: []string{url}},
		}
	default: // Linux and others
		return []browserMethod{
			{name: "xdg-open", cmd: "xdg-open", args: []string{url}},
			{name: "sensible-browser", cmd: "sensible-browser", args: []string{url}},
		}
	}
}
