// Package webserver provides the web frontend HTTP server implementation
package webserver

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"

	airemix "github.com/alchemorsel/recipe-remix/internal/application/ai"
	recipeapp "github.com/alchemorsel/recipe-remix/internal/application/recipe"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipe-remix/internal/infrastructure/performance"
	"github.com/alchemorsel/recipe-remix/internal/ports/inbound"
	"github.com/alchemorsel/recipe-remix/pkg/healthcheck"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// WebServer represents the web frontend HTTP server
type WebServer struct {
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
	router      *chi.Mux
	page        inbound.PageService
	sessions    *SessionStore
	templates   *template.Template
	healthCheck *healthcheck.HealthCheck
	metrics     *monitoring.MetricsCollector
	compression *performance.CompressionMiddleware
}

// NewWebServer creates a new web frontend server instance. telemetry may be
// nil, in which case inbound requests are not traced.
func NewWebServer(
	cfg *config.Config,
	log *zap.Logger,
	page inbound.PageService,
	sessions *SessionStore,
	healthCheck *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
	telemetry *monitoring.Telemetry,
) (*WebServer, error) {
	templates, err := parseTemplates()
	if err != nil {
		log.Error("Failed to parse templates", zap.Error(err))
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &WebServer{
		config:      cfg,
		logger:      log.Named("webserver"),
		page:        page,
		sessions:    sessions,
		templates:   templates,
		healthCheck: healthCheck,
		metrics:     metrics,
	}

	if cfg.Server.EnableCompression {
		compressionConfig := performance.DefaultCompressionConfig()
		compressionConfig.BrotliLevel = cfg.Server.CompressionLevel
		s.compression = performance.NewCompressionMiddleware(compressionConfig)
		if err := metrics.Register(s.compression); err != nil {
			return nil, fmt.Errorf("failed to register compression metrics: %w", err)
		}
	}

	s.router = s.setupRoutes()

	var handler http.Handler = s.router
	if telemetry != nil {
		handler = telemetry.HTTPHandler(handler, cfg.App.Name)
	}

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures the web frontend routes
func (s *WebServer) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	if s.compression != nil {
		r.Use(s.compression.Handler)
	}

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/health", s.healthCheck.Handler())
	r.Get("/ready", s.healthCheck.ReadinessHandler())
	r.Get("/live", s.healthCheck.LivenessHandler())

	if s.config.Monitoring.EnableMetrics {
		r.Handle(s.config.Monitoring.MetricsPath, s.metrics.Handler())
	}

	r.Get("/", s.handleHome)
	r.Route("/htmx", func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Get("/recipe/random", s.handleRandomRecipe)
		r.Post("/remix", s.handleRemix)
	})

	return r
}

// Handler returns the routed handler without tracing
func (s *WebServer) Handler() http.Handler {
	return s.router
}

// Start begins listening. It returns once the listener is bound.
func (s *WebServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	s.logger.Info("Starting web server", zap.String("address", ln.Addr().String()))
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Web server stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down web server")
	return s.server.Shutdown(ctx)
}

type homeView struct {
	Title           string
	LoadingMessage  string
	RemixingMessage string
	RemixEnabled    bool
	Themes          []string
	Initial         messageView
}

func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	view := homeView{
		Title:           s.config.App.Name,
		LoadingMessage:  recipeapp.LoadingMessage,
		RemixingMessage: airemix.RemixingMessage,
		RemixEnabled:    s.page.RemixEnabled(),
		Themes:          s.config.AI.Themes,
		Initial:         messageView{Text: recipeapp.LoadingMessage},
	}
	s.render(w, r, "layout", view)
}

func (s *WebServer) handleRandomRecipe(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	display := newRegionDisplay(s.templates)
	if err := s.page.LoadRecipe(r.Context(), session.Holder, display); err != nil {
		s.logger.Debug("Recipe load finished with error",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	s.writeRegion(w, r, display)
}

func (s *WebServer) handleRemix(w http.ResponseWriter, r *http.Request) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	theme := r.PostFormValue("theme")

	display := newRegionDisplay(s.templates)
	if err := s.page.RemixRecipe(r.Context(), session.Holder, theme, display); err != nil {
		s.logger.Debug("Recipe remix finished with error",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("theme", theme),
			zap.Error(err),
		)
	}
	s.writeRegion(w, r, display)
}

// requireSession fails the request when the session middleware did not run
func (s *WebServer) requireSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		s.logger.Error("Session missing from request context",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
		)
		http.Error(w, "session required", http.StatusInternalServerError)
	}
	return session, ok
}

func (s *WebServer) writeRegion(w http.ResponseWriter, r *http.Request, display *regionDisplay) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := display.Render(w); err != nil {
		s.logger.Error("Failed to render display region",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
}

func (s *WebServer) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("Failed to render template",
			zap.String("template", name),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
}

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(templatesFS, "templates/*.html")
}
