package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"dreams/internal/journal"
	applog "dreams/internal/log"
	"dreams/internal/metrics"
	"dreams/internal/middleware/ratelimit"
	"dreams/internal/middleware/security"
	"dreams/internal/middleware/trace"
	appweb "dreams/web"
)

// storeTimeout bounds each store call made while serving a request.
const storeTimeout = 7 * time.Second

// Options configures NewServer.
type Options struct {
	Addr               string
	Store              journal.Store
	Logger             *applog.Logger
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
	// Now overrides the clock used for "today"; defaults to time.Now.
	Now func() time.Time
}

// Server serves the calendar UI and the dream API.
type Server struct {
	http.Server
	templates   *template.Template
	store       journal.Store
	logger      *applog.Logger
	events      *applog.StructuredLogger
	metrics     *metrics.Metrics
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	now         func() time.Time
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("http server: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		templates: t,
		store:     opts.Store,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		metrics:   opts.Metrics,
		detector:  security.NewDetector(opts.Logger, opts.Metrics),
		now:       opts.Now,
		started:   opts.Now(),
	}
	s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}, opts.Logger, opts.Metrics)

	mux := http.NewServeMux()
	if err := s.routes(mux); err != nil {
		s.rateLimiter.Stop()
		return nil, err
	}

	routeOf := func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(s.detector.ExtractClientIP, routeOf, opts.Logger, opts.Metrics).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) error {
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(http.StripPrefix("/static/", http.FileServer(http.FS(sub)))))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Web UI
	mux.HandleFunc("GET /{$}", s.handleCalendar)
	mux.HandleFunc("GET /dreams/new", s.handleNewDreamForm)
	mux.HandleFunc("POST /dreams/new", s.handleCreateDreamForm)
	mux.HandleFunc("GET /dreams/{id}", s.handleEditDreamForm)
	mux.HandleFunc("POST /dreams/{id}", s.handleUpdateDreamForm)
	mux.HandleFunc("POST /dreams/{id}/delete", s.handleDeleteDreamForm)

	// JSON API
	mux.HandleFunc("GET /api/dreams", s.handleAPIListMonth)
	mux.HandleFunc("POST /api/dreams", s.handleAPICreate)
	mux.HandleFunc("GET /api/dreams/by-emotion/{emotion}", s.handleAPIByEmotion)
	mux.HandleFunc("GET /api/dreams/{id}", s.handleAPIGet)
	mux.HandleFunc("PUT /api/dreams/{id}", s.handleAPIUpdate)
	mux.HandleFunc("DELETE /api/dreams/{id}", s.handleAPIDelete)
	return nil
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		return
	}
	TooManyRequestsError("Too many changes in a short time. Please wait a moment.").Write(w)
}

// render executes a page template into a buffer so that template failures still
// produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.LogFields{"template": name})
		InternalServerError("Could not render page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorPage struct {
	Title   string
	Message string
}

// renderError answers with a full error page, or with a fragment for htmx requests.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if isHTMX(r) {
		ErrorResponse(status, message).TriggerErrorNotification(message).Write(w)
		return
	}
	s.render(w, r, status, "error.html", errorPage{Title: http.StatusText(status), Message: message})
}
