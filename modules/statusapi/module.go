// Package statusapi serves the progress registry over HTTP.
//
// Routes:
//
//	GET  /healthz
//	GET  /progress
//	GET  /progress/{tag}
//	POST /progress/{tag}/restart
//	GET  /metrics
//
// Entity trackers are addressed as tag@entity.
package statusapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoCodeAlone/stepper"
)

// PluginName is the plugin and config section name.
const PluginName = "statusapi"

// Option configures a Plugin.
type Option func(*Plugin)

// WithGatherer sets the gatherer served on /metrics. Defaults to
// prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(p *Plugin) { p.gatherer = g }
}

// WithConfig replaces the config section, e.g. to listen on a fixed address
// without a feeder.
func WithConfig(cfg *Config) Option {
	return func(p *Plugin) { p.config = cfg }
}

// Plugin runs the status HTTP server from Start to Stop.
type Plugin struct {
	config   *Config
	gatherer prometheus.Gatherer
	app      *stepper.App
	logger   stepper.Logger
	router   chi.Router

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	serveErr chan error
}

// NewPlugin creates the status API plugin.
func NewPlugin(opts ...Option) *Plugin {
	p := &Plugin{
		config:   &Config{},
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Plugin) Name() string { return PluginName }

// RegisterConfig registers the "statusapi" section.
func (p *Plugin) RegisterConfig(app *stepper.App) error {
	app.RegisterConfigSection(PluginName, stepper.NewStdConfigProvider(p.config))
	return nil
}

// Build sets up the router.
func (p *Plugin) Build(app *stepper.App) error {
	if app == nil {
		return stepper.ErrApplicationNil
	}
	p.app = app
	p.logger = app.Logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(p.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", p.healthz)
	r.Route("/progress", func(r chi.Router) {
		r.Get("/", p.listTrackers)
		r.Route("/{tag}", func(r chi.Router) {
			r.Get("/", p.getTracker)
			r.Post("/restart", p.restartTracker)
		})
	})
	if !p.config.DisableMetrics && p.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{}))
	}

	p.router = r
	return nil
}

// Handler returns the router. It is nil before Build.
func (p *Plugin) Handler() http.Handler {
	return p.router
}

// Addr returns the address the server listens on, or "" when stopped.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// Start binds the listen address and serves in the background. A bind
// failure is returned from Start.
func (p *Plugin) Start(ctx context.Context) error {
	if p.router == nil {
		return ErrServerNotBuilt
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.server != nil {
		return ErrServerAlreadyRuns
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", p.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", p.config.Addr, err)
	}

	p.listener = ln
	p.server = &http.Server{
		Handler:           p.router,
		ReadTimeout:       p.config.ReadTimeout,
		ReadHeaderTimeout: p.config.ReadTimeout,
		WriteTimeout:      p.config.WriteTimeout,
	}
	p.serveErr = make(chan error, 1)

	server, errCh := p.server, p.serveErr
	go func() {
		err := server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			p.logger.Error("Status server failed", "error", err)
		}
		errCh <- err
	}()

	p.logger.Info("Status server listening", "address", ln.Addr().String())
	return nil
}

// Stop shuts the server down, waiting up to ShutdownTimeout for open
// requests.
func (p *Plugin) Stop(ctx context.Context) error {
	p.mu.Lock()
	server, errCh := p.server, p.serveErr
	p.server, p.listener, p.serveErr = nil, nil, nil
	p.mu.Unlock()
	if server == nil {
		return ErrServerNotStarted
	}

	p.logger.Info("Stopping status server", "timeout", p.config.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(ctx, p.config.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down status server: %w", err)
	}
	return <-errCh
}

func (p *Plugin) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		p.logger.Debug("Status request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}
