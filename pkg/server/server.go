package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meta-introspector/claude-code-mux/pkg/auth"
	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/dispatch"
	"github.com/meta-introspector/claude-code-mux/pkg/gateway"
	"github.com/meta-introspector/claude-code-mux/pkg/providerfactory"
	"github.com/meta-introspector/claude-code-mux/pkg/proxy/handlers"
	"github.com/meta-introspector/claude-code-mux/pkg/proxy/middleware"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/logging"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/metrics"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace/retention"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace/storage"
)

// shortRequestTimeout bounds every route that does not stream.
const shortRequestTimeout = 30 * time.Second

// Options tunes server construction beyond the configuration file.
type Options struct {
	// ConfigPath enables hot reload when set: the file is watched and a
	// valid rewrite swaps the routing snapshot without a restart.
	// Server-level settings (listen address, timeouts, telemetry
	// backends) still need a restart.
	ConfigPath string

	// Version is reported by the health endpoint and startup log.
	Version string

	// LogWriter overrides the log destination. Defaults to stderr.
	LogWriter *os.File
}

// Server assembles the gateway and serves its HTTP surface. It owns
// every long-lived component: the logger ring, the metrics collector,
// the trace recorder with its retention pruner, the OAuth token
// manager with its refresh sweeper, and the config watcher.
type Server struct {
	cfg     *config.Config
	opts    Options
	gateway *gateway.Gateway
	tokens  *auth.Manager

	collector *metrics.Collector
	ring      *logging.Ring
	traces    trace.Storage
	recorder  *trace.Recorder
	pruner    *retention.Pruner
	sweeper   *auth.Sweeper
	watcher   *config.Watcher

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New builds a server from a loaded configuration. Nothing listens
// until Start.
func New(cfg *config.Config, opts Options) (*Server, error) {
	s := &Server{
		cfg:          cfg,
		opts:         opts,
		shutdownChan: make(chan struct{}),
	}

	var logWriter *os.File = os.Stderr
	if opts.LogWriter != nil {
		logWriter = opts.LogWriter
	}
	ring, err := logging.Setup(cfg.Telemetry.Logging, logWriter)
	if err != nil {
		return nil, fmt.Errorf("logging setup failed: %w", err)
	}
	s.ring = ring

	s.collector = metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry())

	if cfg.Telemetry.Trace.IsEnabled() {
		store, err := storage.Open(cfg.Telemetry.Trace)
		if err != nil {
			return nil, fmt.Errorf("trace storage failed: %w", err)
		}
		s.traces = store
		s.recorder = trace.NewRecorder(store, nil)
		if cfg.Telemetry.Trace.Backend == "sqlite" {
			s.pruner = retention.NewPruner(store,
				cfg.Telemetry.Trace.RetentionDays,
				cfg.Telemetry.Trace.PruneSchedule)
		}
	}

	tokenStore, err := auth.NewStore(cfg.OAuth.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("token store failed: %w", err)
	}
	s.tokens = auth.NewManager(tokenStore, cfg.OAuth, s.collector)
	if cfg.OAuth.SweepSchedule != "" {
		s.sweeper = auth.NewSweeper(s.tokens, cfg.OAuth.SweepSchedule)
	}

	s.gateway = gateway.New(dispatch.New(s.tokens, s.collector), s.recorder, s.collector)
	if err := s.install(cfg); err != nil {
		return nil, err
	}

	return s, nil
}

// install compiles cfg into a snapshot plus adapter registry and
// publishes the pair. The previous registry's idle connections are
// released; in-flight requests keep theirs until they finish.
func (s *Server) install(cfg *config.Config) error {
	snapshot, err := config.NewSnapshot(cfg)
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	registry, err := providerfactory.NewRegistry(snapshot.ProviderConfigs())
	if err != nil {
		return fmt.Errorf("provider registry failed: %w", err)
	}

	if old := s.gateway.Install(&gateway.Runtime{Snapshot: snapshot, Registry: registry}); old != nil {
		_ = old.Registry.Close()
	}
	return nil
}

// Start runs the HTTP server and every background component, blocking
// until a shutdown signal, a fatal listen error, or ctx cancellation.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.pruner != nil {
		if err := s.pruner.Start(runCtx); err != nil {
			s.setRunning(false)
			return fmt.Errorf("trace pruner failed: %w", err)
		}
	}
	if s.sweeper != nil {
		if err := s.sweeper.Start(runCtx); err != nil {
			s.setRunning(false)
			return fmt.Errorf("oauth sweeper failed: %w", err)
		}
	}
	if err := s.startWatcher(runCtx); err != nil {
		s.setRunning(false)
		return err
	}

	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("gateway listening",
			"address", addr,
			"version", s.opts.Version,
			"providers", len(s.cfg.Providers),
			"models", len(s.cfg.Models),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.Shutdown(context.Background())
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// startWatcher begins config hot reload when a path was supplied.
func (s *Server) startWatcher(ctx context.Context) error {
	if s.opts.ConfigPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(s.opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config watcher failed: %w", err)
	}
	s.watcher = watcher

	go func() {
		err := watcher.Watch(ctx, func() error {
			cfg, err := config.Load(s.opts.ConfigPath)
			if err != nil {
				return err
			}
			if err := s.install(cfg); err != nil {
				return err
			}
			slog.Info("configuration reloaded",
				"providers", len(cfg.Providers),
				"models", len(cfg.Models),
			)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("config watcher stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the listener and drains background components. Safe
// to call more than once; later calls return the first result.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.cfg.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		if s.watcher != nil {
			_ = s.watcher.Stop()
		}
		if s.sweeper != nil {
			s.sweeper.Stop()
		}
		if s.pruner != nil {
			s.pruner.Stop()
		}
		if s.recorder != nil {
			// Drains queued trace records into storage.
			_ = s.recorder.Close()
		}
		if s.traces != nil {
			_ = s.traces.Close()
		}
		if rt := s.gateway.Install(nil); rt != nil {
			_ = rt.Registry.Close()
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway stopped")
	})

	return shutdownErr
}

// RequestShutdown triggers a graceful stop from another goroutine, the
// admin shutdown endpoint in particular.
func (s *Server) RequestShutdown() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

func (s *Server) setRunning(v bool) {
	s.mu.Lock()
	s.isRunning = v
	s.mu.Unlock()
}

// IsRunning reports whether Start is active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Gateway exposes the orchestrator, mainly for tests.
func (s *Server) Gateway() *gateway.Gateway {
	return s.gateway
}

// Handler builds the HTTP route table with its middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// The completion surface honors the inbound API key; everything
	// else stays open for local tooling and probes. Completion routes
	// carry no deadline middleware, streams stay open for as long as
	// the upstream generates; everything else is bounded.
	protect := middleware.AuthMiddleware(s.cfg.Server.APIKey)
	bound := middleware.TimeoutMiddleware(shortRequestTimeout)
	mux.Handle("/v1/messages", protect(handlers.NewMessagesHandler(s.gateway)))
	mux.Handle("/v1/messages/count_tokens", protect(bound(handlers.NewCountTokensHandler(s.gateway))))
	mux.Handle("/v1/chat/completions", protect(handlers.NewChatHandler(s.gateway)))
	mux.Handle("/v1/models", protect(bound(handlers.NewModelsHandler(s.gateway))))

	mux.Handle("/health", bound(handlers.NewHealthHandler(s.gateway, s.tokens, s.opts.Version)))

	oauthMux := http.NewServeMux()
	handlers.NewOAuthHandler(s.tokens).Routes(oauthMux)
	mux.Handle("/oauth/", bound(oauthMux))

	adminMux := http.NewServeMux()
	handlers.NewAdminHandler(s.gateway, s.ring, s.traces, s.RequestShutdown).Routes(adminMux)
	mux.Handle("/api/", bound(adminMux))

	if s.cfg.Telemetry.Metrics.IsEnabled() {
		mux.Handle(s.cfg.Telemetry.Metrics.Path, s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.CORSMiddleware(middleware.DefaultCORSConfig())(handler)
	handler = middleware.MetricsMiddleware(s.collector)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)
	return handler
}
