package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/stockroom-core/internal/apiclient"
	"github.com/nerrad567/stockroom-core/internal/infrastructure/config"
	"github.com/nerrad567/stockroom-core/internal/infrastructure/logging"
	"github.com/nerrad567/stockroom-core/internal/prefs"
	"github.com/nerrad567/stockroom-core/internal/workspace"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// and view sessions to finish during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	UI      workspace.Config
	Logger  *logging.Logger
	Backend *apiclient.Client
	Prefs   prefs.Repository

	// ShellDir serves the shell from disk instead of the embedded copy when set.
	ShellDir string
	Version  string
}

// Server is the HTTP server for Stockroom Core.
//
// It manages the HTTP listener, routes, middleware, and the WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	uiCfg    workspace.Config
	logger   *logging.Logger
	backend  *apiclient.Client
	prefs    prefs.Repository
	shellDir string
	version  string
	hub      *Hub
	server   *http.Server

	// ctx bounds every view session; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, backend client, preference store)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if deps.Prefs == nil {
		return nil, fmt.Errorf("preference repository is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		uiCfg:    deps.UI,
		logger:   deps.Logger,
		backend:  deps.Backend,
		prefs:    deps.Prefs,
		shellDir: deps.ShellDir,
		version:  deps.Version,
		hub:      NewHub(deps.WS, deps.Logger),
		ctx:      ctx,
		cancel:   cancel,
	}
	return s, nil
}

// Handler returns the routed HTTP handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// The listener is bound before Start returns, so a port in use is reported
// here. Serving continues in a background goroutine until Close().
//
// Parameters:
//   - ctx: Context for the bind (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It cancels every view session, waits for them to tear down, then waits
// up to 10 seconds for in-flight requests to complete.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	s.cancel()
	s.hub.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.hub.Wait(ctx); err != nil {
		s.logger.Warn("view sessions did not finish", "error", err)
	}

	if s.server == nil {
		return nil
	}
	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("api server closed")
	}

	return nil
}

// Sessions returns the number of connected view sessions.
func (s *Server) Sessions() int {
	return s.hub.ClientCount()
}
