package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/ashureev/clawdachi/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// DefaultPort is the listener port used when none is configured.
const DefaultPort = 9876

// PortInUseError reports that the listener address is already bound.
type PortInUseError struct {
	Addr string
	Err  error
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("listen %s: port already in use", e.Addr)
}

func (e *PortInUseError) Unwrap() error { return e.Err }

// NewRouter builds the listener's chi router.
func NewRouter(h *StateHandler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	h.RegisterRoutes(r)
	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)
	return r
}

// Listener serves a handler on host:port.
type Listener struct {
	addr   string
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// NewListener creates a listener for handler. It does not bind until Start.
func NewListener(host string, port int, handler http.Handler, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return &Listener{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the address and serves in the background. A busy port yields
// *PortInUseError.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return &PortInUseError{Addr: l.addr, Err: err}
		}
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	l.ln = ln

	go func() {
		l.logger.Info("[REMOTE] Listening", "addr", ln.Addr().String())
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("[REMOTE] Server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (l *Listener) Addr() string {
	if l.ln != nil {
		return l.ln.Addr().String()
	}
	return l.addr
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (l *Listener) Shutdown(ctx context.Context) error {
	if l.ln == nil {
		return nil
	}
	if err := l.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown listener: %w", err)
	}
	l.logger.Info("[REMOTE] Stopped")
	return nil
}
