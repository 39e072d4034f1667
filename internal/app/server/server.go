// Package server assembles the lucky money service: SQLite store,
// session engine, notification hub, and HTTP API behind one listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/luckymoney/internal/api/rest"
	"github.com/louisbranch/luckymoney/internal/envelope/service"
	"github.com/louisbranch/luckymoney/internal/notify"
	"github.com/louisbranch/luckymoney/internal/storage/sqlite"
	"github.com/louisbranch/luckymoney/internal/telemetry"
)

const (
	defaultDBPath     = "data/luckymoney.db"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Config defines the inputs for the lucky money server.
type Config struct {
	// Addr is the listen address. Empty means an OS-assigned port.
	Addr string
	// DBPath is the SQLite database file. Empty means defaultDBPath.
	DBPath string
	// BaseURL is the externally reachable address used in share links.
	BaseURL string
}

// Server hosts the HTTP API, the WebSocket hub, and the backing store.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
	engine     *service.Service
	hub        *notify.Hub
}

// New builds a configured server. The database directory is created if
// it does not exist yet.
func New(config Config) (*Server, error) {
	dbPath := strings.TrimSpace(config.DBPath)
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine, err := service.New(service.Config{
		Store:     store,
		Telemetry: telemetry.NewEmitter(store),
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build session engine: %w", err)
	}

	hub := notify.NewHub(engine.Status, nil)

	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	handler := rest.NewHandler(engine, hub, baseURL)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /ws", hub)

	listener, err := net.Listen("tcp", config.Addr)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("listen on %q: %w", config.Addr, err)
	}

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		store:  store,
		engine: engine,
		hub:    hub,
	}, nil
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve restores the session from the store and runs the HTTP server
// until ctx is cancelled. On cancellation, in-flight requests are
// drained before the store is closed.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	if err := s.engine.Restore(ctx); err != nil {
		s.store.Close()
		return fmt.Errorf("restore session: %w", err)
	}

	go s.hub.Run(ctx)

	serveErr := make(chan error, 1)
	log.Printf("listening on %s", s.Addr())
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if closeErr := s.store.Close(); closeErr != nil {
			log.Printf("close store: %v", closeErr)
		}
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if closeErr := s.store.Close(); closeErr != nil {
			log.Printf("close store: %v", closeErr)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
