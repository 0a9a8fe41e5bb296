package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"oauthprompt/internal/config"
	"oauthprompt/internal/tokenservice"
	"oauthprompt/pkg/logging"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// CallbackServer serves the OAuth callback endpoint.
type CallbackServer struct {
	addr       string
	httpServer *http.Server
}

// NewCallbackServer creates the callback server for service.
func NewCallbackServer(cfg config.ServerConfig, service *tokenservice.Service) *CallbackServer {
	mux := http.NewServeMux()
	mux.Handle(cfg.CallbackPath, tokenservice.NewHandler(service))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return &CallbackServer{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
}

// Handler returns the HTTP handler, for tests.
func (s *CallbackServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *CallbackServer) ListenAndServe(ctx context.Context) error {
	serveErr := make(chan error, 1)
	logging.Info("App", "OAuth callback server listening on %s", s.addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
