// Package httpapi exposes the thin HTTP surface over the accounts service
// and the chat proxy. Every handler is glue: decode, delegate, map errors
// to status codes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/kodbank/internal/logging"
	"github.com/dmitrijs2005/kodbank/internal/server/accounts"
)

// Completer is the chat backend the /api/chat route proxies to.
type Completer interface {
	Complete(ctx context.Context, message string) (string, error)
}

type Server struct {
	address     string
	accounts    *accounts.Service
	chat        Completer
	logger      logging.Logger
	corsOrigins []string
	cookieTTL   time.Duration
}

func NewServer(addr string, acc *accounts.Service, chat Completer, l logging.Logger, corsOrigins []string, cookieTTL time.Duration) *Server {
	return &Server{
		address:     addr,
		accounts:    acc,
		chat:        chat,
		logger:      l.With("module", "http_server"),
		corsOrigins: corsOrigins,
		cookieTTL:   cookieTTL,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	return s.corsMiddleware(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
