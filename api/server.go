// Package api provides the HTTP JSON API.
//
// Endpoints:
//
//	POST /api/auth/register                                   create account
//	POST /api/auth/login                                      issue token
//	GET  /api/features                                        list features
//	POST /api/features/{feature}/sessions                     create session
//	GET  /api/features/{feature}/sessions                     list sessions
//	DEL  /api/features/{feature}/sessions                     clear sessions
//	PUT  /api/features/{feature}/sessions/{id}/select         set active
//	DEL  /api/features/{feature}/sessions/{id}                delete session
//	GET  /api/features/{feature}/sessions/{id}/turns          turn log
//	POST /api/features/{feature}/sessions/{id}/messages       send message
//	GET  /api/features/{feature}/sessions/{id}/attachments/{name}
//	POST /api/qr                                              QR code PNG
//	GET  /health, GET /ready                                  probes
//
// Everything under /api/features and /api/qr requires a bearer token
// from /api/auth/login.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, request id, logging, rate limit, tracing, auth
//   - auth.go: registration and login
//   - sessions.go: feature and session endpoints
//   - messages.go: message submission and persistence
//   - qr.go: QR code generation
//   - health.go: liveness and readiness probes
//   - sse.go: Server-Sent Events writer
//   - response.go: JSON response helpers and error mapping
package api

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyomlabs/vyom/internal/config"
	"github.com/vyomlabs/vyom/internal/credential"
	"github.com/vyomlabs/vyom/internal/feature"
	"github.com/vyomlabs/vyom/internal/log"
	"github.com/vyomlabs/vyom/internal/session"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Streamed responses from slow models take a while.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Deps holds the collaborators the server needs.
type Deps struct {
	Logger   log.Logger
	Creds    *credential.Store
	Sessions *session.Store
	Selector *session.Selector
	Registry *feature.Registry
}

// Server is the HTTP server.
type Server struct {
	mux       *http.ServeMux
	logger    log.Logger
	jwtSecret []byte
	limiter   *rate.Limiter
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(cfg *config.Config, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:       mux,
		logger:    deps.Logger,
		jwtSecret: []byte(cfg.JWTSecret),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}

	ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute

	NewHealthHandler(cfg.DataDir, deps.Logger).RegisterRoutes(mux)
	NewAuthHandler(deps.Creds, s.jwtSecret, ttl, deps.Logger).RegisterRoutes(mux)
	NewSessionHandler(deps.Registry, deps.Sessions, deps.Selector, deps.Logger).RegisterRoutes(mux, s.requireAuth)
	NewMessageHandler(deps.Registry, deps.Sessions, deps.Logger).RegisterRoutes(mux, s.requireAuth)
	NewQRHandler(deps.Logger).RegisterRoutes(mux, s.requireAuth)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery → request id → logging → rate limit → tracing.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
		rateLimitMiddleware(s.limiter),
		tracingMiddleware,
	)
}

// Run starts the HTTP server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = config.DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
