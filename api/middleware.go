package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/vyomlabs/vyom/internal/auth"
	"github.com/vyomlabs/vyom/internal/log"
)

type contextKey string

const (
	usernameKey  contextKey = "username"
	requestIDKey contextKey = "request_id"
)

// usernameFrom returns the authenticated username, or "" on
// unauthenticated routes.
func usernameFrom(ctx context.Context) string {
	username, _ := ctx.Value(usernameKey).(string)
	return username
}

// requestIDFrom returns the request id assigned by the middleware.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// chain applies middleware in order: first middleware wraps outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// recoveryMiddleware recovers from panics and returns 500.
func recoveryMiddleware(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware assigns every request a UUID, echoed in the
// X-Request-Id response header.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// loggingMiddleware logs all HTTP requests with method, path and
// duration.
func loggingMiddleware(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", requestIDFrom(r.Context()),
				"duration", time.Since(start))
		})
	}
}

// rateLimitMiddleware rejects requests above the configured rate with
// 429. One process-wide limiter; the server binds to loopback by
// default so per-client buckets add little.
func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// tracingMiddleware opens a span per request.
func tracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("vyom/api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth verifies the bearer token and stores the username in the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			writeError(w, s.logger, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		username, err := auth.ParseToken(header[len(prefix):], s.jwtSecret)
		if err != nil {
			writeError(w, s.logger, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), usernameKey, username)))
	}
}
