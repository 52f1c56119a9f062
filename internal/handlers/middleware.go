package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"familycart/internal/metrics"
	"familycart/internal/models"
	"familycart/internal/security"
	"familycart/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey   ContextKey = "user"
	LoggerContextKey ContextKey = "logger"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	metrics     *metrics.Metrics
	logger      logrus.FieldLogger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, m *metrics.Metrics, logger logrus.FieldLogger) *Middleware {
	return &Middleware{
		authService: authService,
		metrics:     m,
		logger:      logger,
	}
}

// RequireAuth resolves the bearer credential to the current user row. The
// user, not the credential's claims, is what handlers authorize against.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := security.BearerToken(r)
		if !ok {
			respondWithError(w, r, http.StatusUnauthorized, ErrMissingToken, "", nil)
			return
		}

		user, err := m.authService.Authenticate(r.Context(), token)
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, r, http.StatusUnauthorized, ErrInvalidToken, "", err)
			return
		}
		if err != nil {
			respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Failed to authenticate request", err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, LoggerContextKey, requestLogger(r).WithField("user_id", user.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging logs every request once it has been served
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		entry := m.logger.WithFields(logrus.Fields{
			"request_id": chimiddleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		ctx := context.WithValue(r.Context(), LoggerContextKey, entry)

		next.ServeHTTP(ww, r.WithContext(ctx))

		entry.WithFields(logrus.Fields{
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start),
		}).Info("Request served")
	})
}

// Metrics records request counts and latency by route pattern
func (m *Middleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.metrics.ObserveRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}

// RateLimit rejects requests from clients that exceeded limiter's budget.
// A nil limiter lets every request through.
func (m *Middleware) RateLimit(limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := security.ClientIP(r)
			if ok, retryAfter := limiter.Allow(ip); !ok {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				requestLogger(r).WithField("client_ip", ip).Warn("Rate limit exceeded")
				respondWithError(w, r, http.StatusTooManyRequests, ErrTooManyAttempts, "", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// requestLogger returns the request-scoped logger set by Logging, or the
// standard logger outside of a served request
func requestLogger(r *http.Request) logrus.FieldLogger {
	if entry, ok := r.Context().Value(LoggerContextKey).(logrus.FieldLogger); ok {
		return entry
	}
	return logrus.StandardLogger()
}
