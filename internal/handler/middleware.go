package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/msomdec/recipe-box/internal/domain"
	"github.com/msomdec/recipe-box/internal/metrics"
	"github.com/msomdec/recipe-box/internal/service"
)

const (
	msgUnauthorized   = "Unauthorized"
	msgNoPermissions  = "Insufficient Permissions"
	msgInvalidRequest = "Invalid request body"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// TokenValidator verifies access tokens.
type TokenValidator interface {
	ValidateToken(token string) (service.Claims, error)
}

// UserLookup loads the current state of a user.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// ClaimsFromContext extracts the authenticated identity from the request
// context. ok is false if no user is authenticated.
func ClaimsFromContext(ctx context.Context) (service.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(service.Claims)
	return claims, ok
}

// RequireAuth is middleware that protects routes requiring authentication.
// It reads the Authorization bearer token, validates it and injects the
// claims into the request context. Returns 401 for unauthenticated requests.
func RequireAuth(auth TokenValidator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin is like RequireAuth but also requires the ADMIN role, both in
// the token and on the stored user, so a demoted or deleted admin loses
// access before the token expires. Any refusal is a 401.
func RequireAdmin(auth TokenValidator, users UserLookup, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, msgNoPermissions)
			return
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if claims.Role != domain.RoleAdmin {
			writeError(w, http.StatusUnauthorized, msgNoPermissions)
			return
		}
		user, err := users.GetByID(r.Context(), claims.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			writeServiceError(w, r, err)
			return
		}
		if user == nil || user.Role != domain.RoleAdmin {
			writeError(w, http.StatusUnauthorized, msgNoPermissions)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// SecurityHeaders sets response headers appropriate for a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Metrics records the status and latency of every request.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTP(r.Method, status, time.Since(start).Seconds())
	})
}

// RequestLogger logs one line per request at debug level, and at warn for
// server errors.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger := loggerFrom(r.Context())
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		}
		if ww.Status() >= http.StatusInternalServerError {
			logger.Warn("request failed", attrs...)
			return
		}
		logger.Debug("request served", attrs...)
	})
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if id := middleware.GetReqID(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}
