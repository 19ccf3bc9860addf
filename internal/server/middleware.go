package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

type contextKey string

const contextKeyUser contextKey = "pennant_user"

// Request headers read by UserMiddleware.
const (
	HeaderUserID      = "X-User-ID"
	HeaderUserEmail   = "X-User-Email"
	HeaderUserCountry = "X-User-Country"

	// customHeaderPrefix headers become custom attributes, e.g.
	// X-User-Attr-Plan: pro sets Custom["Plan"].
	customHeaderPrefix = "X-User-Attr-"
)

// UserMiddleware builds an evaluation user from the request and stores it
// in the request context. Requests without an identifier pass through
// untouched.
func UserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := UserFromRequest(r); user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromRequest extracts the user from headers, falling back to the
// user_id cookie for the identifier.
func UserFromRequest(r *http.Request) *domain.User {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		if cookie, err := r.Cookie("user_id"); err == nil {
			id = cookie.Value
		}
	}
	if id == "" {
		return nil
	}

	user := &domain.User{
		Identifier: id,
		Email:      r.Header.Get(HeaderUserEmail),
		Country:    r.Header.Get(HeaderUserCountry),
	}

	for key, values := range r.Header {
		name, ok := strings.CutPrefix(key, customHeaderPrefix)
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		if user.Custom == nil {
			user.Custom = map[string]any{}
		}
		user.Custom[name] = values[0]
	}

	return user
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// UserFromContext returns the user stored by WithUser or UserMiddleware.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKeyUser).(*domain.User)
	return user, ok && user != nil
}

// RequestLogger logs each completed request with its status and duration.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			status := ww.Status()
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "HTTP request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
