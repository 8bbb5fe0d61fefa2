package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/tontine/internal/metrics"
)

// routePattern returns the matched chi route, or the raw path when nothing matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// Logging returns a middleware that logs every request and records it in m.
// It logs the route pattern, status, user ID and duration.
func Logging(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// The auth middleware runs further down the chain, so the user ID is read back
			// through a holder it fills in.
			holder := &userHolder{}
			next.ServeHTTP(ww, r.WithContext(withHolder(r.Context(), holder)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			elapsed := time.Since(start)
			m.ObserveRequest(r.Method, route, status, elapsed)

			attrs := []any{
				"method", r.Method,
				"route", route,
				"status", status,
				"user_id", holder.userID,
				"duration_ms", elapsed.Milliseconds(),
			}
			switch {
			case status >= http.StatusInternalServerError:
				slog.Error("HTTP error", attrs...)
			case status >= http.StatusBadRequest:
				slog.Warn("HTTP error", attrs...)
			default:
				slog.Info("HTTP ok", attrs...)
			}
		})
	}
}

type userHolder struct {
	userID string
}

const holderKey contextKey = "user_holder"

func withHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, holderKey, h)
}

// recordUser makes the authenticated user visible to the request logger.
func recordUser(ctx context.Context, userID string) {
	if h, ok := ctx.Value(holderKey).(*userHolder); ok {
		h.userID = userID
	}
}
