package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tendant/content-flow/pkg/contentflow"
)

// RequestLogger logs one line per request with the status, duration and, once
// authenticated, the acting principal.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			var principal contentflow.Principal
			next.ServeHTTP(ww, r.WithContext(withPrincipalSlot(r.Context(), &principal)))

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			}
			if id := middleware.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if principal.ID != uuid.Nil {
				attrs = append(attrs, "principal_id", principal.ID, "tenant_id", principal.TenantID)
			}

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "Request handled", attrs...)
		})
	}
}

type principalSlotKey struct{}

// withPrincipalSlot lets an outer middleware observe the principal that
// Authenticate attaches further down the chain.
func withPrincipalSlot(ctx context.Context, slot *contentflow.Principal) context.Context {
	return context.WithValue(ctx, principalSlotKey{}, slot)
}

func fillPrincipalSlot(ctx context.Context, p contentflow.Principal) {
	if slot, ok := ctx.Value(principalSlotKey{}).(*contentflow.Principal); ok {
		*slot = p
	}
}
