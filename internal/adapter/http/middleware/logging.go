package middleware

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/campusmart/ledger/internal/domain"
)

// RequestLogger stores a request-scoped logger in the context and writes one
// access entry per request. Handlers below it log through zerolog.Ctx.
func RequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			l := base.With().Str("request_id", chimiddleware.GetReqID(r.Context())).Logger()
			r = r.WithContext(l.WithContext(r.Context()))

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			event := l.Info()
			switch {
			case status >= 500:
				event = l.Error()
			case status >= 400:
				event = l.Warn()
			}

			event.
				Str("method", r.Method).
				Str("route", routePattern(r)).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("request completed")
		})
	}
}

// withIdentity stores the caller in the context and tags the request logger
// with it, so the access entry written by RequestLogger names the actor.
func withIdentity(ctx context.Context, id *domain.Identity) context.Context {
	zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("actor", id.UserID).Str("role", string(id.Role))
	})
	return domain.WithIdentity(ctx, id)
}
