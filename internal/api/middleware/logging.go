package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nirmalyamohanty/redfitchat/internal/models"
)

// principalLog is filled in by the auth middleware, which runs deeper in the
// chain than the logger. The logger installs the holder; the completion line
// reads it after the handler returns.
type principalLog struct {
	p *models.Principal
}

type principalLogKey struct{}

// Logger returns a request logging middleware using zerolog. Authenticated
// requests log the resolved principal id and guest flag alongside the
// request fields.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			holder := &principalLog{}
			r = r.WithContext(context.WithValue(r.Context(), principalLogKey{}, holder))

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				evt := logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr)
				if holder.p != nil {
					evt = evt.Str("principal", holder.p.ID).Bool("guest", holder.p.Guest)
				}
				evt.Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
