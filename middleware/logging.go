package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/travel-control-plane/internal/observability"
	"go.uber.org/zap"
)

// AccessLog logs one line per request with its status and latency.
// Server errors log at error level, client errors at warn.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
			}

			log := observability.Logger(r.Context(), logger)
			switch {
			case status >= http.StatusInternalServerError:
				log.Error("HTTP request", fields...)
			case status >= http.StatusBadRequest:
				log.Warn("HTTP request", fields...)
			default:
				log.Info("HTTP request", fields...)
			}
		})
	}
}
