package middlewares

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type LoggerKey struct{}

// Logger attaches a request scoped logger to the context and logs the
// request once it has been served.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := zap.L().With(
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
		if span := trace.SpanContextFromContext(r.Context()); span.HasTraceID() {
			logger = logger.With(zap.String("trace_id", span.TraceID().String()))
		}

		ctx := context.WithValue(r.Context(), LoggerKey{}, logger)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("HTTP request",
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// GetLogger returns the request logger, or the global logger outside a request.
func GetLogger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.L()
}
