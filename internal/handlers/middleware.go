package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/juancollazo-ch/order-print-relay/internal/logging"
	"go.uber.org/zap"
)

// RequestLogging loguea cada request con el trace id de Cloud Run.
func RequestLogging(logger *zap.Logger, projectID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := TraceID(r)
			ctx := logging.WithTrace(r.Context(), traceID)

			fields := []zap.Field{
				zap.String("httpRequest.requestMethod", r.Method),
				zap.String("httpRequest.requestUrl", r.URL.Path),
				zap.String("httpRequest.remoteIp", r.RemoteAddr),
				zap.String("httpRequest.userAgent", r.UserAgent()),
			}
			// Formato completo de trace solo si conocemos el proyecto
			if projectID != "" {
				fields = append(fields, zap.String("logging.googleapis.com/trace", fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)))
			}

			log := logging.For(ctx, logger)
			log.Info("Request started", fields...)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			duration := time.Since(start)
			log.Info("Request completed", append(fields,
				zap.Int("httpRequest.status", ww.Status()),
				zap.Int64("httpRequest.latency.milliseconds", duration.Milliseconds()),
			)...)
		})
	}
}

// TraceID saca el trace de X-Cloud-Trace-Context (TRACE_ID/SPAN_ID;o=1) o
// genera uno local.
func TraceID(r *http.Request) string {
	header := r.Header.Get("X-Cloud-Trace-Context")
	if header != "" {
		if slashIdx := strings.IndexByte(header, '/'); slashIdx != -1 {
			header = header[:slashIdx]
		}
		if header != "" {
			return header
		}
	}
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
}
