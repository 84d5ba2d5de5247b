package monitor

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// tracedWriter captures the response status code for the access log.
type tracedWriter struct {
	http.ResponseWriter
	status int
}

func (w *tracedWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// traced tags each request with an ID and writes one access-log line per
// request, including the kernel tick at which it arrived so log lines can
// be lined up against recorded traces.
func (m *Monitor) traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := requestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)

		tick := m.kern.TickCount()
		start := time.Now()
		tw := &tracedWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(tw, r.WithContext(ctx))

		m.logger.LogAttrs(r.Context(), slog.LevelInfo, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", tw.status),
			slog.Int64("tick", tick),
			slog.String("duration", time.Since(start).String()),
			slog.String("request_id", reqID),
		)
	})
}
