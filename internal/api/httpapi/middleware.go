package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"voicedine-service/internal/observability/metrics"
)

// requestLogger logs every request with its status and duration, and feeds
// the API request metrics. Wraps chi's WrapResponseWriter to capture the
// status code.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.DefaultMetrics.RecordAPIRequest(r.URL.Path, strconv.Itoa(status), elapsed.Seconds())

		event := log.Info()
		if status >= 500 {
			event = log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", elapsed).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}
