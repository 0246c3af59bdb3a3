package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/research-vault/pkg/logger"
)

const (
	TraceHeader     = "X-Trace-ID"
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags every log line of the request with a trace id, reusing one supplied by the caller.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = r.Header.Get(RequestIDHeader)
		}
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}

		w.Header().Set(TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(logger.With(r.Context(), "traceID", traceID)))
	})
}
