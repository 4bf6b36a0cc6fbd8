package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"civleAPI/internal/logger"
)

const RequestIDHeader = "X-Request-ID"

// LoggerMiddleware tags each request with an ID, echoes it back and logs the
// finished request.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ww := wrapWriter(w)
		next.ServeHTTP(ww, r)

		logger.Request(id, r.Method, r.URL.Path, ww.statusCode, time.Since(start))
	})
}
