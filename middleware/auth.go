package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"civleAPI/internal/logger"
	"civleAPI/internal/metrics"
)

// AccessKeyMiddleware guards admin endpoints with the shared access key passed
// as the "key" query parameter. An empty configured key rejects every request.
func AccessKeyMiddleware(accessKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.URL.Query().Get("key")

			reason := ""
			switch {
			case accessKey == "":
				reason = "not_configured"
			case provided == "":
				reason = "missing_key"
			case subtle.ConstantTimeCompare([]byte(provided), []byte(accessKey)) != 1:
				reason = "invalid_key"
			}

			if reason != "" {
				logger.Warn("Rejected %s %s: %s", r.Method, r.URL.Path, reason)
				metrics.AuthRejections.WithLabelValues(reason).Inc()
				respondWithError(w, http.StatusForbidden, "Invalid key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
