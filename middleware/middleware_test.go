package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func TestAccessKeyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		query      string
		wantStatus int
	}{
		{"correct key", "s3cret", "?key=s3cret", http.StatusOK},
		{"wrong key", "s3cret", "?key=nope", http.StatusForbidden},
		{"missing key", "s3cret", "", http.StatusForbidden},
		{"prefix of key", "s3cret", "?key=s3c", http.StatusForbidden},
		{"unconfigured key", "", "?key=", http.StatusForbidden},
		{"unconfigured key with guess", "", "?key=anything", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AccessKeyMiddleware(tt.configured)(okHandler)
			req := httptest.NewRequest(http.MethodGet, "/reset_leaderboard"+tt.query, nil)
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusForbidden {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, false, body["success"])
				assert.Equal(t, "Invalid key", body["error"])
			}
		})
	}
}

func TestBasicAuthMiddleware(t *testing.T) {
	h := BasicAuthMiddleware("prom", "pw")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "wrong")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "pw")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBasicAuthMiddleware_UnconfiguredIsClosed(t *testing.T) {
	h := BasicAuthMiddleware("", "")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("", "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPprofSecurityMiddleware(t *testing.T) {
	h := PprofSecurityMiddleware("pp")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req.Header.Set("X-Pprof-Secret", "pp")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Middleware(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimiter_UsesFirstForwardedAddress(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Middleware(okHandler)

	send := func(fwd string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", fwd)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, send("1.2.3.4, 10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("1.2.3.4, 10.0.0.9"))
	assert.Equal(t, http.StatusOK, send("5.6.7.8"))
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.limiter("a")
	rl.limiter("b")

	assert.Zero(t, rl.Evict(time.Now()))
	assert.Equal(t, 2, rl.Evict(time.Now().Add(10*time.Minute)))
	assert.Empty(t, rl.visitors)
}

func TestLoggerMiddleware_RequestID(t *testing.T) {
	h := LoggerMiddleware(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rr.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
}

func TestMonitorMiddleware_UsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MonitorMiddleware)
	r.HandleFunc("/leaderboard", okHandler).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/leaderboard?limit=5", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestResponseWriter_KeepsFirstStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	ww := wrapWriter(rr)
	ww.Write([]byte("body"))
	ww.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, ww.statusCode)
	assert.Same(t, ww, wrapWriter(ww))
}
