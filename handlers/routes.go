package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"civleAPI/middleware"
)

type RouterOptions struct {
	AccessKey   string
	RateLimiter *middleware.RateLimiter

	// Metrics is served at /metrics behind basic auth when set.
	Metrics     http.Handler
	MetricsUser string
	MetricsPass string

	// Pprof is served under /debug/pprof/ behind the pprof secret when set.
	Pprof       http.Handler
	PprofSecret string
}

// NewRouter wires the leaderboard endpoints with logging, metrics and rate
// limiting. Admin routes are gated by the access key.
func NewRouter(h *LeaderboardHandler, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware)
	r.Use(middleware.MonitorMiddleware)
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.Middleware)
	}

	if opts.Metrics != nil {
		r.Handle("/metrics", middleware.BasicAuthMiddleware(opts.MetricsUser, opts.MetricsPass)(opts.Metrics)).Methods(http.MethodGet)
	}
	if opts.Pprof != nil {
		r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(opts.PprofSecret)(opts.Pprof))
	}

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/submit-score", h.SubmitScore).Methods(http.MethodPost)
	r.HandleFunc("/leaderboard", h.GetLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/yesterday-best-setup", h.YesterdayBestSetup).Methods(http.MethodGet)
	r.HandleFunc("/daily-challenge", h.DailyChallenge).Methods(http.MethodGet)

	admin := r.NewRoute().Subrouter()
	admin.Use(middleware.AccessKeyMiddleware(opts.AccessKey))
	admin.HandleFunc("/reset_leaderboard", h.ResetLeaderboard).Methods(http.MethodGet)
	admin.HandleFunc("/submit-first-place-screenshot", h.SubmitFirstPlaceScreenshot).Methods(http.MethodPost)

	return r
}
