package helpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"civleAPI/handlers"
	"civleAPI/internal/daykey"
	"civleAPI/internal/wordfilter"
	"civleAPI/middleware"
	"civleAPI/services"
)

const TestAccessKey = "test-access-key"

// Clock is a settable clock that advances one millisecond per reading.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// TestApp is a fully wired router over temporary storage.
type TestApp struct {
	Router        *mux.Router
	Service       *services.LeaderboardService
	Sweeper       *services.RetentionSweeper
	Clock         *Clock
	ScoresDir     string
	ScreenshotDir string
	ChallengeDir  string
}

// NewTestApp builds the app in UTC starting at start, with "meanie" blocked.
func NewTestApp(t *testing.T, start time.Time) *TestApp {
	t.Helper()
	root := t.TempDir()
	app := &TestApp{
		Clock:         &Clock{t: start},
		ScoresDir:     filepath.Join(root, "storage", "scores"),
		ScreenshotDir: filepath.Join(root, "storage", "screenshots"),
		ChallengeDir:  filepath.Join(root, "day_challenges"),
	}
	require.NoError(t, os.MkdirAll(app.ChallengeDir, 0o755))

	days := daykey.New(time.UTC)
	store := services.NewScoreStore(services.NewFileScoreRepository(app.ScoresDir), services.ScoreStoreOptions{
		MaxEntries: 100,
		Blocklist:  wordfilter.New([]string{"meanie"}),
		Now:        app.Clock.Now,
	})
	archive := services.NewScreenshotArchive(app.ScreenshotDir)

	app.Service = services.NewLeaderboardService(store, archive, services.NewFileChallengeSource(app.ChallengeDir), days,
		services.LeaderboardOptions{TopN: 20, Now: app.Clock.Now})
	app.Sweeper = services.NewRetentionSweeper(store, archive, days, time.Hour, app.Clock.Now)

	app.Router = handlers.NewRouter(handlers.NewLeaderboardHandler(app.Service, 1<<20), handlers.RouterOptions{
		AccessKey:   TestAccessKey,
		RateLimiter: middleware.NewRateLimiter(1000, 1000),
	})
	return app
}

func (a *TestApp) WriteChallenge(t *testing.T, dayKey, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(a.ChallengeDir, dayKey+".civle"), []byte(content), 0o644))
}

// Do sends a request through the router and decodes a JSON response body.
func (a *TestApp) Do(t *testing.T, method, target string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, target, &body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)

	var out map[string]interface{}
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr, out
}

func (a *TestApp) ServeHTTP(rr http.ResponseWriter, req *http.Request) {
	a.Router.ServeHTTP(rr, req)
}
