package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civleAPI/internal/daykey"
	"civleAPI/internal/wordfilter"
	"civleAPI/services"
)

const pngDataURL = "data:image/png;base64,iVBORw0KGgo="

var fixedNow = time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC)

type handlerFixture struct {
	handler      *LeaderboardHandler
	shotDir      string
	challengeDir string
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	root := t.TempDir()
	shotDir := filepath.Join(root, "screenshots")
	challengeDir := filepath.Join(root, "challenges")
	require.NoError(t, os.MkdirAll(challengeDir, 0o755))

	tick := fixedNow
	now := func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}

	store := services.NewScoreStore(services.NewFileScoreRepository(filepath.Join(root, "scores")), services.ScoreStoreOptions{
		MaxEntries: 100,
		Blocklist:  wordfilter.New([]string{"heck"}),
		Now:        now,
	})
	svc := services.NewLeaderboardService(
		store,
		services.NewScreenshotArchive(shotDir),
		services.NewFileChallengeSource(challengeDir),
		daykey.New(time.UTC),
		services.LeaderboardOptions{TopN: 20, Now: now},
	)
	return &handlerFixture{
		handler:      NewLeaderboardHandler(svc, 1<<20),
		shotDir:      shotDir,
		challengeDir: challengeDir,
	}
}

func (f *handlerFixture) submit(t *testing.T, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/submit-score", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.handler.SubmitScore(rr, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return rr, out
}

func TestSubmitScore(t *testing.T) {
	f := newHandlerFixture(t)

	rr, body := f.submit(t, `{"score": 42}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["rank"])
	assert.Equal(t, true, body["inTopN"])

	rr, body = f.submit(t, `{"score": 50, "name": "  Ann  "}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), body["rank"])

	// Names are trimmed before the duplicate check.
	rr, body = f.submit(t, `{"score": 10, "name": "ann"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Name already taken", body["error"])
}

func TestSubmitScore_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing score", `{"name": "Ann"}`, http.StatusBadRequest, "Score required"},
		{"null score", `{"score": null}`, http.StatusBadRequest, "Score required"},
		{"not json", `score=5`, http.StatusBadRequest, "Invalid request body"},
		{"string score", `{"score": "5"}`, http.StatusBadRequest, "Invalid request body"},
		{"blocked word", `{"score": 5, "name": "WhatTheHeck"}`, http.StatusBadRequest, "Name contains inappropriate content"},
		{"long name", `{"score": 5, "name": "` + strings.Repeat("x", 65) + `"}`, http.StatusBadRequest, "Name must be at most 64 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			rr, body := f.submit(t, tt.body)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestSubmitScore_WinnerScreenshot(t *testing.T) {
	f := newHandlerFixture(t)

	rr, _ := f.submit(t, `{"score": 70, "screenshot": "`+pngDataURL+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.FileExists(t, filepath.Join(f.shotDir, "03-09.png"))

	rr, _ = f.submit(t, `{"score": 70, "name": "Ann"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.FileExists(t, filepath.Join(f.shotDir, "03-09_(Ann)_(70).png"))
}

func TestSubmitScore_BadScreenshotStillScores(t *testing.T) {
	f := newHandlerFixture(t)

	rr, body := f.submit(t, `{"score": 70, "screenshot": "not-a-data-url"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), body["rank"])
	assert.NoDirExists(t, f.shotDir)
}

func TestSubmitScore_BodyTooLarge(t *testing.T) {
	f := newHandlerFixture(t)
	f.handler.maxBodyBytes = 16

	rr, body := f.submit(t, `{"score": 1, "name": "a name that does not fit"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, false, body["success"])
}

func TestGetLeaderboard(t *testing.T) {
	f := newHandlerFixture(t)
	for i := 0; i < 30; i++ {
		rr, _ := f.submit(t, `{"score": `+strings.Repeat("1", 1+i%3)+`}`)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	get := func(query string) []interface{} {
		rr := httptest.NewRecorder()
		f.handler.GetLeaderboard(rr, httptest.NewRequest(http.MethodGet, "/leaderboard"+query, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		return body["leaderboard"].([]interface{})
	}

	assert.Len(t, get(""), 20)
	assert.Len(t, get("?limit=5"), 5)
	assert.Len(t, get("?limit=0"), 1)
	assert.Len(t, get("?limit=500"), 30)
	assert.Len(t, get("?limit=abc"), 20)

	row := get("?limit=1")[0].(map[string]interface{})
	assert.Equal(t, float64(111), row["score"])
	assert.Nil(t, row["name"])
	assert.NotContains(t, row, "timestamp")
}

func TestGetLeaderboard_Empty(t *testing.T) {
	f := newHandlerFixture(t)

	rr := httptest.NewRecorder()
	f.handler.GetLeaderboard(rr, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"leaderboard":[]}`, rr.Body.String())
}

func TestResetLeaderboard(t *testing.T) {
	f := newHandlerFixture(t)
	f.submit(t, `{"score": 5, "name": "Ann"}`)

	rr := httptest.NewRecorder()
	f.handler.ResetLeaderboard(rr, httptest.NewRequest(http.MethodGet, "/reset_leaderboard?key=k", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"Leaderboard reset successfully"}`, rr.Body.String())

	rr, _ = f.submit(t, `{"score": 5, "name": "Ann"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestYesterdayBestSetup(t *testing.T) {
	f := newHandlerFixture(t)

	rr := httptest.NewRecorder()
	f.handler.YesterdayBestSetup(rr, httptest.NewRequest(http.MethodGet, "/yesterday-best-setup", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"No setup available for yesterday"}`, rr.Body.String())

	require.NoError(t, os.WriteFile(filepath.Join(f.challengeDir, "03-08.civle"), []byte("grid"), 0o644))

	rr = httptest.NewRecorder()
	f.handler.YesterdayBestSetup(rr, httptest.NewRequest(http.MethodGet, "/yesterday-best-setup", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"success":true,"challenge":"grid","hasScreenshot":false}`, rr.Body.String())
}

func TestDailyChallenge(t *testing.T) {
	f := newHandlerFixture(t)

	rr := httptest.NewRecorder()
	f.handler.DailyChallenge(rr, httptest.NewRequest(http.MethodGet, "/daily-challenge", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	require.NoError(t, os.WriteFile(filepath.Join(f.challengeDir, "03-09.civle"), []byte("today's grid"), 0o644))

	rr = httptest.NewRecorder()
	f.handler.DailyChallenge(rr, httptest.NewRequest(http.MethodGet, "/daily-challenge", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "today's grid", rr.Body.String())
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain"))
}

func multipartBody(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	require.NoError(t, mw.WriteField("note", "hello"))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="setup.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestSubmitFirstPlaceScreenshot(t *testing.T) {
	f := newHandlerFixture(t)
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

	body, ct := multipartBody(t, "image/png", png)
	req := httptest.NewRequest(http.MethodPost, "/submit-first-place-screenshot?key=k", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	f.handler.SubmitFirstPlaceScreenshot(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	data, err := os.ReadFile(filepath.Join(f.shotDir, "03-09.png"))
	require.NoError(t, err)
	assert.Equal(t, png, data)
}

func TestSubmitFirstPlaceScreenshot_Rejects(t *testing.T) {
	f := newHandlerFixture(t)

	body, ct := multipartBody(t, "image/jpeg", []byte("jpeg"))
	req := httptest.NewRequest(http.MethodPost, "/submit-first-place-screenshot", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	f.handler.SubmitFirstPlaceScreenshot(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"No image data found"}`, rr.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/submit-first-place-screenshot", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "application/octet-stream")
	rr = httptest.NewRecorder()
	f.handler.SubmitFirstPlaceScreenshot(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid content type"}`, rr.Body.String())
}

func TestHealth(t *testing.T) {
	f := newHandlerFixture(t)

	rr := httptest.NewRecorder()
	f.handler.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "healthy")
}
