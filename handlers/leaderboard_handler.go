package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"civleAPI/internal/apperrors"
	"civleAPI/internal/leaderboard"
	"civleAPI/internal/logger"
	"civleAPI/services"
	"civleAPI/utils"
)

const (
	maxLeaderboardLimit = 100
	maxNameLength       = 64
)

type LeaderboardHandler struct {
	service      *services.LeaderboardService
	validate     *validator.Validate
	maxBodyBytes int64
}

func NewLeaderboardHandler(service *services.LeaderboardService, maxBodyBytes int64) *LeaderboardHandler {
	return &LeaderboardHandler{
		service:      service,
		validate:     validator.New(),
		maxBodyBytes: maxBodyBytes,
	}
}

type submitScoreRequest struct {
	Score      *float64 `json:"score" validate:"required"`
	Name       *string  `json:"name" validate:"omitempty,max=64"`
	Screenshot *string  `json:"screenshot"`
}

type submitScoreResponse struct {
	Success bool `json:"success"`
	leaderboard.SubmitResult
}

type leaderboardResponse struct {
	Success     bool              `json:"success"`
	Leaderboard []leaderboard.Row `json:"leaderboard"`
}

type bestSetupResponse struct {
	Success bool `json:"success"`
	*leaderboard.BestSetup
}

// validateRequest turns validator failures into player-facing messages.
func (h *LeaderboardHandler) validateRequest(req *submitScoreRequest) error {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	switch verrs[0].Field() {
	case "Score":
		return apperrors.NewValidation(apperrors.ReasonMissingScore, "Score required")
	default:
		return apperrors.NewValidation(apperrors.ReasonInvalidName,
			"Name must be at most "+strconv.Itoa(maxNameLength)+" characters")
	}
}

func (h *LeaderboardHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req submitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			req.Name = nil
		} else {
			req.Name = &trimmed
		}
	}

	if err := h.validateRequest(&req); err != nil {
		respondWithAppError(w, err, "")
		return
	}

	var screenshot []byte
	if req.Screenshot != nil && *req.Screenshot != "" {
		data, _, err := utils.DecodeDataURL(*req.Screenshot)
		if err != nil {
			logger.Warn("Ignoring screenshot on score submission: %v", err)
		} else {
			screenshot = data
		}
	}

	result, err := h.service.SubmitScore(ctx, *req.Score, req.Name, screenshot)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}

	respondWithJSON(w, http.StatusOK, submitScoreResponse{Success: true, SubmitResult: *result})
}

func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit := h.service.TopN()
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	limit = max(1, min(limit, maxLeaderboardLimit))

	rows, err := h.service.TodayLeaderboard(ctx, limit)
	if err != nil {
		respondWithAppError(w, err, "")
		return
	}

	respondWithJSON(w, http.StatusOK, leaderboardResponse{Success: true, Leaderboard: rows})
}

func (h *LeaderboardHandler) ResetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.service.ResetToday(ctx); err != nil {
		respondWithAppError(w, err, "")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Leaderboard reset successfully",
	})
}

func (h *LeaderboardHandler) YesterdayBestSetup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	setup, err := h.service.YesterdayBestSetup(ctx)
	if err != nil {
		respondWithAppError(w, err, "No setup available for yesterday")
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondWithJSON(w, http.StatusOK, bestSetupResponse{Success: true, BestSetup: setup})
}

// SubmitFirstPlaceScreenshot replaces today's winner screenshot with the
// first image/png part of a multipart upload.
func (h *LeaderboardHandler) SubmitFirstPlaceScreenshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid content type")
		return
	}

	var image []byte
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid multipart body")
			return
		}
		if part.Header.Get("Content-Type") != "image/png" {
			part.Close()
			continue
		}
		image, err = io.ReadAll(part)
		part.Close()
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid multipart body")
			return
		}
		if len(image) > 0 {
			break
		}
	}

	if len(image) == 0 {
		respondWithError(w, http.StatusBadRequest, "No image data found")
		return
	}

	if err := h.service.StoreUploadedScreenshot(ctx, image); err != nil {
		respondWithAppError(w, err, "")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *LeaderboardHandler) DailyChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	content, err := h.service.DailyChallenge(ctx)
	if err != nil {
		respondWithAppError(w, err, "Challenge not found for today")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

func (h *LeaderboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CheckStorage(); err != nil {
		logger.Error("Health check failed: %v", err)
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "storage unavailable",
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "civle-api",
	})
}
