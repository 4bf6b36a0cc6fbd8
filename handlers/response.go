package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"civleAPI/internal/apperrors"
	"civleAPI/internal/logger"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Encoding response failed: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"Server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]interface{}{"success": false, "error": message})
}

// respondWithAppError maps service errors onto status codes. Storage and
// unexpected errors are logged and reported as a generic server error.
func respondWithAppError(w http.ResponseWriter, err error, notFoundMessage string) {
	if ve, ok := apperrors.AsValidation(err); ok {
		respondWithError(w, http.StatusBadRequest, ve.Message)
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		respondWithError(w, http.StatusForbidden, "Invalid key")
	case errors.Is(err, apperrors.ErrNotFound):
		respondWithError(w, http.StatusNotFound, notFoundMessage)
	default:
		logger.Error("Request failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Server error")
	}
}
