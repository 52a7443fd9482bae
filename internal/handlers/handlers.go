package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/AnshRaj112/visitor-backend/internal/logging"
	"github.com/AnshRaj112/visitor-backend/internal/services"
)

// Handlers holds the services behind the HTTP routes.
type Handlers struct {
	Engine  *services.LifecycleEngine
	Tokens  *services.TokenRegistry
	Photos  services.PhotoStore
	Reports *services.ReportGenerator
	Auth    *services.AdminAuth
	Live    *services.LiveHub
}

// MessageResponse is the envelope for responses without a resource body.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status code. Unclassified errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, MessageResponse{
		Success: false,
		Message: apperrors.Message(err),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dest); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	return nil
}

// Health reports that the process is serving requests.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "✅ Backend is running."})
}
