package handlers

import (
	"net/http"

	"github.com/AnshRaj112/visitor-backend/internal/middleware"
)

// AdminSigninRequest represents the request to sign in as admin
type AdminSigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminSigninResponse represents the response after admin signin
type AdminSigninResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Admin   map[string]string `json:"admin,omitempty"`
	Token   string            `json:"token,omitempty"`
}

// AdminLogin verifies credentials and returns a session token for the Authorization header.
func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminSigninRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, admin, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminSigninResponse{
		Success: true,
		Message: "Login successful",
		Admin: map[string]string{
			"id":       admin.ID.String(),
			"username": admin.Username,
		},
		Token: token,
	})
}

func (h *Handlers) AdminLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out"})
}
