package handlers

import (
	"net/http"
)

type SubscribeRequest struct {
	Token string `json:"token"`
}

type SubscribeResponse struct {
	Success bool `json:"success"`
	Created bool `json:"created"`
}

// Subscribe registers a device for new-visitor push notifications.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.Tokens.Register(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SubscribeResponse{Success: true, Created: created})
}
