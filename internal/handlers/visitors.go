package handlers

import (
	"bufio"
	"errors"
	"net/http"
	"strings"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/AnshRaj112/visitor-backend/internal/middleware"
	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/services"
	"github.com/go-chi/chi/v5"
)

const maxPhotoUpload = 10 << 20 // 10MB

type CreateVisitorResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	ID      string          `json:"id"`
	Visitor *models.Visitor `json:"visitor"`
}

type UpdateStatusRequest struct {
	Status        models.VisitorStatus `json:"status"`
	AdminUsername string               `json:"adminUsername"`
	Override      bool                 `json:"override"`
}

// CreateVisitor handles the multipart registration form with a "photo" file.
func (h *Handlers) CreateVisitor(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUpload+1<<20)
	if err := r.ParseMultipartForm(maxPhotoUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperrors.Validation("photo must be at most 10MB"))
			return
		}
		writeError(w, r, apperrors.Validation("Failed to parse form, expected multipart/form-data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := services.NewVisitor{
		Name:         r.FormValue("name"),
		Phone:        r.FormValue("phone"),
		Company:      r.FormValue("company"),
		PersonToMeet: r.FormValue("personToMeet"),
		Purpose:      r.FormValue("purpose"),
	}
	// Older clients send the visit reason instead of purpose
	if strings.TrimSpace(form.Purpose) == "" {
		form.Purpose = r.FormValue("reason")
	}
	if err := h.Engine.CheckNewVisitor(form); err != nil {
		writeError(w, r, err)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, r, apperrors.Validation("photo is required"))
		return
	}
	defer file.Close()
	if header.Size > maxPhotoUpload {
		writeError(w, r, apperrors.Validation("photo must be at most 10MB"))
		return
	}

	photo := bufio.NewReader(file)
	head, _ := photo.Peek(512)
	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		writeError(w, r, apperrors.Validation("photo must be an image"))
		return
	}

	url, err := h.Photos.UploadPhoto(r.Context(), photo)
	if err != nil {
		writeError(w, r, err)
		return
	}
	form.PhotoURL = url

	v, err := h.Engine.CreateVisitor(r.Context(), form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateVisitorResponse{
		Success: true,
		Message: "Visitor saved!",
		ID:      v.ID.Hex(),
		Visitor: v,
	})
}

func (h *Handlers) GetVisitor(w http.ResponseWriter, r *http.Request) {
	v, err := h.Engine.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListVisitors returns every visitor, newest first.
func (h *Handlers) ListVisitors(w http.ResponseWriter, r *http.Request) {
	vs, err := h.Engine.ListAll(r.Context(), true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

// ListTodayVisitors is the guard panel feed.
func (h *Handlers) ListTodayVisitors(w http.ResponseWriter, r *http.Request) {
	vs, err := h.Engine.ListApprovedToday(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

// UpdateStatus approves or rejects a visitor. The signed-in admin is the
// default actor when the body does not name one.
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	actor := strings.TrimSpace(req.AdminUsername)
	if actor == "" {
		if s, ok := middleware.AdminFromContext(r.Context()); ok {
			actor = s.Username
		}
	}

	v, err := h.Engine.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status, actor, req.Override)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	v, err := h.Engine.MarkCheckout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) DeleteVisitor(w http.ResponseWriter, r *http.Request) {
	var actor string
	if s, ok := middleware.AdminFromContext(r.Context()); ok {
		actor = s.Username
	}
	if err := h.Engine.DeleteVisitor(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Visitor deleted"})
}

// VisitorEvents returns the audit trail of a visitor.
func (h *Handlers) VisitorEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Engine.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
