package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/export"
	"github.com/OdenLounge/Oden-Lounge/internal/models"
	"github.com/OdenLounge/Oden-Lounge/internal/service"

	"github.com/gorilla/mux"
)

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var in models.Reservation
	if err := decodeJSON(r, &in); err != nil {
		s.respondError(w, r, err, "Failed to create reservation")
		return
	}

	created, err := s.svc.Reservations.Create(r.Context(), &in)
	if err != nil {
		s.respondError(w, r, err, "Failed to create reservation")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleListReservations(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Reservations.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, "Unable to fetch reservations")
		return
	}
	if list == nil {
		list = []*models.Reservation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) handleFindReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Reservations.FindByReference(r.Context(), mux.Vars(r)["referenceNumber"])
	if err != nil {
		s.respondError(w, r, err, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.respondError(w, r, err, "Failed to update reservation status")
		return
	}

	updated, err := s.svc.Reservations.UpdateStatus(r.Context(), mux.Vars(r)["id"], body.Status)
	if err != nil {
		s.respondError(w, r, err, "Failed to update reservation status")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleExportReservations(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Reservations.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, "Unable to fetch reservations")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReservations(&buf, list); err != nil {
		s.respondError(w, r, err, "Failed to export reservations")
		return
	}

	name := fmt.Sprintf("reservations_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	// multipart framing on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("image exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "No image file uploaded")
		return
	}
	defer file.Close()

	item, err := s.svc.Gallery.Upload(r.Context(), file)
	if err != nil {
		s.respondError(w, r, err, "Failed to save image")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": item.Image})
}

func (s *HTTPServer) handleListGallery(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Gallery.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, "Unable to fetch gallery items")
		return
	}
	if items == nil {
		items = []*models.GalleryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Gallery.Delete(r.Context(), mux.Vars(r)["imageId"])
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Image and associated data deleted successfully"})
	case errors.Is(err, service.ErrDeletePending):
		s.logger.Warn().Err(err).Str("request_id", requestID(r)).Msg("Image hidden, media removal pending")
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "Image removed, media cleanup scheduled"})
	default:
		s.respondError(w, r, err, "Failed to delete image and data")
	}
}

func (s *HTTPServer) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CommentIndex *int `json:"commentIndex"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.respondError(w, r, err, "Failed to delete comment")
		return
	}

	if err := s.svc.Gallery.DeleteComment(r.Context(), mux.Vars(r)["imageId"], body.CommentIndex); err != nil {
		s.respondError(w, r, err, "Failed to delete comment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}

func (s *HTTPServer) handleLike(w http.ResponseWriter, r *http.Request) {
	likes, err := s.svc.Gallery.Like(r.Context(), mux.Vars(r)["imageId"])
	if err != nil {
		s.respondError(w, r, err, "Failed to like image")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"likes": likes})
}

func (s *HTTPServer) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Comment string `json:"comment"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.respondError(w, r, err, "Failed to add comment")
		return
	}

	item, err := s.svc.Gallery.AddComment(r.Context(), mux.Vars(r)["imageId"], body.Comment)
	if err != nil {
		s.respondError(w, r, err, "Failed to add comment")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	var in models.ContactMessage
	if err := decodeJSON(r, &in); err != nil {
		s.respondError(w, r, err, "Failed to send message")
		return
	}

	if err := s.svc.Contact.Submit(r.Context(), &in); err != nil {
		s.respondError(w, r, err, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message sent successfully"})
}
