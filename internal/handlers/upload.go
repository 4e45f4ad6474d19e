package handlers

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/booknook/bookfeed/internal/api"
	"github.com/booknook/bookfeed/internal/models"
	"github.com/google/uuid"
)

// HandleListBooks returns the whole feed, newest first
func (h *Handler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	books := make([]models.Book, 0, len(h.books))
	for i := len(h.books) - 1; i >= 0; i-- {
		books = append(books, h.books[i])
	}
	h.mu.RUnlock()

	h.writeJSON(w, http.StatusOK, map[string]any{"data": books})
}

// HandleCreateBook stores a new recommendation for the signed-in user
func (h *Handler) HandleCreateBook(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	var req api.CreateBookRequest
	if !h.decode(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	caption := strings.TrimSpace(req.Caption)
	if name == "" || caption == "" || req.Image == "" || req.Rating == "" {
		h.writeError(w, "Please provide all fields", http.StatusBadRequest)
		return
	}

	rating, err := strconv.Atoi(strings.TrimSpace(req.Rating))
	if err != nil || !models.Rating(rating).Valid() {
		h.writeError(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	if !validImage(req.Image) {
		h.writeError(w, "Image must be a URL or a base64 data URL", http.StatusBadRequest)
		return
	}

	published := h.now().UTC()
	book := models.Book{
		ID:          uuid.NewString(),
		Name:        name,
		Caption:     caption,
		Author:      strings.TrimSpace(req.Author),
		Rating:      models.Rating(rating),
		Image:       req.Image,
		PublishedAt: &published,
	}

	h.mu.Lock()
	h.books = append(h.books, book)
	h.mu.Unlock()

	h.writeJSON(w, http.StatusCreated, book)
}

func validImage(image string) bool {
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return true
	}
	rest, ok := strings.CutPrefix(image, "data:image/")
	if !ok {
		return false
	}
	_, payload, ok := strings.Cut(rest, ";base64,")
	if !ok || payload == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}
