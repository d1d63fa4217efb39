package handlers

import (
	"net/http"

	"github.com/AAWorks/binomial-pricer/internal/scheduler/jobs"
)

// BookHandler serves the scheduled book reprice
type BookHandler struct {
	store *jobs.BookStore
}

// NewBookHandler creates a new book handler
func NewBookHandler(store *jobs.BookStore) *BookHandler {
	return &BookHandler{store: store}
}

// GetBook returns the latest book prices
// GET /api/book
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.store.Snapshot(),
	})
}
