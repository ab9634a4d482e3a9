package api

import (
	"net/http"
	"strconv"

	"airbridge/internal/storage"
)

const defaultHistoryLimit = 50

// HistoryHandler serves the persisted poll cycle history
type HistoryHandler struct {
	storage storage.Storage
}

// NewHistoryHandler creates new history handler
func NewHistoryHandler(store storage.Storage) *HistoryHandler {
	return &HistoryHandler{storage: store}
}

// List returns recent poll cycles, oldest first
// GET /api/history?limit=N
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	cycles, err := h.storage.RecentCycles(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read history"})
		return
	}

	if cycles == nil {
		cycles = []storage.CycleRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(cycles),
		"cycles": cycles,
	})
}
