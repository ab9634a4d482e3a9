package api

import (
	"net/http"

	"airbridge/internal/auth"
	"airbridge/internal/device"
	"airbridge/internal/events"
	"airbridge/internal/poll"
)

// ReadingHandler serves the latest reading and manual refresh requests
type ReadingHandler struct {
	handler    *device.Handler
	runner     *poll.Runner
	eventStore *events.Store
}

// NewReadingHandler creates new reading handler
func NewReadingHandler(handler *device.Handler, runner *poll.Runner, eventStore *events.Store) *ReadingHandler {
	return &ReadingHandler{
		handler:    handler,
		runner:     runner,
		eventStore: eventStore,
	}
}

// Reading returns the most recent reading with published attribute values
// GET /api/reading
func (h *ReadingHandler) Reading(w http.ResponseWriter, r *http.Request) {
	reading := h.handler.LastReading()
	if reading == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no reading available yet"})
		return
	}

	attributes, err := h.handler.Attributes().All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read attributes"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"raw":        reading,
		"attributes": attributes,
	})
}

// Refresh requests an immediate poll cycle. The cycle runs asynchronously
// on the poll runner; concurrent requests coalesce into one run.
// POST /api/refresh
func (h *ReadingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	// Forcing extra cloud calls spends the upstream rate budget, so only
	// admins may do it
	user := auth.GetUserFromContext(r.Context())
	if user == nil || !user.IsAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin role required"})
		return
	}

	h.runner.Trigger()

	details := ""
	if user := authUser(r); user != "" {
		details = "requested by " + user
	}
	h.eventStore.Add(events.EventRefresh, true, details)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}
