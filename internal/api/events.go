package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"airbridge/internal/events"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// The upgrader keeps gorilla's default origin check: browser requests must
// come from the same host. The session rides on a cookie, so a cross-site
// page must not be able to open the stream.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// EventsHandler serves the in-memory event log
type EventsHandler struct {
	eventStore *events.Store
}

// NewEventsHandler creates new events handler
func NewEventsHandler(eventStore *events.Store) *EventsHandler {
	return &EventsHandler{eventStore: eventStore}
}

// List returns recorded events, newest first
// GET /api/events?limit=N&since=ID
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var result []events.Event
	switch {
	case query.Get("since") != "":
		sinceID, err := strconv.ParseInt(query.Get("since"), 10, 64)
		if err != nil || sinceID < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid since"})
			return
		}
		result = h.eventStore.GetSince(sinceID)
	case query.Get("limit") != "":
		limit, err := strconv.Atoi(query.Get("limit"))
		if err != nil || limit < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		result = h.eventStore.GetLast(limit)
	default:
		result = h.eventStore.GetAll()
	}

	if result == nil {
		result = []events.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(result),
		"lastId": h.eventStore.LastID(),
		"events": result,
	})
}

// Stream pushes new events over a WebSocket connection as they happen
// GET /api/events/ws
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return
	}
	defer conn.Close()

	subID, ch := h.eventStore.Subscribe()
	defer h.eventStore.Unsubscribe(subID)

	// Drain client frames so close and pong messages are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
