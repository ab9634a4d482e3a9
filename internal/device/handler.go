package device

import (
	"context"
	"log"
	"sync"
	"time"

	"airbridge/internal/airthings"
	"airbridge/internal/events"
	"airbridge/internal/storage"
)

// maxCycleHistory bounds the persisted poll history
const maxCycleHistory = 200

// TokenSource acquires a fresh cloud access token
type TokenSource interface {
	AcquireToken(ctx context.Context) (string, error)
}

// Poller fetches the latest samples for a device
type Poller interface {
	LatestSamples(ctx context.Context, serialNumber, token string) (airthings.Reading, error)
}

// CloudClient is the full cloud API surface the handler needs.
// *airthings.Client satisfies it.
type CloudClient interface {
	TokenSource
	Poller
}

// CycleResult reports the outcome of one poll cycle. Both attempts are
// observable: Attempts counts polls made, Success reflects the final one.
type CycleResult struct {
	Timestamp time.Time `json:"timestamp"`
	Attempts  int       `json:"attempts"`
	Success   bool      `json:"success"`
	Updated   int       `json:"updated"`
	LastError string    `json:"lastError,omitempty"`
}

// Handler runs poll cycles against the cloud API and republishes readings
// as change-guarded device attributes. One cycle makes at most two polls
// and one token acquisition; there is no backoff and no third attempt.
type Handler struct {
	cloud   CloudClient
	serial  string
	session *Session
	attrs   *Attributes
	storage storage.Storage
	events  *events.Store
	logger  *log.Logger

	// cycleMu serializes cycles so a manual refresh cannot overlap the
	// periodic poll
	cycleMu sync.Mutex

	mu          sync.RWMutex
	lastReading airthings.Reading
	lastResult  *CycleResult
}

// NewHandler creates a device handler
func NewHandler(cloud CloudClient, serial string, session *Session, attrs *Attributes, store storage.Storage, eventStore *events.Store, logger *log.Logger) *Handler {
	return &Handler{
		cloud:   cloud,
		serial:  serial,
		session: session,
		attrs:   attrs,
		storage: store,
		events:  eventStore,
		logger:  logger,
	}
}

// RunCycle executes one poll cycle:
//  1. Poll with the cached token.
//  2. On any failure, refresh the token (a failed refresh leaves the cached
//     token unchanged) and poll exactly once more.
func (h *Handler) RunCycle(ctx context.Context) CycleResult {
	h.cycleMu.Lock()
	defer h.cycleMu.Unlock()

	result := CycleResult{Timestamp: time.Now()}

	ok, updated, err := h.pollOnce(ctx)
	result.Attempts = 1
	result.Success = ok
	result.Updated = updated
	if err != nil {
		result.LastError = err.Error()
	}

	if !ok {
		h.refreshToken(ctx)

		ok2, updated2, err2 := h.pollOnce(ctx)
		result.Attempts = 2
		result.Success = ok2
		result.Updated += updated2
		if err2 != nil {
			result.LastError = err2.Error()
		} else {
			result.LastError = ""
		}
	}

	h.recordCycle(result)
	return result
}

// pollOnce issues a single authenticated poll and processes the reading.
// Errors are converted to a failed result; they never propagate.
func (h *Handler) pollOnce(ctx context.Context) (bool, int, error) {
	token := h.session.Token()

	reading, err := h.cloud.LatestSamples(ctx, h.serial, token)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("[Device] Poll failed: %v", err)
		}
		return false, 0, err
	}

	updated, err := h.processReading(reading)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("[Device] Failed to process reading: %v", err)
		}
		return false, updated, err
	}

	h.mu.Lock()
	h.lastReading = reading
	h.mu.Unlock()

	return true, updated, nil
}

// processReading publishes one change-guarded update per present field, in
// fixed field order, then the summary tile. Missing fields are skipped.
func (h *Handler) processReading(reading airthings.Reading) (int, error) {
	updated := 0
	rows := make([]Row, 0, len(reading))

	for _, field := range airthings.Fields() {
		value, ok := reading[field.Name]
		if !ok {
			continue
		}

		changed, err := h.attrs.Publish(field.Attribute, airthings.FormatAttributeValue(value))
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}

		rows = append(rows, Row{
			Label: field.Label,
			Value: field.FormatTileValue(value),
			Unit:  field.Unit,
		})
	}

	changed, err := h.attrs.Publish(TileAttribute, RenderTile(rows))
	if err != nil {
		return updated, err
	}
	if changed {
		updated++
	}

	return updated, nil
}

// refreshToken acquires a new token and replaces the cached one. On
// failure the cached token is left unchanged; the caller retries the poll
// with whatever token the session holds.
func (h *Handler) refreshToken(ctx context.Context) {
	token, err := h.cloud.AcquireToken(ctx)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("[Device] Token refresh failed: %v", err)
		}
		if h.events != nil {
			h.events.Add(events.EventTokenRefresh, false, err.Error())
		}
		return
	}

	if err := h.session.SetToken(token); err != nil && h.logger != nil {
		h.logger.Printf("[Device] Failed to persist token: %v", err)
	}
	if h.events != nil {
		h.events.Add(events.EventTokenRefresh, true, "")
	}
}

// recordCycle stores the result for the API and appends it to history
func (h *Handler) recordCycle(result CycleResult) {
	h.mu.Lock()
	h.lastResult = &result
	h.mu.Unlock()

	if h.events != nil {
		eventType := events.EventPollSuccess
		if !result.Success {
			eventType = events.EventPollFailed
		}
		h.events.Add(eventType, result.Success, result.LastError)
	}

	if h.logger != nil {
		h.logger.Printf("[Device] Cycle finished: attempts=%d success=%v updated=%d",
			result.Attempts, result.Success, result.Updated)
	}

	record := storage.CycleRecord{
		Timestamp: result.Timestamp,
		Attempts:  result.Attempts,
		Success:   result.Success,
		Updated:   result.Updated,
		Error:     result.LastError,
	}
	if err := h.storage.AppendCycle(record); err != nil {
		if h.logger != nil {
			h.logger.Printf("[Device] Failed to record cycle: %v", err)
		}
		return
	}
	if err := h.storage.TrimCycles(maxCycleHistory); err != nil && h.logger != nil {
		h.logger.Printf("[Device] Failed to trim cycle history: %v", err)
	}
}

// SerialNumber returns the monitored device serial number
func (h *Handler) SerialNumber() string {
	return h.serial
}

// Session returns the token session
func (h *Handler) Session() *Session {
	return h.session
}

// Attributes returns the attribute store
func (h *Handler) Attributes() *Attributes {
	return h.attrs
}

// LastReading returns a copy of the most recent successfully parsed reading
func (h *Handler) LastReading() airthings.Reading {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.lastReading == nil {
		return nil
	}
	out := make(airthings.Reading, len(h.lastReading))
	for k, v := range h.lastReading {
		out[k] = v
	}
	return out
}

// LastResult returns the most recent cycle result, if any
func (h *Handler) LastResult() (CycleResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.lastResult == nil {
		return CycleResult{}, false
	}
	return *h.lastResult, true
}
