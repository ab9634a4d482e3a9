package api

import (
	"net/http"
	"time"

	"airbridge/internal/config"
	"airbridge/internal/device"
	"airbridge/internal/mqtt"
)

// StatusHandler reports overall bridge state
type StatusHandler struct {
	handler    *device.Handler
	config     *config.Config
	mqttClient *mqtt.Client
	startedAt  time.Time
}

// NewStatusHandler creates new status handler
func NewStatusHandler(handler *device.Handler, cfg *config.Config, mqttClient *mqtt.Client) *StatusHandler {
	return &StatusHandler{
		handler:    handler,
		config:     cfg,
		mqttClient: mqttClient,
		startedAt:  time.Now(),
	}
}

type statusResponse struct {
	SerialNumber  string              `json:"serialNumber"`
	PollInterval  string              `json:"pollInterval"`
	HasToken      bool                `json:"hasToken"`
	MQTTConnected bool                `json:"mqttConnected"`
	Uptime        string              `json:"uptime"`
	LastCycle     *device.CycleResult `json:"lastCycle,omitempty"`
}

// Status returns the current bridge status
// GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		SerialNumber: h.handler.SerialNumber(),
		PollInterval: h.config.PollInterval().String(),
		HasToken:     h.handler.Session().HasToken(),
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
	}

	if h.mqttClient != nil {
		resp.MQTTConnected = h.mqttClient.IsConnected()
	}

	if result, ok := h.handler.LastResult(); ok {
		resp.LastCycle = &result
	}

	writeJSON(w, http.StatusOK, resp)
}
