package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"airbridge/internal/airthings"
	"airbridge/internal/config"
	"airbridge/internal/device"
	"airbridge/internal/events"
	"airbridge/internal/poll"
	"airbridge/internal/storage"
)

// stubCloud returns a fixed reading for every poll
type stubCloud struct {
	reading airthings.Reading
}

func (s *stubCloud) LatestSamples(ctx context.Context, serialNumber, token string) (airthings.Reading, error) {
	return s.reading, nil
}

func (s *stubCloud) AcquireToken(ctx context.Context) (string, error) {
	return "stub-token", nil
}

type testServer struct {
	server  *Server
	handler *device.Handler
	runner  *poll.Runner
	events  *events.Store
}

func newTestServer(t *testing.T, envExtra string) *testServer {
	t.Helper()

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "AIRBRIDGE_NO_AUTH=true\nAIRBRIDGE_SERIAL_NUMBER=2930001234\n" + envExtra
	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := config.Load(envPath)
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	store, err := storage.NewBoltStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	eventStore := events.NewStore(100)

	session, err := device.NewSession(store)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	attrs := device.NewAttributes(store, nil, eventStore, nil)
	cloud := &stubCloud{reading: airthings.Reading{"co2": 650, "temp": 21.37}}
	handler := device.NewHandler(cloud, cfg.SerialNumber(), session, attrs, store, eventStore, nil)

	runner := poll.NewRunner(time.Hour, nil, "Poll", func(ctx context.Context) {
		handler.RunCycle(ctx)
	})

	return &testServer{
		server:  NewServer(cfg, handler, runner, eventStore, store, nil),
		handler: handler,
		runner:  runner,
		events:  eventStore,
	}
}

func (ts *testServer) request(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.request(t, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SerialNumber string `json:"serialNumber"`
		HasToken     bool   `json:"hasToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.SerialNumber != "2930001234" {
		t.Errorf("unexpected serial number: %s", resp.SerialNumber)
	}
	if resp.HasToken {
		t.Error("no token expected before the first refresh")
	}
}

func TestReadingEndpoint(t *testing.T) {
	ts := newTestServer(t, "")

	// No reading before the first cycle
	rec := ts.request(t, http.MethodGet, "/api/reading", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before first cycle, got %d", rec.Code)
	}

	ts.handler.RunCycle(context.Background())

	rec = ts.request(t, http.MethodGet, "/api/reading", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Raw        map[string]float64 `json:"raw"`
		Attributes map[string]string  `json:"attributes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Raw["co2"] != 650 {
		t.Errorf("unexpected raw co2: %v", resp.Raw["co2"])
	}
	if resp.Attributes["temperature"] != "21.37" {
		t.Errorf("unexpected temperature attribute: %q", resp.Attributes["temperature"])
	}
}

func TestRefreshEndpoint(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.request(t, http.MethodPost, "/api/refresh", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	// The refresh request is recorded as an event
	found := false
	for _, e := range ts.events.GetAll() {
		if e.Type == events.EventRefresh {
			found = true
		}
	}
	if !found {
		t.Error("refresh request event not recorded")
	}
}

func TestHistoryEndpoint(t *testing.T) {
	ts := newTestServer(t, "")

	ts.handler.RunCycle(context.Background())
	ts.handler.RunCycle(context.Background())

	rec := ts.request(t, http.MethodGet, "/api/history?limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Count  int                   `json:"count"`
		Cycles []storage.CycleRecord `json:"cycles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected 2 cycles, got %d", resp.Count)
	}

	rec = ts.request(t, http.MethodGet, "/api/history?limit=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	ts := newTestServer(t, "")

	ts.handler.RunCycle(context.Background())

	rec := ts.request(t, http.MethodGet, "/api/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Count  int            `json:"count"`
		LastID int64          `json:"lastId"`
		Events []events.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Count == 0 {
		t.Error("expected recorded events after a cycle")
	}

	// since filter returns nothing past the newest ID
	rec = ts.request(t, http.MethodGet, "/api/events?since="+jsonInt(resp.LastID), nil)
	var sinceResp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sinceResp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if sinceResp.Count != 0 {
		t.Errorf("expected no events since the newest ID, got %d", sinceResp.Count)
	}
}

func TestEventStreamRejectsCrossOrigin(t *testing.T) {
	ts := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/events/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "http://evil.example")

	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-origin upgrade, got %d", rec.Code)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestAuthRequiredWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "AIRBRIDGE_SERIAL_NUMBER=2930001234\nAIRBRIDGE_API_PASSWORD=hunter2\n"
	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	cfg, err := config.Load(envPath)
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}

	store, err := storage.NewBoltStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	eventStore := events.NewStore(100)
	session, _ := device.NewSession(store)
	attrs := device.NewAttributes(store, nil, eventStore, nil)
	handler := device.NewHandler(&stubCloud{}, cfg.SerialNumber(), session, attrs, store, eventStore, nil)
	runner := poll.NewRunner(time.Hour, nil, "Poll", func(ctx context.Context) {})

	server := NewServer(cfg, handler, runner, eventStore, store, nil)

	// Protected route rejects anonymous requests
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session, got %d", rec.Code)
	}

	// Login with wrong credentials fails
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", rec.Code)
	}

	// Login with the configured credentials sets the session cookie
	body, _ = json.Marshal(map[string]string{"username": "admin", "password": "hunter2"})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid login, got %d: %s", rec.Code, rec.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "airbridge_token" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("login did not set the session cookie")
	}

	// The cookie grants access to protected routes
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with session cookie, got %d", rec.Code)
	}

	// The session can be extended
	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for session refresh, got %d: %s", rec.Code, rec.Body.String())
	}
}
