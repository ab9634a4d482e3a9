package airthings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLatestSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v1/devices/2930001234/latest-samples" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("unexpected Authorization header: %q", auth)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"co2":650,"temp":21.37,"battery":87,"time":1756000000}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	reading, err := client.LatestSamples(context.Background(), "2930001234", "tok")
	if err != nil {
		t.Fatalf("LatestSamples failed: %v", err)
	}

	want := map[string]float64{"co2": 650, "temp": 21.37, "battery": 87, "time": 1756000000}
	if len(reading) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(reading))
	}
	for k, v := range want {
		if reading[k] != v {
			t.Errorf("field %s: expected %v, got %v", k, v, reading[k])
		}
	}
}

func TestLatestSamplesEmptyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	reading, err := client.LatestSamples(context.Background(), "2930001234", "tok")
	if err != nil {
		t.Fatalf("empty data should not be an error: %v", err)
	}
	if len(reading) != 0 {
		t.Errorf("expected empty reading, got %v", reading)
	}
}

func TestLatestSamplesErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid token"}`, http.StatusUnauthorized},
		{"not found", http.StatusNotFound, `{"error":"device not found"}`, http.StatusNotFound},
		{"malformed body", http.StatusOK, `not json`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL, server.URL)

			_, err := client.LatestSamples(context.Background(), "2930001234", "tok")
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var pollErr *PollError
			if !errors.As(err, &pollErr) {
				t.Fatalf("expected *PollError, got %T", err)
			}
			if pollErr.Status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, pollErr.Status)
			}
		})
	}
}
