package airthings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// PollError is returned when the latest-samples endpoint responds with a
// non-2xx status or a malformed body. Status is zero for transport failures.
type PollError struct {
	Status int
	Body   string
}

func (e *PollError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("samples request failed: %s", e.Body)
	}
	return fmt.Sprintf("samples request failed: HTTP %d: %s", e.Status, e.Body)
}

// samplesResponse wraps the latest-samples payload
type samplesResponse struct {
	Data map[string]float64 `json:"data"`
}

// LatestSamples fetches the most recent reading for a device.
// An empty data object is a valid response: the device simply reported
// nothing, which is not an error.
func (c *Client) LatestSamples(ctx context.Context, serialNumber, token string) (Reading, error) {
	endpoint := c.apiURL + "/v1/devices/" + serialNumber + "/latest-samples"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create samples request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &PollError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PollError{Status: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode >= 300 {
		return nil, &PollError{Status: resp.StatusCode, Body: string(body)}
	}

	var sr samplesResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &PollError{Status: resp.StatusCode, Body: err.Error()}
	}

	reading := make(Reading, len(sr.Data))
	for name, value := range sr.Data {
		reading[name] = value
	}

	if c.logger != nil {
		c.logger.Printf("[AirThings] Fetched latest samples for %s (%d fields)", serialNumber, len(reading))
	}

	return reading, nil
}
