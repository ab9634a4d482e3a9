package airthings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// AuthError is returned when the token endpoint responds with a non-2xx
// status or a malformed body. Status is zero for transport failures.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("token request failed: %s", e.Body)
	}
	return fmt.Sprintf("token request failed: HTTP %d: %s", e.Status, e.Body)
}

// tokenResponse is the relevant subset of the token endpoint response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// AcquireToken requests a bearer token via the OAuth2 client-credentials
// grant. It does not retry; retry policy belongs to the caller.
func (c *Client) AcquireToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", TokenScope)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	endpoint := c.accountsURL + "/v1/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{Status: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode >= 300 {
		return "", &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &AuthError{Status: resp.StatusCode, Body: err.Error()}
	}
	if tr.AccessToken == "" {
		return "", &AuthError{Status: resp.StatusCode, Body: "response missing access_token"}
	}

	if c.logger != nil {
		c.logger.Printf("[AirThings] Acquired access token")
	}

	return tr.AccessToken, nil
}
