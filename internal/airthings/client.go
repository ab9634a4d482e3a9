// Package airthings provides a client for the AirThings consumer cloud API
package airthings

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// TokenScope is the OAuth2 scope requested for the client-credentials grant.
// It only allows reading current sensor values.
const TokenScope = "read:device:current_values"

const defaultUserAgent = "AirBridge/1.0"

// Config holds AirThings client configuration
type Config struct {
	ClientID     string // OAuth2 client ID
	ClientSecret string // OAuth2 client secret
	AccountsURL  string // Token endpoint base URL (e.g. "https://accounts-api.airthings.com")
	APIURL       string // Data API base URL (e.g. "https://ext-api.airthings.com")
	UserAgent    string // Custom User-Agent sent on every request
	Timeout      time.Duration
}

// Client talks to the AirThings cloud API. It acquires tokens via the
// client-credentials grant and fetches the latest samples for a device.
// The client does not cache tokens; token lifecycle belongs to the caller.
type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	accountsURL  string
	apiURL       string
	userAgent    string
	logger       *log.Logger
}

// New creates a new AirThings API client
func New(cfg Config, logger *log.Logger) *Client {
	if cfg.AccountsURL == "" {
		cfg.AccountsURL = "https://accounts-api.airthings.com"
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://ext-api.airthings.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		accountsURL:  strings.TrimRight(cfg.AccountsURL, "/"),
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		userAgent:    cfg.UserAgent,
		logger:       logger,
	}
}

// UserAgent returns the User-Agent header value sent on every request
func (c *Client) UserAgent() string {
	return c.userAgent
}
