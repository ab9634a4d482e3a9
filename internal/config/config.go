package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Environment variable names
const (
	EnvAddr          = "AIRBRIDGE_ADDR"
	EnvJWTSecret     = "AIRBRIDGE_JWT_SECRET"
	EnvJWTExpiration = "AIRBRIDGE_JWT_EXPIRATION"
	EnvNoAuth        = "AIRBRIDGE_NO_AUTH"
	EnvAPIUsername   = "AIRBRIDGE_API_USERNAME"
	EnvAPIPassword   = "AIRBRIDGE_API_PASSWORD"
	EnvDBPath        = "AIRBRIDGE_DB_PATH"
	// AirThings cloud settings
	EnvClientID     = "AIRBRIDGE_CLIENT_ID"
	EnvClientSecret = "AIRBRIDGE_CLIENT_SECRET"
	EnvSerialNumber = "AIRBRIDGE_SERIAL_NUMBER"
	EnvPollInterval = "AIRBRIDGE_POLL_INTERVAL"
	EnvAccountsURL  = "AIRBRIDGE_ACCOUNTS_URL"
	EnvAPIURL       = "AIRBRIDGE_API_URL"
	// MQTT settings
	EnvMQTTBroker   = "AIRBRIDGE_MQTT_BROKER"
	EnvMQTTClientID = "AIRBRIDGE_MQTT_CLIENT_ID"
	EnvMQTTUsername = "AIRBRIDGE_MQTT_USERNAME"
	EnvMQTTPassword = "AIRBRIDGE_MQTT_PASSWORD"
	EnvMQTTPrefix   = "AIRBRIDGE_MQTT_PREFIX"
	EnvMQTTUseTLS   = "AIRBRIDGE_MQTT_USE_TLS"
)

// Default values
const (
	DefaultAddr          = ":8480"
	DefaultJWTExpiration = 24 * time.Hour
	DefaultNoAuth        = false
	DefaultAPIUsername   = "admin"
	DefaultDBPath        = "airbridge.db"
	// AirThings defaults
	DefaultPollInterval = 5 * time.Minute
	DefaultAccountsURL  = "https://accounts-api.airthings.com"
	DefaultAPIURL       = "https://ext-api.airthings.com"
	// MQTT defaults
	DefaultMQTTBroker   = ""
	DefaultMQTTClientID = ""
	DefaultMQTTUsername = ""
	DefaultMQTTPassword = ""
	DefaultMQTTPrefix   = "airbridge"
	DefaultMQTTUseTLS   = false
)

// MinPollInterval bounds the poll cadence. The AirThings consumer API allows
// 120 requests per hour and a failed cycle can spend two calls, so anything
// below 30 seconds risks the upstream rate limit.
const MinPollInterval = 30 * time.Second

// Config holds all application configuration.
// All access should be through getter methods for thread safety.
type Config struct {
	mu       sync.RWMutex
	filePath string
	dirty    bool // tracks if config was modified

	// Server settings
	addr string

	// Security settings
	jwtSecret     string
	jwtExpiration time.Duration
	noAuth        bool
	apiUsername   string
	apiPassword   string

	// Storage settings
	dbPath string

	// AirThings cloud settings
	clientID     string
	clientSecret string
	serialNumber string
	pollInterval time.Duration
	accountsURL  string
	apiURL       string

	// MQTT settings
	mqttBroker   string
	mqttClientID string
	mqttUsername string
	mqttPassword string
	mqttPrefix   string
	mqttUseTLS   bool
}

// Load loads configuration from .env file or creates it with defaults.
// This is the main entry point for configuration initialization.
func Load(filePath string) (*Config, error) {
	cfg := &Config{
		filePath: filePath,
	}

	// Set defaults first
	cfg.setDefaults()

	// Try to load existing file
	if err := cfg.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		// File doesn't exist - will be created with defaults
		cfg.dirty = true
	}

	// Generate JWT secret if empty
	if cfg.jwtSecret == "" {
		secret, err := generateSecureSecret(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.jwtSecret = secret
		cfg.dirty = true
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Save if config was modified (new file or generated secret)
	if cfg.dirty {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save config: %w", err)
		}
	}

	return cfg, nil
}

// setDefaults initializes all fields with default values.
func (c *Config) setDefaults() {
	c.addr = DefaultAddr
	c.jwtSecret = ""
	c.jwtExpiration = DefaultJWTExpiration
	c.noAuth = DefaultNoAuth
	c.apiUsername = DefaultAPIUsername
	c.apiPassword = ""
	c.dbPath = DefaultDBPath
	// AirThings defaults
	c.clientID = ""
	c.clientSecret = ""
	c.serialNumber = ""
	c.pollInterval = DefaultPollInterval
	c.accountsURL = DefaultAccountsURL
	c.apiURL = DefaultAPIURL
	// MQTT defaults
	c.mqttBroker = DefaultMQTTBroker
	c.mqttClientID = DefaultMQTTClientID
	c.mqttUsername = DefaultMQTTUsername
	c.mqttPassword = DefaultMQTTPassword
	c.mqttPrefix = DefaultMQTTPrefix
	c.mqttUseTLS = DefaultMQTTUseTLS
}

// loadFromFile reads configuration from .env file.
func (c *Config) loadFromFile() error {
	file, err := os.Open(c.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	values, err := ParseEnvFile(file)
	if err != nil {
		return err
	}

	c.applyValues(values)
	return nil
}

// applyValues applies parsed key-value pairs to config.
func (c *Config) applyValues(values map[string]string) {
	if v, ok := values[EnvAddr]; ok && v != "" {
		c.addr = v
	}

	if v, ok := values[EnvJWTSecret]; ok && v != "" {
		c.jwtSecret = v
	}

	if v, ok := values[EnvJWTExpiration]; ok && v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.jwtExpiration = time.Duration(seconds) * time.Second
		}
	}

	if v, ok := values[EnvNoAuth]; ok {
		c.noAuth = parseBool(v)
	}

	if v, ok := values[EnvAPIUsername]; ok && v != "" {
		c.apiUsername = v
	}
	if v, ok := values[EnvAPIPassword]; ok {
		c.apiPassword = v
	}
	if v, ok := values[EnvDBPath]; ok && v != "" {
		c.dbPath = v
	}

	// AirThings settings
	if v, ok := values[EnvClientID]; ok {
		c.clientID = v
	}
	if v, ok := values[EnvClientSecret]; ok {
		c.clientSecret = v
	}
	if v, ok := values[EnvSerialNumber]; ok {
		c.serialNumber = v
	}
	if v, ok := values[EnvPollInterval]; ok && v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			c.pollInterval = time.Duration(seconds) * time.Second
		}
	}
	if v, ok := values[EnvAccountsURL]; ok && v != "" {
		c.accountsURL = strings.TrimRight(v, "/")
	}
	if v, ok := values[EnvAPIURL]; ok && v != "" {
		c.apiURL = strings.TrimRight(v, "/")
	}

	// MQTT settings
	if v, ok := values[EnvMQTTBroker]; ok {
		c.mqttBroker = v
	}
	if v, ok := values[EnvMQTTClientID]; ok {
		c.mqttClientID = v
	}
	if v, ok := values[EnvMQTTUsername]; ok {
		c.mqttUsername = v
	}
	if v, ok := values[EnvMQTTPassword]; ok {
		c.mqttPassword = v
	}
	if v, ok := values[EnvMQTTPrefix]; ok {
		c.mqttPrefix = v
	}
	if v, ok := values[EnvMQTTUseTLS]; ok {
		c.mqttUseTLS = parseBool(v)
	}
}

// validate checks if configuration is valid.
func (c *Config) validate() error {
	// Validate server address
	if c.addr == "" {
		return errors.New("server address cannot be empty")
	}

	// Check if address format is valid
	host, port, err := net.SplitHostPort(c.addr)
	if err != nil {
		// Try with default host
		if _, err := strconv.Atoi(strings.TrimPrefix(c.addr, ":")); err != nil {
			return fmt.Errorf("invalid server address format: %s", c.addr)
		}
	} else {
		if port == "" {
			return errors.New("port cannot be empty")
		}
		portNum, err := strconv.Atoi(port)
		if err != nil || portNum < 1 || portNum > 65535 {
			return fmt.Errorf("invalid port number: %s", port)
		}
		_ = host // host can be empty (bind to all interfaces)
	}

	// Validate JWT expiration
	if c.jwtExpiration < time.Minute {
		return errors.New("JWT expiration must be at least 1 minute")
	}
	if c.jwtExpiration > 365*24*time.Hour {
		return errors.New("JWT expiration cannot exceed 1 year")
	}

	// Validate poll interval against the upstream rate limit
	if c.pollInterval < MinPollInterval {
		return fmt.Errorf("poll interval must be at least %v", MinPollInterval)
	}
	if c.pollInterval > 24*time.Hour {
		return errors.New("poll interval cannot exceed 24 hours")
	}

	// Validate cloud endpoints
	if c.accountsURL == "" {
		return errors.New("accounts URL cannot be empty")
	}
	if c.apiURL == "" {
		return errors.New("API URL cannot be empty")
	}

	return nil
}

// Save writes current configuration to .env file.
func (c *Config) Save() error {
	c.mu.RLock()
	values := c.toMap()
	filePath := c.filePath
	c.mu.RUnlock()

	if err := WriteEnvFile(filePath, values); err != nil {
		return err
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()

	return nil
}

// toMap converts config to key-value map for saving.
func (c *Config) toMap() map[string]string {
	return map[string]string{
		EnvAddr:          c.addr,
		EnvJWTSecret:     c.jwtSecret,
		EnvJWTExpiration: strconv.Itoa(int(c.jwtExpiration.Seconds())),
		EnvNoAuth:        strconv.FormatBool(c.noAuth),
		EnvAPIUsername:   c.apiUsername,
		EnvAPIPassword:   c.apiPassword,
		EnvDBPath:        c.dbPath,
		// AirThings settings
		EnvClientID:     c.clientID,
		EnvClientSecret: c.clientSecret,
		EnvSerialNumber: c.serialNumber,
		EnvPollInterval: strconv.Itoa(int(c.pollInterval.Seconds())),
		EnvAccountsURL:  c.accountsURL,
		EnvAPIURL:       c.apiURL,
		// MQTT settings
		EnvMQTTBroker:   c.mqttBroker,
		EnvMQTTClientID: c.mqttClientID,
		EnvMQTTUsername: c.mqttUsername,
		EnvMQTTPassword: c.mqttPassword,
		EnvMQTTPrefix:   c.mqttPrefix,
		EnvMQTTUseTLS:   strconv.FormatBool(c.mqttUseTLS),
	}
}

// Getters (thread-safe)

// Addr returns the server address.
func (c *Config) Addr() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addr
}

// JWTSecret returns the JWT secret key.
func (c *Config) JWTSecret() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtSecret
}

// JWTExpiration returns the JWT token expiration duration.
func (c *Config) JWTExpiration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtExpiration
}

// NoAuth returns whether authentication is disabled.
func (c *Config) NoAuth() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.noAuth
}

// APIUsername returns the API login username.
func (c *Config) APIUsername() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiUsername
}

// APIPassword returns the API login password.
func (c *Config) APIPassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiPassword
}

// DBPath returns the bbolt database path.
func (c *Config) DBPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dbPath
}

// FilePath returns the path to the .env file.
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

// AirThings Getters

// ClientID returns the AirThings API client ID.
func (c *Config) ClientID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientID
}

// ClientSecret returns the AirThings API client secret.
func (c *Config) ClientSecret() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientSecret
}

// SerialNumber returns the monitored device serial number.
func (c *Config) SerialNumber() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serialNumber
}

// PollInterval returns the polling interval.
func (c *Config) PollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pollInterval
}

// AccountsURL returns the AirThings accounts (token) endpoint base URL.
func (c *Config) AccountsURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountsURL
}

// APIURL returns the AirThings data API base URL.
func (c *Config) APIURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiURL
}

// MQTT Getters

// MQTTBroker returns the MQTT broker address.
func (c *Config) MQTTBroker() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttBroker
}

// MQTTClientID returns the MQTT client ID.
func (c *Config) MQTTClientID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttClientID
}

// MQTTUsername returns the MQTT username.
func (c *Config) MQTTUsername() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttUsername
}

// MQTTPassword returns the MQTT password.
func (c *Config) MQTTPassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttPassword
}

// MQTTPrefix returns the MQTT topic prefix.
func (c *Config) MQTTPrefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttPrefix
}

// MQTTUseTLS returns whether TLS is enabled for MQTT.
func (c *Config) MQTTUseTLS() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mqttUseTLS
}

// Setters (thread-safe, auto-save)

// SetAddr sets the server address and saves to file.
func (c *Config) SetAddr(addr string) error {
	c.mu.Lock()
	c.addr = addr
	c.dirty = true
	c.mu.Unlock()

	if err := c.validate(); err != nil {
		return err
	}
	return c.Save()
}

// SetPollInterval sets the polling interval and saves to file.
func (c *Config) SetPollInterval(d time.Duration) error {
	c.mu.Lock()
	c.pollInterval = d
	c.dirty = true
	c.mu.Unlock()

	if err := c.validate(); err != nil {
		return err
	}
	return c.Save()
}

// SetCredentials sets the AirThings API credentials and saves to file.
func (c *Config) SetCredentials(clientID, clientSecret string) error {
	if clientID == "" || clientSecret == "" {
		return errors.New("client ID and secret cannot be empty")
	}

	c.mu.Lock()
	c.clientID = clientID
	c.clientSecret = clientSecret
	c.dirty = true
	c.mu.Unlock()

	return c.Save()
}

// SetSerialNumber sets the device serial number and saves to file.
func (c *Config) SetSerialNumber(serial string) error {
	c.mu.Lock()
	c.serialNumber = serial
	c.dirty = true
	c.mu.Unlock()

	return c.Save()
}

// Helper functions

// generateSecureSecret generates a cryptographically secure random hex string.
func generateSecureSecret(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// parseBool parses a boolean string value.
// Accepts: true, false, 1, 0, yes, no (case-insensitive)
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// Reload reloads configuration from file.
// Useful for hot-reloading configuration.
func (c *Config) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Save current JWT secret in case file doesn't have one
	currentSecret := c.jwtSecret

	// Reset to defaults
	c.setDefaults()

	// Load from file
	if err := c.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	// Restore JWT secret if not in file
	if c.jwtSecret == "" {
		c.jwtSecret = currentSecret
	}

	return c.validate()
}

// String returns a string representation of the config (without secrets).
func (c *Config) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	secretDisplay := "[not set]"
	if c.clientSecret != "" {
		secretDisplay = "[set]"
	}

	return fmt.Sprintf(
		"Config{Addr: %q, ClientID: %q, ClientSecret: %s, SerialNumber: %q, PollInterval: %v, NoAuth: %v}",
		c.addr, c.clientID, secretDisplay, c.serialNumber, c.pollInterval, c.noAuth,
	)
}
