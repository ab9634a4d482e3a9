package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is not found
	ErrNotFound = errors.New("key not found")
)

// Well-known namespaces. Each component keeps its state under its own
// namespace so keys cannot collide.
const (
	NamespaceSession    = "session"
	NamespaceAttributes = "attributes"
	NamespaceDiscovery  = "discovery"
)

// CycleRecord is one persisted poll cycle outcome
type CycleRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Attempts  int       `json:"attempts"`
	Success   bool      `json:"success"`
	Updated   int       `json:"updated"`
	Error     string    `json:"error,omitempty"`
}

// Storage is the interface for persisted bridge state
type Storage interface {
	// Key/Value Methods (namespaced)

	// Get retrieves data for a namespace by key
	// Returns ErrNotFound if the key doesn't exist
	Get(namespace, key string) ([]byte, error)

	// GetString retrieves string data for a namespace by key
	GetString(namespace, key string) (string, error)

	// GetInt retrieves int data for a namespace by key
	GetInt(namespace, key string) (int, error)

	// GetBool retrieves bool data for a namespace by key
	GetBool(namespace, key string) (bool, error)

	// GetJSON retrieves and unmarshals JSON data for a namespace by key
	GetJSON(namespace, key string, v interface{}) error

	// Set stores data for a namespace by key
	Set(namespace, key string, value []byte) error

	// SetString stores string data for a namespace by key
	SetString(namespace, key string, value string) error

	// SetInt stores int data for a namespace by key
	SetInt(namespace, key string, value int) error

	// SetBool stores bool data for a namespace by key
	SetBool(namespace, key string, value bool) error

	// SetJSON marshals and stores JSON data for a namespace by key
	SetJSON(namespace, key string, v interface{}) error

	// Delete removes data for a namespace by key
	Delete(namespace, key string) error

	// List returns all keys and values for a namespace
	List(namespace string) (map[string][]byte, error)

	// DeleteAll removes all data for a namespace
	DeleteAll(namespace string) error

	// Poll History Methods

	// AppendCycle records a poll cycle outcome
	AppendCycle(record CycleRecord) error

	// RecentCycles returns the last N recorded cycles, oldest first
	RecentCycles(limit int) ([]CycleRecord, error)

	// LastCycle returns the most recent cycle record
	// Returns ErrNotFound if no cycles have been recorded
	LastCycle() (CycleRecord, error)

	// TrimCycles keeps only the last maxRecords cycle records
	TrimCycles(maxRecords int) error

	// Lifecycle Methods

	// Close closes the storage
	Close() error
}
