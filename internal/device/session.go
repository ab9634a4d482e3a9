package device

import (
	"errors"
	"sync"

	"airbridge/internal/storage"
)

const sessionTokenKey = "accessToken"

// Session holds the cached cloud access token. The token has no tracked
// expiry; it is replaced only when a poll failure forces a refresh. The
// value is persisted so a restart reuses the last token instead of
// spending a token request.
type Session struct {
	mu      sync.RWMutex
	storage storage.Storage
	token   string
}

// NewSession creates a session, restoring any persisted token
func NewSession(store storage.Storage) (*Session, error) {
	s := &Session{storage: store}

	token, err := store.GetString(storage.NamespaceSession, sessionTokenKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return s, nil
	}

	s.token = token
	return s, nil
}

// Token returns the cached access token (empty if none)
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasToken reports whether a token is cached
func (s *Session) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// SetToken replaces the cached token unconditionally and persists it
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	return s.storage.SetString(storage.NamespaceSession, sessionTokenKey, token)
}

// Clear drops the cached token
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	err := s.storage.Delete(storage.NamespaceSession, sessionTokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
