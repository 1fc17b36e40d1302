package store

import (
	"encoding/json"
	"sync"
)

// KeyValue is the persistence surface a SessionStore writes through.
// Implementations range from secure device storage to an in-memory map in
// tests.
type KeyValue interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

const sessionKey = "genie.session"

type Session struct {
	UserID       int    `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionStore holds the auth session in memory and mirrors it to a
// pluggable key-value store.
type SessionStore struct {
	kv KeyValue

	mu      sync.RWMutex
	session Session
	loaded  bool
}

func NewSessionStore(kv KeyValue) *SessionStore {
	return &SessionStore{kv: kv}
}

// Load restores a persisted session. A missing or corrupt entry leaves the
// store empty without error.
func (s *SessionStore) Load() error {
	raw, err := s.kv.Get(sessionKey)
	if err != nil || raw == "" {
		return nil
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil
	}

	s.mu.Lock()
	s.session = session
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Save(session Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.kv.Set(sessionKey, string(raw)); err != nil {
		return err
	}

	s.mu.Lock()
	s.session = session
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Clear() error {
	s.mu.Lock()
	s.session = Session{}
	s.loaded = false
	s.mu.Unlock()
	return s.kv.Delete(sessionKey)
}

func (s *SessionStore) Session() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.loaded
}

// AccessToken is a convenience for wiring into purchase.Config.BearerToken.
func (s *SessionStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken
}
