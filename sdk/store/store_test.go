package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ituby/GenieAI-sub000/sdk/gateway"
)

func TestGoalStoreRefreshDerivesProgress(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/goals"):
			w.Write([]byte(`[{"id":1,"title":"Get fit","category":"fitness","status":"active"}]`))
		case strings.HasSuffix(r.URL.Path, "/tasks"):
			w.Write([]byte(`[
				{"id":10,"goal_id":1,"day_number":1,"title":"Walk","completed":true},
				{"id":11,"goal_id":1,"day_number":2,"title":"Run","completed":true},
				{"id":12,"goal_id":1,"day_number":3,"title":"Swim","completed":false},
				{"id":13,"goal_id":1,"day_number":4,"title":"Rest","completed":false}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	gw := gateway.NewClient(gateway.Config{BaseURL: ts.URL, APIKey: "anon"})
	s := NewGoalStore(gw, 7)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	goals := s.Goals()
	if len(goals) != 1 {
		t.Fatalf("got %d goals, want 1", len(goals))
	}
	g := goals[0]
	if g.TotalTasks != 4 || g.CompletedTasks != 2 {
		t.Errorf("counts %d/%d, want 2/4", g.CompletedTasks, g.TotalTasks)
	}
	if g.Percent != 50 {
		t.Errorf("percent %.1f, want 50", g.Percent)
	}
}

func TestGoalStoreInvalidate(t *testing.T) {
	s := NewGoalStore(nil, 7)
	if s.Fresh(time.Minute) {
		t.Error("empty store must not report fresh")
	}
	s.fetchedAt = time.Now()
	if !s.Fresh(time.Minute) {
		t.Error("just-fetched store should be fresh")
	}
	s.Invalidate()
	if s.Fresh(time.Minute) {
		t.Error("invalidated store must not report fresh")
	}
}

type memoryKV struct {
	data    map[string]string
	failSet bool
}

func (m *memoryKV) Get(key string) (string, error) { return m.data[key], nil }
func (m *memoryKV) Set(key, value string) error {
	if m.failSet {
		return errors.New("disk full")
	}
	m.data[key] = value
	return nil
}
func (m *memoryKV) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func TestSessionStoreRoundTrip(t *testing.T) {
	kv := &memoryKV{data: map[string]string{}}
	s := NewSessionStore(kv)

	if _, ok := s.Session(); ok {
		t.Error("new store should be empty")
	}

	session := Session{UserID: 7, AccessToken: "access", RefreshToken: "refresh"}
	if err := s.Save(session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.AccessToken() != "access" {
		t.Errorf("access token %q", s.AccessToken())
	}

	restored := NewSessionStore(kv)
	if err := restored.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := restored.Session()
	if !ok || got != session {
		t.Errorf("restored session %+v, want %+v", got, session)
	}

	if err := restored.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := restored.Session(); ok {
		t.Error("cleared store should be empty")
	}
}

func TestSessionStoreIgnoresCorruptEntry(t *testing.T) {
	kv := &memoryKV{data: map[string]string{sessionKey: "{not json"}}
	s := NewSessionStore(kv)

	if err := s.Load(); err != nil {
		t.Fatalf("corrupt entry should not error: %v", err)
	}
	if _, ok := s.Session(); ok {
		t.Error("corrupt entry must leave the store empty")
	}
}
