package journal

import (
	"testing"
	"time"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
)

func TestAppendReadAndFilters(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	s := NewStore()

	base := time.Now().Add(-2 * time.Hour).UTC()
	seed := []model.Event{
		{Timestamp: base, SessionID: "a", ProfileName: "api", Type: model.EventSessionStarted},
		{Timestamp: base.Add(10 * time.Minute), SessionID: "a", ProfileName: "api", Type: model.EventSessionConnected},
		{Timestamp: base.Add(20 * time.Minute), SessionID: "b", ProfileName: "db", Type: model.EventSessionFailed, Error: "boom"},
	}
	for _, evt := range seed {
		if err := s.Append(evt); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := s.Read(Query{})
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	apiOnly, err := s.Read(Query{ProfileName: "api"})
	if err != nil {
		t.Fatal(err)
	}
	if len(apiOnly) != 2 {
		t.Fatalf("expected 2 api events, got %d", len(apiOnly))
	}

	limited, err := s.Read(Query{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].SessionID != "b" {
		t.Fatalf("unexpected limited result: %+v", limited)
	}

	since, err := s.Read(Query{Since: base.Add(15 * time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 1 || since[0].Type != model.EventSessionFailed {
		t.Fatalf("unexpected since result: %+v", since)
	}

	byType, err := s.Read(Query{Type: model.EventSessionConnected})
	if err != nil {
		t.Fatal(err)
	}
	if len(byType) != 1 || byType[0].SessionID != "a" {
		t.Fatalf("unexpected type filter result: %+v", byType)
	}
}

func TestReadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	events, err := NewStore().Read(Query{})
	if err != nil {
		t.Fatal(err)
	}
	if events != nil {
		t.Fatalf("expected nil for missing journal, got %v", events)
	}
}
