// Package journal appends lifecycle events to a local JSONL file, one JSON
// object per line, for the `logs` command and post-mortem inspection. The
// journal is a logging sink, not session state: sessions themselves are
// process-lifetime only.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/bus"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/paths"
)

// Query controls event filtering and bounded reads.
type Query struct {
	SessionID   string
	ProfileName string
	Type        model.EventType
	Since       time.Time
	Limit       int
}

// Store provides append/read access to the event journal file.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

func filePath() (string, error) {
	dir, err := paths.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events.jsonl"), nil
}

// Append writes a single event as one JSON line.
func (s *Store) Append(evt model.Event) error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}

// Read returns events in append order, filtered by query, with optional
// limit keeping the most recent matches.
func (s *Store) Read(q Query) ([]model.Event, error) {
	path, err := filePath()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []model.Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var evt model.Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			continue
		}
		if !matches(evt, q) {
			continue
		}
		out = append(out, evt)
		if q.Limit > 0 && len(out) > q.Limit {
			out = out[len(out)-q.Limit:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return out, nil
}

// Record drains a bus subscription into the journal until the subscription
// closes. Run it on its own goroutine; append failures are dropped silently
// so a full disk cannot stall event consumers.
func (s *Store) Record(sub *bus.Subscriber) {
	for evt := range sub.Events() {
		_ = s.Append(evt)
	}
}

func matches(evt model.Event, q Query) bool {
	if q.SessionID != "" && evt.SessionID != q.SessionID {
		return false
	}
	if q.ProfileName != "" && evt.ProfileName != q.ProfileName {
		return false
	}
	if q.Type != "" && evt.Type != q.Type {
		return false
	}
	if !q.Since.IsZero() && evt.Timestamp.Before(q.Since) {
		return false
	}
	return true
}
