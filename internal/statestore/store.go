// Package statestore persists sync state on disk: an append-only run log,
// an append-only webhook event log, and a latest-snapshot file. All writers
// go through one Store so concurrent appends cannot interleave within a
// line.
package statestore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/chittyos/registry-sync/internal/domain/resource"
)

// Store serializes all writes to the state files.
type Store struct {
	mu           sync.Mutex
	runLogPath   string
	eventLogPath string
	snapshotPath string
}

// Config names the state file locations.
type Config struct {
	RunLogPath   string
	EventLogPath string
	SnapshotPath string
}

// New creates a store. Parent directories are created as needed on first
// write.
func New(cfg Config) *Store {
	return &Store{
		runLogPath:   cfg.RunLogPath,
		eventLogPath: cfg.EventLogPath,
		snapshotPath: cfg.SnapshotPath,
	}
}

// AppendRun appends one summary line to the run log.
func (s *Store) AppendRun(summary *resource.Summary) error {
	return s.appendLine(s.runLogPath, summary)
}

// EventEntry is one processed webhook event as recorded in the event log.
type EventEntry struct {
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	Type       string `json:"resource_type"`
	ResourceID string `json:"resource_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// AppendEvent appends one entry to the webhook event log.
func (s *Store) AppendEvent(entry EventEntry) error {
	return s.appendLine(s.eventLogPath, entry)
}

// WriteSnapshot replaces the latest-snapshot file whole. The write goes
// through a temp file and rename so readers never observe a torn snapshot.
func (s *Store) WriteSnapshot(snap *resource.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot returns the latest snapshot, or (nil, nil) when no sync has
// run yet.
func (s *Store) ReadSnapshot() (*resource.Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap resource.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}

// LatestSummary returns the summary of the most recent run, or nil when no
// sync has run yet.
func (s *Store) LatestSummary() (*resource.Summary, error) {
	snap, err := s.ReadSnapshot()
	if err != nil || snap == nil {
		return nil, err
	}
	return snap.Summary, nil
}

// ReadRunLog returns every summary in the run log, oldest first.
func (s *Store) ReadRunLog() ([]*resource.Summary, error) {
	f, err := os.Open(s.runLogPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	defer f.Close()

	var runs []*resource.Summary
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var summary resource.Summary
		if err := json.Unmarshal(line, &summary); err != nil {
			// Tolerate a torn trailing line from a crashed writer.
			continue
		}
		runs = append(runs, &summary)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan run log: %w", err)
	}
	return runs, nil
}

func (s *Store) appendLine(path string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}
