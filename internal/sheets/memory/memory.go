// Package memory provides an in-memory spreadsheet adapter for tests and
// local runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tariffsync/internal/core"
)

type Store struct {
	mu        sync.Mutex
	targets   []core.SpreadsheetTarget
	published map[string][][]any
	failing   map[string]error
}

func New(targets ...core.SpreadsheetTarget) *Store {
	return &Store{
		targets:   append([]core.SpreadsheetTarget(nil), targets...),
		published: map[string][][]any{},
		failing:   map[string]error{},
	}
}

// ListTargets implements sheets.TargetLister.
func (s *Store) ListTargets(_ context.Context) ([]core.SpreadsheetTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SpreadsheetTarget, len(s.targets))
	copy(out, s.targets)
	return out, nil
}

// Publish implements sheets.SnapshotPublisher. The last published grid per
// target is kept, matching overwrite semantics of the real adapter.
func (s *Store) Publish(_ context.Context, target core.SpreadsheetTarget, values [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failing[target.ID]; ok {
		return fmt.Errorf("publish to %s: %w", target.ID, err)
	}

	grid := make([][]any, len(values))
	for i, row := range values {
		grid[i] = append([]any(nil), row...)
	}
	s.published[target.ID] = grid
	return nil
}

// FailTarget makes subsequent publishes to the given target id return err.
func (s *Store) FailTarget(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[id] = err
}

// Published returns the last grid published to the target, or nil.
func (s *Store) Published(id string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[id]
}
