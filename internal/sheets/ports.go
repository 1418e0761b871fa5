package sheets

import (
	"context"

	"tariffsync/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// TargetLister enumerates the spreadsheet documents that receive a
	// published snapshot. Currently backed by static configuration; a
	// storage-backed implementation can replace it without touching callers.
	TargetLister interface {
		ListTargets(ctx context.Context) ([]core.SpreadsheetTarget, error)
	}

	// SnapshotPublisher overwrites the destination region of one target with
	// a 2-D value grid. The first row is conventionally a header.
	SnapshotPublisher interface {
		Publish(ctx context.Context, target core.SpreadsheetTarget, values [][]any) error
	}
)

// StaticTargets is a TargetLister over a fixed, externally supplied list.
type StaticTargets []core.SpreadsheetTarget

func (s StaticTargets) ListTargets(_ context.Context) ([]core.SpreadsheetTarget, error) {
	out := make([]core.SpreadsheetTarget, len(s))
	copy(out, s)
	return out, nil
}
