// Package services contains the daily tariff synchronization orchestration.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tariffsync/internal/amqp"
	"tariffsync/internal/core"
	"tariffsync/internal/sheets"
)

// ErrRunInProgress is returned when a trigger fires while the previous run
// is still executing. Overlapping triggers are skipped, not queued.
var ErrRunInProgress = errors.New("tariff sync run already in progress")

// SnapshotHeader is the fixed first row of every published grid.
var SnapshotHeader = []any{"Tariff ID", "Name", "Price"}

type (
	// TariffFetcher is the tariff source client port.
	TariffFetcher interface {
		FetchAll(ctx context.Context) ([]core.Tariff, error)
	}

	// TariffStore is the repository port used by the sync run.
	TariffStore interface {
		UpsertTariffs(ctx context.Context, tariffs []core.Tariff, date core.Date) error
		TariffsByDate(ctx context.Context, date core.Date) ([]core.TariffRow, error)
	}

	// EventPublisher receives the outcome of completed runs. Optional.
	EventPublisher interface {
		PublishSyncResult(ctx context.Context, msg *amqp.TariffSyncMessage) error
	}
)

// TargetResult records the publish outcome for one spreadsheet target.
type TargetResult struct {
	Target core.SpreadsheetTarget
	Err    error
}

// RunReport summarizes one sync run. Targets holds one entry per configured
// target regardless of individual outcomes.
type RunReport struct {
	Date    core.Date
	Fetched int
	Rows    int
	Targets []TargetResult
}

// PublishedTargets returns the ids of targets that received the snapshot.
func (r *RunReport) PublishedTargets() []string {
	var out []string
	for _, tr := range r.Targets {
		if tr.Err == nil {
			out = append(out, tr.Target.ID)
		}
	}
	return out
}

// FailedTargets returns the ids of targets whose publish failed.
func (r *RunReport) FailedTargets() []string {
	var out []string
	for _, tr := range r.Targets {
		if tr.Err != nil {
			out = append(out, tr.Target.ID)
		}
	}
	return out
}

// SyncService runs the fetch -> persist -> read -> publish sequence for one
// calendar day. At most one run executes at a time.
type SyncService struct {
	source    TariffFetcher
	store     TariffStore
	targets   sheets.TargetLister
	publisher sheets.SnapshotPublisher
	events    EventPublisher
	loc       *time.Location
	now       func() time.Time

	mu      sync.Mutex
	running bool
}

// NewSyncService wires the sync run's collaborators. A nil location
// defaults to UTC; the location decides what "today" means, so it must
// match the scheduler's.
func NewSyncService(
	source TariffFetcher,
	store TariffStore,
	targets sheets.TargetLister,
	publisher sheets.SnapshotPublisher,
	loc *time.Location,
) *SyncService {
	if loc == nil {
		loc = time.UTC
	}
	return &SyncService{
		source:    source,
		store:     store,
		targets:   targets,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
	}
}

// SetEvents enables run outcome events. Call before Start; a service
// without an event publisher simply skips the emit step.
func (s *SyncService) SetEvents(events EventPublisher) {
	s.events = events
}

// Run executes one sync for today's date. A fetch, persist, or read failure
// aborts the run and is returned with the stage named in the error chain.
// Publish failures are per-target: they are collected in the report and do
// not fail the run. The returned report is non-nil even on stage failure.
func (s *SyncService) Run(ctx context.Context) (*RunReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	date := core.DateOf(s.now().In(s.loc))
	report := &RunReport{Date: date}

	slog.InfoContext(ctx, "Starting tariff sync", "date", date.String())

	tariffs, err := s.source.FetchAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Tariff sync aborted", "stage", "fetch", "date", date.String(), "error", err)
		return report, fmt.Errorf("fetch tariffs: %w", err)
	}
	report.Fetched = len(tariffs)

	if err := s.store.UpsertTariffs(ctx, tariffs, date); err != nil {
		slog.ErrorContext(ctx, "Tariff sync aborted", "stage", "persist", "date", date.String(), "error", err)
		return report, fmt.Errorf("persist tariffs: %w", err)
	}

	rows, err := s.store.TariffsByDate(ctx, date)
	if err != nil {
		slog.ErrorContext(ctx, "Tariff sync aborted", "stage", "read", "date", date.String(), "error", err)
		return report, fmt.Errorf("read snapshot: %w", err)
	}
	report.Rows = len(rows)

	targets, err := s.targets.ListTargets(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Tariff sync aborted", "stage", "read", "date", date.String(), "error", err)
		return report, fmt.Errorf("list spreadsheet targets: %w", err)
	}

	report.Targets = s.publishAll(ctx, targets, snapshotValues(rows))

	s.emitResult(ctx, report)

	slog.InfoContext(ctx, "Tariff sync completed",
		"date", date.String(),
		"fetched", report.Fetched,
		"rows", report.Rows,
		"published", len(report.PublishedTargets()),
		"failed_targets", len(report.FailedTargets()))

	return report, nil
}

// snapshotValues builds the 2-D grid published to each target: the fixed
// header row followed by one row per tariff record, price rendered as text.
func snapshotValues(rows []core.TariffRow) [][]any {
	values := make([][]any, 0, len(rows)+1)
	values = append(values, SnapshotHeader)
	for _, row := range rows {
		values = append(values, []any{row.TariffID, row.Name, row.Price.String()})
	}
	return values
}

// publishAll publishes the grid to every target concurrently. Each target's
// failure is captured in its own result; one target failing never stops or
// retro-actively fails the others.
func (s *SyncService) publishAll(ctx context.Context, targets []core.SpreadsheetTarget, values [][]any) []TargetResult {
	results := make([]TargetResult, len(targets))

	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			err := s.publisher.Publish(ctx, target, values)
			if err != nil {
				slog.ErrorContext(ctx, "Publish to spreadsheet failed",
					"target", target.ID, "error", err)
			}
			results[i] = TargetResult{Target: target, Err: err}
			return nil
		})
	}
	g.Wait()

	return results
}

func (s *SyncService) emitResult(ctx context.Context, report *RunReport) {
	if s.events == nil {
		return
	}
	msg := amqp.NewTariffSyncMessage(
		report.Date.String(),
		report.Fetched,
		report.Rows,
		report.PublishedTargets(),
		report.FailedTargets(),
	)
	if err := s.events.PublishSyncResult(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed to publish sync event", "error", err)
	}
}
