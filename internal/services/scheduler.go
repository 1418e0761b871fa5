package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Scheduler triggers one sync run per calendar day at a fixed local time.
// There is no persisted last-run state: each trigger starts a fresh run
// independent of prior outcome.
type Scheduler struct {
	service *SyncService
	hour    int
	minute  int
	loc     *time.Location

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a scheduler firing daily at the given "HH:MM"
// time-of-day in loc. A nil location defaults to UTC.
func NewScheduler(service *SyncService, at string, loc *time.Location) (*Scheduler, error) {
	hour, minute, err := parseClock(at)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		service: service,
		hour:    hour,
		minute:  minute,
		loc:     loc,
	}, nil
}

// Start begins the trigger loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Scheduler started",
		"at", fmt.Sprintf("%02d:%02d", s.hour, s.minute),
		"timezone", s.loc.String())

	return nil
}

// Stop gracefully stops the scheduler and waits for the loop to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		slog.InfoContext(ctx, "Scheduler stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return nil
}

// IsRunning reports whether the trigger loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	for {
		next := nextRunAfter(time.Now().In(s.loc), s.hour, s.minute)
		timer := time.NewTimer(time.Until(next))

		slog.InfoContext(ctx, "Next sync scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.service.Run(ctx); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					slog.WarnContext(ctx, "Skipping trigger, previous run still active")
				} else {
					slog.ErrorContext(ctx, "Scheduled sync failed", "error", err)
				}
			}
		}
	}
}

// nextRunAfter returns the first occurrence of hour:minute strictly after
// now, in now's location: today if the time-of-day has not passed yet,
// otherwise tomorrow.
func nextRunAfter(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// parseClock parses an "HH:MM" time-of-day string.
func parseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
