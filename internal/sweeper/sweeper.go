// Package sweeper posts confirmation-deadline warnings on a schedule.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"training-planner-backend/internal/messagelog"
	"training-planner-backend/internal/model"
	"training-planner-backend/internal/parse"
	"training-planner-backend/internal/store"
)

// Options configures a Service.
type Options struct {
	Schedule    string
	WarningDays int
	Location    *time.Location
	Now         func() time.Time
}

// Service appends a warning for every Reserved event whose confirmation
// deadline is today or exactly WarningDays away.
type Service struct {
	store    store.Store
	messages *messagelog.Log
	opts     Options
	cron     *cron.Cron
}

// NewService creates a sweeper. Run must be called to start the schedule.
func NewService(s store.Store, messages *messagelog.Log, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Schedule == "" {
		opts.Schedule = "@daily"
	}
	return &Service{
		store:    s,
		messages: messages,
		opts:     opts,
		cron:     cron.New(cron.WithLocation(opts.Location)),
	}
}

// Run registers the sweep with the scheduler and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.opts.Schedule, func() {
		if _, err := s.SweepOnce(ctx); err != nil {
			slog.Error("deadline sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid warnings schedule %q: %w", s.opts.Schedule, err)
	}

	slog.Info("starting deadline sweeper", "schedule", s.opts.Schedule, "warning_days", s.opts.WarningDays)
	s.cron.Start()
	<-ctx.Done()

	slog.Info("deadline sweeper shutting down")
	<-s.cron.Stop().Done()
	return nil
}

// SweepOnce posts the warnings due today and returns how many were written.
func (s *Service) SweepOnce(ctx context.Context) (int, error) {
	today := parse.Today(s.opts.Now(), s.opts.Location)
	warnings, err := s.store.DeadlineWarnings(ctx, today, s.opts.WarningDays)
	if err != nil {
		return 0, err
	}

	posted := 0
	for _, w := range warnings {
		content, due := warningFor(w, s.opts.WarningDays)
		if !due {
			continue
		}
		if _, err := s.messages.Append(ctx, model.MessageTypeWarning, content); err != nil {
			slog.Warn("failed to post deadline warning", "event_id", w.EventID, "error", err)
			continue
		}
		posted++
	}
	slog.Debug("deadline sweep complete", "candidates", len(warnings), "posted", posted)
	return posted, nil
}

func warningFor(w store.DeadlineWarning, warningDays int) (string, bool) {
	switch w.DaysLeft {
	case 0:
		return fmt.Sprintf("Event ID: (%d) %s must be confirmed today", w.EventID, w.Name), true
	case warningDays:
		return fmt.Sprintf("Event ID: (%d) %s must be confirmed within %d days (by %s)",
			w.EventID, w.Name, warningDays, parse.Format(w.ConfirmationDeadline)), true
	default:
		return "", false
	}
}
