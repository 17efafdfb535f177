// Package app runs the configured digest actions.
//
// One invocation performs one bounded run: every action fetches its window of activity,
// builds its thread and publishes it. Each action is its own failure boundary; an error
// or panic in one action is reported to the operator and the next action still runs.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/ingest/osmcha"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/digest"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/summary"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/config"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/observability"
)

const dateLayout = "2006-01-02"

var (
	// ErrActionsFailed is returned by RunDigest when at least one action failed.
	ErrActionsFailed = errors.New("digest actions failed")

	errActionPanicked = errors.New("action panicked")
)

// DigestBuilder publishes the thread of one action.
type DigestBuilder interface {
	BuildDigest(ctx context.Context, action config.Action, records []domain.ActivityRecord, window summary.Window) ([]domain.PublishedMessage, error)
}

// Dependencies wires an App. Notifier and Now may be nil.
type Dependencies struct {
	Actions         *config.ActionsFile
	Source          ports.ActivitySource
	Builder         DigestBuilder
	Notifier        ports.Notifier
	MetricsTextfile string
	Now             func() time.Time
}

// App holds the run dependencies.
type App struct {
	deps   Dependencies
	logger *zerolog.Logger
}

// New creates an App.
func New(deps Dependencies, logger *zerolog.Logger) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &App{deps: deps, logger: logger}
}

// RunDigest runs every configured action, or only the named one, over the window ending
// on date.
func (a *App) RunDigest(ctx context.Context, date time.Time, only string) error {
	runID := uuid.NewString()
	logger := a.logger.With().Str(LogFieldRunID, runID).Logger()

	defer a.writeMetrics(&logger)

	actions := a.deps.Actions.Actions
	if only != "" {
		action, ok := a.deps.Actions.Find(only)
		if !ok {
			return fmt.Errorf("%w: no action named %q", coreerrors.ErrConfig, only)
		}

		actions = []config.Action{action}
	}

	logger.Info().
		Str(LogFieldDate, date.Format(dateLayout)).
		Int(LogFieldActions, len(actions)).
		Msg("starting digest run")

	failed := 0

	for _, action := range actions {
		actionLogger := logger.With().Str(LogFieldAction, action.Name).Logger()

		if err := a.runAction(ctx, action, date, &actionLogger); err != nil {
			failed++

			observability.ActionsRun.WithLabelValues(action.Name, observability.StatusError).Inc()
			actionLogger.Error().Err(err).Msg("action failed")

			a.reportFailure(ctx, runID, action, err, &actionLogger)

			continue
		}

		observability.ActionsRun.WithLabelValues(action.Name, observability.StatusOK).Inc()
	}

	logger.Info().Int(LogFieldFailed, failed).Msg("digest run finished")

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrActionsFailed, failed, len(actions))
	}

	return nil
}

func (a *App) runAction(ctx context.Context, action config.Action, date time.Time, logger *zerolog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str(LogFieldStack, string(debug.Stack())).Msg("recovered from panic")
			err = fmt.Errorf("%w: %v", errActionPanicked, r)
		}
	}()

	if err := action.Validate(); err != nil {
		return err
	}

	days := action.Days()

	records, err := osmcha.FetchWindow(ctx, a.deps.Source, date, days)
	if err != nil {
		return fmt.Errorf("fetch activity: %w", err)
	}

	logger.Info().Int(LogFieldRecords, len(records)).Int(LogFieldDays, days).Msg("activity fetched")

	if _, err := a.deps.Builder.BuildDigest(ctx, action, records, Window(date, days, a.deps.Now())); err != nil {
		return fmt.Errorf("build digest: %w", err)
	}

	return nil
}

func (a *App) reportFailure(ctx context.Context, runID string, action config.Action, cause error, logger *zerolog.Logger) {
	if a.deps.Notifier == nil {
		return
	}

	text := fmt.Sprintf("MapComplete digest action %q failed (run %s): %v", action.Name, runID, cause)

	if err := a.deps.Notifier.Notify(ctx, text); err != nil {
		logger.Error().Err(err).Msg("could not notify the operator")
	}
}

func (a *App) writeMetrics(logger *zerolog.Logger) {
	observability.LastRunTimestamp.SetToCurrentTime()

	if err := observability.WriteTextfile(a.deps.MetricsTextfile); err != nil {
		logger.Warn().Err(err).Msg("could not write metrics textfile")
	}
}

// WindowStats describes the activity of a window.
type WindowStats struct {
	DateLabel    string
	Records      int
	Contributors int
	Themes       int
	Statistics   summary.Statistics
}

// Stats totals the activity of the days-long window ending on date, without publishing.
func (a *App) Stats(ctx context.Context, date time.Time, days int) (WindowStats, error) {
	records, err := osmcha.FetchWindow(ctx, a.deps.Source, date, days)
	if err != nil {
		return WindowStats{}, fmt.Errorf("fetch activity: %w", err)
	}

	records = digest.FilterRecords(records, nil)

	contributors := make(map[string]bool)
	themes := make(map[string]bool)

	for _, r := range records {
		contributors[r.ContributorID] = true
		themes[r.Theme] = true
	}

	return WindowStats{
		DateLabel:    DateLabel(date, days),
		Records:      len(records),
		Contributors: len(contributors),
		Themes:       len(themes),
		Statistics:   digest.ComputeStatistics(records),
	}, nil
}

// DateLabel names the window of days ending on end: "2024-05-01" for a single day,
// "2024-04-25 until 2024-05-01" otherwise.
func DateLabel(end time.Time, days int) string {
	if days <= 1 {
		return end.Format(dateLayout)
	}

	return end.AddDate(0, 0, -(days-1)).Format(dateLayout) + " until " + end.Format(dateLayout)
}

// Window describes the days-long window ending on end, relative to now.
func Window(end time.Time, days int, now time.Time) summary.Window {
	yesterday := now.UTC().AddDate(0, 0, -1).Format(dateLayout)

	return summary.Window{
		Label:         DateLabel(end, days),
		Days:          days,
		EndsYesterday: end.Format(dateLayout) == yesterday,
	}
}
