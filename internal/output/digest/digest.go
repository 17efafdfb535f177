// Package digest turns one action's activity records into a published thread: it filters
// the records, orders the images, warms identity lookups and drives the thread composer.
package digest

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/images"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/summary"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/thread"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/config"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/process/frequency"
)

// Dependencies are the collaborators a Builder publishes through. Reports may be nil.
type Dependencies struct {
	Identity    ports.IdentityResolver
	Attribution ports.ImageAttributionSource
	Downloader  ports.ImageDownloader
	Publisher   ports.MediaPublisher
	Reports     ports.ReportSource
}

// Options are the process-wide settings shared by every action.
type Options struct {
	// ImageDir holds downloaded images; a temporary directory is used when empty.
	ImageDir string
	// PrefetchConcurrency bounds the concurrent identity lookups made before composing.
	PrefetchConcurrency int
	// ThemeBonus overrides entries of images.DefaultThemeBonus.
	ThemeBonus map[string]int
	// Rand breaks ties between equally scored images. Seeded from the clock when nil.
	Rand *rand.Rand
}

// Builder builds and publishes digests.
type Builder struct {
	deps   Dependencies
	opts   Options
	bonus  map[string]int
	rng    *rand.Rand
	logger *zerolog.Logger
}

// New creates a Builder.
func New(deps Dependencies, opts Options, logger *zerolog.Logger) *Builder {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if opts.PrefetchConcurrency < 1 {
		opts.PrefetchConcurrency = 1
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // image order does not need a secure source
	}

	return &Builder{
		deps:   deps,
		opts:   opts,
		bonus:  ThemeBonus(opts.ThemeBonus),
		rng:    rng,
		logger: logger,
	}
}

// ThemeBonus returns the default theme bonus table with overrides applied.
func ThemeBonus(overrides map[string]int) map[string]int {
	bonus := images.DefaultThemeBonus()
	for theme, value := range overrides {
		bonus[theme] = value
	}

	return bonus
}

// ComputeStatistics totals the counters of records with the default nouns.
func ComputeStatistics(records []domain.ActivityRecord) summary.Statistics {
	return summary.StatsFor(records, summary.DefaultNouns())
}

// RankImages orders candidates for attachment. The input is not modified.
func RankImages(candidates []domain.ImageCandidate, bonus map[string]int, rng *rand.Rand) []domain.ImageCandidate {
	return images.Select(candidates, bonus, rng)
}

// FilterRecords drops records made with unofficial themes loaded by URL and, when a
// whitelist is given, records of themes it does not list.
func FilterRecords(records []domain.ActivityRecord, whitelist []string) []domain.ActivityRecord {
	allowed := make(map[string]bool, len(whitelist))
	for _, theme := range whitelist {
		allowed[theme] = true
	}

	out := make([]domain.ActivityRecord, 0, len(records))

	for _, r := range records {
		if r.IsCustomTheme() {
			continue
		}

		if len(allowed) > 0 && !allowed[r.Theme] {
			continue
		}

		out = append(out, r)
	}

	return out
}

// BuildDigest publishes the thread of one action over the records of window and returns
// the published posts in thread order. A partially published thread is returned along with the error.
func (b *Builder) BuildDigest(ctx context.Context, action config.Action, records []domain.ActivityRecord, window summary.Window) ([]domain.PublishedMessage, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger.With().Str(LogFieldAction, action.Name).Logger()

	filtered := FilterRecords(records, action.ThemeWhitelist)

	candidates := images.Candidates(filtered)
	ordered := RankImages(candidates, b.bonus, b.rng)

	logger.Info().
		Int(LogFieldRecords, len(records)).
		Int(LogFieldKept, len(filtered)).
		Int(LogFieldImages, len(ordered)).
		Msg("building digest")

	dir, cleanup, err := b.imageDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	summarizer := summary.New(b.deps.Identity, summary.Nouns{Singular: action.PoiName, Plural: action.PoisName}, &logger)
	queue := NewImageQueue(ordered, QueueDependencies{
		Identity:    b.deps.Identity,
		Names:       summarizer,
		Attribution: b.deps.Attribution,
		Downloader:  b.deps.Downloader,
		Publisher:   b.deps.Publisher,
	}, dir, &logger)

	if action.ShowTopContributors {
		b.prefetch(ctx, filtered, &logger)
	}

	composer := thread.New(summarizer, b.deps.Identity, b.deps.Publisher, b.deps.Reports, queue, &logger)

	published, err := composer.Run(ctx, planFor(action, filtered, window, candidates))
	if err != nil {
		return published, fmt.Errorf("action %s: %w", action.Name, err)
	}

	logger.Info().Int(LogFieldPosts, len(published)).Msg("digest published")

	return published, nil
}

func planFor(action config.Action, records []domain.ActivityRecord, window summary.Window, candidates []domain.ImageCandidate) thread.Plan {
	plan := thread.Plan{
		Records:               records,
		DateLabel:             window.Label,
		Days:                  action.Days(),
		EndsYesterday:         window.EndsYesterday,
		ShowTopContributors:   action.ShowTopContributors,
		ShowTopThemes:         action.ShowTopThemes,
		ShowThankYou:          action.ThankYou(),
		ContentWarning:        action.ContentWarning,
		Visibility:            action.PostVisibility(),
		NoisyTheme:            action.NoisyTheme,
		ThemeWhitelistSize:    len(action.ThemeWhitelist),
		ImageCount:            len(candidates),
		ImageContributorCount: images.ContributorCount(candidates),
	}

	if action.Report != nil && action.Report.OverpassQuery != "" {
		plan.Report = &thread.Report{
			OverpassQuery: action.Report.OverpassQuery,
			PostTemplate:  action.Report.PostTemplate,
			BBox:          action.Report.BBox,
		}
	}

	return plan
}

// prefetch resolves the identities of the contributors most likely to be listed so that
// the sequential composition hits the resolver's memo. Failures are left for the composer.
func (b *Builder) prefetch(ctx context.Context, records []domain.ActivityRecord, logger *zerolog.Logger) {
	ranked := frequency.Build(records, func(r domain.ActivityRecord) (string, bool) {
		return r.ContributorID, true
	}).Rank(frequency.WithWeight(func(r domain.ActivityRecord) (int, bool) {
		return r.Counters.Total(), true
	}))

	if len(ranked) > prefetchLimit {
		ranked = ranked[:prefetchLimit]
	}

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.PrefetchConcurrency)

	for _, entry := range ranked {
		id := entry.Key

		g.Go(func() error {
			if _, err := b.deps.Identity.OptOut(gctx, id); err != nil {
				logger.Debug().Err(err).Str(LogFieldContributor, id).Msg("prefetch failed")
				return nil
			}

			if _, _, err := b.deps.Identity.Handle(gctx, id); err != nil {
				logger.Debug().Err(err).Str(LogFieldContributor, id).Msg("prefetch failed")
			}

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // prefetch goroutines never return errors

	logger.Debug().
		Int(LogFieldContributors, len(ranked)).
		Dur(LogFieldDuration, time.Since(start)).
		Msg("identities prefetched")
}

func (b *Builder) imageDir() (string, func(), error) {
	if b.opts.ImageDir != "" {
		if err := os.MkdirAll(b.opts.ImageDir, imageDirPerm); err != nil {
			return "", nil, fmt.Errorf("create image dir: %w", err)
		}

		return b.opts.ImageDir, func() {}, nil
	}

	dir, err := os.MkdirTemp("", tempDirPattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temporary image dir: %w", err)
	}

	return dir, func() {
		if err := os.RemoveAll(filepath.Clean(dir)); err != nil {
			b.logger.Warn().Err(err).Str(LogFieldPath, dir).Msg("could not remove temporary image dir")
		}
	}, nil
}
