package summary

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/process/frequency"
)

const (
	// ThemeBaseURL prefixes a theme id to link to the thematic map.
	ThemeBaseURL = "https://mapcomplete.org/"

	maxGroupNames = 3
)

// Summarizer phrases per-contributor and per-theme overviews.
type Summarizer struct {
	identity ports.IdentityResolver
	nouns    Nouns
	logger   *zerolog.Logger
}

// New creates a Summarizer resolving names through identity.
func New(identity ports.IdentityResolver, nouns Nouns, logger *zerolog.Logger) *Summarizer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Summarizer{
		identity: identity,
		nouns:    nouns.WithDefaults(),
		logger:   logger,
	}
}

// Nouns returns the point nouns used by this summarizer.
func (s *Summarizer) Nouns() Nouns {
	return s.nouns
}

// StatsFor phrases records with the summarizer's nouns.
func (s *Summarizer) StatsFor(records []domain.ActivityRecord) Statistics {
	return StatsFor(records, s.nouns)
}

// ContributorName resolves how a contributor is named: the fediverse handle unless the
// contributor suppresses mentions, else the display name, else fallback.
func (s *Summarizer) ContributorName(ctx context.Context, contributorID, fallback string) (string, error) {
	handle, ok, err := s.identity.Handle(ctx, contributorID)
	if err != nil {
		return "", fmt.Errorf("%w: resolving handle of %s: %w", coreerrors.ErrFormatterSkip, contributorID, err)
	}

	if ok {
		optOut, err := s.identity.OptOut(ctx, contributorID)
		if err != nil {
			return "", fmt.Errorf("%w: resolving opt-out of %s: %w", coreerrors.ErrFormatterSkip, contributorID, err)
		}

		if !optOut.SuppressMention {
			return handle, nil
		}
	}

	name, err := s.identity.DisplayName(ctx, contributorID)
	if err != nil {
		s.logger.Debug().Err(err).Str(LogFieldContributor, contributorID).Msg("display name lookup failed, using changeset name")

		name = ""
	}

	if name == "" {
		name = fallback
	}

	if name == "" {
		return "", fmt.Errorf("%w: no name for contributor %s", coreerrors.ErrFormatterSkip, contributorID)
	}

	return name, nil
}

// ContributorSummary describes what one contributor did, e.g.
// "@alice@en.osm.town added 3 points and answered a question with the thematic map trees".
// The thematic map clause is omitted when only one theme is whitelisted.
func (s *Summarizer) ContributorSummary(ctx context.Context, contributorID string, records []domain.ActivityRecord, themeWhitelistSize int) (string, error) {
	stats := s.StatsFor(records)
	if stats.SummaryText == "" {
		return "", fmt.Errorf("%w: contributor %s has no countable changes", coreerrors.ErrFormatterSkip, contributorID)
	}

	fallback := ""
	if len(records) > 0 {
		fallback = records[0].ContributorName
	}

	name, err := s.ContributorName(ctx, contributorID, fallback)
	if err != nil {
		return "", err
	}

	text := name + " " + stats.SummaryText

	if themeWhitelistSize != 1 {
		themes := frequency.Build(records, themeKey).Keys()
		if len(themes) > 0 {
			text += " with the thematic " + plural(len(themes), "map", "maps") + " " + CommasAnd(themes)
		}
	}

	return text, nil
}

// ThemeSummary describes the activity on one theme, e.g.
// "3 contributors added 5 points on https://mapcomplete.org/trees".
func (s *Summarizer) ThemeSummary(theme string, records []domain.ActivityRecord) string {
	stats := s.StatsFor(records)
	contributors := frequency.Build(records, contributorKey).Len()

	countText := "a contributor"
	if contributors != 1 {
		countText = strconv.Itoa(contributors) + " contributors"
	}

	return countText + " " + stats.SummaryText + " on " + ThemeBaseURL + theme
}

// GroupSummary combines several contributors of a single theme into one clause, listing
// at most three names followed by "and N others". hidden counts contributors without a name.
func (s *Summarizer) GroupSummary(names []string, hidden int, theme string, records []domain.ActivityRecord) string {
	shown := names
	others := hidden

	if len(shown) > maxGroupNames {
		others += len(shown) - maxGroupNames
		shown = shown[:maxGroupNames]
	}

	parts := append([]string{}, shown...)
	if others > 0 {
		parts = append(parts, strconv.Itoa(others)+" "+plural(others, "other", "others"))
	}

	stats := s.StatsFor(records)

	return CommasAnd(parts) + " " + stats.SummaryText + " with the thematic map " + theme
}

// Window is the span of days a digest covers.
type Window struct {
	// Label is "2024-05-01" for one day, "2024-04-25 until 2024-05-01" otherwise.
	Label string
	Days  int
	// EndsYesterday is set when the last day of the window is the day before the run.
	EndsYesterday bool
}

// Period phrases the window for a headline. Only a window ending yesterday is relative.
func (w Window) Period() string {
	switch {
	case w.Days > 1 && w.EndsYesterday:
		return "In the past " + strconv.Itoa(w.Days) + " days"
	case w.Days > 1:
		return "From " + w.Label
	case w.EndsYesterday:
		return "Yesterday"
	default:
		return "On " + w.Label
	}
}

// Headline opens the contributors block.
func Headline(contributors, total int, window Window) string {
	period := window.Period()

	persons := strconv.Itoa(contributors) + " different persons"
	if contributors == 1 {
		persons = "one person"
	}

	var sb strings.Builder

	sb.WriteString(period)
	sb.WriteString(", ")
	sb.WriteString(persons)
	sb.WriteString(" made ")
	sb.WriteString(strconv.Itoa(total))
	sb.WriteString(" ")
	sb.WriteString(plural(total, "change", "changes"))
	sb.WriteString(" to #OpenStreetMap using ")
	sb.WriteString(ThemeBaseURL)
	sb.WriteString(" .")

	return sb.String()
}

func themeKey(r domain.ActivityRecord) (string, bool) {
	return r.Theme, r.Theme != ""
}

func contributorKey(r domain.ActivityRecord) (string, bool) {
	return r.ContributorID, r.ContributorID != ""
}
