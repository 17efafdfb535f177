package thread

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/summary"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/observability"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/textutil"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/process/frequency"
)

// Attachments hands out uploaded media ids in the precomputed image order.
type Attachments interface {
	// Next returns up to max media ids; fewer (or none) when uploads fail or run out.
	Next(ctx context.Context, max int) []string
	// Authors returns the names of the authors of every image handed out so far.
	Authors() []string
}

// Report configures the optional lead post counting features with an Overpass query.
type Report struct {
	OverpassQuery string
	PostTemplate  string
	BBox          string
}

// Plan is everything the composer needs for one digest.
type Plan struct {
	Records               []domain.ActivityRecord
	DateLabel             string
	Days                  int
	EndsYesterday         bool
	ShowTopContributors   bool
	ShowTopThemes         bool
	ShowThankYou          bool
	ContentWarning        string
	Visibility            domain.Visibility
	NoisyTheme            string
	ThemeWhitelistSize    int
	Report                *Report
	ImageCount            int
	ImageContributorCount int
}

func (p Plan) window() summary.Window {
	return summary.Window{Label: p.DateLabel, Days: p.Days, EndsYesterday: p.EndsYesterday}
}

// Composer drives the thread states and publishes each block.
type Composer struct {
	summarizer  *summary.Summarizer
	identity    ports.IdentityResolver
	publisher   ports.MediaPublisher
	reports     ports.ReportSource
	attachments Attachments
	logger      *zerolog.Logger
}

// New creates a Composer. reports may be nil when no action uses a lead report.
func New(
	summarizer *summary.Summarizer,
	identity ports.IdentityResolver,
	publisher ports.MediaPublisher,
	reports ports.ReportSource,
	attachments Attachments,
	logger *zerolog.Logger,
) *Composer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Composer{
		summarizer:  summarizer,
		identity:    identity,
		publisher:   publisher,
		reports:     reports,
		attachments: attachments,
		logger:      logger,
	}
}

var errNoReportSource = errors.New("lead report configured without a report source")

// Run walks the states in order and publishes at most one post per state. Every post but
// the first replies to the previously published one.
func (c *Composer) Run(ctx context.Context, plan Plan) ([]domain.PublishedMessage, error) {
	var published []domain.PublishedMessage

	lastID := ""

	for state := StateLeadReport; state != StateDone; state = state.next() {
		msg, err := c.compose(ctx, state, plan)
		if err != nil {
			return published, fmt.Errorf("compose %s: %w", state, err)
		}

		if msg == nil {
			c.logger.Debug().Str(LogFieldState, state.String()).Msg("block skipped")
			continue
		}

		if msg.MediaIDs == nil {
			msg.MediaIDs = c.attachments.Next(ctx, MaxAttachments)
		}

		msg.ReplyTo = lastID
		msg.ContentWarning = plan.ContentWarning
		msg.Visibility = plan.Visibility

		result, err := c.publisher.Publish(ctx, msg.Text(), msg.Options())
		if err != nil {
			return published, fmt.Errorf("publish %s: %w", state, err)
		}

		c.logger.Info().
			Str(LogFieldState, state.String()).
			Str(LogFieldStatusID, result.ID).
			Int(LogFieldLines, len(msg.Lines)).
			Int(LogFieldMedia, len(msg.MediaIDs)).
			Msg("published digest block")

		observability.MessagesPublished.WithLabelValues(state.String()).Inc()

		lastID = result.ID
		published = append(published, result)
	}

	return published, nil
}

func (c *Composer) compose(ctx context.Context, state State, plan Plan) (*domain.Message, error) {
	switch state {
	case StateLeadReport:
		return c.leadReport(ctx, plan)
	case StateContributors:
		return c.contributors(ctx, plan), nil
	case StateThemes:
		return c.themes(plan), nil
	case StateImagesAcknowledgement:
		return c.imagesAcknowledgement(ctx, plan), nil
	default:
		return nil, nil
	}
}

func (c *Composer) leadReport(ctx context.Context, plan Plan) (*domain.Message, error) {
	if plan.Report == nil || plan.Report.OverpassQuery == "" || plan.Report.PostTemplate == "" {
		return nil, nil
	}

	if c.reports == nil {
		return nil, errNoReportSource
	}

	total, err := c.reports.Count(ctx, plan.Report.OverpassQuery, plan.Report.BBox)
	if err != nil {
		return nil, fmt.Errorf("report query: %w", err)
	}

	text := strings.NewReplacer(
		"{total}", strconv.Itoa(total),
		"{date}", plan.DateLabel,
	).Replace(plan.Report.PostTemplate)

	return &domain.Message{Lines: strings.Split(text, "\n")}, nil
}

func (c *Composer) contributors(ctx context.Context, plan Plan) *domain.Message {
	if !plan.ShowTopContributors {
		return nil
	}

	perContributor := frequency.Build(plan.Records, contributorKey)
	ranked := perContributor.Rank(frequency.WithWeight(changeCount))

	if len(ranked) == 0 {
		return nil
	}

	total := 0
	for _, r := range plan.Records {
		total += r.Counters.Total()
	}

	lines := []string{summary.Headline(len(ranked), total, plan.window())}

	excluded := c.noisyContributors(plan, perContributor, ranked)
	if len(excluded) > 1 {
		if line, ok := c.groupLine(ctx, plan, perContributor, ranked, excluded); ok {
			lines = appendIfFits(lines, line)
		}
	} else {
		excluded = nil
	}

	for _, entry := range ranked {
		if excluded[entry.Key] {
			continue
		}

		logger := c.logger.With().Str(LogFieldContributor, entry.Key).Logger()

		optOut, err := c.identity.OptOut(ctx, entry.Key)
		if err != nil {
			logger.Warn().Err(err).Msg("could not resolve opt-out, skipping contributor")
			observability.ContributorsSkipped.WithLabelValues(skipUnresolved).Inc()

			continue
		}

		if optOut.SuppressAll {
			logger.Debug().Msg("contributor opted out")
			observability.ContributorsSkipped.WithLabelValues(skipOptedOut).Inc()

			continue
		}

		line, err := c.summarizer.ContributorSummary(ctx, entry.Key, perContributor.Get(entry.Key), plan.ThemeWhitelistSize)
		if err != nil {
			logger.Warn().Err(err).Msg("could not add contributor")
			observability.ContributorsSkipped.WithLabelValues(skipFormatting).Inc()

			continue
		}

		next := append(lines, linePrefix+line)
		if !textutil.FitsPost(next) {
			break
		}

		lines = next
	}

	return &domain.Message{Lines: lines}
}

// noisyContributors returns the contributors whose records all belong to the noisy theme.
func (c *Composer) noisyContributors(plan Plan, perContributor *frequency.Index[domain.ActivityRecord], ranked []frequency.RankedEntry) map[string]bool {
	if plan.NoisyTheme == "" {
		return nil
	}

	noisy := make(map[string]bool)

	for _, entry := range ranked {
		exclusive := true

		for _, r := range perContributor.Get(entry.Key) {
			if r.Theme != plan.NoisyTheme {
				exclusive = false
				break
			}
		}

		if exclusive {
			noisy[entry.Key] = true
		}
	}

	return noisy
}

func (c *Composer) groupLine(
	ctx context.Context,
	plan Plan,
	perContributor *frequency.Index[domain.ActivityRecord],
	ranked []frequency.RankedEntry,
	members map[string]bool,
) (string, bool) {
	var (
		names   []string
		hidden  int
		records []domain.ActivityRecord
	)

	for _, entry := range ranked {
		if !members[entry.Key] {
			continue
		}

		group := perContributor.Get(entry.Key)

		optOut, err := c.identity.OptOut(ctx, entry.Key)
		if err == nil && optOut.SuppressAll {
			continue
		}

		records = append(records, group...)

		name, err := c.summarizer.ContributorName(ctx, entry.Key, group[0].ContributorName)
		if err != nil {
			hidden++
			continue
		}

		names = append(names, name)
	}

	if len(names) == 0 && hidden == 0 {
		return "", false
	}

	if c.summarizer.StatsFor(records).SummaryText == "" {
		return "", false
	}

	return linePrefix + c.summarizer.GroupSummary(names, hidden, plan.NoisyTheme, records), true
}

func (c *Composer) themes(plan Plan) *domain.Message {
	if !plan.ShowTopThemes {
		return nil
	}

	perTheme := frequency.Build(plan.Records, themeKey)
	ranked := perTheme.Rank(frequency.WithWeight(changeCount), frequency.DropZero[domain.ActivityRecord]())

	var lines []string

	for _, entry := range ranked {
		next := append(lines, linePrefix+c.summarizer.ThemeSummary(entry.Key, perTheme.Get(entry.Key)))
		if !textutil.FitsPost(next) {
			break
		}

		lines = next
	}

	if len(lines) == 0 {
		return nil
	}

	return &domain.Message{Lines: lines}
}

func (c *Composer) imagesAcknowledgement(ctx context.Context, plan Plan) *domain.Message {
	media := c.attachments.Next(ctx, MaxAttachments)

	authors := dedupe(c.attachments.Authors())
	if len(authors) == 0 {
		return nil
	}

	head := []string{
		"In total, " + strconv.Itoa(plan.ImageContributorCount) + " different " +
			plural(plan.ImageContributorCount, "contributor", "contributors") + " uploaded " +
			strconv.Itoa(plan.ImageCount) + " " + plural(plan.ImageCount, "image", "images") + ".",
		"The images in this thread were made by:",
	}

	var tail []string
	if plan.ShowThankYou {
		tail = append(tail, thankYouLine)
	}

	tail = append(tail, closingLine(plan))

	lines := head
	for _, author := range authors {
		candidate := append(append(append([]string{}, lines...), linePrefix+author), tail...)
		if !textutil.FitsPost(candidate) {
			break
		}

		lines = append(lines, linePrefix+author)
	}

	lines = append(lines, tail...)

	if media == nil {
		media = []string{}
	}

	return &domain.Message{Lines: lines, MediaIDs: media}
}

func closingLine(plan Plan) string {
	if plan.Days > 1 {
		return "These statistics cover the changes made from " + plan.DateLabel + "."
	}

	return "These statistics cover the changes made on " + plan.DateLabel + "."
}

func appendIfFits(lines []string, line string) []string {
	next := append(append([]string{}, lines...), line)
	if !textutil.FitsPost(next) {
		return lines
	}

	return next
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))

	for _, item := range items {
		if seen[item] {
			continue
		}

		seen[item] = true

		out = append(out, item)
	}

	return out
}

func plural(count int, singular, pluralForm string) string {
	if count == 1 {
		return singular
	}

	return pluralForm
}

func changeCount(r domain.ActivityRecord) (int, bool) {
	return r.Counters.Total(), true
}

func contributorKey(r domain.ActivityRecord) (string, bool) {
	return r.ContributorID, r.ContributorID != ""
}

func themeKey(r domain.ActivityRecord) (string, bool) {
	return r.Theme, r.Theme != ""
}
