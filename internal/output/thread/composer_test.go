package thread

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports/mocks"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/summary"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/textutil"
)

const testDate = "2024-05-01"

var errOverpassDown = errors.New("overpass down")

// fakeAttachments hands out a fixed list of media ids, each with an author.
type fakeAttachments struct {
	ids     []string
	authors []string
	handed  int
}

func (f *fakeAttachments) Next(_ context.Context, max int) []string {
	end := f.handed + max
	if end > len(f.ids) {
		end = len(f.ids)
	}

	out := f.ids[f.handed:end]
	f.handed = end

	return out
}

func (f *fakeAttachments) Authors() []string {
	return f.authors[:f.handed]
}

func newTestComposer(identity *mocks.IdentityResolver, publisher *mocks.Publisher, reports *mocks.ReportSource, attachments Attachments) *Composer {
	s := summary.New(identity, summary.DefaultNouns(), nil)

	var rs ports.ReportSource
	if reports != nil {
		rs = reports
	}

	return New(s, identity, publisher, rs, attachments, nil)
}

func record(uid, theme string, counters domain.Counters) domain.ActivityRecord {
	return domain.ActivityRecord{ContributorID: uid, ContributorName: "osm_" + uid, Theme: theme, Counters: counters}
}

func TestRun_NoBlocksEnabled(t *testing.T) {
	publisher := mocks.NewPublisher()
	c := newTestComposer(mocks.NewIdentityResolver(), publisher, nil, &fakeAttachments{})

	published, err := c.Run(context.Background(), Plan{
		Records:   []domain.ActivityRecord{record("1", "trees", domain.Counters{Create: 1})},
		DateLabel: testDate,
		Days:      1,
	})

	require.NoError(t, err)
	assert.Empty(t, published)
	assert.Empty(t, publisher.Published())
}

func TestRun_FullThread(t *testing.T) {
	identity := mocks.NewIdentityResolver()
	identity.SetHandle("1", "@alice@en.osm.town")
	identity.SetName("2", "Bob")

	publisher := mocks.NewPublisher()
	reports := &mocks.ReportSource{Total: 42}
	attachments := &fakeAttachments{
		ids:     []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8", "m9", "m10"},
		authors: []string{"a", "b", "a", "c", "d", "e", "f", "g", "h", "b"},
	}

	c := newTestComposer(identity, publisher, reports, attachments)

	published, err := c.Run(context.Background(), Plan{
		Records: []domain.ActivityRecord{
			record("1", "trees", domain.Counters{Create: 3}),
			record("2", "benches", domain.Counters{Answer: 1}),
			record("1", "benches", domain.Counters{Move: 1}),
		},
		DateLabel:             testDate,
		Days:                  1,
		EndsYesterday:         true,
		ShowTopContributors:   true,
		ShowTopThemes:         true,
		ShowThankYou:          true,
		Visibility:            domain.VisibilityPublic,
		Report:                &Report{OverpassQuery: "nwr[memorial=ghost_bike]", PostTemplate: "There are {total} ghost bikes on {date}"},
		ImageCount:            10,
		ImageContributorCount: 8,
	})

	require.NoError(t, err)
	require.Len(t, published, 4)

	posts := publisher.Published()
	require.Len(t, posts, 4)

	assert.Equal(t, "There are 42 ghost bikes on "+testDate, posts[0].Text)
	assert.Empty(t, posts[0].Options.ReplyTo)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, posts[0].Options.MediaIDs)

	assert.Equal(t, strings.Join([]string{
		"Yesterday, 2 different persons made 5 changes to #OpenStreetMap using https://mapcomplete.org/ .",
		"- @alice@en.osm.town added 3 points and moved a point with the thematic maps trees and benches",
		"- Bob answered a question with the thematic map benches",
	}, "\n"), posts[1].Text)
	assert.Equal(t, posts[0].ID, posts[1].Options.ReplyTo)
	assert.Equal(t, []string{"m5", "m6", "m7", "m8"}, posts[1].Options.MediaIDs)

	assert.Equal(t, strings.Join([]string{
		"- a contributor added 3 points on https://mapcomplete.org/trees",
		"- 2 contributors answered a question and moved a point on https://mapcomplete.org/benches",
	}, "\n"), posts[2].Text)
	assert.Equal(t, posts[1].ID, posts[2].Options.ReplyTo)
	assert.Equal(t, []string{"m9", "m10"}, posts[2].Options.MediaIDs)

	assert.Equal(t, posts[2].ID, posts[3].Options.ReplyTo)
	assert.Empty(t, posts[3].Options.MediaIDs)
	assert.Equal(t, strings.Join([]string{
		"In total, 8 different contributors uploaded 10 images.",
		"The images in this thread were made by:",
		"- a", "- b", "- c", "- d", "- e", "- f", "- g", "- h",
		thankYouLine,
		"These statistics cover the changes made on " + testDate + ".",
	}, "\n"), posts[3].Text)

	assert.Equal(t, []string{"nwr[memorial=ghost_bike]"}, reports.Queries())
}

func TestRun_ReportFailureAbortsThread(t *testing.T) {
	publisher := mocks.NewPublisher()
	c := newTestComposer(mocks.NewIdentityResolver(), publisher, &mocks.ReportSource{Err: errOverpassDown}, &fakeAttachments{})

	_, err := c.Run(context.Background(), Plan{
		Records:             []domain.ActivityRecord{record("1", "trees", domain.Counters{Create: 1})},
		ShowTopContributors: true,
		Report:              &Report{OverpassQuery: "q", PostTemplate: "{total}"},
	})

	require.ErrorIs(t, err, errOverpassDown)
	assert.Empty(t, publisher.Published())
}

func TestRun_ContributorsRespectLengthBudget(t *testing.T) {
	var records []domain.ActivityRecord
	for i := 0; i < 80; i++ {
		uid := strconv.Itoa(i)
		records = append(records, record(uid, "theme_with_a_rather_long_name_"+uid, domain.Counters{Create: 100 - i}))
	}

	publisher := mocks.NewPublisher()
	c := newTestComposer(mocks.NewIdentityResolver(), publisher, nil, &fakeAttachments{})

	_, err := c.Run(context.Background(), Plan{
		Records:             records,
		Days:                1,
		ShowTopContributors: true,
		ShowTopThemes:       true,
	})

	require.NoError(t, err)

	posts := publisher.Published()
	require.Len(t, posts, 2)

	for _, p := range posts {
		assert.LessOrEqual(t, textutil.MastodonLength(p.Text), textutil.MaxPostLength)
	}

	lines := strings.Split(posts[0].Text, "\n")
	assert.Greater(t, len(lines), 2)
	assert.Less(t, len(lines), 81)
	// Highest weight first.
	assert.True(t, strings.HasPrefix(lines[1], "- osm_0 "))
}

func TestRun_SkipsOptedOutAndFailingContributors(t *testing.T) {
	identity := mocks.NewIdentityResolver()
	identity.SetOptOut("1", domain.OptOut{SuppressAll: true})
	identity.SetFailure("2", errOverpassDown)

	publisher := mocks.NewPublisher()
	c := newTestComposer(identity, publisher, nil, &fakeAttachments{})

	_, err := c.Run(context.Background(), Plan{
		Records: []domain.ActivityRecord{
			record("1", "trees", domain.Counters{Create: 5}),
			record("2", "trees", domain.Counters{Create: 4}),
			record("3", "trees", domain.Counters{Create: 3}),
		},
		Days:                1,
		ShowTopContributors: true,
	})

	require.NoError(t, err)

	posts := publisher.Published()
	require.Len(t, posts, 1)
	assert.NotContains(t, posts[0].Text, "osm_1")
	assert.NotContains(t, posts[0].Text, "osm_2")
	assert.Contains(t, posts[0].Text, "- osm_3 added 3 points with the thematic map trees")
}

func TestRun_NoisyThemeGrouped(t *testing.T) {
	publisher := mocks.NewPublisher()
	c := newTestComposer(mocks.NewIdentityResolver(), publisher, nil, &fakeAttachments{})

	records := []domain.ActivityRecord{
		record("1", "trees", domain.Counters{Create: 10}),
		record("1", "etymology", domain.Counters{Answer: 1}),
	}
	for i := 2; i <= 6; i++ {
		records = append(records, record(strconv.Itoa(i), "etymology", domain.Counters{Answer: 2}))
	}

	_, err := c.Run(context.Background(), Plan{
		Records:             records,
		Days:                1,
		ShowTopContributors: true,
		NoisyTheme:          "etymology",
	})

	require.NoError(t, err)

	posts := publisher.Published()
	require.Len(t, posts, 1)

	lines := strings.Split(posts[0].Text, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "- osm_2, osm_3, osm_4 and 2 others answered 10 questions with the thematic map etymology", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "- osm_1 added 10 points and answered a question"))
}

func TestRun_SingleNoisyContributorNotGrouped(t *testing.T) {
	publisher := mocks.NewPublisher()
	c := newTestComposer(mocks.NewIdentityResolver(), publisher, nil, &fakeAttachments{})

	_, err := c.Run(context.Background(), Plan{
		Records: []domain.ActivityRecord{
			record("1", "etymology", domain.Counters{Answer: 3}),
			record("2", "trees", domain.Counters{Create: 1}),
		},
		Days:                1,
		ShowTopContributors: true,
		NoisyTheme:          "etymology",
	})

	require.NoError(t, err)

	posts := publisher.Published()
	require.Len(t, posts, 1)
	assert.Contains(t, posts[0].Text, "- osm_1 answered 3 questions with the thematic map etymology")
}

func TestRun_AcknowledgementWithoutThankYouForWindow(t *testing.T) {
	publisher := mocks.NewPublisher()
	attachments := &fakeAttachments{ids: []string{"m1"}, authors: []string{"@alice@en.osm.town"}}
	c := newTestComposer(mocks.NewIdentityResolver(), publisher, nil, attachments)

	_, err := c.Run(context.Background(), Plan{
		DateLabel:             "2024-04-25 until 2024-05-01",
		Days:                  7,
		ImageCount:            1,
		ImageContributorCount: 1,
	})

	require.NoError(t, err)

	posts := publisher.Published()
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"m1"}, posts[0].Options.MediaIDs)
	assert.NotContains(t, posts[0].Text, thankYouLine)
	assert.Contains(t, posts[0].Text, "In total, 1 different contributor uploaded 1 image.")
	assert.Contains(t, posts[0].Text, "from 2024-04-25 until 2024-05-01.")
}

func TestState_Order(t *testing.T) {
	var visited []State
	for s := StateLeadReport; s != StateDone; s = s.next() {
		visited = append(visited, s)
	}

	assert.Equal(t, []State{StateLeadReport, StateContributors, StateThemes, StateImagesAcknowledgement}, visited)
	assert.Equal(t, StateDone, StateDone.next())
	assert.Equal(t, "themes", StateThemes.String())
}
