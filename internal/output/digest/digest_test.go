package digest

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports/mocks"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/images"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/summary"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/config"
)

const testDate = "2024-05-01"

var testWindow = summary.Window{Label: testDate, Days: 1, EndsYesterday: true}

type fixture struct {
	identity    *mocks.IdentityResolver
	attribution *mocks.AttributionSource
	downloader  *mocks.Downloader
	publisher   *mocks.Publisher
	reports     *mocks.ReportSource
}

func newFixture() *fixture {
	return &fixture{
		identity:    mocks.NewIdentityResolver(),
		attribution: mocks.NewAttributionSource(),
		downloader:  mocks.NewDownloader(),
		publisher:   mocks.NewPublisher(),
		reports:     &mocks.ReportSource{Total: 7},
	}
}

func (f *fixture) builder(t *testing.T) *Builder {
	t.Helper()

	return New(Dependencies{
		Identity:    f.identity,
		Attribution: f.attribution,
		Downloader:  f.downloader,
		Publisher:   f.publisher,
		Reports:     f.reports,
	}, Options{
		ImageDir:            t.TempDir(),
		PrefetchConcurrency: 2,
		Rand:                rand.New(rand.NewSource(1)),
	}, nil)
}

func rec(id int64, uid, theme string, counters domain.Counters, imageURLs ...string) domain.ActivityRecord {
	return domain.ActivityRecord{
		ID:              id,
		ContributorID:   uid,
		ContributorName: "osm_" + uid,
		Theme:           theme,
		Counters:        counters,
		ImageURLs:       imageURLs,
	}
}

func TestFilterRecords(t *testing.T) {
	records := []domain.ActivityRecord{
		rec(1, "1", "trees", domain.Counters{Create: 1}),
		rec(2, "1", "https://example.org/custom.json", domain.Counters{Create: 1}),
		rec(3, "2", "benches", domain.Counters{Create: 1}),
		rec(4, "2", "http://example.org/other.json", domain.Counters{Create: 1}),
	}

	kept := FilterRecords(records, nil)
	require.Len(t, kept, 2)
	assert.Equal(t, int64(1), kept[0].ID)
	assert.Equal(t, int64(3), kept[1].ID)

	kept = FilterRecords(records, []string{"benches"})
	require.Len(t, kept, 1)
	assert.Equal(t, int64(3), kept[0].ID)
}

func TestThemeBonus(t *testing.T) {
	bonus := ThemeBonus(map[string]int{"trees": 5, "ghostsigns": 3})

	assert.Equal(t, 5, bonus["trees"])
	assert.Equal(t, 3, bonus["ghostsigns"])
	assert.Equal(t, 2, bonus["artwork"])
	assert.Equal(t, 2, images.DefaultThemeBonus()["trees"], "defaults are not modified")
}

func TestComputeStatistics(t *testing.T) {
	stats := ComputeStatistics([]domain.ActivityRecord{
		rec(1, "1", "trees", domain.Counters{Create: 2, Answer: 1}),
		rec(2, "2", "trees", domain.Counters{Create: 1, AddImage: 1}),
	})

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, "added 3 points, answered a question and uploaded an image", stats.SummaryText)
}

func TestRankImages_DoesNotModifyInput(t *testing.T) {
	candidates := []domain.ImageCandidate{
		{URL: "a1", ContributorID: "A"}, {URL: "a2", ContributorID: "A"}, {URL: "a3", ContributorID: "A"},
		{URL: "a4", ContributorID: "A"}, {URL: "a5", ContributorID: "A"}, {URL: "b1", ContributorID: "B"},
	}
	before := append([]domain.ImageCandidate(nil), candidates...)

	ranked := RankImages(candidates, map[string]int{}, rand.New(rand.NewSource(3)))

	assert.Equal(t, before, candidates)
	assert.ElementsMatch(t, candidates, ranked)
	assert.Contains(t, []string{ranked[0].URL, ranked[1].URL}, "b1")
}

func TestBuildDigest_NoBlocksPublishesNothing(t *testing.T) {
	f := newFixture()

	published, err := f.builder(t).BuildDigest(context.Background(), config.Action{Name: "quiet"}, []domain.ActivityRecord{
		rec(1, "1", "trees", domain.Counters{Create: 1}),
	}, testWindow)

	require.NoError(t, err)
	assert.Empty(t, published)
	assert.Empty(t, f.publisher.Published())
	assert.Empty(t, f.publisher.Uploads())
}

func TestBuildDigest_InvalidAction(t *testing.T) {
	f := newFixture()
	zero := 0

	_, err := f.builder(t).BuildDigest(context.Background(), config.Action{Name: "broken", NumberOfDays: &zero}, nil, testWindow)

	require.ErrorIs(t, err, coreerrors.ErrConfig)
	assert.Empty(t, f.publisher.Published())
}

func TestBuildDigest_Thread(t *testing.T) {
	f := newFixture()
	f.identity.SetHandle("1", "@alice@en.osm.town")
	f.attribution.Set("https://i.imgur.com/abc.jpg", domain.Attribution{
		Author: "Alice", License: "CC-BY-SA 4.0", DownloadURL: "https://i.imgur.com/abc.jpg",
	})

	records := []domain.ActivityRecord{
		rec(100, "1", "trees", domain.Counters{Create: 3, AddImage: 1}, "https://i.imgur.com/abc.jpg"),
		rec(101, "2", "benches", domain.Counters{Answer: 2}),
		rec(102, "3", "https://example.org/custom.json", domain.Counters{Create: 50}),
	}

	published, err := f.builder(t).BuildDigest(context.Background(), config.Action{
		Name:                "daily",
		ShowTopContributors: true,
		ShowTopThemes:       true,
		Visibility:          "unlisted",
		Report: &config.Report{
			OverpassQuery: "nwr[memorial=ghost_bike]",
			PostTemplate:  "{total} ghost bikes on {date}",
		},
	}, records, testWindow)

	require.NoError(t, err)
	require.Len(t, published, 4)

	posts := f.publisher.Published()
	require.Len(t, posts, 4)

	assert.Equal(t, "7 ghost bikes on "+testDate, posts[0].Text)
	assert.Equal(t, []string{"nwr[memorial=ghost_bike]"}, f.reports.Queries())

	for i, post := range posts {
		assert.Equal(t, domain.VisibilityUnlisted, post.Options.Visibility)

		if i > 0 {
			assert.Equal(t, posts[i-1].ID, post.Options.ReplyTo)
		}
	}

	uploads := f.publisher.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, []string{uploads[0].ID}, posts[0].Options.MediaIDs)
	assert.Equal(t,
		"Image taken by @alice@en.osm.town, available under CC-BY-SA 4.0. It is made with the thematic map trees in changeset https://openstreetmap.org/changeset/100",
		uploads[0].Description)
	assert.True(t, strings.HasSuffix(uploads[0].Path, "_abc.jpg"))

	assert.True(t, strings.HasPrefix(posts[1].Text, "Yesterday, 2 different persons made 6 changes"), posts[1].Text)
	assert.NotContains(t, posts[1].Text, "osm_3", "custom themes are filtered out")

	ack := posts[3].Text
	assert.Contains(t, ack, "In total, 1 different contributor uploaded 1 image.")
	assert.Contains(t, ack, "- @alice@en.osm.town")
	assert.Contains(t, ack, "Thank you all for contributing!")
}

func TestBuildDigest_BackfilledDayNamesTheDate(t *testing.T) {
	f := newFixture()

	_, err := f.builder(t).BuildDigest(context.Background(), config.Action{
		Name:                "backfill",
		ShowTopContributors: true,
	}, []domain.ActivityRecord{
		rec(1, "1", "trees", domain.Counters{Create: 2}),
	}, summary.Window{Label: "2024-04-20", Days: 1})

	require.NoError(t, err)

	posts := f.publisher.Published()
	require.Len(t, posts, 1)
	assert.True(t, strings.HasPrefix(posts[0].Text, "On 2024-04-20, one person made 2 changes"), posts[0].Text)
	assert.NotContains(t, posts[0].Text, "Yesterday")
}

func TestBuildDigest_UsesTemporaryDirWithoutImageDir(t *testing.T) {
	f := newFixture()

	b := New(Dependencies{
		Identity:    f.identity,
		Attribution: f.attribution,
		Downloader:  f.downloader,
		Publisher:   f.publisher,
	}, Options{Rand: rand.New(rand.NewSource(1))}, nil)

	_, err := b.BuildDigest(context.Background(), config.Action{Name: "images", ShowTopThemes: true}, []domain.ActivityRecord{
		rec(1, "1", "trees", domain.Counters{AddImage: 1}, "https://i.imgur.com/x.jpg"),
	}, testWindow)
	require.NoError(t, err)

	paths := f.downloader.Paths()
	require.Len(t, paths, 1)
	assert.NoFileExists(t, paths[0], "temporary images are removed after the digest")
}
