package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports/mocks"
)

const (
	testHandle = "@alice@en.osm.town"
	testUID    = "1"
)

var errLookupFailed = errors.New("lookup failed")

func TestContributorSummary(t *testing.T) {
	identity := mocks.NewIdentityResolver()
	identity.SetHandle(testUID, testHandle)

	s := New(identity, DefaultNouns(), nil)
	records := []domain.ActivityRecord{
		{ContributorID: testUID, Theme: "trees", Counters: domain.Counters{Create: 2}},
		{ContributorID: testUID, Theme: "benches", Counters: domain.Counters{Answer: 1}},
		{ContributorID: testUID, Theme: "trees", Counters: domain.Counters{Move: 1}},
	}

	t.Run("several themes", func(t *testing.T) {
		got, err := s.ContributorSummary(context.Background(), testUID, records, 0)
		require.NoError(t, err)
		assert.Equal(t, testHandle+" added 2 points, answered a question and moved a point with the thematic maps trees and benches", got)
	})

	t.Run("single theme", func(t *testing.T) {
		got, err := s.ContributorSummary(context.Background(), testUID, records[:1], 0)
		require.NoError(t, err)
		assert.Equal(t, testHandle+" added 2 points with the thematic map trees", got)
	})

	t.Run("whitelist of one omits the theme clause", func(t *testing.T) {
		got, err := s.ContributorSummary(context.Background(), testUID, records, 1)
		require.NoError(t, err)
		assert.NotContains(t, got, "thematic map")
		assert.Equal(t, testHandle+" added 2 points, answered a question and moved a point", got)
	})
}

func TestContributorName(t *testing.T) {
	identity := mocks.NewIdentityResolver()
	identity.SetHandle("1", testHandle)
	identity.SetName("1", "Alice")
	identity.SetHandle("2", "@bob@mapstodon.space")
	identity.SetName("2", "Bob")
	identity.SetOptOut("2", domain.OptOut{SuppressMention: true})
	identity.SetName("3", "Carol")
	identity.SetFailure("4", errLookupFailed)

	s := New(identity, DefaultNouns(), nil)
	ctx := context.Background()

	name, err := s.ContributorName(ctx, "1", "alice_osm")
	require.NoError(t, err)
	assert.Equal(t, testHandle, name)

	name, err = s.ContributorName(ctx, "2", "bob_osm")
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)

	name, err = s.ContributorName(ctx, "3", "carol_osm")
	require.NoError(t, err)
	assert.Equal(t, "Carol", name)

	name, err = s.ContributorName(ctx, "5", "dave_osm")
	require.NoError(t, err)
	assert.Equal(t, "dave_osm", name)

	_, err = s.ContributorName(ctx, "4", "eve_osm")
	assert.ErrorIs(t, err, coreerrors.ErrFormatterSkip)
	assert.ErrorIs(t, err, errLookupFailed)

	_, err = s.ContributorName(ctx, "6", "")
	assert.ErrorIs(t, err, coreerrors.ErrFormatterSkip)
}

func TestContributorSummary_NoCountableChanges(t *testing.T) {
	s := New(mocks.NewIdentityResolver(), DefaultNouns(), nil)

	_, err := s.ContributorSummary(context.Background(), testUID, []domain.ActivityRecord{{ContributorID: testUID, Theme: "trees"}}, 0)

	assert.ErrorIs(t, err, coreerrors.ErrFormatterSkip)
}

func TestThemeSummary(t *testing.T) {
	s := New(mocks.NewIdentityResolver(), DefaultNouns(), nil)

	one := s.ThemeSummary("trees", []domain.ActivityRecord{
		{ContributorID: "1", Counters: domain.Counters{Create: 1}},
		{ContributorID: "1", Counters: domain.Counters{Create: 1}},
	})
	assert.Equal(t, "a contributor added 2 points on https://mapcomplete.org/trees", one)

	many := s.ThemeSummary("aed", []domain.ActivityRecord{
		{ContributorID: "1", Counters: domain.Counters{Answer: 3}},
		{ContributorID: "2", Counters: domain.Counters{AddImage: 1}},
	})
	assert.Equal(t, "2 contributors answered 3 questions and uploaded an image on https://mapcomplete.org/aed", many)
}

func TestGroupSummary(t *testing.T) {
	s := New(mocks.NewIdentityResolver(), DefaultNouns(), nil)
	records := []domain.ActivityRecord{{Counters: domain.Counters{Answer: 40}}}

	t.Run("up to three names", func(t *testing.T) {
		got := s.GroupSummary([]string{"A", "B"}, 0, "etymology", records)
		assert.Equal(t, "A and B answered 40 questions with the thematic map etymology", got)
	})

	t.Run("more than three names", func(t *testing.T) {
		got := s.GroupSummary([]string{"A", "B", "C", "D", "E"}, 0, "etymology", records)
		assert.Equal(t, "A, B, C and 2 others answered 40 questions with the thematic map etymology", got)
	})

	t.Run("hidden contributors count as others", func(t *testing.T) {
		got := s.GroupSummary([]string{"A"}, 1, "etymology", records)
		assert.Equal(t, "A and 1 other answered 40 questions with the thematic map etymology", got)
	})
}
