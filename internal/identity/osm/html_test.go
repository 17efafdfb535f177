package osm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindHandle(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
		ok          bool
	}{
		{
			name:        "rel me link",
			description: `<p>Mapper. <a href="https://example.org">site</a> <a rel="me nofollow" href="https://en.osm.town/@alice">mastodon</a></p>`,
			want:        "@alice@en.osm.town",
			ok:          true,
		},
		{
			name:        "first rel me wins",
			description: `<a rel="me" href="https://mapstodon.space/@bob">a</a><a rel="me" href="https://en.osm.town/@bob2">b</a>`,
			want:        "@bob@mapstodon.space",
			ok:          true,
		},
		{
			name:        "plain url fallback",
			description: "Find me at https://en.osm.town/@carol_m for questions",
			want:        "@carol_m@en.osm.town",
			ok:          true,
		},
		{
			name:        "no handle",
			description: "I map trees <a href=\"https://example.org\">here</a>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findHandle(tt.description)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleFromProfileURL(t *testing.T) {
	got, ok := handleFromProfileURL("https://en.osm.town/@alice/")
	assert.True(t, ok)
	assert.Equal(t, "@alice@en.osm.town", got)

	_, ok = handleFromProfileURL("https://en.osm.town/users/alice/statuses")
	assert.False(t, ok)

	_, ok = handleFromProfileURL("not a url")
	assert.False(t, ok)
}

func TestHasNoBotTag(t *testing.T) {
	assert.True(t, hasNoBotTag("I map benches #nobot"))
	assert.True(t, hasNoBotTag("#No-MapComplete-Bot please"))
	assert.True(t, hasNoBotTag(`<p>Hi <a href="https://en.osm.town/tags/nobot" class="mention hashtag" rel="tag">#<span>nobot</span></a></p>`))
	assert.True(t, hasNoBotTag("tags: #nobot."))
	assert.False(t, hasNoBotTag("#nobots are fine"))
	assert.False(t, hasNoBotTag(""))
}

func TestFieldSaysNoBot(t *testing.T) {
	assert.True(t, fieldSaysNoBot(map[string]string{"nobot": "yes"}))
	assert.True(t, fieldSaysNoBot(map[string]string{"NoBot": " True "}))
	assert.False(t, fieldSaysNoBot(map[string]string{"nobot": "no"}))
	assert.False(t, fieldSaysNoBot(map[string]string{"website": "yes"}))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "first second #nobot", plainText("<p>first</p><p>second #<span>nobot</span></p>"))
}
