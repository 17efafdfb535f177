package osm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports/mocks"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/httpclient"
)

var errLookupDown = errors.New("lookup down")

type fakeAccounts struct {
	accounts map[string]domain.FediverseAccount
	err      error
}

func (f *fakeAccounts) LookupAccount(_ context.Context, acct string) (domain.FediverseAccount, error) {
	if f.err != nil {
		return domain.FediverseAccount{}, f.err
	}

	account, ok := f.accounts[acct]
	if !ok {
		return domain.FediverseAccount{}, coreerrors.ErrNotFound
	}

	return account, nil
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Dave</title>
    <description>Public posts. #nobot</description>
    <link>https://en.osm.town/@dave</link>
  </channel>
</rss>`

var users = map[string]string{
	"1": `{"user":{"id":1,"display_name":"alice","description":"<a rel=\"me\" href=\"https://en.osm.town/@alice\">m</a>"}}`,
	"2": `{"user":{"id":2,"display_name":"bob","description":"Please no bots #nobot"}}`,
	"3": `{"user":{"id":3,"display_name":"carol","description":"https://en.osm.town/@carol"}}`,
	"4": `{"user":{"id":4,"display_name":"dave","description":"https://en.osm.town/@dave"}}`,
	"5": `{"user":{"id":5,"display_name":"erin","description":"just mapping"}}`,
}

func newTestResolver(t *testing.T, accounts *fakeAccounts, calls *atomic.Int32) *Resolver {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if r.URL.Path == "/@dave.rss" {
			_, _ = w.Write([]byte(rssFeed))
			return
		}

		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/0.6/user/"), ".json")

		body, ok := users[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	hc := httpclient.New(httpclient.Config{Source: "osm", Retry: httpclient.RetryConfig{MaxRetries: -1}})

	var directory ports.AccountDirectory
	if accounts != nil {
		directory = accounts
	}

	r := New(Config{Backend: srv.URL}, hc, mocks.NewCache(), directory, nil)
	r.feedURL = func(user, _ string) string { return srv.URL + "/@" + user + ".rss" }

	return r
}

func TestResolver_HandleAndName(t *testing.T) {
	var calls atomic.Int32

	r := newTestResolver(t, &fakeAccounts{accounts: map[string]domain.FediverseAccount{
		"alice@en.osm.town": {Acct: "alice@en.osm.town", Note: "Mapper"},
	}}, &calls)

	ctx := context.Background()

	handle, ok, err := r.Handle(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "@alice@en.osm.town", handle)

	name, err := r.DisplayName(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	optOut, err := r.OptOut(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.OptOut{}, optOut)

	assert.Equal(t, int32(1), calls.Load(), "profile is memoized")
}

func TestResolver_OSMNoBotSuppressesAll(t *testing.T) {
	var calls atomic.Int32

	r := newTestResolver(t, &fakeAccounts{}, &calls)

	optOut, err := r.OptOut(context.Background(), "2")
	require.NoError(t, err)
	assert.True(t, optOut.SuppressAll)
}

func TestResolver_MastodonFieldSuppressesMention(t *testing.T) {
	var calls atomic.Int32

	r := newTestResolver(t, &fakeAccounts{accounts: map[string]domain.FediverseAccount{
		"carol@en.osm.town": {Fields: map[string]string{"nobot": "yes"}},
	}}, &calls)

	optOut, err := r.OptOut(context.Background(), "3")
	require.NoError(t, err)
	assert.False(t, optOut.SuppressAll)
	assert.True(t, optOut.SuppressMention)
}

func TestResolver_RSSFallback(t *testing.T) {
	var calls atomic.Int32

	r := newTestResolver(t, &fakeAccounts{err: errLookupDown}, &calls)

	optOut, err := r.OptOut(context.Background(), "4")
	require.NoError(t, err)
	assert.True(t, optOut.SuppressMention)
}

func TestResolver_UnreadableProfileSuppressesMention(t *testing.T) {
	var calls atomic.Int32

	r := newTestResolver(t, &fakeAccounts{err: errLookupDown}, &calls)

	// carol has no RSS feed on the test server.
	optOut, err := r.OptOut(context.Background(), "3")
	require.NoError(t, err)
	assert.True(t, optOut.SuppressMention)
}

func TestResolver_NoHandle(t *testing.T) {
	var calls atomic.Int32

	r := newTestResolver(t, nil, &calls)

	_, ok, err := r.Handle(context.Background(), "5")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_UnknownUser(t *testing.T) {
	var calls atomic.Int32

	r := newTestResolver(t, nil, &calls)

	name, err := r.DisplayName(context.Background(), "999")
	require.NoError(t, err)
	assert.Empty(t, name)

	_, err = r.DisplayName(context.Background(), "not-a-number")
	require.ErrorIs(t, err, coreerrors.ErrInvalidInput)
}

func TestResolver_ConcurrentLookupsShareRequest(t *testing.T) {
	var calls atomic.Int32

	r := newTestResolver(t, &fakeAccounts{accounts: map[string]domain.FediverseAccount{
		"alice@en.osm.town": {},
	}}, &calls)

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _, err := r.Handle(context.Background(), "1")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
