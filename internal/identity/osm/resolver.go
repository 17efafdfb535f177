// Package osm resolves OpenStreetMap contributors to display names, fediverse handles and
// opt-out flags.
//
// The handle comes from the contributor's OSM profile description. Opt-outs are read from
// the OSM description (#nobot: leave the contributor out entirely) and from the linked
// Mastodon account (#nobot in the bio or a nobot=yes field: name them without mentioning).
package osm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/httpclient"
	db "github.com/lueurxax/mapcomplete-digest-bot/internal/storage"
)

type userInfo struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
}

type userResponse struct {
	User userInfo `json:"user"`
}

type profile struct {
	name      string
	handle    string
	hasHandle bool
	optOut    domain.OptOut
}

// Config configures a Resolver.
type Config struct {
	// Backend is the OSM website, e.g. https://www.openstreetmap.org/.
	Backend string
	// UserInfoMaxAge bounds the age of cached user info.
	UserInfoMaxAge time.Duration
}

// Resolver implements ports.IdentityResolver. Results are memoized for the life of the
// process; concurrent lookups of one contributor share a single request.
type Resolver struct {
	backend  string
	maxAge   time.Duration
	http     *httpclient.Client
	cache    ports.Cache
	accounts ports.AccountDirectory
	feeds    *gofeed.Parser
	feedURL  func(user, host string) string
	logger   *zerolog.Logger

	mu    sync.RWMutex
	memo  map[string]profile
	group singleflight.Group
}

var _ ports.IdentityResolver = (*Resolver)(nil)

// New creates a Resolver. accounts may be nil, in which case only the RSS feed of the
// Mastodon account is consulted.
func New(cfg Config, hc *httpclient.Client, cache ports.Cache, accounts ports.AccountDirectory, logger *zerolog.Logger) *Resolver {
	if cache == nil {
		cache = db.Noop{}
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	backend := cfg.Backend
	if !strings.HasSuffix(backend, "/") {
		backend += "/"
	}

	return &Resolver{
		backend:  backend,
		maxAge:   cfg.UserInfoMaxAge,
		http:     hc,
		cache:    cache,
		accounts: accounts,
		feeds:    gofeed.NewParser(),
		feedURL:  defaultFeedURL,
		logger:   logger,
		memo:     make(map[string]profile),
	}
}

// DisplayName returns the OSM display name; empty when the user is unknown.
func (r *Resolver) DisplayName(ctx context.Context, contributorID string) (string, error) {
	p, err := r.resolve(ctx, contributorID)
	if err != nil {
		return "", err
	}

	return p.name, nil
}

// Handle returns the fediverse mention of the contributor, e.g. "@alice@en.osm.town".
func (r *Resolver) Handle(ctx context.Context, contributorID string) (string, bool, error) {
	p, err := r.resolve(ctx, contributorID)
	if err != nil {
		return "", false, err
	}

	return p.handle, p.hasHandle, nil
}

// OptOut returns the opt-out flags of the contributor.
func (r *Resolver) OptOut(ctx context.Context, contributorID string) (domain.OptOut, error) {
	p, err := r.resolve(ctx, contributorID)
	if err != nil {
		return domain.OptOut{}, err
	}

	return p.optOut, nil
}

func (r *Resolver) resolve(ctx context.Context, contributorID string) (profile, error) {
	r.mu.RLock()
	p, ok := r.memo[contributorID]
	r.mu.RUnlock()

	if ok {
		return p, nil
	}

	v, err, _ := r.group.Do(contributorID, func() (interface{}, error) {
		r.mu.RLock()
		cached, ok := r.memo[contributorID]
		r.mu.RUnlock()

		if ok {
			return cached, nil
		}

		p, err := r.load(ctx, contributorID)
		if err != nil {
			return profile{}, err
		}

		r.mu.Lock()
		r.memo[contributorID] = p
		r.mu.Unlock()

		return p, nil
	})
	if err != nil {
		return profile{}, err
	}

	return v.(profile), nil
}

func (r *Resolver) load(ctx context.Context, contributorID string) (profile, error) {
	if _, err := strconv.ParseInt(contributorID, 10, 64); err != nil {
		return profile{}, fmt.Errorf("%w: contributor id %q", coreerrors.ErrInvalidInput, contributorID)
	}

	logger := r.logger.With().Str(LogFieldContributor, contributorID).Logger()

	info, err := r.userInfo(ctx, contributorID, &logger)
	if errors.Is(err, coreerrors.ErrNotFound) {
		logger.Debug().Msg("contributor not found on OSM")
		return profile{}, nil
	}

	if err != nil {
		return profile{}, err
	}

	p := profile{
		name:   info.DisplayName,
		optOut: domain.OptOut{SuppressAll: hasNoBotTag(info.Description)},
	}

	p.handle, p.hasHandle = findHandle(info.Description)

	if p.hasHandle && !p.optOut.SuppressAll {
		p.optOut.SuppressMention = r.mentionSuppressed(ctx, p.handle, &logger)
	}

	return p, nil
}

func (r *Resolver) userInfo(ctx context.Context, contributorID string, logger *zerolog.Logger) (userInfo, error) {
	if data, err := r.cache.Get(ctx, db.NamespaceUserInfo, contributorID, r.maxAge); err == nil {
		var info userInfo
		if err := json.Unmarshal(data, &info); err == nil {
			return info, nil
		}

		logger.Warn().Msg("dropping unreadable cached user info")
		_ = r.cache.Delete(ctx, db.NamespaceUserInfo, contributorID)
	}

	var resp userResponse

	url := r.backend + "api/0.6/user/" + contributorID + ".json"
	if err := r.http.GetJSON(ctx, url, nil, &resp); err != nil {
		return userInfo{}, fmt.Errorf("lookup user %s: %w", contributorID, err)
	}

	if data, err := json.Marshal(resp.User); err == nil {
		if err := r.cache.Put(ctx, db.NamespaceUserInfo, contributorID, data); err != nil {
			logger.Warn().Err(err).Msg("could not cache user info")
		}
	}

	return resp.User, nil
}

// mentionSuppressed checks the Mastodon account behind handle for a nobot marker. When the
// account cannot be read at all the mention is suppressed.
func (r *Resolver) mentionSuppressed(ctx context.Context, handle string, logger *zerolog.Logger) bool {
	acct := strings.TrimPrefix(handle, "@")

	if r.accounts != nil {
		account, err := r.accounts.LookupAccount(ctx, acct)
		if err == nil {
			return hasNoBotTag(account.Note) || fieldSaysNoBot(account.Fields)
		}

		logger.Debug().Err(err).Str(LogFieldAcct, acct).Msg("account lookup failed, trying the RSS feed")
	}

	bio, err := r.feedBio(ctx, acct)
	if err != nil {
		logger.Warn().Err(err).Str(LogFieldAcct, acct).Msg("could not read Mastodon profile, not mentioning")
		return true
	}

	return hasNoBotTag(bio)
}

// feedBio reads the account bio from the public RSS feed of user@host.
func (r *Resolver) feedBio(ctx context.Context, acct string) (string, error) {
	user, host, ok := strings.Cut(acct, "@")
	if !ok || user == "" || host == "" {
		return "", fmt.Errorf("%w: account %q", coreerrors.ErrInvalidInput, acct)
	}

	body, err := r.http.Get(ctx, r.feedURL(user, host), nil)
	if err != nil {
		return "", fmt.Errorf("fetch feed of %s: %w", acct, err)
	}

	feed, err := r.feeds.ParseString(string(body))
	if err != nil {
		return "", fmt.Errorf("parse feed of %s: %w", acct, err)
	}

	return feed.Description, nil
}

func defaultFeedURL(user, host string) string {
	return "https://" + host + "/@" + user + ".rss"
}
