// Package mastodon publishes digest threads and uploads their images through the Mastodon
// REST API, using go-mastodon over the shared rate-limited transport.
//
// Posts are validated before any request: the Mastodon length must stay within 500 and a
// direct post must mention somebody. Violations are programming errors and wrap ErrPublish.
// In dry-run mode nothing is sent; posts are logged and fake ids are returned.
package mastodon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	gomastodon "github.com/mattn/go-mastodon"
	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/httpclient"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/textutil"
	db "github.com/lueurxax/mapcomplete-digest-bot/internal/storage"
)

const mentionMarker = "@"

// Config configures a Client.
type Config struct {
	Server      string
	AccessToken string
	DryRun      bool
	// AccountMaxAge bounds the age of cached account lookups.
	AccountMaxAge time.Duration
}

// Client implements ports.MediaPublisher and ports.AccountDirectory on top of
// go-mastodon. Requests go through the shared rate-limited transport.
type Client struct {
	server  string
	dryRun  bool
	maxAge  time.Duration
	api     *gomastodon.Client
	cache   ports.Cache
	logger  *zerolog.Logger
	dryRuns atomic.Int64
}

var (
	_ ports.MediaPublisher   = (*Client)(nil)
	_ ports.AccountDirectory = (*Client)(nil)
)

// New creates a Client.
func New(cfg Config, hc *httpclient.Client, cache ports.Cache, logger *zerolog.Logger) *Client {
	if cache == nil {
		cache = db.Noop{}
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	server := strings.TrimSuffix(cfg.Server, "/")

	api := gomastodon.NewClient(&gomastodon.Config{
		Server:      server,
		AccessToken: cfg.AccessToken,
	})
	api.Client = http.Client{
		Transport: hc.Transport(),
		Timeout:   hc.Timeout(),
	}

	return &Client{
		server: server,
		dryRun: cfg.DryRun,
		maxAge: cfg.AccountMaxAge,
		api:    api,
		cache:  cache,
		logger: logger,
	}
}

// Hostname returns the host of the publishing account's server.
func (c *Client) Hostname() string {
	u, err := url.Parse(c.server)
	if err != nil {
		return ""
	}

	return u.Hostname()
}

// Validate checks a post against the rules enforced before publishing.
func Validate(text string, opts domain.PostOptions) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %w: empty post", coreerrors.ErrPublish, coreerrors.ErrInvalidInput)
	}

	if length := textutil.MastodonLength(text); length > textutil.MaxPostLength {
		return fmt.Errorf("%w: %w: %d > %d", coreerrors.ErrPublish, coreerrors.ErrTextTooLong, length, textutil.MaxPostLength)
	}

	if opts.Visibility == domain.VisibilityDirect && !strings.Contains(text, mentionMarker) {
		return fmt.Errorf("%w: %w", coreerrors.ErrPublish, coreerrors.ErrDirectWithoutMention)
	}

	return nil
}

// Publish posts a status.
func (c *Client) Publish(ctx context.Context, text string, opts domain.PostOptions) (domain.PublishedMessage, error) {
	if err := Validate(text, opts); err != nil {
		c.logger.Error().Err(err).Msg("refusing to publish:\n" + textutil.Quote(text))
		return domain.PublishedMessage{}, err
	}

	visibility := opts.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}

	if c.dryRun {
		id := "dry-run-status-" + strconv.FormatInt(c.dryRuns.Add(1), 10)

		c.logger.Info().
			Str(LogFieldVisibility, string(visibility)).
			Str(LogFieldReplyTo, opts.ReplyTo).
			Strs(LogFieldMedia, opts.MediaIDs).
			Msg("dry run, not posting:\n" + textutil.Quote(text))

		return domain.PublishedMessage{ID: id}, nil
	}

	status, err := c.api.PostStatus(ctx, &gomastodon.Toot{
		Status:      text,
		InReplyToID: gomastodon.ID(opts.ReplyTo),
		MediaIDs:    mediaIDs(opts.MediaIDs),
		SpoilerText: opts.ContentWarning,
		Visibility:  string(visibility),
	})
	if err != nil {
		return domain.PublishedMessage{}, fmt.Errorf("post status: %w", err)
	}

	c.logger.Info().Str(LogFieldStatusURL, status.URL).Msg("posted:\n" + textutil.Quote(text))

	return domain.PublishedMessage{ID: string(status.ID), URL: status.URL}, nil
}

// Upload uploads a local image with its alt text and returns the media id.
func (c *Client) Upload(ctx context.Context, localPath, description string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("%w: %w", coreerrors.ErrUploadFailed, err)
	}

	if c.dryRun {
		c.logger.Info().Str(LogFieldPath, localPath).Msg("dry run, not uploading")
		return "dry-run-media-" + strconv.FormatInt(c.dryRuns.Add(1), 10), nil
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", coreerrors.ErrUploadFailed, err)
	}
	defer file.Close()

	attachment, err := c.api.UploadMediaFromMedia(ctx, &gomastodon.Media{
		File:        file,
		Description: description,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", coreerrors.ErrUploadFailed, err)
	}

	if attachment.ID == "" {
		return "", fmt.Errorf("%w: empty media id", coreerrors.ErrUploadFailed)
	}

	return string(attachment.ID), nil
}

// LookupAccount returns the public profile of acct ("user@host").
func (c *Client) LookupAccount(ctx context.Context, acct string) (domain.FediverseAccount, error) {
	if data, err := c.cache.Get(ctx, db.NamespaceMastodon, acct, c.maxAge); err == nil {
		var account domain.FediverseAccount
		if err := json.Unmarshal(data, &account); err == nil {
			return account, nil
		}
	} else if !errors.Is(err, coreerrors.ErrCacheNotFound) && !errors.Is(err, coreerrors.ErrCacheExpired) {
		c.logger.Warn().Err(err).Str(LogFieldAcct, acct).Msg("account cache lookup failed")
	}

	resp, err := c.api.AccountLookup(ctx, acct)
	if err != nil {
		return domain.FediverseAccount{}, fmt.Errorf("lookup account %s: %w", acct, err)
	}

	account := toDomainAccount(resp)

	if data, err := json.Marshal(account); err == nil {
		if err := c.cache.Put(ctx, db.NamespaceMastodon, acct, data); err != nil {
			c.logger.Warn().Err(err).Str(LogFieldAcct, acct).Msg("could not cache account")
		}
	}

	return account, nil
}

func mediaIDs(ids []string) []gomastodon.ID {
	if len(ids) == 0 {
		return nil
	}

	out := make([]gomastodon.ID, len(ids))
	for i, id := range ids {
		out[i] = gomastodon.ID(id)
	}

	return out
}
