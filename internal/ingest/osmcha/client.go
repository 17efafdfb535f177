// Package osmcha fetches the changesets made with MapComplete from the OSMCha API.
package osmcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/httpclient"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/observability"
	db "github.com/lueurxax/mapcomplete-digest-bot/internal/storage"
)

const (
	dateLayout    = "2006-01-02"
	pageSize      = 100
	commentFilter = "#mapcomplete"
	maxPages      = 500

	keyMetadata   = "metadata"
	keyUID        = "uid"
	keyUser       = "user"
	keyTheme      = "theme"
	keyTagChanges = "tag_changes"

	sourceLabel = "osmcha"
)

// counterKeys maps the changeset properties onto the record counters.
var counterKeys = map[string]func(*domain.Counters) *int{
	"create":                func(c *domain.Counters) *int { return &c.Create },
	"move":                  func(c *domain.Counters) *int { return &c.Move },
	"delete":                func(c *domain.Counters) *int { return &c.Delete },
	"answer":                func(c *domain.Counters) *int { return &c.Answer },
	"add-image":             func(c *domain.Counters) *int { return &c.AddImage },
	"plantnet-ai-detection": func(c *domain.Counters) *int { return &c.AIDetect },
	"link-image":            func(c *domain.Counters) *int { return &c.LinkImage },
}

// imageTagPrefixes select the tags whose values are contributed images.
var imageTagPrefixes = []string{"image", "panoramax"}

// Client implements ports.ActivitySource.
type Client struct {
	baseURL string
	token   string
	http    *httpclient.Client
	cache   ports.Cache
	maxAge  time.Duration
	now     func() time.Time
	logger  *zerolog.Logger
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	// CacheMaxAge bounds the age of cached days; <= 0 accepts any age.
	CacheMaxAge time.Duration
}

// New creates a Client. cache may be db.Noop{} when caching is disabled.
func New(cfg Config, hc *httpclient.Client, cache ports.Cache, logger *zerolog.Logger) *Client {
	if cache == nil {
		cache = db.Noop{}
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    hc,
		cache:   cache,
		maxAge:  cfg.CacheMaxAge,
		now:     time.Now,
		logger:  logger,
	}
}

var _ ports.ActivitySource = (*Client)(nil)

// FetchDay returns every MapComplete changeset of one UTC day. Records without a theme or
// contributor are dropped. Completed days are cached.
func (c *Client) FetchDay(ctx context.Context, year int, month time.Month, day int) ([]domain.ActivityRecord, error) {
	start := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	key := start.Format(dateLayout)

	logger := c.logger.With().Str(LogFieldDay, key).Logger()

	if records, ok := c.fromCache(ctx, key, &logger); ok {
		return records, nil
	}

	records, err := c.download(ctx, start, end, &logger)
	if err != nil {
		return nil, err
	}

	observability.RecordsFetched.WithLabelValues(sourceLabel).Add(float64(len(records)))

	if !c.now().Before(end) {
		c.toCache(ctx, key, records, &logger)
	}

	return records, nil
}

func (c *Client) fromCache(ctx context.Context, key string, logger *zerolog.Logger) ([]domain.ActivityRecord, bool) {
	data, err := c.cache.Get(ctx, db.NamespaceChangesets, key, c.maxAge)
	if err != nil {
		if !errors.Is(err, coreerrors.ErrCacheNotFound) && !errors.Is(err, coreerrors.ErrCacheExpired) {
			logger.Warn().Err(err).Msg("changeset cache lookup failed")
		}

		return nil, false
	}

	var records []domain.ActivityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn().Err(err).Msg("dropping unreadable cached changesets")

		if err := c.cache.Delete(ctx, db.NamespaceChangesets, key); err != nil {
			logger.Warn().Err(err).Msg("could not drop cached changesets")
		}

		return nil, false
	}

	logger.Debug().Int(LogFieldCount, len(records)).Msg("changesets served from cache")

	return records, true
}

func (c *Client) toCache(ctx context.Context, key string, records []domain.ActivityRecord, logger *zerolog.Logger) {
	data, err := json.Marshal(records)
	if err != nil {
		logger.Warn().Err(err).Msg("could not encode changesets for the cache")
		return
	}

	if err := c.cache.Put(ctx, db.NamespaceChangesets, key, data); err != nil {
		logger.Warn().Err(err).Msg("could not cache changesets")
	}
}

func (c *Client) download(ctx context.Context, start, end time.Time, logger *zerolog.Logger) ([]domain.ActivityRecord, error) {
	next := c.firstPageURL(start, end)

	var records []domain.ActivityRecord

	headers := map[string]string{}
	if c.token != "" {
		headers["Authorization"] = "Token " + c.token
	}

	for pages := 0; next != ""; pages++ {
		if pages >= maxPages {
			return nil, fmt.Errorf("%w: osmcha: more than %d pages", coreerrors.ErrTransientFetch, maxPages)
		}

		var p page
		if err := c.http.GetJSON(ctx, next, headers, &p); err != nil {
			return nil, fmt.Errorf("fetch changesets page %d: %w", pages+1, err)
		}

		if p.Features == nil {
			return nil, fmt.Errorf("%w: osmcha: page %d has no features", coreerrors.ErrTransientFetch, pages+1)
		}

		for _, f := range p.Features {
			if record, ok := toRecord(f); ok {
				records = append(records, record)
			}
		}

		next = ""
		if p.Next != nil {
			next = *p.Next
		}

		logger.Debug().Int(LogFieldPage, pages+1).Int(LogFieldCount, len(records)).Msg("fetched changesets page")
	}

	return records, nil
}

func (c *Client) firstPageURL(start, end time.Time) string {
	q := url.Values{}
	q.Set("date__gte", start.Format(dateLayout))
	q.Set("date__lte", end.Format(dateLayout))
	q.Set("comment", commentFilter)
	q.Set("page_size", strconv.Itoa(pageSize))
	q.Set("page", "1")

	return strings.TrimSuffix(c.baseURL, "?") + "?" + q.Encode()
}

func toRecord(f feature) (domain.ActivityRecord, bool) {
	props := f.flatten()

	record := domain.ActivityRecord{
		ID:              f.ID,
		ContributorID:   stringValue(props[keyUID]),
		ContributorName: stringValue(props[keyUser]),
		Theme:           stringValue(props[keyTheme]),
	}

	if record.ContributorID == "" || record.Theme == "" {
		return domain.ActivityRecord{}, false
	}

	for key, field := range counterKeys {
		*field(&record.Counters) = intValue(props[key])
	}

	record.ImageURLs = imageURLs(tagChanges(props[keyTagChanges]))

	return record, true
}

// imageURLs lists the image values of the image tags, ordered by tag key for stable output.
func imageURLs(changes map[string][]string) []string {
	keys := make([]string, 0, len(changes))

	for key := range changes {
		for _, prefix := range imageTagPrefixes {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
				break
			}
		}
	}

	sort.Strings(keys)

	var urls []string

	for _, key := range keys {
		for _, v := range changes[key] {
			if v = strings.TrimSpace(v); v != "" {
				urls = append(urls, v)
			}
		}
	}

	return urls
}

// FetchWindow fetches the days ending with end (inclusive), oldest first.
func FetchWindow(ctx context.Context, source ports.ActivitySource, end time.Time, days int) ([]domain.ActivityRecord, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: window of %d days", coreerrors.ErrInvalidInput, days)
	}

	var records []domain.ActivityRecord

	for offset := days - 1; offset >= 0; offset-- {
		day := end.AddDate(0, 0, -offset)

		dayRecords, err := source.FetchDay(ctx, day.Year(), day.Month(), day.Day())
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", day.Format(dateLayout), err)
		}

		records = append(records, dayRecords...)
	}

	return records, nil
}
