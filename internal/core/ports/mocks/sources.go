package mocks

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
)

// ActivitySource is a thread-safe in-memory implementation of ports.ActivitySource.
type ActivitySource struct {
	mu   sync.RWMutex
	days map[string][]domain.ActivityRecord

	// FetchDayFn allows overriding FetchDay behavior.
	FetchDayFn func(ctx context.Context, year int, month time.Month, day int) ([]domain.ActivityRecord, error)
}

// NewActivitySource creates a new mock activity source.
func NewActivitySource() *ActivitySource {
	return &ActivitySource{days: make(map[string][]domain.ActivityRecord)}
}

func dayKey(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// SetDay registers the records of one day.
func (s *ActivitySource) SetDay(date time.Time, records []domain.ActivityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.days[dayKey(date.Year(), date.Month(), date.Day())] = records
}

// FetchDay returns the registered records; unregistered days are empty.
func (s *ActivitySource) FetchDay(ctx context.Context, year int, month time.Month, day int) ([]domain.ActivityRecord, error) {
	if s.FetchDayFn != nil {
		return s.FetchDayFn(ctx, year, month, day)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.days[dayKey(year, month, day)], nil
}

// AttributionSource is a thread-safe in-memory implementation of ports.ImageAttributionSource.
type AttributionSource struct {
	mu      sync.RWMutex
	entries map[string]domain.Attribution

	// AttributionFn allows overriding Attribution behavior.
	AttributionFn func(ctx context.Context, imageURL string) (domain.Attribution, error)
}

// NewAttributionSource creates a new mock attribution source.
func NewAttributionSource() *AttributionSource {
	return &AttributionSource{entries: make(map[string]domain.Attribution)}
}

// Set registers the attribution of an image.
func (a *AttributionSource) Set(imageURL string, attribution domain.Attribution) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries[imageURL] = attribution
}

// Attribution returns the registered attribution, or a CC0 attribution by "unknown".
func (a *AttributionSource) Attribution(ctx context.Context, imageURL string) (domain.Attribution, error) {
	if a.AttributionFn != nil {
		return a.AttributionFn(ctx, imageURL)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if entry, ok := a.entries[imageURL]; ok {
		return entry, nil
	}

	return domain.Attribution{Author: "unknown", License: "CC0", DownloadURL: imageURL}, nil
}

// Downloader writes a placeholder file instead of downloading.
type Downloader struct {
	mu    sync.Mutex
	paths []string

	// DownloadFn allows overriding Download behavior.
	DownloadFn func(ctx context.Context, url, path string) error
}

// NewDownloader creates a new mock downloader.
func NewDownloader() *Downloader {
	return &Downloader{}
}

// Download writes a small placeholder file at path.
func (d *Downloader) Download(ctx context.Context, url, path string) error {
	if d.DownloadFn != nil {
		return d.DownloadFn(ctx, url, path)
	}

	if err := os.WriteFile(path, []byte(url), 0o600); err != nil {
		return fmt.Errorf("write placeholder: %w", err)
	}

	d.mu.Lock()
	d.paths = append(d.paths, path)
	d.mu.Unlock()

	return nil
}

// Paths returns the written paths.
func (d *Downloader) Paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, len(d.paths))
	copy(out, d.paths)

	return out
}

// ReportSource returns a fixed count.
type ReportSource struct {
	Total int
	Err   error

	mu      sync.Mutex
	queries []string
}

// Count records the query and returns Total.
func (r *ReportSource) Count(_ context.Context, query, _ string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries = append(r.queries, query)

	return r.Total, r.Err
}

// Queries returns the recorded queries.
func (r *ReportSource) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string{}, r.queries...)
}

// Notifier records notifications.
type Notifier struct {
	mu       sync.Mutex
	messages []string
	Err      error
}

// Notify records the text.
func (n *Notifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.messages = append(n.messages, text)

	return n.Err
}

// Messages returns the recorded notifications.
func (n *Notifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string{}, n.messages...)
}
