// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing the digest core to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
)

// ActivitySource fetches the changesets made on one UTC day.
type ActivitySource interface {
	FetchDay(ctx context.Context, year int, month time.Month, day int) ([]domain.ActivityRecord, error)
}

// IdentityResolver maps a contributor id to how the contributor is presented.
type IdentityResolver interface {
	DisplayName(ctx context.Context, contributorID string) (string, error)
	// Handle returns the fediverse handle ("@user@host") and whether one is known.
	Handle(ctx context.Context, contributorID string) (string, bool, error)
	OptOut(ctx context.Context, contributorID string) (domain.OptOut, error)
}

// AccountDirectory looks up fediverse accounts by "user@host".
type AccountDirectory interface {
	LookupAccount(ctx context.Context, acct string) (domain.FediverseAccount, error)
}

// ImageAttributionSource looks up the author and license of an image.
type ImageAttributionSource interface {
	Attribution(ctx context.Context, imageURL string) (domain.Attribution, error)
}

// ImageDownloader stores a remote image in a local file.
type ImageDownloader interface {
	Download(ctx context.Context, url, path string) error
}

// MediaPublisher uploads media and publishes posts.
type MediaPublisher interface {
	Upload(ctx context.Context, localPath, description string) (string, error)
	Publish(ctx context.Context, text string, opts domain.PostOptions) (domain.PublishedMessage, error)
}

// ReportSource counts the map features matched by an Overpass query.
type ReportSource interface {
	Count(ctx context.Context, query, bbox string) (int, error)
}

// Notifier delivers operator diagnostics.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Cache is the optional on-disk cache owned by the collaborators.
type Cache interface {
	Get(ctx context.Context, namespace, key string, maxAge time.Duration) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
}
