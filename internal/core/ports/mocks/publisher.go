package mocks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/textutil"
)

// PublishedPost records one Publish call.
type PublishedPost struct {
	ID      string
	Text    string
	Options domain.PostOptions
}

// Upload records one Upload call.
type Upload struct {
	ID          string
	Path        string
	Description string
}

// Publisher is a thread-safe in-memory implementation of ports.MediaPublisher.
// It enforces the same length and direct-mention rules as the real client.
type Publisher struct {
	mu        sync.Mutex
	published []PublishedPost
	uploads   []Upload
	nextID    int

	// UploadFn allows overriding Upload behavior.
	UploadFn func(ctx context.Context, localPath, description string) (string, error)

	// PublishFn allows overriding Publish behavior after validation.
	PublishFn func(ctx context.Context, text string, opts domain.PostOptions) (domain.PublishedMessage, error)
}

// NewPublisher creates a new mock publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Upload records the upload and returns a media id.
func (p *Publisher) Upload(ctx context.Context, localPath, description string) (string, error) {
	if p.UploadFn != nil {
		id, err := p.UploadFn(ctx, localPath, description)
		if err != nil {
			return "", err
		}

		p.mu.Lock()
		p.uploads = append(p.uploads, Upload{ID: id, Path: localPath, Description: description})
		p.mu.Unlock()

		return id, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := "media-" + strconv.Itoa(p.nextID)
	p.uploads = append(p.uploads, Upload{ID: id, Path: localPath, Description: description})

	return id, nil
}

// Publish validates and records the post.
func (p *Publisher) Publish(ctx context.Context, text string, opts domain.PostOptions) (domain.PublishedMessage, error) {
	if length := textutil.MastodonLength(text); length > textutil.MaxPostLength {
		return domain.PublishedMessage{}, fmt.Errorf("%w: %w: %d", coreerrors.ErrPublish, coreerrors.ErrTextTooLong, length)
	}

	if opts.Visibility == domain.VisibilityDirect && !strings.Contains(text, "@") {
		return domain.PublishedMessage{}, fmt.Errorf("%w: %w", coreerrors.ErrPublish, coreerrors.ErrDirectWithoutMention)
	}

	if p.PublishFn != nil {
		msg, err := p.PublishFn(ctx, text, opts)
		if err != nil {
			return msg, err
		}

		p.mu.Lock()
		p.published = append(p.published, PublishedPost{ID: msg.ID, Text: text, Options: opts})
		p.mu.Unlock()

		return msg, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := "status-" + strconv.Itoa(p.nextID)
	p.published = append(p.published, PublishedPost{ID: id, Text: text, Options: opts})

	return domain.PublishedMessage{ID: id, URL: "https://example.social/" + id}, nil
}

// Published returns a copy of the recorded posts.
func (p *Publisher) Published() []PublishedPost {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PublishedPost, len(p.published))
	copy(out, p.published)

	return out
}

// Uploads returns a copy of the recorded uploads.
func (p *Publisher) Uploads() []Upload {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Upload, len(p.uploads))
	copy(out, p.uploads)

	return out
}
