package digest

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/thread"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/observability"
)

// ContributorNamer names a contributor the way the thread mentions them.
type ContributorNamer interface {
	ContributorName(ctx context.Context, contributorID, fallback string) (string, error)
}

// QueueDependencies are the collaborators of an ImageQueue.
type QueueDependencies struct {
	Identity    ports.IdentityResolver
	Names       ContributorNamer
	Attribution ports.ImageAttributionSource
	Downloader  ports.ImageDownloader
	Publisher   ports.MediaPublisher
}

// ImageQueue uploads images in a fixed order as the thread asks for them. It is not safe
// for concurrent use.
type ImageQueue struct {
	pending []domain.ImageCandidate
	deps    QueueDependencies
	dir     string
	authors []string
	seq     int
	logger  *zerolog.Logger
}

var _ thread.Attachments = (*ImageQueue)(nil)

// NewImageQueue creates a queue over ordered candidates, downloading into dir.
func NewImageQueue(ordered []domain.ImageCandidate, deps QueueDependencies, dir string, logger *zerolog.Logger) *ImageQueue {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &ImageQueue{
		pending: append([]domain.ImageCandidate(nil), ordered...),
		deps:    deps,
		dir:     dir,
		logger:  logger,
	}
}

// Next uploads candidates until max media ids are available or the queue is empty. A
// failed image is retried once and then dropped.
func (q *ImageQueue) Next(ctx context.Context, max int) []string {
	var ids []string

	for len(ids) < max && len(q.pending) > 0 {
		if ctx.Err() != nil {
			return ids
		}

		candidate := q.pending[0]
		q.pending = q.pending[1:]

		logger := q.logger.With().Str(LogFieldImageURL, candidate.URL).Logger()

		if q.optedOut(ctx, candidate) {
			logger.Debug().Msg("contributor opted out, skipping image")
			continue
		}

		id, err := q.upload(ctx, candidate)
		if err != nil {
			logger.Warn().Err(err).Msg("could not upload image, trying again")
			observability.ImageUploads.WithLabelValues(observability.StatusRetried).Inc()

			id, err = q.upload(ctx, candidate)
		}

		if err != nil {
			logger.Error().Err(err).Msg("retry could not upload image, dropping it")
			observability.ImageUploads.WithLabelValues(observability.StatusDropped).Inc()

			continue
		}

		observability.ImageUploads.WithLabelValues(observability.StatusOK).Inc()

		ids = append(ids, id)
	}

	return ids
}

// Authors returns the author of every uploaded image, in upload order.
func (q *ImageQueue) Authors() []string {
	return append([]string(nil), q.authors...)
}

// Remaining returns the number of images not handed out yet.
func (q *ImageQueue) Remaining() int {
	return len(q.pending)
}

func (q *ImageQueue) optedOut(ctx context.Context, c domain.ImageCandidate) bool {
	optOut, err := q.deps.Identity.OptOut(ctx, c.ContributorID)
	if err != nil {
		return false
	}

	return optOut.SuppressAll
}

func (q *ImageQueue) upload(ctx context.Context, c domain.ImageCandidate) (string, error) {
	attribution, err := q.deps.Attribution.Attribution(ctx, c.URL)
	if err != nil {
		return "", fmt.Errorf("attribution: %w", err)
	}

	author := q.authorName(ctx, c, attribution)

	source := attribution.DownloadURL
	if source == "" {
		source = c.URL
	}

	q.seq++
	localPath := filepath.Join(q.dir, "image_"+strconv.Itoa(q.seq)+"_"+fileName(c.URL))

	if err := q.deps.Downloader.Download(ctx, source, localPath); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	id, err := q.deps.Publisher.Upload(ctx, localPath, Description(author, attribution.License, c))
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	q.authors = append(q.authors, author)

	return id, nil
}

func (q *ImageQueue) authorName(ctx context.Context, c domain.ImageCandidate, attribution domain.Attribution) string {
	name, err := q.deps.Names.ContributorName(ctx, c.ContributorID, c.ContributorName)
	if err == nil {
		return name
	}

	q.logger.Debug().Err(err).Str(LogFieldContributor, c.ContributorID).Msg("could not name image contributor")

	if c.ContributorName != "" {
		return c.ContributorName
	}

	return attribution.Author
}

// Description is the alt text of an uploaded image.
func Description(author, license string, c domain.ImageCandidate) string {
	if license == "" {
		license = unknownLicense
	}

	return "Image taken by " + author + ", available under " + license +
		". It is made with the thematic map " + c.Theme +
		" in changeset " + changesetBaseURL + strconv.FormatInt(c.ChangesetID, 10)
}

// fileName derives a safe local file name from the last segment of an image URL.
func fileName(imageURL string) string {
	base := path.Base(strings.TrimRight(strings.SplitN(imageURL, "?", 2)[0], "/"))

	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)

	name = strings.Trim(name, ".")
	if name == "" {
		return "image"
	}

	if utf8.RuneCountInString(name) > maxFileNameRunes {
		name = name[len(name)-maxFileNameRunes:]
	}

	return name
}
