// Package attribution looks up who made a contributed image and under which license, and
// downloads the image file for re-upload.
//
// Two hosts are supported:
//   - Panoramax pictures, referenced by id or by an /api/pictures/<id> URL; the primary
//     server is asked first, then the secondary one
//   - Imgur images (https://i.imgur.com/<hash>.jpg), whose description carries
//     "author:" and "license:" lines
package attribution

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/httpclient"
)

const (
	imgurHost       = "i.imgur.com"
	picturesPath    = "/api/pictures/"
	defaultImgurAPI = "https://api.imgur.com/3/image/"
)

// ErrUnsupportedImage is returned for images hosted somewhere without attribution data.
var ErrUnsupportedImage = errors.New("image host without attribution")

// Config configures a Source.
type Config struct {
	PanoramaxURL          string
	PanoramaxSecondaryURL string
	ImgurAPIURL           string
	ImgurClientID         string
}

// Source implements ports.ImageAttributionSource and ports.ImageDownloader.
type Source struct {
	panoramax     []string
	imgurAPI      string
	imgurClientID string
	http          *httpclient.Client
	logger        *zerolog.Logger
}

var (
	_ ports.ImageAttributionSource = (*Source)(nil)
	_ ports.ImageDownloader        = (*Source)(nil)
)

// New creates a Source.
func New(cfg Config, hc *httpclient.Client, logger *zerolog.Logger) *Source {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var servers []string

	for _, server := range []string{cfg.PanoramaxURL, cfg.PanoramaxSecondaryURL} {
		if server != "" {
			servers = append(servers, strings.TrimSuffix(server, "/"))
		}
	}

	imgurAPI := cfg.ImgurAPIURL
	if imgurAPI == "" {
		imgurAPI = defaultImgurAPI
	}

	return &Source{
		panoramax:     servers,
		imgurAPI:      imgurAPI,
		imgurClientID: cfg.ImgurClientID,
		http:          hc,
		logger:        logger,
	}
}

// Attribution returns the author, license and download location of an image.
func (s *Source) Attribution(ctx context.Context, imageURL string) (domain.Attribution, error) {
	if hash, ok := imgurHash(imageURL); ok {
		return s.imgur(ctx, imageURL, hash)
	}

	if id, ok := panoramaxID(imageURL); ok {
		return s.panoramaxPicture(ctx, id)
	}

	return domain.Attribution{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, imageURL)
}

// Download stores the image at imageURL in path.
func (s *Source) Download(ctx context.Context, imageURL, path string) error {
	if err := s.http.Download(ctx, imageURL, path); err != nil {
		return fmt.Errorf("download image: %w", err)
	}

	return nil
}

func (s *Source) panoramaxPicture(ctx context.Context, id string) (domain.Attribution, error) {
	var lastErr error

	for _, server := range s.panoramax {
		var item pictureItem
		if err := s.http.GetJSON(ctx, server+picturesPath+url.PathEscape(id), nil, &item); err != nil {
			s.logger.Debug().Err(err).Str(LogFieldServer, server).Str(LogFieldImage, id).Msg("panoramax lookup failed")
			lastErr = err

			continue
		}

		attribution, err := item.attribution()
		if err != nil {
			lastErr = err
			continue
		}

		return attribution, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no panoramax server configured", coreerrors.ErrConfig)
	}

	return domain.Attribution{}, fmt.Errorf("panoramax picture %s: %w", id, lastErr)
}

func (s *Source) imgur(ctx context.Context, imageURL, hash string) (domain.Attribution, error) {
	headers := map[string]string{}
	if s.imgurClientID != "" {
		headers["Authorization"] = "Client-ID " + s.imgurClientID
	}

	var resp imgurResponse
	if err := s.http.GetJSON(ctx, s.imgurAPI+url.PathEscape(hash), headers, &resp); err != nil {
		return domain.Attribution{}, fmt.Errorf("imgur image %s: %w", hash, err)
	}

	fields := descriptionFields(resp.Data.Description)

	return domain.Attribution{
		Author:      fields["author"],
		License:     fields["license"],
		DownloadURL: imageURL,
	}, nil
}

// imgurHash extracts <hash> from https://i.imgur.com/<hash>.jpg.
func imgurHash(imageURL string) (string, bool) {
	u, err := url.Parse(imageURL)
	if err != nil || u.Host != imgurHost {
		return "", false
	}

	name := strings.TrimPrefix(u.Path, "/")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}

	return name, name != "" && !strings.Contains(name, "/")
}

// panoramaxID accepts a bare picture id or a URL with an /api/pictures/<id> path.
func panoramaxID(value string) (string, bool) {
	if !strings.Contains(value, "/") {
		value = strings.TrimSpace(value)
		return value, value != ""
	}

	u, err := url.Parse(value)
	if err != nil {
		return "", false
	}

	_, rest, ok := strings.Cut(u.Path, picturesPath)
	if !ok {
		return "", false
	}

	id, _, _ := strings.Cut(rest, "/")

	return id, id != ""
}

// descriptionFields parses "key:value" lines; only the first colon separates.
func descriptionFields(description string) map[string]string {
	fields := make(map[string]string)

	for _, line := range strings.Split(description, "\n") {
		key, value, ok := strings.Cut(strings.TrimRight(line, "\r"), ":")
		if !ok {
			continue
		}

		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	return fields
}
