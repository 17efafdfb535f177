package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/app"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/attribution"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/identity/osm"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/ingest/osmcha"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/ingest/overpass"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/output/digest"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/config"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/httpclient"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/publish/mastodon"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/publish/telegram"
	db "github.com/lueurxax/mapcomplete-digest-bot/internal/storage"
)

const imagesSubdir = "images"

// components holds the wired application and whatever must be released afterwards.
type components struct {
	App     *app.App
	closers []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func wire(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*components, error) {
	actions, err := config.LoadActions(cfg.ActionsFile)
	if err != nil {
		return nil, err
	}

	c := &components{}

	var cache ports.Cache = db.Noop{}

	if cfg.Cache.Enabled() {
		database, err := db.Open(ctx, cfg.Cache.Dir, logger)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}

		c.closers = append(c.closers, func() {
			if err := database.Close(); err != nil {
				logger.Warn().Err(err).Msg("could not close cache")
			}
		})

		cache = database
	}

	newHTTP := func(source string, rps float64) *httpclient.Client {
		return httpclient.New(httpclient.Config{
			Source:            source,
			RequestsPerSecond: rps,
			Timeout:           cfg.HTTP.Timeout,
			UserAgent:         cfg.HTTP.UserAgent,
		})
	}

	rps := cfg.Sources.RequestsPerSecond

	source := osmcha.New(osmcha.Config{
		BaseURL:     cfg.Sources.OSMChaURL,
		Token:       cfg.Sources.OSMChaToken,
		CacheMaxAge: cfg.Cache.ChangesetMaxAge,
	}, newHTTP("osmcha", rps), cache, logger)

	publisher := mastodon.New(mastodon.Config{
		Server:        cfg.Mastodon.Server,
		AccessToken:   cfg.Mastodon.AccessToken,
		DryRun:        cfg.Mastodon.DryRun,
		AccountMaxAge: cfg.Cache.UserInfoMaxAge,
	}, newHTTP("mastodon", 0), cache, logger)

	identity := osm.New(osm.Config{
		Backend:        cfg.Sources.OSMBackend,
		UserInfoMaxAge: cfg.Cache.UserInfoMaxAge,
	}, newHTTP("osm", rps), cache, publisher, logger)

	images := attribution.New(attribution.Config{
		PanoramaxURL:          cfg.Sources.PanoramaxURL,
		PanoramaxSecondaryURL: cfg.Sources.PanoramaxSecondaryURL,
		ImgurClientID:         cfg.Sources.ImgurClientID,
	}, newHTTP("images", rps), logger)

	imageDir := ""
	if cfg.Cache.Enabled() {
		imageDir = filepath.Join(cfg.Cache.Dir, imagesSubdir)
	}

	builder := digest.New(digest.Dependencies{
		Identity:    identity,
		Attribution: images,
		Downloader:  images,
		Publisher:   publisher,
		Reports:     overpass.New(cfg.Sources.OverpassURL, newHTTP("overpass", rps), logger),
	}, digest.Options{
		ImageDir:            imageDir,
		PrefetchConcurrency: cfg.PrefetchConcurrency,
		ThemeBonus:          actions.ThemeBonus,
	}, logger)

	notifier, err := operatorNotifier(cfg, publisher, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.App = app.New(app.Dependencies{
		Actions:         actions,
		Source:          source,
		Builder:         builder,
		Notifier:        notifier,
		MetricsTextfile: cfg.MetricsTextfile,
	}, logger)

	return c, nil
}

func operatorNotifier(cfg *config.Config, publisher ports.MediaPublisher, logger *zerolog.Logger) (ports.Notifier, error) {
	var channels []app.Channel

	if cfg.Mastodon.OperatorHandle != "" {
		channels = append(channels, app.Channel{
			Name:     app.ChannelMastodon,
			Notifier: app.NewDirectMessageNotifier(publisher, cfg.Mastodon.OperatorHandle),
		})
	}

	if cfg.Telegram.Enabled() {
		tg, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			return nil, err
		}

		channels = append(channels, app.Channel{Name: app.ChannelTelegram, Notifier: tg})
	}

	if len(channels) == 0 {
		logger.Warn().Msg("no operator notification channel configured")
		return nil, nil
	}

	return app.NewFanout(logger, channels...), nil
}
