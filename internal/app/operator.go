package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/observability"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/textutil"
)

const ellipsis = "…"

// DirectMessageNotifier reports to the operator with a direct post that mentions them.
type DirectMessageNotifier struct {
	publisher ports.MediaPublisher
	handle    string
}

var _ ports.Notifier = (*DirectMessageNotifier)(nil)

// NewDirectMessageNotifier creates a notifier mentioning handle ("@user@host").
func NewDirectMessageNotifier(publisher ports.MediaPublisher, handle string) *DirectMessageNotifier {
	if handle != "" && !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}

	return &DirectMessageNotifier{publisher: publisher, handle: handle}
}

// Notify publishes text as a direct message, shortened to fit one post.
func (n *DirectMessageNotifier) Notify(ctx context.Context, text string) error {
	if n.handle == "" {
		return errNoOperatorHandle
	}

	post := fitPost(n.handle + " " + text)

	if _, err := n.publisher.Publish(ctx, post, domain.PostOptions{Visibility: domain.VisibilityDirect}); err != nil {
		return fmt.Errorf("direct message: %w", err)
	}

	return nil
}

var errNoOperatorHandle = errors.New("no operator handle configured")

// fitPost shortens text until it fits one post.
func fitPost(text string) string {
	for textutil.MastodonLength(text) > textutil.MaxPostLength {
		runes := []rune(strings.TrimSuffix(text, ellipsis))

		cut := textutil.MastodonLength(text) - textutil.MaxPostLength + 1
		if cut > len(runes) {
			cut = len(runes)
		}

		text = string(runes[:len(runes)-cut]) + ellipsis
	}

	return text
}

// Channel is a named operator notification channel.
type Channel struct {
	Name     string
	Notifier ports.Notifier
}

// Fanout notifies every channel and joins their errors.
type Fanout struct {
	channels []Channel
	logger   *zerolog.Logger
}

var _ ports.Notifier = (*Fanout)(nil)

// NewFanout creates a Fanout over channels.
func NewFanout(logger *zerolog.Logger, channels ...Channel) *Fanout {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Fanout{channels: channels, logger: logger}
}

// Notify delivers text on every channel, even when an earlier one fails.
func (f *Fanout) Notify(ctx context.Context, text string) error {
	var errs []error

	for _, ch := range f.channels {
		if err := ch.Notifier.Notify(ctx, text); err != nil {
			observability.OperatorNotifications.WithLabelValues(ch.Name, observability.StatusError).Inc()
			f.logger.Warn().Err(err).Str(LogFieldChannel, ch.Name).Msg("operator notification failed")

			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))

			continue
		}

		observability.OperatorNotifications.WithLabelValues(ch.Name, observability.StatusOK).Inc()
	}

	return errors.Join(errs...)
}
