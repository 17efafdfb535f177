// Package telegram delivers operator diagnostics to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/ports"
)

// MessageLimit is the number of characters Telegram accepts in one message, minus headroom.
const MessageLimit = 4000

// Sender is the subset of the bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier implements ports.Notifier.
type Notifier struct {
	api    Sender
	chatID int64
	logger *zerolog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// New connects to the bot API with token.
func New(token string, chatID int64, logger *zerolog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}

	return NewWithSender(api, chatID, logger), nil
}

// NewWithSender creates a Notifier over an existing sender.
func NewWithSender(api Sender, chatID int64, logger *zerolog.Logger) *Notifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Notifier{api: api, chatID: chatID, logger: logger}
}

// Notify sends text as plain text, split into as many messages as needed.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	for i, part := range Split(text, MessageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(n.chatID, part)
		msg.DisableWebPagePreview = true

		if _, err := n.api.Send(msg); err != nil {
			return fmt.Errorf("send notification part %d: %w", i+1, err)
		}
	}

	n.logger.Debug().Int64(LogFieldChatID, n.chatID).Msg("operator notified")

	return nil
}

// Split cuts text into parts of at most limit characters, preferring line breaks.
func Split(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		parts   []string
		current strings.Builder
		size    int
	)

	flush := func() {
		if size > 0 {
			parts = append(parts, current.String())
			current.Reset()

			size = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > limit {
			flush()

			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
		}

		lineSize := utf8.RuneCountInString(line)

		sep := 0
		if size > 0 {
			sep = 1
		}

		if size+sep+lineSize > limit {
			flush()

			sep = 0
		}

		if sep == 1 {
			current.WriteByte('\n')
		}

		current.WriteString(line)

		size += sep + lineSize
	}

	flush()

	return parts
}
