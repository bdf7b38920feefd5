package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// maxMessageLen is the Bot API limit on message text.
const maxMessageLen = 4096

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	bot    *tgbot.Bot
	chatID string
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. Extra options are
// passed to the bot client, e.g. tgbot.WithServerURL in tests.
func NewNotifier(cfg config.TelegramConfig, opts ...tgbot.Option) (*Notifier, error) {
	if strings.TrimSpace(cfg.BotToken) == "" || strings.TrimSpace(cfg.ChatID) == "" {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}

	opts = append([]tgbot.Option{tgbot.WithSkipGetMe()}, opts...)
	b, err := tgbot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Notifier{bot: b, chatID: cfg.ChatID}, nil
}

// Deliver posts the digest as one or more HTML messages. The digest counts as
// delivered only when every part is accepted.
func (n *Notifier) Deliver(ctx context.Context, digest domain.Digest) error {
	for i, part := range splitMessages(digest) {
		_, err := n.bot.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID:    n.chatID,
			Text:      part,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			return &domain.DeliveryError{Channel: config.ChannelTelegram, Err: fmt.Errorf("send part %d: %w", i+1, err)}
		}
	}
	return nil
}

// splitMessages renders one line per record and packs them into messages
// under the API length limit.
func splitMessages(digest domain.Digest) []string {
	header := "<b>" + html.EscapeString(digest.Subject) + "</b>\n"

	var (
		parts   []string
		current strings.Builder
	)
	current.WriteString(header)

	for _, rec := range digest.Records {
		line := recordLine(rec, maxMessageLen-len(header))

		if current.Len()+len(line) > maxMessageLen && current.Len() > len(header) {
			parts = append(parts, current.String())
			current.Reset()
			current.WriteString(header)
		}
		current.WriteString(line)
	}

	parts = append(parts, current.String())
	return parts
}

// recordLine renders one digest entry, shortening the title so the line stays
// within budget bytes.
func recordLine(rec domain.Record, budget int) string {
	format := "• <a href=\"%s\">%s</a> (%s)\n"
	link := html.EscapeString(rec.Link)
	title := html.EscapeString(rec.Title)

	line := fmt.Sprintf(format, link, title, rec.DateString())
	if len(line) <= budget {
		return line
	}

	const ellipsis = "…"
	room := budget - (len(line) - len(title)) - len(ellipsis)

	var short strings.Builder
	for _, r := range rec.Title {
		escaped := html.EscapeString(string(r))
		if short.Len()+len(escaped) > room {
			break
		}
		short.WriteString(escaped)
	}
	short.WriteString(ellipsis)

	return fmt.Sprintf(format, link, short.String(), rec.DateString())
}
