package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"solana-copurchase/internal/domain"
)

// DefaultTopN is the number of candidates listed in a Telegram summary.
const DefaultTopN = 10

// chatSender is the subset of *tgbotapi.BotAPI used here.
type chatSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts a MarkdownV2 summary of the top candidates to one chat.
type Telegram struct {
	bot        chatSender
	chatID     int64
	topN       int
	maxRetries uint64
	retryDelay time.Duration
}

// NewTelegram connects to the Bot API.
func NewTelegram(botToken string, chatID int64, topN int) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newTelegram(bot, chatID, topN), nil
}

func newTelegram(bot chatSender, chatID int64, topN int) *Telegram {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Telegram{
		bot:        bot,
		chatID:     chatID,
		topN:       topN,
		maxRetries: 2,
		retryDelay: time.Second,
	}
}

// Name implements Notifier.
func (t *Telegram) Name() string { return "telegram" }

// Publish sends one summary message; empty snapshots are not announced.
func (t *Telegram) Publish(ctx context.Context, snapshotID string, candidates []domain.TokenCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatSummary(snapshotID, candidates, t.topN))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(t.retryDelay), t.maxRetries), ctx)
	err := backoff.Retry(func() error {
		_, err := t.bot.Send(msg)
		return err
	}, b)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// Close implements Notifier.
func (t *Telegram) Close() error { return nil }

// FormatSummary renders up to topN candidates as MarkdownV2.
func FormatSummary(snapshotID string, candidates []domain.TokenCandidate, topN int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Co\\-purchase signals* \\(%d tokens\\)\n\n", len(candidates))

	for i, c := range candidates {
		if i >= topN {
			fmt.Fprintf(&b, "\n_\\+%d more_\n", len(candidates)-topN)
			break
		}
		label := c.Token
		if c.Symbol != "" {
			label = c.Symbol + " " + c.Token
		}
		fmt.Fprintf(&b, "%d\\. `%s`\n    wallets: *%d*  first seen: %s\n",
			i+1, escapeMarkdownV2(label), c.WalletCount, escapeMarkdownV2(c.TokenFirstSeen))
	}

	fmt.Fprintf(&b, "\nsnapshot `%s`", escapeMarkdownV2(snapshotID))
	return b.String()
}

// escapeMarkdownV2 escapes Telegram MarkdownV2 special characters.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		switch r {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
