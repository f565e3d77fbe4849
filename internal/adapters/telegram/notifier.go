package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"zapgoals/internal/domain"
	"zapgoals/internal/infra/metrics"
	"zapgoals/internal/usecase/publish"
)

// sender is satisfied by *tgbotapi.BotAPI.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts funded goal announcements to a Telegram chat.
type Notifier struct {
	bot    sender
	chatID int64
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier sending to chatID.
func NewNotifier(bot *tgbotapi.BotAPI, chatID int64) *Notifier {
	return &Notifier{bot: bot, chatID: chatID}
}

// GoalFunded sends the announcement for view.
func (n *Notifier) GoalFunded(ctx context.Context, view domain.GoalView) error {
	for _, part := range SplitMessage(FormatGoalFunded(view), 0) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(n.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := n.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(n.chatID, 10), start, err)
		if err != nil {
			return fmt.Errorf("send funded notice for %s: %w", view.Goal.GoalID, err)
		}
	}
	return nil
}

// FormatGoalFunded renders the HTML announcement.
func FormatGoalFunded(view domain.GoalView) string {
	g := view.Goal
	author := g.AuthorPubkey
	if view.Author != nil {
		author = view.Author.Label()
	}

	var b strings.Builder
	b.WriteString("🎉 <b>Goal funded!</b>\n\n")
	fmt.Fprintf(&b, "<b>%s</b> by %s\n", html.EscapeString(g.Title), html.EscapeString(author))
	fmt.Fprintf(&b, "Raised %s of %s sats from %d zaps",
		publish.FormatSats(view.RaisedSats), publish.FormatSats(g.TargetSats), view.ZapCount)
	if g.Summary != "" {
		b.WriteString("\n\n")
		b.WriteString(html.EscapeString(g.Summary))
	}
	return b.String()
}
