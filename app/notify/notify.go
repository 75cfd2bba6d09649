package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/critique-desk/app/metrics"
)

// Notice is one line of the catalog audit log.
type Notice struct {
	Actor   string
	Action  string
	EntryID int64
	Name    string
	URL     string
	Detail  string
}

type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// LogNotifier writes notices to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notice) error {
	slog.Info("Catalog change", "actor", n.Actor, "action", n.Action, "entry_id", n.EntryID, "name", n.Name, "detail", n.Detail)
	metrics.Notifications.WithLabelValues("logged").Inc()
	return nil
}

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts notices to a chat, at most one per interval.
type TelegramNotifier struct {
	sender  Sender
	chatID  int64
	limiter *rate.Limiter
}

func NewTelegramNotifier(sender Sender, chatID int64, interval time.Duration) *TelegramNotifier {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &TelegramNotifier{
		sender:  sender,
		chatID:  chatID,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (t *TelegramNotifier) Notify(ctx context.Context, n Notice) error {
	if err := t.limiter.Wait(ctx); err != nil {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatNotice(n))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.sender.Send(msg); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to send notice: %w", err)
	}

	metrics.Notifications.WithLabelValues("sent").Inc()
	return nil
}

// FormatNotice renders a notice as Telegram HTML.
func FormatNotice(n Notice) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(n.Actor))
	b.WriteString("</b> ")
	b.WriteString(html.EscapeString(n.Action))

	if n.EntryID != 0 {
		b.WriteString(" ")
		name := html.EscapeString(n.Name)
		if name == "" {
			name = fmt.Sprintf("#%d", n.EntryID)
		}
		if n.URL != "" {
			fmt.Fprintf(&b, `<a href="%s">%s</a>`, html.EscapeString(n.URL), name)
		} else {
			b.WriteString(name)
		}
	}

	if n.Detail != "" {
		b.WriteString(": <i>")
		b.WriteString(html.EscapeString(n.Detail))
		b.WriteString("</i>")
	}

	return b.String()
}

// Fallback tries each notifier in turn until one succeeds.
type Fallback []Notifier

func (f Fallback) Notify(ctx context.Context, n Notice) error {
	var lastErr error
	for _, notifier := range f {
		if lastErr = notifier.Notify(ctx, n); lastErr == nil {
			return nil
		}
		slog.Warn("Notifier failed", "action", n.Action, "error", lastErr)
	}
	return lastErr
}

// Async delivers a notice in the background so callers never block on it.
func Async(notifier Notifier, n Notice, timeout time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := notifier.Notify(ctx, n); err != nil {
			slog.Error("Failed to deliver notice", "action", n.Action, "entry_id", n.EntryID, "error", err)
		}
	}()
}
