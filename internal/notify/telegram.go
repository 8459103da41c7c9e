// Package notify sends run reports to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"sahara/internal/config"
	"sahara/internal/logger"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var (
	// ErrNotConfigured indicates that notifications are enabled but the bot token or chat id is missing.
	ErrNotConfigured = errors.New("telegram notifier is not configured")
	// ErrSendFailed indicates that the Bot API rejected the message.
	ErrSendFailed = errors.New("telegram send failed")
)

// Notifier delivers a text report.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

type nopNotifier struct{}

func (nopNotifier) Send(context.Context, string) error { return nil }

// Telegram posts MarkdownV2 messages through the Bot API.
type Telegram struct {
	http    *resty.Client
	limiter *rate.Limiter
	token   string
	chatID  string
	log     logger.Logger
}

// NewTelegram creates a Telegram notifier for one chat.
func NewTelegram(apiURL, token, chatID string, log logger.Logger) *Telegram {
	return &Telegram{
		http:    resty.New().SetBaseURL(strings.TrimRight(apiURL, "/")).SetTimeout(15 * time.Second),
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		token:   token,
		chatID:  chatID,
		log:     log,
	}
}

// FromConfig returns a Telegram notifier built from TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID,
// or a no-op notifier when notifications are disabled.
func FromConfig(cfg config.NotifierConfig, log logger.Logger) (Notifier, error) {
	if !cfg.Enabled {
		return nopNotifier{}, nil
	}
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("%w: set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID", ErrNotConfigured)
	}
	return NewTelegram(cfg.APIURL, token, chatID, log), nil
}

// Send posts text as is; callers escape dynamic parts with EscapeMarkdown.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":                  t.chatID,
			"text":                     text,
			"parse_mode":               "MarkdownV2",
			"disable_web_page_preview": true,
		}).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if !gjson.GetBytes(resp.Body(), "ok").Bool() {
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode(),
			gjson.GetBytes(resp.Body(), "description").String())
	}
	t.log.Debug("Отчет отправлен в Telegram", "chat", t.chatID)
	return nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`,
	"|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// EscapeMarkdown escapes every MarkdownV2 special character.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Report is the end-of-run summary sent to the chat.
type Report struct {
	Mode      string
	Total     int
	Succeeded int
	Failed    int
	Canceled  int
	Failures  map[string]string
	Duration  time.Duration
}

// Text renders the report as a MarkdownV2 message.
func (r Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Sahara: %s*\n", EscapeMarkdown(r.Mode))
	fmt.Fprintf(&b, "Кошельков: %d\nУспешно: %d\nС ошибкой: %d\n", r.Total, r.Succeeded, r.Failed)
	if r.Canceled > 0 {
		fmt.Fprintf(&b, "Прервано: %d\n", r.Canceled)
	}
	fmt.Fprintf(&b, "Время: %s\n", EscapeMarkdown(r.Duration.Round(time.Second).String()))

	addrs := make([]string, 0, len(r.Failures))
	for addr := range r.Failures {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		fmt.Fprintf(&b, "`%s` %s\n", addr, EscapeMarkdown(r.Failures[addr]))
	}
	return b.String()
}
