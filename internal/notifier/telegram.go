package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phuslu/log"
)

// MaxMessageLength is Telegram's limit for one text message.
const MaxMessageLength = 4096

// TelegramNotifier sends messages to one chat via the Telegram Bot API.
type TelegramNotifier struct {
	bot         *tgbotapi.BotAPI
	chatID      int64
	retryBase   time.Duration
	pollTimeout int
}

type settings struct {
	endpoint    string
	client      *http.Client
	proxy       string
	retryBase   time.Duration
	pollTimeout int
}

// Option configures a TelegramNotifier.
type Option func(*settings)

// WithEndpoint overrides the Bot API endpoint format (token, method).
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for Bot API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.client = c }
}

// WithProxy routes Bot API calls through an HTTP proxy.
func WithProxy(proxyURL string) Option {
	return func(s *settings) { s.proxy = proxyURL }
}

// WithRetryBase sets the first backoff interval of SendWithRetry.
func WithRetryBase(d time.Duration) Option {
	return func(s *settings) { s.retryBase = d }
}

// WithPollTimeout sets the long-polling timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(s *settings) { s.pollTimeout = seconds }
}

// NewTelegramNotifier creates a notifier. It calls getMe to validate the token.
func NewTelegramNotifier(botToken, chatID string, opts ...Option) (*TelegramNotifier, error) {
	s := &settings{
		endpoint:    tgbotapi.APIEndpoint,
		retryBase:   time.Second,
		pollTimeout: 30,
	}
	for _, opt := range opts {
		opt(s)
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}

	if s.client == nil {
		transport := &http.Transport{}
		if s.proxy != "" {
			if u, err := url.Parse(s.proxy); err == nil {
				transport.Proxy = http.ProxyURL(u)
			}
		}
		s.client = &http.Client{
			Timeout:   time.Duration(s.pollTimeout+10) * time.Second,
			Transport: transport,
		}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(botToken, s.endpoint, s.client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Int64("chat_id", id).Msg("telegram notifier ready")

	return &TelegramNotifier{
		bot:         bot,
		chatID:      id,
		retryBase:   s.retryBase,
		pollTimeout: s.pollTimeout,
	}, nil
}

// Send sends text to the configured chat, split into several messages when
// it exceeds MaxMessageLength.
func (t *TelegramNotifier) Send(text string) error {
	return t.sendTo(t.chatID, text)
}

func (t *TelegramNotifier) sendTo(chatID int64, text string) error {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry. A retry_after
// hint from Telegram replaces the computed backoff.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}

		backoff := t.retryBase * time.Duration(1<<uint(i))
		var tgErr *tgbotapi.Error
		if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
			backoff = time.Duration(tgErr.RetryAfter) * time.Second
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("max", maxRetries+1).Dur("backoff", backoff).Msg("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts exhausted: %w", maxRetries+1, lastErr)
}

// SplitMessage breaks text into chunks of at most limit runes, preferring
// line boundaries.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > limit {
			flush()
		}
		for n > limit {
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
			n -= limit
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}
