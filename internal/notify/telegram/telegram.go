// Package telegram delivers notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/policy/ratelimit"
	"github.com/JakeFAU/keywatch/internal/watch"
)

const defaultTimeout = 10 * time.Second

// Config controls how messages are sent.
type Config struct {
	// APIEndpoint is a format string taking the token and the method name.
	APIEndpoint   string
	RatePerSecond float64
	Timeout       time.Duration
}

// Notifier implements watch.Notifier on top of tgbotapi.
type Notifier struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	limiter  *ratelimit.Limiter
	logger   *zap.Logger
}

// Option customizes a Notifier.
type Option func(*Notifier)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		if client != nil {
			n.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// New builds a Notifier.
func New(cfg Config, opts ...Option) *Notifier {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	n := &Notifier{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{},
		limiter:  ratelimit.New(ratelimit.Config{PerSecond: cfg.RatePerSecond, Burst: 1}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send posts text to the chat named in cfg. A failure is reported as a
// *watch.NotifyError and is never retried.
func (n *Notifier) Send(ctx context.Context, cfg watch.Config, text string) error {
	if err := n.limiter.Wait(ctx, cfg.ChatID); err != nil {
		return &watch.NotifyError{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	doer := &contextClient{ctx: ctx, client: n.client, token: cfg.NotifierToken}
	bot := &tgbotapi.BotAPI{Token: cfg.NotifierToken, Client: doer, Buffer: 100}
	bot.SetAPIEndpoint(n.endpoint)

	msg, err := bot.Send(newMessage(cfg.ChatID, text))
	if err != nil {
		status := doer.status
		var apiErr *tgbotapi.Error
		if status == 0 && errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		return &watch.NotifyError{StatusCode: status, Err: err}
	}
	if doer.status != http.StatusOK {
		return &watch.NotifyError{
			StatusCode: doer.status,
			Err:        fmt.Errorf("unexpected status %d", doer.status),
		}
	}

	n.logger.Debug("telegram message sent",
		zap.String("chat_id", cfg.ChatID),
		zap.Int("message_id", msg.MessageID),
	)
	return nil
}

// newMessage addresses numeric chat ids directly and anything else as a
// channel username.
func newMessage(chatID string, text string) tgbotapi.MessageConfig {
	chatID = strings.TrimSpace(chatID)
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(chatID, text)
}

// contextClient binds each bot request to ctx, records the HTTP status and
// keeps the token out of transport errors.
type contextClient struct {
	ctx    context.Context
	client *http.Client
	token  string
	status int
}

func (c *contextClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req.WithContext(c.ctx))
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && c.token != "" {
			uerr.URL = strings.ReplaceAll(uerr.URL, c.token, "<redacted>")
		}
		return nil, err
	}
	c.status = resp.StatusCode
	return resp, nil
}
