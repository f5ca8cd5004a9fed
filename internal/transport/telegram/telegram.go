// Package telegram implements the notification sink over the Telegram
// Bot API.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"remindbot/internal/transport"
	logx "remindbot/pkg/logx"
)

type Config struct {
	Token string

	// RatePerSec caps outgoing sends so a large drain after a stall
	// doesn't trip Telegram's flood limits. Defaults to 1.
	RatePerSec int
}

// Adapter is a send-only Telegram client. The bot never polls for
// updates; the reminder direction is strictly outbound.
type Adapter struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	limiter *rate.Limiter
}

var _ transport.Sink = (*Adapter)(nil)

// New validates the token against the Bot API (getMe) and prepares the
// rate-limited sender. A token error here is a fatal startup error.
func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: 30 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	r := cfg.RatePerSec
	if r <= 0 {
		r = 1
	}
	return &Adapter{
		cfg:     cfg,
		log:     log,
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(r), r),
	}, nil
}

// Send delivers one HTML message. It blocks on the rate limiter, so
// callers should pass a cancellable context.
func (a *Adapter) Send(ctx context.Context, target transport.Target, body string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	opts := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	}
	if target.ThreadID != 0 {
		opts.ThreadID = target.ThreadID
	}
	_, err := a.bot.Send(&tele.Chat{ID: target.ChatID}, body, opts)
	if err != nil {
		a.log.Warn("telegram send failed", logx.Int64("chat_id", target.ChatID), logx.Err(err))
	}
	return err
}
