// Package telegram sends polls and messages through the Bot API via telebot.
// All outbound calls go through a shared rate limiter so a burst of schedules
// never trips Telegram's flood control.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
	"golang.org/x/time/rate"

	"volleybot/internal/poller"
	"volleybot/pkg/logx"
)

// Config configures the adapter.
type Config struct {
	Token       string
	PollTimeout time.Duration // long-poll timeout, default 10s
	RatePerSec  int           // outbound calls per second, default 10
}

type Adapter struct {
	cfg     Config
	log     logx.Logger
	bot     *tele.Bot
	limiter *rate.Limiter
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	return &Adapter{
		cfg:     cfg,
		log:     log.With(logx.String("component", "telegram")),
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Bot exposes the underlying telebot instance for handler registration.
func (a *Adapter) Bot() *tele.Bot { return a.bot }

// Start runs the long-poll loop until ctx is cancelled.
func (a *Adapter) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()
	a.log.Info("long poll started")
	a.bot.Start()
}

// PublishPoll posts a non-anonymous poll and returns its identifiers.
func (a *Adapter) PublishPoll(ctx context.Context, chatID string, topicID int, question string, options []string) (poller.PollRef, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return poller.PollRef{}, err
	}
	to, err := recipient(chatID)
	if err != nil {
		return poller.PollRef{}, err
	}
	p := &tele.Poll{
		Type:      tele.PollRegular,
		Question:  question,
		Anonymous: false,
	}
	p.AddOptions(options...)

	opts := &tele.SendOptions{ThreadID: topicID}
	msg, err := a.bot.Send(to, p, opts)
	if err != nil {
		return poller.PollRef{}, fmt.Errorf("send poll to %s: %w", chatID, err)
	}
	ref := poller.PollRef{MessageID: msg.ID}
	if msg.Poll != nil {
		ref.PollID = msg.Poll.ID
	}
	return ref, nil
}

// Pin pins a message without notifying chat members.
func (a *Adapter) Pin(ctx context.Context, chatID string, messageID int) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	msg, err := editable(chatID, messageID)
	if err != nil {
		return err
	}
	if err := a.bot.Pin(msg, tele.Silent); err != nil {
		return fmt.Errorf("pin %d in %s: %w", messageID, chatID, err)
	}
	return nil
}

// StopPoll closes voting on a published poll.
func (a *Adapter) StopPoll(ctx context.Context, chatID string, messageID int) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	msg, err := editable(chatID, messageID)
	if err != nil {
		return err
	}
	if _, err := a.bot.StopPoll(msg); err != nil {
		return fmt.Errorf("stop poll %d in %s: %w", messageID, chatID, err)
	}
	return nil
}

// Unpin removes a pinned message, used when an active poll is closed.
func (a *Adapter) Unpin(ctx context.Context, chatID string, messageID int) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	id, err := numericChatID(chatID)
	if err != nil {
		return err
	}
	if err := a.bot.Unpin(tele.ChatID(id), messageID); err != nil {
		return fmt.Errorf("unpin %d in %s: %w", messageID, chatID, err)
	}
	return nil
}

// SendMessage sends plain text to a chat, optionally into a forum topic.
func (a *Adapter) SendMessage(ctx context.Context, chatID string, topicID int, text string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	to, err := recipient(chatID)
	if err != nil {
		return err
	}
	if _, err := a.bot.Send(to, text, &tele.SendOptions{ThreadID: topicID}); err != nil {
		return fmt.Errorf("send to %s: %w", chatID, err)
	}
	return nil
}

func recipient(chatID string) (tele.Recipient, error) {
	id, err := numericChatID(chatID)
	if err != nil {
		return nil, err
	}
	return tele.ChatID(id), nil
}

func editable(chatID string, messageID int) (tele.Editable, error) {
	id, err := numericChatID(chatID)
	if err != nil {
		return nil, err
	}
	return &tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: id}, nil
}

func numericChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("chat id %q is not numeric: %w", chatID, err)
	}
	return id, nil
}
