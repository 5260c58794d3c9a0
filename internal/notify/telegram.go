// Package notify delivers due-reminder pushes over Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/models"
)

var ErrInvalidOwner = errors.New("owner id is not a telegram chat id")

// Sender is the part of *tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Telegram struct {
	sender  Sender
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewTelegram returns a notifier sending through sender. ratePerSec caps
// outbound messages; zero disables the limit.
func NewTelegram(sender Sender, ratePerSec float64, log zerolog.Logger) *Telegram {
	t := &Telegram{
		sender: sender,
		log:    log.With().Str("component", "notify").Logger(),
	}
	if ratePerSec > 0 {
		burst := int(math.Ceil(ratePerSec))
		t.limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return t
}

// Notify sends the push for r. It returns when the message is accepted by
// Telegram or ctx is done, whichever comes first.
func (t *Telegram) Notify(ctx context.Context, r *models.Reminder, minutesLeft int) error {
	chatID, err := ChatID(r.OwnerID)
	if err != nil {
		return err
	}
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	msg := Message(r.Body, minutesLeft).Config(chatID)

	done := make(chan error, 1)
	go func() {
		_, err := t.sender.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send to %d: %w", chatID, err)
		}
		t.log.Debug().Int64("chat_id", chatID).Msg("push sent")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send to %d: %w", chatID, ctx.Err())
	}
}

// ChatID converts an owner id to the Telegram chat it is reachable in.
func ChatID(ownerID string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ownerID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOwner, ownerID)
	}
	return id, nil
}

// Message renders the push for a reminder; its plain text is
// reminder.NotificationText with the body in bold.
func Message(body string, minutesLeft int) *format.Message {
	m := &format.Message{}
	m.Text("⏰ 提醒：").Bold(body).Text(fmt.Sprintf("\n距離開始還有約 %d 分鐘", minutesLeft))
	return m
}
