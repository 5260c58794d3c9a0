package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/reminder"
)

var _ reminder.Notifier = (*Telegram)(nil)

type fakeSender struct {
	mu    sync.Mutex
	sent  []tgbotapi.MessageConfig
	err   error
	block chan struct{}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestNotifySendsToOwnerChat(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	n := NewTelegram(sender, 0, zerolog.Nop())

	r := &models.Reminder{ID: "r1", OwnerID: "123456", Body: "A廠商開會"}
	if err := n.Notify(context.Background(), r, 30); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != 123456 {
		t.Fatalf("ChatID = %d, want 123456", msg.ChatID)
	}
	if want := reminder.NotificationText("A廠商開會", 30); msg.Text != want {
		t.Fatalf("Text = %q, want %q", msg.Text, want)
	}
	if len(msg.Entities) != 1 || msg.Entities[0].Type != "bold" {
		t.Fatalf("unexpected entities: %+v", msg.Entities)
	}
}

func TestNotifyRejectsNonNumericOwner(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	n := NewTelegram(sender, 0, zerolog.Nop())

	err := n.Notify(context.Background(), &models.Reminder{OwnerID: "U1234abc", Body: "x"}, 5)
	if !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("err = %v, want ErrInvalidOwner", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("message sent for invalid owner")
	}
}

func TestNotifySendError(t *testing.T) {
	t.Parallel()
	boom := errors.New("Forbidden: bot was blocked by the user")
	n := NewTelegram(&fakeSender{err: boom}, 0, zerolog.Nop())

	err := n.Notify(context.Background(), &models.Reminder{OwnerID: "1", Body: "x"}, 5)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped send error", err)
	}
}

func TestNotifyHonoursContext(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{block: make(chan struct{})}
	defer close(sender.block)
	n := NewTelegram(sender, 0, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := n.Notify(ctx, &models.Reminder{OwnerID: "1", Body: "x"}, 5)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
}

func TestNotifyRateLimit(t *testing.T) {
	t.Parallel()
	n := NewTelegram(&fakeSender{}, 1, zerolog.Nop())
	r := &models.Reminder{OwnerID: "1", Body: "x"}

	if err := n.Notify(context.Background(), r, 5); err != nil {
		t.Fatalf("first Notify: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := n.Notify(ctx, r, 5); err == nil {
		t.Fatal("expected the second send to wait past the deadline")
	}
}

func TestChatID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{" -100123 ", -100123, false},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ChatID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ChatID(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ChatID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
