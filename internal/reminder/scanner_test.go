package reminder_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/reminder"
	"github.com/hray3182/remindbot/internal/repository"
)

type sent struct {
	id          string
	owner       string
	minutesLeft int
}

// recordingNotifier records deliveries and fails for owners listed in fail.
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []sent
	fail  map[string]bool
	delay time.Duration
}

func (n *recordingNotifier) Notify(ctx context.Context, r *models.Reminder, minutesLeft int) error {
	if n.delay > 0 {
		select {
		case <-time.After(n.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n.fail[r.OwnerID] {
		return errors.New("push rejected")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{id: r.ID, owner: r.OwnerID, minutesLeft: minutesLeft})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func seed(t *testing.T, store reminder.Store, owner, body string, dueAt time.Time) *models.Reminder {
	t.Helper()
	r := &models.Reminder{OwnerID: owner, Body: body, DueAt: dueAt}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return r
}

var scanNow = time.Date(2024, 3, 20, 8, 30, 0, 0, taipei)

func TestScannerNotifiesOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryReminderRepository()
	notifier := &recordingNotifier{}
	scanner := reminder.NewScanner(store, notifier, reminder.ScannerConfig{}, zerolog.Nop())

	r := seed(t, store, "u1", "A廠商開會", time.Date(2024, 3, 20, 9, 0, 0, 0, taipei))

	sum, err := scanner.Run(ctx, scanNow)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Candidates != 1 || sum.Notified != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v, want 1 candidate, 1 notified", sum)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].minutesLeft != 30 || notifier.sent[0].owner != "u1" {
		t.Fatalf("unexpected deliveries: %+v", notifier.sent)
	}

	stored, _ := store.FindByID(ctx, r.ID)
	if !stored.IsNotified {
		t.Fatal("reminder not marked notified")
	}

	sum, err = scanner.Run(ctx, scanNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Candidates != 0 || notifier.count() != 1 {
		t.Fatalf("second scan summary = %+v, deliveries = %d", sum, notifier.count())
	}
}

func TestScannerWindowBoundaries(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryReminderRepository()
	notifier := &recordingNotifier{}
	scanner := reminder.NewScanner(store, notifier, reminder.ScannerConfig{Lookahead: time.Hour}, zerolog.Nop())

	seed(t, store, "u1", "now", scanNow)
	seed(t, store, "u1", "past", scanNow.Add(-time.Minute))
	seed(t, store, "u1", "edge", scanNow.Add(time.Hour))
	seed(t, store, "u1", "beyond", scanNow.Add(time.Hour+time.Minute))

	sum, err := scanner.Run(context.Background(), scanNow)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Candidates != 1 || sum.Notified != 1 {
		t.Fatalf("summary = %+v, want only the window edge", sum)
	}
	if notifier.sent[0].minutesLeft != 60 {
		t.Fatalf("minutesLeft = %d, want 60", notifier.sent[0].minutesLeft)
	}
	if !sum.WindowEnd.Equal(scanNow.Add(time.Hour)) {
		t.Fatalf("WindowEnd = %v, want %v", sum.WindowEnd, scanNow.Add(time.Hour))
	}
}

func TestScannerSkipsCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryReminderRepository()
	notifier := &recordingNotifier{}
	scanner := reminder.NewScanner(store, notifier, reminder.ScannerConfig{}, zerolog.Nop())

	r := seed(t, store, "u1", "done", scanNow.Add(10*time.Minute))
	if _, err := store.UpdateStatus(ctx, r.ID, "u1", models.MarkCompleted()); err != nil {
		t.Fatalf("complete: %v", err)
	}

	sum, err := scanner.Run(ctx, scanNow)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Candidates != 0 || notifier.count() != 0 {
		t.Fatalf("completed reminder was scanned: %+v", sum)
	}
}

func TestScannerFailureLeavesReminderEligible(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryReminderRepository()
	notifier := &recordingNotifier{fail: map[string]bool{"blocked": true}}
	scanner := reminder.NewScanner(store, notifier, reminder.ScannerConfig{}, zerolog.Nop())

	bad := seed(t, store, "blocked", "a", scanNow.Add(10*time.Minute))
	good := seed(t, store, "u1", "b", scanNow.Add(20*time.Minute))

	sum, err := scanner.Run(ctx, scanNow)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Candidates != 2 || sum.Notified != 1 || sum.Failed != 1 {
		t.Fatalf("summary = %+v, want 2 candidates, 1 notified, 1 failed", sum)
	}

	if stored, _ := store.FindByID(ctx, bad.ID); stored.IsNotified {
		t.Fatal("failed delivery marked notified")
	}
	if stored, _ := store.FindByID(ctx, good.ID); !stored.IsNotified {
		t.Fatal("delivered reminder not marked notified")
	}

	notifier.fail = nil
	sum, err = scanner.Run(ctx, scanNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if sum.Candidates != 1 || sum.Notified != 1 {
		t.Fatalf("retry summary = %+v, want the failed reminder retried", sum)
	}
}

func TestScannerCandidateTimeout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := repository.NewMemoryReminderRepository()
	notifier := &recordingNotifier{delay: time.Second}
	scanner := reminder.NewScanner(store, notifier, reminder.ScannerConfig{
		CandidateTimeout: 20 * time.Millisecond,
	}, zerolog.Nop())

	r := seed(t, store, "u1", "slow", scanNow.Add(10*time.Minute))

	start := time.Now()
	sum, err := scanner.Run(ctx, scanNow)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("scan took %v, timeout not applied", elapsed)
	}
	if sum.Failed != 1 || sum.Notified != 0 {
		t.Fatalf("summary = %+v, want 1 failed", sum)
	}
	if stored, _ := store.FindByID(ctx, r.ID); stored.IsNotified {
		t.Fatal("timed out delivery marked notified")
	}
}

// concurrencyNotifier tracks the peak number of concurrent Notify calls.
type concurrencyNotifier struct {
	active atomic.Int32
	peak   atomic.Int32
}

func (n *concurrencyNotifier) Notify(context.Context, *models.Reminder, int) error {
	cur := n.active.Add(1)
	defer n.active.Add(-1)
	for {
		p := n.peak.Load()
		if cur <= p || n.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

func TestScannerConcurrencyLimit(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryReminderRepository()
	notifier := &concurrencyNotifier{}
	scanner := reminder.NewScanner(store, notifier, reminder.ScannerConfig{Concurrency: 2}, zerolog.Nop())

	for i := 0; i < 8; i++ {
		seed(t, store, "u1", "r", scanNow.Add(time.Duration(i+1)*time.Minute))
	}

	sum, err := scanner.Run(context.Background(), scanNow)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Notified != 8 {
		t.Fatalf("Notified = %d, want 8", sum.Notified)
	}
	if peak := notifier.peak.Load(); peak > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestScannerConcurrentRunsNotifyOnce(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryReminderRepository()
	notifier := &recordingNotifier{}
	scanner := reminder.NewScanner(store, notifier, reminder.ScannerConfig{}, zerolog.Nop())
	seed(t, store, "u1", "r", scanNow.Add(5*time.Minute))

	var notified atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := scanner.Run(context.Background(), scanNow)
			if err != nil {
				t.Errorf("Run: %v", err)
				return
			}
			notified.Add(int32(sum.Notified))
		}()
	}
	wg.Wait()

	if notified.Load() != 1 {
		t.Fatalf("reminder recorded as notified %d times, want 1", notified.Load())
	}
}

func TestScannerTrigger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name   string
		key    string
		secret string
		ok     bool
	}{
		{"match", "s3cret", "s3cret", true},
		{"mismatch", "s3cret", "guess", false},
		{"empty secret", "s3cret", "", false},
		{"no key configured", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryReminderRepository()
			notifier := &recordingNotifier{}
			scanner := reminder.NewScanner(store, notifier, reminder.ScannerConfig{APIKey: tt.key}, zerolog.Nop())
			r := seed(t, store, "u1", "r", scanNow.Add(5*time.Minute))

			sum, err := scanner.Trigger(ctx, tt.secret, scanNow)
			if tt.ok {
				if err != nil || sum.Notified != 1 {
					t.Fatalf("Trigger = (%+v, %v), want 1 notified", sum, err)
				}
				return
			}
			if !errors.Is(err, reminder.ErrUnauthorized) {
				t.Fatalf("err = %v, want ErrUnauthorized", err)
			}
			if notifier.count() != 0 {
				t.Fatal("unauthorized trigger sent notifications")
			}
			if stored, _ := store.FindByID(ctx, r.ID); stored.IsNotified {
				t.Fatal("unauthorized trigger changed state")
			}
		})
	}
}

func TestScannerQueryFailure(t *testing.T) {
	t.Parallel()
	scanner := reminder.NewScanner(failingStore{}, &recordingNotifier{}, reminder.ScannerConfig{}, zerolog.Nop())
	_, err := scanner.Run(context.Background(), scanNow)
	if !errors.Is(err, reminder.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
}

func TestNotificationText(t *testing.T) {
	t.Parallel()
	got := reminder.NotificationText("A廠商開會", 30)
	want := "⏰ 提醒：A廠商開會\n距離開始還有約 30 分鐘"
	if got != want {
		t.Fatalf("NotificationText = %q, want %q", got, want)
	}
}

func TestMinutesLeftRounds(t *testing.T) {
	t.Parallel()
	now := scanNow
	tests := []struct {
		due  time.Time
		want int
	}{
		{now.Add(30 * time.Minute), 30},
		{now.Add(29*time.Minute + 40*time.Second), 30},
		{now.Add(29*time.Minute + 20*time.Second), 29},
	}
	for _, tt := range tests {
		if got := reminder.MinutesLeft(tt.due, now); got != tt.want {
			t.Fatalf("MinutesLeft(%v) = %d, want %d", tt.due.Sub(now), got, tt.want)
		}
	}
}
