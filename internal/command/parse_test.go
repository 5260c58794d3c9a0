package command

import (
	"errors"
	"testing"
	"time"
)

var taipei = time.FixedZone("Asia/Taipei", 8*60*60)

func TestParseValid(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, taipei)

	tests := []struct {
		name  string
		input string
		want  time.Time
		body  string
	}{
		{name: "example", input: "3/20 9:00 A廠商開會", want: time.Date(2024, 3, 20, 9, 0, 0, 0, taipei), body: "A廠商開會"},
		{name: "two digit fields", input: "12/31 23:59 跨年", want: time.Date(2024, 12, 31, 23, 59, 0, 0, taipei), body: "跨年"},
		{name: "zero padded", input: "03/05 07:05 早會", want: time.Date(2024, 3, 5, 7, 5, 0, 0, taipei), body: "早會"},
		{name: "surrounding whitespace", input: "  4/1 10:30 交報告 \n", want: time.Date(2024, 4, 1, 10, 30, 0, 0, taipei), body: "交報告"},
		{name: "body with spaces", input: "4/1 10:30 call  the  bank", want: time.Date(2024, 4, 1, 10, 30, 0, 0, taipei), body: "call  the  bank"},
		{name: "leap day", input: "2/29 8:00 閏日", want: time.Date(2024, 2, 29, 8, 0, 0, 0, taipei), body: "閏日"},
		{name: "midnight", input: "5/1 0:00 午夜", want: time.Date(2024, 5, 1, 0, 0, 0, 0, taipei), body: "午夜"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.input, now, taipei)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if !got.DueAt.Equal(tt.want) {
				t.Fatalf("DueAt = %v, want %v", got.DueAt, tt.want)
			}
			if got.DueAt.Location() != time.UTC {
				t.Fatalf("DueAt location = %v, want UTC", got.DueAt.Location())
			}
			if got.Body != tt.body {
				t.Fatalf("Body = %q, want %q", got.Body, tt.body)
			}
		})
	}
}

func TestParseYearFollowsLocation(t *testing.T) {
	t.Parallel()
	// 2023-12-31 17:00 UTC is already 2024-01-01 in Taipei.
	now := time.Date(2023, 12, 31, 17, 0, 0, 0, time.UTC)
	got, err := Parse("1/2 9:00 開工", now, taipei)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.DueAt.In(taipei).Year() != 2024 {
		t.Fatalf("year = %d, want 2024", got.DueAt.In(taipei).Year())
	}
}

func TestParseNoMatch(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, taipei)

	inputs := []string{
		"",
		"列表",
		"done 123",
		"3/20 9:00",
		"3/20 9:00   ",
		"3/20 9 開會",
		"3-20 9:00 開會",
		"3/20  9:00 開會",
		"3/20 9:00開會",
		"123/20 9:00 開會",
		"3/20 9:000 開會",
		"明天 9:00 開會",
	}
	for _, in := range inputs {
		_, err := Parse(in, now, taipei)
		if !errors.Is(err, ErrNoMatch) {
			t.Fatalf("Parse(%q) error = %v, want ErrNoMatch", in, err)
		}
		if Matches(in) {
			t.Fatalf("Matches(%q) = true, want false", in)
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Kind != NoMatch {
			t.Fatalf("Parse(%q) error is not a NoMatch *ParseError: %v", in, err)
		}
	}
}

func TestParseInvalidDateTime(t *testing.T) {
	t.Parallel()
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, taipei)

	inputs := []string{
		"13/1 9:00 月份錯誤",
		"0/10 9:00 月份錯誤",
		"2/30 9:00 沒有這天",
		"2/29 9:00 非閏年",
		"4/31 9:00 小月",
		"4/0 9:00 零日",
		"4/1 24:00 超過",
		"4/1 9:60 分鐘錯誤",
	}
	for _, in := range inputs {
		_, err := Parse(in, now, taipei)
		if !errors.Is(err, ErrInvalidDateTime) {
			t.Fatalf("Parse(%q) error = %v, want ErrInvalidDateTime", in, err)
		}
		if errors.Is(err, ErrNoMatch) {
			t.Fatalf("Parse(%q) matched ErrNoMatch too", in)
		}
		if !Matches(in) {
			t.Fatalf("Matches(%q) = false, want true", in)
		}
	}
}

func TestDateRejectsDSTGap(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Clocks jump from 02:00 to 03:00 on 2024-03-10.
	if _, err := Date(2024, 3, 10, 2, 30, ny); err == nil {
		t.Fatal("expected error for wall-clock time inside DST gap")
	}
	if _, err := Date(2024, 3, 10, 3, 30, ny); err != nil {
		t.Fatalf("unexpected error after the gap: %v", err)
	}
}
