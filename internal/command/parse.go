// Package command turns the free-text "add reminder" message into a due
// instant and a body.
//
// The accepted grammar is
//
//	<month>/<day> <hour>:<minute> <body>
//
// with one- or two-digit numerals and single spaces between the fields, for
// example "3/20 9:00 A廠商開會". The year is the current calendar year in the
// given location.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoMatch         = errors.New("input does not match reminder grammar")
	ErrInvalidDateTime = errors.New("date or time cannot be resolved")
)

type ErrorKind int

const (
	NoMatch ErrorKind = iota + 1
	InvalidDateTime
)

func (k ErrorKind) String() string {
	switch k {
	case NoMatch:
		return "NoMatch"
	case InvalidDateTime:
		return "InvalidDateTime"
	default:
		return "Unknown"
	}
}

// ParseError is returned by Parse. It matches ErrNoMatch or ErrInvalidDateTime
// under errors.Is depending on Kind.
type ParseError struct {
	Kind  ErrorKind
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %q: %s: %v", e.Input, e.Kind, e.Err)
	}
	return fmt.Sprintf("parse %q: %s", e.Input, e.Kind)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrNoMatch:
		return e.Kind == NoMatch
	case ErrInvalidDateTime:
		return e.Kind == InvalidDateTime
	}
	return false
}

// Command is a successfully parsed reminder request.
type Command struct {
	DueAt time.Time // UTC
	Body  string
}

var reminderRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2}) (\d{1,2}):(\d{1,2}) (.+)$`)

// Matches reports whether text has the shape of a reminder command, without
// resolving the date.
func Matches(text string) bool {
	return reminderRe.MatchString(strings.TrimSpace(text))
}

// Parse parses text relative to now. Wall-clock fields are read in loc and the
// result is returned as a UTC instant.
func Parse(text string, now time.Time, loc *time.Location) (Command, error) {
	if loc == nil {
		loc = time.UTC
	}
	input := strings.TrimSpace(text)

	m := reminderRe.FindStringSubmatch(input)
	if m == nil {
		return Command{}, &ParseError{Kind: NoMatch, Input: input}
	}

	body := strings.TrimSpace(m[5])
	if body == "" {
		return Command{}, &ParseError{Kind: NoMatch, Input: input}
	}

	// The regexp guarantees at most two digits, so Atoi cannot fail.
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])

	year := now.In(loc).Year()
	dueAt, err := Date(year, month, day, hour, minute, loc)
	if err != nil {
		return Command{}, &ParseError{Kind: InvalidDateTime, Input: input, Err: err}
	}

	return Command{DueAt: dueAt.UTC(), Body: body}, nil
}

// Date builds a wall-clock instant in loc and fails instead of normalising
// out-of-range fields (2/30, 13/1, 24:00) or times skipped by a DST jump.
func Date(year, month, day, hour, minute int, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", month)
	}
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("hour %d out of range", hour)
	}
	if minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("minute %d out of range", minute)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute {
		return time.Time{}, fmt.Errorf("%04d-%02d-%02d %02d:%02d does not exist in %s",
			year, month, day, hour, minute, loc)
	}
	return t, nil
}
