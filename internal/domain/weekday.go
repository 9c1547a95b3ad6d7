package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidWeekday    = errors.New("invalid weekday")
	ErrInvalidTimeFormat = errors.New("invalid time format")
)

// weekdays maps canonical English names to time.Weekday.
// Matching is case-insensitive; anything else is ErrInvalidWeekday.
var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ruWeekdays holds display names used in poll messages.
var ruWeekdays = map[time.Weekday]string{
	time.Monday:    "понедельник",
	time.Tuesday:   "вторник",
	time.Wednesday: "среда",
	time.Thursday:  "четверг",
	time.Friday:    "пятница",
	time.Saturday:  "суббота",
	time.Sunday:    "воскресенье",
}

const (
	// DateLayout is the storage format for training dates.
	DateLayout = "2006-01-02"
	// DisplayDateLayout is the user-facing date format.
	DisplayDateLayout = "02.01.2006"
)

// ParseWeekday resolves a canonical English weekday name.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
	}
	return wd, nil
}

// IsWeekday reports whether s names one of the seven canonical weekdays.
func IsWeekday(s string) bool {
	_, err := ParseWeekday(s)
	return err == nil
}

// NextOccurrence returns the date of the next occurrence of wd strictly after
// ref's own day. If ref already falls on wd the result is 7 days later, never
// the same day. The time-of-day components of ref are preserved at zero.
func NextOccurrence(wd time.Weekday, ref time.Time) time.Time {
	daysAhead := int(wd) - int(ref.Weekday())
	if daysAhead <= 0 {
		daysAhead += 7
	}
	d := ref.AddDate(0, 0, daysAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, ref.Location())
}

// NextOccurrenceOf combines ParseWeekday and NextOccurrence for a raw token.
func NextOccurrenceOf(weekday string, ref time.Time) (time.Time, error) {
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return time.Time{}, err
	}
	return NextOccurrence(wd, ref), nil
}

// ParseTimeOfDay splits "HH:MM" into hour and minute.
// Training time ranges like "18:00 - 20:00" validate on their first component.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	first := s
	if i := strings.IndexAny(s, " -–"); i > 0 {
		first = s[:i]
	}
	parts := strings.Split(strings.TrimSpace(first), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return hour, minute, nil
}

// NormalizeTimeOfDay re-renders the leading HH:MM component zero-padded so
// "9:00" and "09:00" name the same occurrence and sort correctly as strings.
// A range suffix like " - 20:00" is kept as written.
func NormalizeTimeOfDay(s string) (string, error) {
	hour, minute, err := ParseTimeOfDay(s)
	if err != nil {
		return "", err
	}
	rest := ""
	if i := strings.IndexAny(s, " -–"); i > 0 {
		rest = s[i:]
	}
	return fmt.Sprintf("%02d:%02d%s", hour, minute, rest), nil
}

// FormatDate renders t in the user-facing DD.MM.YYYY format.
func FormatDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}

// FormatDateWithWeekday renders "15.02.2026 (воскресенье)".
func FormatDateWithWeekday(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Format(DisplayDateLayout), ruWeekdays[t.Weekday()])
}
