// Package calendar produces the date strings stamped on sales.
//
// Dates are always zero-padded "YYYY-MM-DD" so that comparing the strings
// byte-wise orders them chronologically; sales reports rely on it.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abgdnv/storekeeper/internal/platform/digits"
)

// ErrInvalidDate is returned by NormalizeDate for unparsable input.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Calendar returns today's date in its own calendar system.
type Calendar interface {
	Today() string
}

// Clock returns the current time.
type Clock func() time.Time

// New returns the calendar registered under name ("jalali" or "gregorian").
// A nil clock means time.Now.
func New(name string, now Clock) (Calendar, error) {
	if now == nil {
		now = time.Now
	}
	switch name {
	case "jalali":
		return Jalali{now: now}, nil
	case "gregorian":
		return Gregorian{now: now}, nil
	default:
		return nil, fmt.Errorf("unknown calendar %q", name)
	}
}

// Jalali is the Solar Hijri calendar.
type Jalali struct {
	now Clock
}

// Today returns the current Jalali date.
func (j Jalali) Today() string {
	y, m, d := FromGregorian(j.now())
	return format(y, m, d)
}

// Gregorian is the proleptic Gregorian calendar in local time.
type Gregorian struct {
	now Clock
}

// Today returns the current Gregorian date.
func (g Gregorian) Today() string {
	return g.now().Format(time.DateOnly)
}

var monthOffsets = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// FromGregorian converts the calendar day of t to a Jalali year, month and day.
func FromGregorian(t time.Time) (year, month, day int) {
	gy, gm, gd := t.Year(), int(t.Month()), t.Day()

	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 355666 + 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd + monthOffsets[gm-1]

	year = -1595 + 33*(days/12053)
	days %= 12053
	year += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		year += (days - 1) / 365
		days = (days - 1) % 365
	}
	if days < 186 {
		month = 1 + days/31
		day = 1 + days%31
	} else {
		month = 7 + (days-186)/30
		day = 1 + (days-186)%30
	}
	return year, month, day
}

// NormalizeDate turns user input such as "۱۴۰۳/۱/۵" into "1403-01-05".
// Separators "-", "/" and "." are accepted. The empty string stays empty.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(digits.Normalize(s))
	if s == "" {
		return "", nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '/' || r == '.'
	})
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	var ymd [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		ymd[i] = n
	}
	y, m, d := ymd[0], ymd[1], ymd[2]
	if y < 1 || y > 9999 || m < 1 || m > 12 || d < 1 || d > 31 {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return format(y, m, d), nil
}

func format(y, m, d int) string {
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}
