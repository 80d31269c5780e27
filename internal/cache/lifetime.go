package cache

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Lifetime is a relative time offset. Applied to "now" it yields the cutoff
// before which artifacts are stale. Offsets are normally negative.
type Lifetime struct {
	Years    int
	Months   int
	Days     int
	Duration time.Duration

	expr string
}

var lifetimeTerm = regexp.MustCompile(`^([+-]?)\s*(\d+)\s*([a-z]+)`)

// ParseLifetime parses a relative time expression.
//
// Accepted forms are Go durations ("90m", "-36h") and sequences of
// "<n> <unit>" terms with units second, minute, hour, day, week, fortnight,
// month and year (singular, plural or abbreviated), each optionally signed,
// optionally followed by "ago". "", "never" and "none" disable expiry.
//
// An expression that does not start with a minus sign is read as an age,
// so "1 day" and "-1 day" are the same lifetime and "1 day -2 hours" reaches
// 26 hours back.
func ParseLifetime(s string) (Lifetime, error) {
	expr := strings.ToLower(strings.TrimSpace(s))
	switch expr {
	case "", "never", "none", "0":
		return Lifetime{}, nil
	}

	if d, err := time.ParseDuration(expr); err == nil {
		if d > 0 {
			d = -d
		}
		return Lifetime{Duration: d, expr: s}, nil
	}

	l := Lifetime{expr: s}
	rest := expr
	ago := false
	if trimmed, ok := strings.CutSuffix(rest, "ago"); ok {
		rest = strings.TrimSpace(trimmed)
		ago = true
	}

	signed := strings.HasPrefix(rest, "-")
	terms := 0
	for rest != "" {
		m := lifetimeTerm.FindStringSubmatch(rest)
		if m == nil {
			return Lifetime{}, fmt.Errorf("invalid lifetime %q: unexpected %q", s, rest)
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return Lifetime{}, fmt.Errorf("invalid lifetime %q: %w", s, err)
		}
		if m[1] == "-" {
			n = -n
		}
		if err := l.add(n, m[3]); err != nil {
			return Lifetime{}, fmt.Errorf("invalid lifetime %q: %w", s, err)
		}
		terms++
		rest = strings.TrimLeft(rest[len(m[0]):], " ,\t")
		rest = strings.TrimPrefix(rest, "and ")
	}
	if terms == 0 {
		return Lifetime{}, fmt.Errorf("invalid lifetime %q", s)
	}

	if ago || !signed {
		l = l.negate()
	}
	return l, nil
}

func (l *Lifetime) add(n int, unit string) error {
	switch unit {
	case "s", "sec", "secs", "second", "seconds":
		l.Duration += time.Duration(n) * time.Second
	case "min", "mins", "minute", "minutes":
		l.Duration += time.Duration(n) * time.Minute
	case "h", "hour", "hours":
		l.Duration += time.Duration(n) * time.Hour
	case "d", "day", "days":
		l.Days += n
	case "w", "week", "weeks":
		l.Days += 7 * n
	case "fortnight", "fortnights":
		l.Days += 14 * n
	case "month", "months":
		l.Months += n
	case "y", "year", "years":
		l.Years += n
	default:
		return fmt.Errorf("unknown unit %q", unit)
	}
	return nil
}

func (l Lifetime) negate() Lifetime {
	l.Years, l.Months, l.Days, l.Duration = -abs(l.Years), -abs(l.Months), -abs(l.Days), -absDuration(l.Duration)
	return l
}

// IsZero reports whether the lifetime never expires artifacts.
func (l Lifetime) IsZero() bool {
	return l.Years == 0 && l.Months == 0 && l.Days == 0 && l.Duration == 0
}

// Cutoff returns now shifted by the lifetime.
func (l Lifetime) Cutoff(now time.Time) time.Time {
	return now.AddDate(l.Years, l.Months, l.Days).Add(l.Duration)
}

func (l Lifetime) String() string {
	if l.IsZero() {
		return "never"
	}
	if l.expr != "" {
		return l.expr
	}
	return fmt.Sprintf("%dy%dm%dd%s", l.Years, l.Months, l.Days, l.Duration)
}

// IsStale reports whether an artifact modified at mtime has outlived l.
func IsStale(mtime, now time.Time, l Lifetime) bool {
	if l.IsZero() {
		return false
	}
	return mtime.Before(l.Cutoff(now))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
