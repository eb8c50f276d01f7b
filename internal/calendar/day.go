package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the wire format of a calendar day.
const Layout = "2006-01-02"

// Day is a calendar day held at local midnight. The zero Day is "unset".
type Day struct{ t time.Time }

// ParseDay parses YYYY-MM-DD at local midnight.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, fmt.Errorf("empty day")
	}
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return Day{t: t}, nil
}

// MustParseDay is ParseDay for literals; it panics on malformed input.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DayOf truncates t to its calendar day (using t's own year/month/day).
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, time.Local)}
}

// Today returns the local calendar day of now.
func Today(now time.Time) Day { return DayOf(now.In(time.Local)) }

func (d Day) IsZero() bool { return d.t.IsZero() }

func (d Day) Time() time.Time { return d.t }

func (d Day) AddDays(n int) Day {
	y, m, dd := d.t.Date()
	return Day{t: time.Date(y, m, dd+n, 0, 0, 0, 0, time.Local)}
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Day) UnmarshalText(b []byte) error {
	p, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// ---- ordering ----

func Less(a, b Day) bool           { return a.t.Before(b.t) }
func LessOrEqual(a, b Day) bool    { return !b.t.Before(a.t) }
func GreaterOrEqual(a, b Day) bool { return !a.t.Before(b.t) }

// Range is a (from, to) pair of days. Interpretation (half-open or inclusive)
// belongs to the predicate that consumes it.
type Range struct {
	From Day `json:"from"`
	To   Day `json:"to"`
}

func (r Range) String() string { return r.From.String() + "→" + r.To.String() }

// Valid reports whether both ends are set and From < To.
func (r Range) Valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && Less(r.From, r.To)
}

// ParseRange parses both ends and requires from < to.
func ParseRange(from, to string) (Range, error) {
	f, err := ParseDay(from)
	if err != nil {
		return Range{}, err
	}
	t, err := ParseDay(to)
	if err != nil {
		return Range{}, err
	}
	r := Range{From: f, To: t}
	if !r.Valid() {
		return Range{}, fmt.Errorf("from %s must be before to %s", f, t)
	}
	return r, nil
}
