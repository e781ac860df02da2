// Package daterange models calendar dates and inclusive date ranges.
package daterange

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Layout is the wire and storage format of a Date.
const Layout = "2006-01-02"

// DisplayLayout is the human-facing format used in exports.
const DisplayLayout = "02 Jan 2006"

var (
	ErrInvalidRange = errors.New("end date must be on or after start date")
	ErrMissingDate  = errors.New("date is required")
)

// Date is a calendar date. Time of day and location are discarded.
type Date struct {
	t time.Time
}

// NewDate returns the calendar date of t as seen in t's own location.
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Parse parses a YYYY-MM-DD date.
func Parse(s string) (Date, error) {
	if s == "" {
		return Date{}, ErrMissingDate
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time { return d.t }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

// Display formats the date for reports.
func (d Date) Display() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DisplayLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as YYYY-MM-DD text so SQL comparisons follow date order.
func (d Date) Value() (driver.Value, error) {
	if d.t.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case time.Time:
		*d = NewDate(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(Layout) {
		s = s[:len(Layout)]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Range is an inclusive span of calendar dates.
type Range struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// New returns a validated range.
func New(start, end Date) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// ParseRange parses and validates a pair of YYYY-MM-DD strings.
func ParseRange(start, end string) (Range, error) {
	s, err := Parse(start)
	if err != nil {
		return Range{}, fmt.Errorf("start date: %w", err)
	}
	e, err := Parse(end)
	if err != nil {
		return Range{}, fmt.Errorf("end date: %w", err)
	}
	return New(s, e)
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrMissingDate
	}
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Days counts the dates in the range, both ends included.
func (r Range) Days() int {
	return int(r.End.t.Sub(r.Start.t).Hours()/24) + 1
}

// Overlaps reports whether the ranges share at least one date.
func (r Range) Overlaps(o Range) bool {
	return !r.Start.After(o.End) && !r.End.Before(o.Start)
}

// Contains reports whether d lies in the range, both ends included.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}
