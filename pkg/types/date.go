package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Wire layouts used by the backend.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

var dateTimeInputs = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	DateTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Date is a calendar date without a time of day. The zero value is null on
// the wire.
type Date struct {
	time.Time
}

// NewDate returns the date of y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a plain date or any datetime, keeping only the date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{t}, nil
	}
	dt, err := ParseDateTime(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	y, m, d := dt.Date()
	return NewDate(y, m, d), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateTime is a local timestamp with second precision, as the backend
// stores departure times and maintenance windows.
type DateTime struct {
	time.Time
}

// ParseDateTime accepts RFC 3339 and the zone-less layouts browsers and
// the backend produce. Zone-less values are kept as wall clock in UTC; a
// value with an offset is first moved to the local zone, whose wall clock
// is what the backend expects.
func ParseDateTime(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateTime{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return wallClock(t.In(time.Local)), nil
	}
	for _, layout := range dateTimeInputs[1:] {
		if t, err := time.Parse(layout, s); err == nil {
			return DateTime{t}, nil
		}
	}
	return DateTime{}, fmt.Errorf("invalid date and time %q", s)
}

func wallClock(t time.Time) DateTime {
	y, mo, d := t.Date()
	return DateTime{time.Date(y, mo, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

func (t DateTime) String() string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func (t DateTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(DateTimeLayout))
}

func (t *DateTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = DateTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Before reports whether t is strictly earlier than u. Zero values never
// compare as earlier.
func (t DateTime) Before(u DateTime) bool {
	if t.IsZero() || u.IsZero() {
		return false
	}
	return t.Time.Before(u.Time)
}
