package fakeapi

import (
	"strconv"
	"time"

	"railctl/internal/console"

	"github.com/shopspring/decimal"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func idOf[T console.Entity](p *T) int64 {
	if p == nil {
		return 0
	}
	return (*p).EntityID()
}

func ptr[T any](v T) *T {
	return &v
}

// inRange reports whether v lies within the optional bounds. A nil v only
// passes when both bounds are unset.
func inRange(v *decimal.Decimal, lo, hi *decimal.Decimal) bool {
	if lo == nil && hi == nil {
		return true
	}
	if v == nil {
		return false
	}
	if lo != nil && v.LessThan(*lo) {
		return false
	}
	if hi != nil && v.GreaterThan(*hi) {
		return false
	}
	return true
}

func intRange(v int, lo, hi *int) bool {
	d := decimal.NewFromInt(int64(v))
	return inRange(&d, decimalOf(lo), decimalOf(hi))
}

func decimalOf(n *int) *decimal.Decimal {
	if n == nil {
		return nil
	}
	d := decimal.NewFromInt(int64(*n))
	return &d
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// inDates reports whether t falls on a day within [from, to]. Bounds are
// inclusive and compared by calendar day.
func inDates(t time.Time, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if t.IsZero() {
		return false
	}
	d := day(t)
	if from != nil && d.Before(day(*from)) {
		return false
	}
	if to != nil && d.After(day(*to)) {
		return false
	}
	return true
}

// notAfter compares wall-clock values, ignoring zones: the backend stores
// local times without an offset.
func notAfter(t time.Time, limit *time.Time) bool {
	if limit == nil {
		return true
	}
	if t.IsZero() {
		return false
	}
	wall := func(x time.Time) time.Time {
		return time.Date(x.Year(), x.Month(), x.Day(), x.Hour(), x.Minute(), x.Second(), 0, time.UTC)
	}
	return !wall(t).After(wall(*limit))
}

func sameDay(a, b time.Time) bool {
	return day(a).Equal(day(b))
}

// years returns the whole years between from and now.
func years(from, now time.Time) int {
	if from.IsZero() {
		return 0
	}
	n := now.Year() - from.Year()
	if now.YearDay() < from.YearDay() {
		n--
	}
	return n
}
