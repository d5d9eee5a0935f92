// Package filter models the sparse criteria a user enters against a
// resource listing and encodes them into backend query parameters.
package filter

import (
	"maps"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Date and datetime layouts understood by the backend.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// Criterion is one typed filter value. An empty criterion is the same as no criterion.
type Criterion interface {
	Empty() bool
	// Apply adds the criterion's parameters for name to v.
	Apply(name string, v url.Values)
}

// Match is an exact-match criterion (text, enum value or foreign-key id).
type Match string

// ID is an exact match on a numeric id. Zero means unset.
func ID(id int64) Match {
	if id == 0 {
		return ""
	}
	return Match(strconv.FormatInt(id, 10))
}

// OnDate is an exact match on a calendar date. The zero time means unset.
func OnDate(t time.Time) Match {
	if t.IsZero() {
		return ""
	}
	return Match(t.Format(DateLayout))
}

func (m Match) Empty() bool { return strings.TrimSpace(string(m)) == "" }

func (m Match) Apply(name string, v url.Values) {
	v.Set(name, strings.TrimSpace(string(m)))
}

// Flag is a boolean criterion. The zero value is unset.
type Flag struct {
	set   bool
	value bool
}

// Bool returns a set Flag.
func Bool(b bool) Flag { return Flag{set: true, value: b} }

// OptionalBool returns a Flag that is unset when b is nil.
func OptionalBool(b *bool) Flag {
	if b == nil {
		return Flag{}
	}
	return Bool(*b)
}

func (f Flag) Empty() bool { return !f.set }

func (f Flag) Apply(name string, v url.Values) {
	v.Set(name, strconv.FormatBool(f.value))
}

// RangeStyle selects how range bounds are named on the wire.
type RangeStyle int

const (
	// MinMax names bounds min<Name> and max<Name>.
	MinMax RangeStyle = iota
	// FromTo names bounds <name>From and <name>To.
	FromTo
)

func boundNames(name string, style RangeStyle) (lo, hi string) {
	if style == FromTo {
		return name + "From", name + "To"
	}
	r, size := utf8.DecodeRuneInString(name)
	title := string(unicode.ToUpper(r)) + name[size:]
	return "min" + title, "max" + title
}

// Range is a numeric range. Either bound may be nil and is then omitted.
type Range struct {
	Min   *decimal.Decimal
	Max   *decimal.Decimal
	Style RangeStyle
}

// Between builds a MinMax range from optional bounds.
func Between(lo, hi *decimal.Decimal) Range {
	return Range{Min: lo, Max: hi}
}

// AtLeast builds a range with only a lower bound.
func AtLeast(lo *decimal.Decimal) Range {
	return Range{Min: lo}
}

func (r Range) Empty() bool { return r.Min == nil && r.Max == nil }

func (r Range) Apply(name string, v url.Values) {
	lo, hi := boundNames(name, r.Style)
	if r.Min != nil {
		v.Set(lo, r.Min.String())
	}
	if r.Max != nil {
		v.Set(hi, r.Max.String())
	}
}

// Period is a date or datetime range, always encoded in FromTo style.
type Period struct {
	From   *time.Time
	To     *time.Time
	Layout string
}

// Dates builds a date-granular period.
func Dates(from, to *time.Time) Period {
	return Period{From: from, To: to, Layout: DateLayout}
}

// Times builds a datetime-granular period.
func Times(from, to *time.Time) Period {
	return Period{From: from, To: to, Layout: DateTimeLayout}
}

func (p Period) Empty() bool {
	return (p.From == nil || p.From.IsZero()) && (p.To == nil || p.To.IsZero())
}

func (p Period) Apply(name string, v url.Values) {
	layout := p.Layout
	if layout == "" {
		layout = DateLayout
	}
	lo, hi := boundNames(name, FromTo)
	if p.From != nil && !p.From.IsZero() {
		v.Set(lo, p.From.Format(layout))
	}
	if p.To != nil && !p.To.IsZero() {
		v.Set(hi, p.To.Format(layout))
	}
}

// State maps criterion names to criteria for one resource. A State is
// treated as a value: With and Without return modified copies.
type State map[string]Criterion

// With returns a copy of s with name set to c. An empty c removes name.
func (s State) With(name string, c Criterion) State {
	next := s.Clone()
	if c == nil || c.Empty() {
		delete(next, name)
		return next
	}
	next[name] = c
	return next
}

// Without returns a copy of s with name removed.
func (s State) Without(name string) State {
	next := s.Clone()
	delete(next, name)
	return next
}

// Clone returns a shallow copy.
func (s State) Clone() State {
	next := make(State, len(s))
	maps.Copy(next, s)
	return next
}

// Active reports the number of non-empty criteria.
func (s State) Active() int {
	n := 0
	for _, c := range s {
		if c != nil && !c.Empty() {
			n++
		}
	}
	return n
}

// Encode converts s into query parameters, omitting absent and empty
// criteria. The result does not depend on insertion order.
func Encode(s State) url.Values {
	v := url.Values{}
	for name, c := range s {
		if name == "" || c == nil || c.Empty() {
			continue
		}
		c.Apply(name, v)
	}
	return v
}

// Query is Encode followed by standard URL encoding with sorted keys.
func Query(s State) string {
	return Encode(s).Encode()
}

// Typed is implemented by per-resource filter structs decoded from user input.
type Typed interface {
	State() State
}
