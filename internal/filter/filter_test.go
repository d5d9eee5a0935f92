package filter

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func day(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestEncodeEmptyState(t *testing.T) {
	assert.Empty(t, Encode(nil))
	assert.Empty(t, Encode(State{}))
	assert.Equal(t, "", Query(State{}))
}

func TestEncodeDropsEmptyCriteria(t *testing.T) {
	s := State{
		"departmentId": Match(""),
		"status":       Match("   "),
		"isActive":     Flag{},
		"salary":       Range{},
		"hireDate":     Period{},
		"positionId":   nil,
	}
	assert.Empty(t, Encode(s))
}

func TestEncodeCriteria(t *testing.T) {
	tests := []struct {
		name string
		s    State
		want url.Values
	}{
		{
			name: "match",
			s:    State{"departmentId": ID(3)},
			want: url.Values{"departmentId": {"3"}},
		},
		{
			name: "zero id is absent",
			s:    State{"departmentId": ID(0)},
			want: url.Values{},
		},
		{
			name: "flag false is present",
			s:    State{"isActive": Bool(false)},
			want: url.Values{"isActive": {"false"}},
		},
		{
			name: "min max range both bounds",
			s:    State{"distance": Between(dec("100"), dec("250.5"))},
			want: url.Values{"minDistance": {"100"}, "maxDistance": {"250.5"}},
		},
		{
			name: "lower bound only",
			s:    State{"averageSalary": AtLeast(dec("40000"))},
			want: url.Values{"minAverageSalary": {"40000"}},
		},
		{
			name: "from to range",
			s:    State{"price": Range{Max: dec("99.90"), Style: FromTo}},
			want: url.Values{"priceTo": {"99.9"}},
		},
		{
			name: "date period",
			s:    State{"purchaseDate": Dates(day("2024-01-01"), day("2024-01-31"))},
			want: url.Values{"purchaseDateFrom": {"2024-01-01"}, "purchaseDateTo": {"2024-01-31"}},
		},
		{
			name: "datetime upper bound only",
			s: State{"arrivalTime": Times(nil, func() *time.Time {
				ts := time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)
				return &ts
			}())},
			want: url.Values{"arrivalTimeTo": {"2024-05-01T18:30"}},
		},
		{
			name: "exact date",
			s:    State{"departureDate": OnDate(*day("2024-03-08"))},
			want: url.Values{"departureDate": {"2024-03-08"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.s))
		})
	}
}

func TestEncodeOrderIndependent(t *testing.T) {
	a := State{}.
		With("routeId", ID(7)).
		With("ticketStatus", Match("paid")).
		With("price", Between(dec("10"), nil))
	b := State{}.
		With("price", Between(dec("10"), nil)).
		With("ticketStatus", Match("paid")).
		With("routeId", ID(7))

	assert.Equal(t, Query(a), Query(b))
	assert.Equal(t, "minPrice=10&routeId=7&ticketStatus=paid", Query(a))
}

func TestQueryEscapes(t *testing.T) {
	s := State{"name": Match("Nord & Süd")}
	assert.Equal(t, "name=Nord+%26+S%C3%BCd", Query(s))
}

func TestStateIsValue(t *testing.T) {
	base := State{"departmentId": ID(3)}
	next := base.With("isActive", Bool(true))

	assert.Len(t, base, 1)
	assert.Len(t, next, 2)

	cleared := next.With("departmentId", Match(""))
	_, ok := cleared["departmentId"]
	assert.False(t, ok, "empty criterion removes the key")
	assert.Len(t, next, 2)

	assert.Equal(t, 1, next.Without("isActive").Active())
}

func TestBoundNames(t *testing.T) {
	lo, hi := boundNames("age", MinMax)
	require.Equal(t, "minAge", lo)
	require.Equal(t, "maxAge", hi)

	lo, hi = boundNames("maintPlan", FromTo)
	assert.Equal(t, "maintPlanFrom", lo)
	assert.Equal(t, "maintPlanTo", hi)
}
