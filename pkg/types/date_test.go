package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTimeZoneLess(t *testing.T) {
	for _, in := range []string{"2026-12-01T10:30:00", "2026-12-01T10:30", "2026-12-01 10:30"} {
		dt, err := ParseDateTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(2026, 12, 1, 10, 30, 0, 0, time.UTC), dt.Time, in)
	}
}

func TestParseDateTimeWithOffsetUsesLocalWallClock(t *testing.T) {
	in := "2026-12-01T10:30:00+03:00"
	instant, err := time.Parse(time.RFC3339, in)
	require.NoError(t, err)

	dt, err := ParseDateTime(in)
	require.NoError(t, err)

	data, err := json.Marshal(dt)
	require.NoError(t, err)
	assert.Equal(t, `"`+instant.In(time.Local).Format(DateTimeLayout)+`"`, string(data))

	var back DateTime
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, dt.Equal(back.Time), "marshalled value reads back unchanged")
}

func TestParseDateTimeRejectsGarbage(t *testing.T) {
	_, err := ParseDateTime("tomorrow")
	require.Error(t, err)

	dt, err := ParseDateTime("  ")
	require.NoError(t, err)
	assert.True(t, dt.IsZero())
}

func TestParseDateKeepsDatePart(t *testing.T) {
	d, err := ParseDate("2026-12-01T23:10:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-12-01", d.String())

	data, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
