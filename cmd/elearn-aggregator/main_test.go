package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayRange(t *testing.T) {
	start := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	days, err := dayRange(start, end)
	require.NoError(t, err)
	require.Len(t, days, 4)
	assert.Equal(t, "2026-02-28", days[1].Format("2006-01-02"))
	assert.Equal(t, end, days[3])

	_, err = dayRange(end, start)
	assert.Error(t, err)
}

func TestDaysToAggregate(t *testing.T) {
	now := time.Date(2026, 10, 17, 13, 45, 0, 0, time.UTC)
	reset := func() { *date, *from, *to = "", "", "" }
	t.Cleanup(reset)

	reset()
	days, err := daysToAggregate(now)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)}, days)

	reset()
	*date = "2026-01-05"
	days, err = daysToAggregate(now)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", days[0].Format("2006-01-02"))

	reset()
	*from = "2026-10-14"
	days, err = daysToAggregate(now)
	require.NoError(t, err)
	assert.Len(t, days, 3, "from through yesterday")

	reset()
	*from, *to = "2026-10-01", "2026-10-05"
	days, err = daysToAggregate(now)
	require.NoError(t, err)
	assert.Len(t, days, 5)

	reset()
	*date = "10/05/2026"
	_, err = daysToAggregate(now)
	assert.Error(t, err)
}
