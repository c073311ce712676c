package gcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, time.UTC)
}

func TestFreeSlots_NoEvents(t *testing.T) {
	slots := FreeSlots(nil, day(9, 0), day(17, 0), 60*time.Minute)
	require.Len(t, slots, 1)
	require.Equal(t, day(9, 0), slots[0].Start)
	require.Equal(t, day(17, 0), slots[0].End)
}

func TestFreeSlots_GapsAroundEvents(t *testing.T) {
	busy := []Interval{
		{Start: day(10, 0), End: day(11, 0)},
		{Start: day(13, 0), End: day(14, 30)},
	}
	slots := FreeSlots(busy, day(9, 0), day(17, 0), 60*time.Minute)
	require.Len(t, slots, 3)
	require.Equal(t, Interval{Start: day(9, 0), End: day(10, 0)}, slots[0])
	require.Equal(t, Interval{Start: day(11, 0), End: day(13, 0)}, slots[1])
	require.Equal(t, Interval{Start: day(14, 30), End: day(17, 0)}, slots[2])
}

func TestFreeSlots_TooShortGapSkipped(t *testing.T) {
	busy := []Interval{
		{Start: day(9, 30), End: day(16, 45)},
	}
	slots := FreeSlots(busy, day(9, 0), day(17, 0), 60*time.Minute)
	require.Empty(t, slots)
}

func TestFreeSlots_OverlappingEvents(t *testing.T) {
	busy := []Interval{
		{Start: day(10, 0), End: day(12, 0)},
		{Start: day(11, 0), End: day(11, 30)}, // nested inside the first
	}
	slots := FreeSlots(busy, day(9, 0), day(17, 0), 60*time.Minute)
	require.Len(t, slots, 2)
	require.Equal(t, Interval{Start: day(9, 0), End: day(10, 0)}, slots[0])
	require.Equal(t, Interval{Start: day(12, 0), End: day(17, 0)}, slots[1])
}

func TestFindFreeTime_RejectsInvalidHours(t *testing.T) {
	p := &Planner{loc: time.UTC}

	_, err := p.FindFreeTime("2025-06-02", 30, 17, 9)
	require.Error(t, err)
	require.Contains(t, err.Error(), "end_hour")

	_, err = p.FindFreeTime("2025-06-02", 30, 0, 0)
	require.Error(t, err)
}

func TestParseWhen(t *testing.T) {
	p := &Planner{loc: time.UTC}

	rfc, err := p.parseWhen("2025-06-02T10:00:00Z")
	require.NoError(t, err)
	require.Equal(t, day(10, 0), rfc.UTC())

	naive, err := p.parseWhen("2025-06-02T10:00:00")
	require.NoError(t, err)
	require.Equal(t, day(10, 0), naive)

	_, err = p.parseWhen("next tuesday")
	require.Error(t, err)
}
