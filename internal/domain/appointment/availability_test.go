package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

var (
	monday   = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	earlyDay = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
)

func hours(start, end string) *models.WorkingHours {
	return &models.WorkingHours{StaffID: 1, DayOfWeek: 1, StartTime: start, EndTime: end, IsActive: true}
}

func at(h, m int) time.Time {
	return time.Date(2025, 6, 2, h, m, 0, 0, time.UTC)
}

func slotTimes(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Time
	}
	return out
}

func TestComputeSlotsGridIgnoresDuration(t *testing.T) {
	slots := ComputeSlots(hours("09:00", "12:00"), monday, 90*time.Minute, nil, earlyDay)

	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, slotTimes(slots))
	for _, s := range slots {
		assert.True(t, s.Available)
	}
	assert.Equal(t, "9:00 AM", slots[0].Display)
}

func TestComputeSlotsLastCandidateFitsExactly(t *testing.T) {
	slots := ComputeSlots(hours("09:00", "18:00"), monday, 150*time.Minute, nil, earlyDay)

	require.NotEmpty(t, slots)
	last := slots[len(slots)-1]
	assert.Equal(t, "15:30", last.Time)
	assert.Equal(t, "3:30 PM", last.Display)
	assert.NotContains(t, slotTimes(slots), "16:00")
}

func TestComputeSlotsNoWorkingHours(t *testing.T) {
	inactive := hours("09:00", "17:00")
	inactive.IsActive = false

	assert.Empty(t, ComputeSlots(nil, monday, time.Hour, nil, earlyDay))
	assert.Empty(t, ComputeSlots(inactive, monday, time.Hour, nil, earlyDay))
	assert.Empty(t, ComputeSlots(hours("bad", "17:00"), monday, time.Hour, nil, earlyDay))
	assert.Empty(t, ComputeSlots(hours("09:00", "17:00"), monday, 0, nil, earlyDay))
}

func TestComputeSlotsServiceLongerThanWindow(t *testing.T) {
	assert.Empty(t, ComputeSlots(hours("09:00", "10:00"), monday, 90*time.Minute, nil, earlyDay))
}

func TestComputeSlotsConflicts(t *testing.T) {
	busy := []Interval{{Start: at(10, 0), End: at(11, 0)}}

	slots := ComputeSlots(hours("09:00", "12:00"), monday, 60*time.Minute, busy, earlyDay)

	got := map[string]bool{}
	for _, s := range slots {
		got[s.Time] = s.Available
	}
	assert.Equal(t, map[string]bool{
		"09:00": true,  // ends exactly at 10:00, touching only
		"09:30": false, // overlaps 10:00-10:30
		"10:00": false,
		"10:30": false,
		"11:00": true, // starts exactly when the booking ends
	}, got)
}

func TestComputeSlotsPastCandidatesUnavailable(t *testing.T) {
	now := at(10, 15)

	slots := ComputeSlots(hours("09:00", "12:00"), monday, 30*time.Minute, nil, now)

	for _, s := range slots {
		if s.Start.Before(now) {
			assert.False(t, s.Available, s.Time)
		} else {
			assert.True(t, s.Available, s.Time)
		}
	}
	assert.Len(t, slots, 6)
}

func TestComputeSlotsChronological(t *testing.T) {
	slots := ComputeSlots(hours("08:00", "20:00"), monday, 45*time.Minute, nil, earlyDay)
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, SlotGranularity, slots[i].Start.Sub(slots[i-1].Start))
	}
}

func TestIntervalOverlaps(t *testing.T) {
	a := Interval{Start: at(9, 0), End: at(10, 0)}

	assert.False(t, a.Overlaps(Interval{Start: at(10, 0), End: at(11, 0)}))
	assert.False(t, a.Overlaps(Interval{Start: at(8, 0), End: at(9, 0)}))
	assert.True(t, a.Overlaps(Interval{Start: at(9, 59), End: at(11, 0)}))
	assert.True(t, a.Overlaps(Interval{Start: at(9, 15), End: at(9, 45)}))
}

func TestIsSlotAvailable(t *testing.T) {
	slots := ComputeSlots(hours("09:00", "11:00"), monday, 30*time.Minute,
		[]Interval{{Start: at(9, 30), End: at(10, 0)}}, earlyDay)

	assert.True(t, IsSlotAvailable(slots, at(9, 0)))
	assert.False(t, IsSlotAvailable(slots, at(9, 30)))
	assert.False(t, IsSlotAvailable(slots, at(9, 15)), "off-grid start")
	assert.False(t, IsSlotAvailable(slots, at(11, 0)), "outside window")
}
