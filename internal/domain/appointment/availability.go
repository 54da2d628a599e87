package appointment

import (
	"fmt"
	"time"

	"github.com/BruksfildServices01/salon-scheduler/internal/models"
)

// SlotGranularity is the fixed spacing of candidate start times.
const SlotGranularity = 30 * time.Minute

type AvailabilityInput struct {
	StaffID    uint
	Date       time.Time
	ServiceIDs []uint
	Duration   time.Duration
}

// Interval is a half-open [Start, End) range.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

type Slot struct {
	Time      string    `json:"time"`
	Display   string    `json:"display"`
	Start     time.Time `json:"start"`
	Available bool      `json:"available"`
}

// WorkingWindow is a staff member's working interval on one calendar date.
type WorkingWindow struct {
	Start time.Time
	End   time.Time
}

// WindowOn places wh on date's calendar day in date's location.
// It returns false when wh is missing, inactive or malformed.
func WindowOn(wh *models.WorkingHours, date time.Time) (WorkingWindow, bool) {
	if wh == nil || !wh.IsActive {
		return WorkingWindow{}, false
	}
	start, err := clockOn(date, wh.StartTime)
	if err != nil {
		return WorkingWindow{}, false
	}
	end, err := clockOn(date, wh.EndTime)
	if err != nil || !end.After(start) {
		return WorkingWindow{}, false
	}
	return WorkingWindow{Start: start, End: end}, true
}

func clockOn(date time.Time, hm string) (time.Time, error) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", hm, err)
	}
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0,
		date.Location(),
	), nil
}

// ValidClock reports whether hm is a "HH:mm" clock time.
func ValidClock(hm string) bool {
	_, err := time.Parse("15:04", hm)
	return err == nil && len(hm) == 5
}

// ComputeSlots lists candidate starts every SlotGranularity from the window
// start while start+duration fits. A candidate is unavailable when it overlaps
// a busy interval or starts before now.
func ComputeSlots(
	wh *models.WorkingHours,
	date time.Time,
	duration time.Duration,
	busy []Interval,
	now time.Time,
) []Slot {

	window, ok := WindowOn(wh, date)
	if !ok || duration <= 0 {
		return []Slot{}
	}

	slots := make([]Slot, 0, int(window.End.Sub(window.Start)/SlotGranularity)+1)

	for cur := window.Start; !cur.Add(duration).After(window.End); cur = cur.Add(SlotGranularity) {
		candidate := Interval{Start: cur, End: cur.Add(duration)}

		available := !cur.Before(now)
		if available {
			for _, b := range busy {
				if candidate.Overlaps(b) {
					available = false
					break
				}
			}
		}

		slots = append(slots, Slot{
			Time:      cur.Format("15:04"),
			Display:   cur.Format("3:04 PM"),
			Start:     cur,
			Available: available,
		})
	}

	return slots
}

// IsSlotAvailable reports whether start is an available candidate in slots.
func IsSlotAvailable(slots []Slot, start time.Time) bool {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s.Available
		}
	}
	return false
}
