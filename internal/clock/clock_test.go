package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c := NewFixed(start)

	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())

	later := start.AddDate(0, 0, 1)
	c.Set(later)
	assert.Equal(t, later, c.Now())
}

func TestSystemClockMovesForward(t *testing.T) {
	before := time.Now()
	assert.False(t, System().Now().Before(before))
}
