package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/BruksfildServices01/salon-scheduler/internal/timezone"
)

var errNoStartTime = errors.New("no start time")

// parseStart accepts either an RFC3339 start_time or a date + HH:mm pair
// read in the salon time zone.
func parseStart(loc *time.Location, startTime, date, hm string) (time.Time, error) {
	if s := strings.TrimSpace(startTime); s != "" {
		return time.Parse(time.RFC3339, s)
	}
	if date == "" || hm == "" {
		return time.Time{}, errNoStartTime
	}
	return timezone.ParseDateTime(date, hm, loc)
}

// parseIDList parses "1,2,3". Empty entries are skipped.
func parseIDList(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, errors.New("invalid id " + part)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func parseUint(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
