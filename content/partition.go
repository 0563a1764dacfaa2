package content

import (
	"sort"
	"time"
)

// Cutoff selects how "now" is compared with an event's date.
type Cutoff int

const (
	// StartOfDay treats every event dated today or later as upcoming.
	StartOfDay Cutoff = iota
	// Instant compares the event's midnight with the current instant, so an
	// event dated today is already past after 00:00.
	Instant
)

// PartitionEvents splits events into upcoming (soonest first) and past (most
// recent first). Events keep their relative order on equal dates.
func PartitionEvents(events []Event, now time.Time, cutoff Cutoff) (upcoming, past []Event) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for _, e := range events {
		if isUpcoming(e, now, today, cutoff) {
			upcoming = append(upcoming, e)
		} else {
			past = append(past, e)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].EventDate.Before(upcoming[j].EventDate) })
	sort.SliceStable(past, func(i, j int) bool { return past[i].EventDate.After(past[j].EventDate) })
	return upcoming, past
}

func isUpcoming(e Event, now, today time.Time, cutoff Cutoff) bool {
	if cutoff == Instant {
		y, m, d := e.EventDate.Date()
		return !time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Before(now)
	}
	return !e.EventDate.Before(today)
}

// IsUpcoming classifies a single event the same way PartitionEvents does.
func IsUpcoming(e Event, now time.Time, cutoff Cutoff) bool {
	y, m, d := now.Date()
	return isUpcoming(e, now, time.Date(y, m, d, 0, 0, 0, 0, time.UTC), cutoff)
}
