package content

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventOn(id, date string) Event {
	d, _ := time.Parse(DayLayout, date)
	return Event{ID: id, Title: id, EventDate: d}
}

func TestPartitionEventsStartOfDay(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)
	events := []Event{
		eventOn("past-old", "2024-01-01"),
		eventOn("today", "2024-06-15"),
		eventOn("tomorrow", "2024-06-16"),
		eventOn("yesterday", "2024-06-14"),
		eventOn("later", "2024-12-01"),
	}

	upcoming, past := PartitionEvents(events, now, StartOfDay)

	assert.Equal(t, []string{"today", "tomorrow", "later"}, ids(upcoming))
	assert.Equal(t, []string{"yesterday", "past-old"}, ids(past))
}

func TestPartitionEventsInstantTreatsTodayAsPast(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)
	events := []Event{eventOn("today", "2024-06-15"), eventOn("tomorrow", "2024-06-16")}

	upcoming, past := PartitionEvents(events, now, Instant)
	assert.Equal(t, []string{"tomorrow"}, ids(upcoming))
	assert.Equal(t, []string{"today"}, ids(past))

	assert.True(t, IsUpcoming(events[0], now, StartOfDay))
	assert.False(t, IsUpcoming(events[0], now, Instant))
}

func TestPartitionEventsProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base.AddDate(0, 0, 50).Add(9 * time.Hour)
	today := base.AddDate(0, 0, 50)

	for round := 0; round < 50; round++ {
		var events []Event
		n := rng.Intn(30)
		for i := 0; i < n; i++ {
			d := base.AddDate(0, 0, rng.Intn(100))
			events = append(events, Event{ID: d.Format(DayLayout) + "-" + string(rune('a'+i)), EventDate: d})
		}
		for _, cutoff := range []Cutoff{StartOfDay, Instant} {
			upcoming, past := PartitionEvents(events, now, cutoff)
			require.Equal(t, len(events), len(upcoming)+len(past))

			seen := map[string]int{}
			for _, e := range upcoming {
				seen[e.ID]++
				if cutoff == StartOfDay {
					assert.False(t, e.EventDate.Before(today))
				}
			}
			for _, e := range past {
				seen[e.ID]++
				if cutoff == StartOfDay {
					assert.True(t, e.EventDate.Before(today))
				}
			}
			for _, e := range events {
				assert.Equal(t, 1, seen[e.ID], "every event lands in exactly one partition")
			}
			for i := 1; i < len(upcoming); i++ {
				assert.False(t, upcoming[i].EventDate.Before(upcoming[i-1].EventDate))
			}
			for i := 1; i < len(past); i++ {
				assert.False(t, past[i].EventDate.After(past[i-1].EventDate))
			}
		}
	}
}

func TestPartitionEventsEmpty(t *testing.T) {
	upcoming, past := PartitionEvents(nil, time.Now(), StartOfDay)
	assert.Empty(t, upcoming)
	assert.Empty(t, past)
}

func ids(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
