package anticheat

import (
	"sort"
	"time"

	"github.com/eduforge/gradex/internal/models"
)

// EventLogEntry is one row of the reconstructed behavioral timeline
type EventLogEntry struct {
	Event           string    `json:"event"`
	DurationSeconds *float64  `json:"duration,omitempty"`
	At              time.Time `json:"at"`
}

// Timeline is the reconstructed behavioral summary for one attempt
type Timeline struct {
	EventLog         []EventLogEntry
	AwayTimeSeconds  float64
	TotalTimeSeconds float64
	FocusTimeSeconds float64
	PasteAttempts    int
}

// ReconstructTimeline rebuilds away intervals and paste activity from raw
// telemetry events. A hidden/blur event opens an away interval and the next
// visible/focus event closes it. An interval left open at the end of the
// stream is dropped unless countDangling is set, in which case it counts
// through the last event timestamp.
func ReconstructTimeline(events []models.Event, countDangling bool) Timeline {
	tl := Timeline{EventLog: []EventLogEntry{}}
	if len(events) == 0 {
		return tl
	}

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	var awayStart *time.Time
	for _, ev := range sorted {
		entry := EventLogEntry{Event: string(ev.Type), At: ev.At}

		switch ev.Type {
		case models.EventTabHidden, models.EventWindowBlur:
			if awayStart == nil {
				t := ev.At
				awayStart = &t
			}
		case models.EventTabVisible, models.EventWindowFocus:
			if awayStart != nil {
				d := ev.At.Sub(*awayStart).Seconds()
				if d > 0 {
					tl.AwayTimeSeconds += d
					entry.DurationSeconds = &d
				}
				awayStart = nil
			}
		case models.EventPasteAttempted:
			tl.PasteAttempts++
		}

		tl.EventLog = append(tl.EventLog, entry)
	}

	last := sorted[len(sorted)-1].At
	if awayStart != nil && countDangling {
		if d := last.Sub(*awayStart).Seconds(); d > 0 {
			tl.AwayTimeSeconds += d
		}
	}

	tl.TotalTimeSeconds = last.Sub(sorted[0].At).Seconds()
	if tl.TotalTimeSeconds < 1 {
		tl.TotalTimeSeconds = 1
	}
	tl.FocusTimeSeconds = tl.TotalTimeSeconds - tl.AwayTimeSeconds
	if tl.FocusTimeSeconds < 0 {
		tl.FocusTimeSeconds = 0
	}
	return tl
}
