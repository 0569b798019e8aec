package synth

import (
	"fmt"
	"strings"

	"github.com/telemock/telemock/internal/catalog"
	"github.com/telemock/telemock/internal/models"
	"github.com/telemock/telemock/internal/seed"
)

// Event count bounds: one event per whole minute of window, clamped
const (
	minEventCount = 12
	maxEventCount = 50
	msPerMinute   = 60_000
)

// eventTitles maps each category to its pool of human-readable titles.
// The slice order is part of the deterministic output contract.
var eventTitles = map[models.Category][]string{
	models.CategoryMaintenance: {
		"Routine maintenance",
		"Part replacement",
		"Lubrication",
		"Scheduled service",
	},
	models.CategoryFault: {
		"Anomaly alarm",
		"Sensor fault",
		"Communication timeout",
		"Over-temperature",
		"Overcurrent",
		"Homing failure",
		"Abnormal vibration",
	},
	models.CategoryCalibration: {
		"Sensor calibration",
		"Axis calibration",
		"Position calibration",
		"Periodic calibration",
	},
	models.CategoryOther: {
		"Inspection round",
		"Manual note",
		"Environment change",
		"Test event",
	},
}

// EventSynthesizer generates pseudo-random events referencing catalog entries
type EventSynthesizer struct {
	cat *catalog.Catalog
}

// NewEventSynthesizer creates an event synthesizer over a catalog
func NewEventSynthesizer(cat *catalog.Catalog) *EventSynthesizer {
	return &EventSynthesizer{cat: cat}
}

// Events generates the synthetic events for a window and filter set. The
// generator is seeded per request with "events:<start>:<end>:<filters>", so
// identical parameters give byte-identical output; the negative ids -(i+1)
// are positional within one call and carry no meaning across different
// parameters.
//
// Candidates whose timestamp lands outside [startMs, endMs] or whose
// reference fails the prefix match are dropped after generation, then the
// survivors are sorted by event_time.
func (s *EventSynthesizer) Events(filters []string, startMs, endMs int64) []models.Event {
	span := endMs - startMs
	if span < 1 {
		span = 1
	}
	count := span / msPerMinute
	if count < minEventCount {
		count = minEventCount
	}
	if count > maxEventCount {
		count = maxEventCount
	}

	pool := s.cat.EventRefPool()
	rng := seed.NewRand(fmt.Sprintf("events:%d:%d:%s", startMs, endMs, strings.Join(filters, ",")))

	out := make([]models.Event, 0, count)
	for i := int64(0); i < count; i++ {
		// Draw order is fixed: timestamp, category, title, reference
		t := startMs + rng.Int63n(span)
		cat := models.Categories[rng.Intn(len(models.Categories))]
		titles := eventTitles[cat]
		title := titles[rng.Intn(len(titles))]
		ref := pool[rng.Intn(len(pool))]

		out = append(out, models.Event{
			ID:        -(i + 1),
			Title:     title,
			RefID:     ref,
			EventTime: models.FormatEventTime(t),
			Category:  cat,
		})
	}

	kept := out[:0]
	for _, e := range out {
		ms := e.TimeMs()
		if ms < startMs || ms > endMs {
			continue
		}
		if !models.RefMatch(filters, e.RefID) {
			continue
		}
		kept = append(kept, e)
	}

	result := kept[:len(kept):len(kept)]
	models.SortEventsByTime(result)
	return result
}
