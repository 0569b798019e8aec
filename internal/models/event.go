package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// EventTimeLayout formats timestamps as ISO-8601 UTC with fixed-width
// milliseconds and a literal "Z" suffix. The fixed width matters: merged
// event lists are sorted lexicographically by event_time.
const EventTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Category classifies an event
type Category string

const (
	CategoryMaintenance Category = "maintenance"
	CategoryFault       Category = "fault"
	CategoryCalibration Category = "calibration"
	CategoryOther       Category = "other"
)

// Categories lists all event categories in their canonical order.
// The event synthesizer draws from this slice by index, so the order is
// part of the deterministic output contract.
var Categories = []Category{
	CategoryMaintenance,
	CategoryFault,
	CategoryCalibration,
	CategoryOther,
}

// Event represents a maintenance/fault event attached to a catalog reference.
// Stored events carry ids >= 1000 (or a caller-supplied id via upsert);
// synthesized events carry negative ids and are never persisted.
type Event struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	RefID       string   `json:"ref_id"`
	EventTime   string   `json:"event_time"`
	Category    Category `json:"category"`
}

// TimeMs returns the event timestamp in epoch milliseconds, or 0 if the
// event_time string does not parse.
func (e *Event) TimeMs() int64 {
	ms, err := ParseEventTimeMs(e.EventTime)
	if err != nil {
		return 0
	}
	return ms
}

// FormatEventTime renders epoch milliseconds in the canonical event_time format
func FormatEventTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(EventTimeLayout)
}

// ParseEventTimeMs parses an ISO-8601 timestamp to epoch milliseconds
func ParseEventTimeMs(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// RefMatch reports whether ref starts with at least one of the filters.
// An empty filter list matches everything.
//
// This is a raw prefix test, not a dot-boundary comparison: a filter
// "POAM1.Z" would also match a hypothetical "POAM1.ZZ.x". Clients depend
// on the prefix semantics, so it is kept as-is.
func RefMatch(filters []string, ref string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if strings.HasPrefix(ref, f) {
			return true
		}
	}
	return false
}

// SortEventsByTime orders events by event_time ascending. All timestamps
// share the fixed-width UTC format, so a string sort is a time sort.
func SortEventsByTime(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventTime < events[j].EventTime
	})
}

// SeriesPoint is a single time-series sample
type SeriesPoint struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

// EventPatch is a partial event update. Nil pointer fields were absent from
// the request body and leave the stored value untouched. Description tracks
// key presence separately so an explicit JSON null clears the value.
type EventPatch struct {
	Title          *string
	Description    *string
	HasDescription bool
	RefID          *string
	EventTime      *string
	Category       *string
}

// UnmarshalJSON decodes a patch body, recording whether the description key
// was present at all (absent and null mean different things for it).
func (p *EventPatch) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		RefID       *string `json:"ref_id"`
		EventTime   *string `json:"event_time"`
		Category    *string `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	_, hasDescription := keys["description"]

	p.Title = raw.Title
	p.Description = raw.Description
	p.HasDescription = hasDescription
	p.RefID = raw.RefID
	p.EventTime = raw.EventTime
	p.Category = raw.Category
	return nil
}
