// Package events reconciles stored events with freshly synthesized ones.
package events

import (
	"context"
	"fmt"

	"github.com/telemock/telemock/internal/models"
	"github.com/telemock/telemock/internal/store"
	"github.com/telemock/telemock/internal/synth"
)

// Service merges the two event sources for a query window. Stored events
// always win over synthesized events sharing the same id; override is by
// identity, never by content comparison.
type Service struct {
	store *store.Store
	synth *synth.EventSynthesizer
}

// NewService creates a merge service over a store and synthesizer
func NewService(st *store.Store, sy *synth.EventSynthesizer) *Service {
	return &Service{store: st, synth: sy}
}

// Query returns the time-sorted union of stored and synthesized events for
// the window and filters, with overridden synthesized events suppressed.
//
// The override check uses the ids of ALL stored events, not just those in
// the window: an override whose event_time was edited out of the window must
// still suppress its synthesized twin.
func (s *Service) Query(ctx context.Context, startMs, endMs int64, filters []string) ([]models.Event, error) {
	stored, err := s.store.QueryWindow(ctx, startMs, endMs, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to query stored events: %w", err)
	}

	generated := s.synth.Events(filters, startMs, endMs)

	storedIDs, err := s.store.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query stored ids: %w", err)
	}

	merged := make([]models.Event, 0, len(stored)+len(generated))
	merged = append(merged, stored...)
	for _, e := range generated {
		if _, overridden := storedIDs[e.ID]; overridden {
			continue
		}
		merged = append(merged, e)
	}

	models.SortEventsByTime(merged)
	return merged, nil
}
