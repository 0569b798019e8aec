package store

import (
	"context"
	"strings"
	"testing"

	"github.com/telemock/telemock/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New("")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestCreate_SequenceStartsAt1000(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, CreateEvent{Title: "a", RefID: "POAM1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := s.Create(ctx, CreateEvent{Title: "b", RefID: "POAM2"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if first.ID != 1000 {
		t.Errorf("Expected first id 1000, got %d", first.ID)
	}
	if second.ID != 1001 {
		t.Errorf("Expected second id 1001, got %d", second.ID)
	}
}

func TestCreate_Validation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateEvent
	}{
		{"empty title", CreateEvent{RefID: "POAM1"}},
		{"empty ref_id", CreateEvent{Title: "t"}},
		{"whitespace title", CreateEvent{Title: "   ", RefID: "POAM1"}},
		{"whitespace ref_id", CreateEvent{Title: "t", RefID: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Create(ctx, tt.req); err != ErrValidation {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}

	// Failed creates must not consume sequence ids
	e, err := s.Create(ctx, CreateEvent{Title: "ok", RefID: "POAM1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if e.ID != 1000 {
		t.Errorf("Expected id 1000 after failed creates, got %d", e.ID)
	}
}

func TestCreate_Defaults(t *testing.T) {
	s := setupTestStore(t)

	e, err := s.Create(context.Background(), CreateEvent{Title: " t ", RefID: " POAM1.Z "})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if e.Title != "t" || e.RefID != "POAM1.Z" {
		t.Errorf("Expected trimmed fields, got %q / %q", e.Title, e.RefID)
	}
	if e.Category != models.CategoryOther {
		t.Errorf("Expected default category other, got %s", e.Category)
	}
	if e.EventTime == "" {
		t.Error("Expected defaulted event_time")
	}
	if !strings.HasSuffix(e.EventTime, "Z") {
		t.Errorf("Expected UTC Z suffix, got %s", e.EventTime)
	}
	if e.Description != nil {
		t.Errorf("Expected nil description, got %v", *e.Description)
	}
}

func TestUpsertByID_PatchExisting(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, CreateEvent{
		Title:       "original",
		RefID:       "POAM1",
		Category:    "fault",
		Description: strPtr("details"),
		EventTime:   models.FormatEventTime(1_000_000),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := s.UpsertByID(ctx, created.ID, models.EventPatch{Title: strPtr("edited")})
	if err != nil {
		t.Fatalf("UpsertByID failed: %v", err)
	}

	if updated.Title != "edited" {
		t.Errorf("Expected title edited, got %s", updated.Title)
	}
	// Absent fields keep their prior values
	if updated.RefID != "POAM1" || updated.Category != models.CategoryFault {
		t.Errorf("Patch clobbered absent fields: %+v", updated)
	}
	if updated.Description == nil || *updated.Description != "details" {
		t.Error("Patch clobbered absent description")
	}
	if updated.EventTime != models.FormatEventTime(1_000_000) {
		t.Errorf("Patch clobbered event_time: %s", updated.EventTime)
	}
}

func TestUpsertByID_ExplicitNullClearsDescription(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, CreateEvent{Title: "t", RefID: "POAM1", Description: strPtr("x")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := s.UpsertByID(ctx, created.ID, models.EventPatch{HasDescription: true})
	if err != nil {
		t.Fatalf("UpsertByID failed: %v", err)
	}
	if updated.Description != nil {
		t.Errorf("Expected cleared description, got %v", *updated.Description)
	}
}

func TestUpsertByID_InsertIfAbsent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	inserted, err := s.UpsertByID(ctx, 4242, models.EventPatch{
		Title:     strPtr("manual"),
		RefID:     strPtr("POAM2.X"),
		EventTime: strPtr(models.FormatEventTime(2_000_000)),
	})
	if err != nil {
		t.Fatalf("UpsertByID failed: %v", err)
	}

	if inserted.ID != 4242 {
		t.Errorf("Expected caller-supplied id 4242, got %d", inserted.ID)
	}
	if inserted.Category != models.CategoryOther {
		t.Errorf("Expected default category, got %s", inserted.Category)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 stored event, got %d", count)
	}
}

func TestUpsertByID_NegativeID(t *testing.T) {
	// Overriding a synthesized event replays its negative id through update
	s := setupTestStore(t)
	ctx := context.Background()

	inserted, err := s.UpsertByID(ctx, -7, models.EventPatch{
		Title:     strPtr("override"),
		RefID:     strPtr("POAM1"),
		EventTime: strPtr(models.FormatEventTime(500_000)),
	})
	if err != nil {
		t.Fatalf("UpsertByID failed: %v", err)
	}
	if inserted.ID != -7 {
		t.Errorf("Expected id -7, got %d", inserted.ID)
	}

	ids, err := s.AllIDs(ctx)
	if err != nil {
		t.Fatalf("AllIDs failed: %v", err)
	}
	if _, ok := ids[-7]; !ok {
		t.Error("Expected -7 in stored id set")
	}
}

func TestUpsertByID_InsertDefaultsEventTime(t *testing.T) {
	s := setupTestStore(t)

	inserted, err := s.UpsertByID(context.Background(), 5, models.EventPatch{Title: strPtr("x")})
	if err != nil {
		t.Fatalf("UpsertByID failed: %v", err)
	}
	if inserted.EventTime == "" {
		t.Error("Expected defaulted event_time on insert")
	}
}

func TestQueryWindow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mk := func(title, ref string, ms int64) {
		t.Helper()
		_, err := s.Create(ctx, CreateEvent{Title: title, RefID: ref, EventTime: models.FormatEventTime(ms)})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	mk("in-window poam1", "POAM1.Z.MA", 5_000)
	mk("in-window poam2", "POAM2.X.CUR", 6_000)
	mk("before window", "POAM1.Z.MA", 1_000)
	mk("after window", "POAM1.Z.MA", 99_000)

	events, err := s.QueryWindow(ctx, 4_000, 10_000, nil)
	if err != nil {
		t.Fatalf("QueryWindow failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events in window, got %d", len(events))
	}

	filtered, err := s.QueryWindow(ctx, 4_000, 10_000, []string{"POAM1"})
	if err != nil {
		t.Fatalf("QueryWindow failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("Expected 1 filtered event, got %d", len(filtered))
	}
	if filtered[0].Title != "in-window poam1" {
		t.Errorf("Unexpected event: %+v", filtered[0])
	}
}

func TestQueryWindow_InclusiveBounds(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, ms := range []int64{4_000, 10_000} {
		_, err := s.Create(ctx, CreateEvent{Title: "edge", RefID: "POAM1", EventTime: models.FormatEventTime(ms)})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	events, err := s.QueryWindow(ctx, 4_000, 10_000, nil)
	if err != nil {
		t.Fatalf("QueryWindow failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected both boundary events, got %d", len(events))
	}
}

func TestAllIDs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, CreateEvent{Title: "a", RefID: "POAM1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.UpsertByID(ctx, -3, models.EventPatch{Title: strPtr("o"), RefID: strPtr("POAM1")}); err != nil {
		t.Fatalf("UpsertByID failed: %v", err)
	}

	ids, err := s.AllIDs(ctx)
	if err != nil {
		t.Fatalf("AllIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 ids, got %d", len(ids))
	}
	for _, want := range []int64{1000, -3} {
		if _, ok := ids[want]; !ok {
			t.Errorf("Missing id %d", want)
		}
	}
}
