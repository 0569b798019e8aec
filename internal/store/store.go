// Package store keeps manually created events for the lifetime of the
// process. Rows live in an in-memory SQLite database; nothing survives a
// restart, which is the intended behavior for a mock backend.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/telemock/telemock/internal/models"
	_ "modernc.org/sqlite"
)

// ErrValidation is returned when a create request is missing required fields
var ErrValidation = errors.New("title and ref_id are required")

// firstSequenceID is the id assigned to the first created event. Sequence ids
// never collide with synthesized events, which are always negative.
const firstSequenceID = 1000

// DefaultDSN keeps the store entirely in memory
const DefaultDSN = ":memory:"

// Store is the mutable event repository. All writes run under a single
// mutex so the sequence counter and the row they produce are never observed
// half-applied.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	seq int64
}

// CreateEvent carries the fields of a create request after boundary decoding
type CreateEvent struct {
	Title       string
	RefID       string
	Category    string
	Description *string
	EventTime   string
}

// New opens the event store. An empty dsn defaults to an in-memory database.
func New(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the in-memory database alive and is all
	// SQLite benefits from anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=10000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragma: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, seq: firstSequenceID}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		ref_id TEXT NOT NULL,
		event_time TEXT NOT NULL,
		event_time_ms INTEGER NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_event_time_ms ON events(event_time_ms);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Create validates and appends a new event under the next sequence id.
// Category defaults to "other" and event_time to the current UTC instant.
func (s *Store) Create(ctx context.Context, req CreateEvent) (models.Event, error) {
	title := strings.TrimSpace(req.Title)
	refID := strings.TrimSpace(req.RefID)
	if title == "" || refID == "" {
		return models.Event{}, ErrValidation
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = string(models.CategoryOther)
	}
	eventTime := strings.TrimSpace(req.EventTime)
	if eventTime == "" {
		eventTime = models.FormatEventTime(time.Now().UnixMilli())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event := models.Event{
		ID:          s.seq,
		Title:       title,
		Description: req.Description,
		RefID:       refID,
		EventTime:   eventTime,
		Category:    models.Category(category),
	}

	if err := s.insert(ctx, event); err != nil {
		return models.Event{}, err
	}

	s.seq++
	return event, nil
}

// UpsertByID applies a partial patch to the event with the given id, or
// inserts a new event under that exact id when none exists. The insert path
// is how a client overrides a synthesized event: it replays the synthesized
// negative id back through update.
func (s *Store) UpsertByID(ctx context.Context, id int64, patch models.EventPatch) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := s.get(ctx, id)
	if err != nil {
		return models.Event{}, err
	}

	if !found {
		event := eventFromPatch(id, patch)
		if err := s.insert(ctx, event); err != nil {
			return models.Event{}, err
		}
		return event, nil
	}

	applyPatch(&existing, patch)

	_, err = s.db.ExecContext(ctx, `
		UPDATE events
		SET title = ?, description = ?, ref_id = ?, event_time = ?, event_time_ms = ?, category = ?
		WHERE id = ?`,
		existing.Title,
		existing.Description,
		existing.RefID,
		existing.EventTime,
		existing.TimeMs(),
		string(existing.Category),
		id,
	)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to update event %d: %w", id, err)
	}

	return existing, nil
}

// QueryWindow returns stored events whose timestamp falls within
// [startMs, endMs] and whose ref_id matches the filter prefixes.
// The window is applied in SQL; the prefix match reuses the same helper the
// synthesizer uses so both sources agree on filter semantics.
func (s *Store) QueryWindow(ctx context.Context, startMs, endMs int64, filters []string) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, ref_id, event_time, category
		FROM events
		WHERE event_time_ms >= ? AND event_time_ms <= ?
		ORDER BY event_time ASC`,
		startMs, endMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		if models.RefMatch(filters, e.RefID) {
			events = append(events, e)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return events, nil
}

// AllIDs returns the set of every stored event id, regardless of window.
// The merge engine uses it to suppress overridden synthesized events.
func (s *Store) AllIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM events")
	if err != nil {
		return nil, fmt.Errorf("failed to query event ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return ids, nil
}

// Count returns the number of stored events
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) insert(ctx context.Context, e models.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, description, ref_id, event_time, event_time_ms, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Title,
		e.Description,
		e.RefID,
		e.EventTime,
		e.TimeMs(),
		string(e.Category),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event %d: %w", e.ID, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, id int64) (models.Event, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, ref_id, event_time, category
		FROM events
		WHERE id = ?`,
		id,
	)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, false, nil
	}
	if err != nil {
		return models.Event{}, false, err
	}
	return e, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (models.Event, error) {
	var e models.Event
	var description sql.NullString
	var category string

	err := row.Scan(&e.ID, &e.Title, &description, &e.RefID, &e.EventTime, &category)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Event{}, err
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to scan event: %w", err)
	}

	if description.Valid {
		e.Description = &description.String
	}
	e.Category = models.Category(category)
	return e, nil
}

// eventFromPatch builds the record inserted when an upsert misses: the
// caller-supplied id with empty-string defaults for absent fields.
func eventFromPatch(id int64, patch models.EventPatch) models.Event {
	e := models.Event{
		ID:        id,
		Title:     trimmedOrEmpty(patch.Title),
		RefID:     trimmedOrEmpty(patch.RefID),
		EventTime: trimmedOrEmpty(patch.EventTime),
		Category:  models.CategoryOther,
	}
	if patch.HasDescription {
		e.Description = patch.Description
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) != "" {
		e.Category = models.Category(strings.TrimSpace(*patch.Category))
	}
	if e.EventTime == "" {
		e.EventTime = models.FormatEventTime(time.Now().UnixMilli())
	}
	return e
}

func applyPatch(e *models.Event, patch models.EventPatch) {
	if patch.Title != nil {
		e.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.HasDescription {
		e.Description = patch.Description
	}
	if patch.RefID != nil {
		e.RefID = strings.TrimSpace(*patch.RefID)
	}
	if patch.Category != nil {
		e.Category = models.Category(strings.TrimSpace(*patch.Category))
	}
	if patch.EventTime != nil {
		e.EventTime = strings.TrimSpace(*patch.EventTime)
	}
}

func trimmedOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
