package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/store"
)

// DocumentStore is the gateway surface the repository needs.
// *store.Gateway implements it.
type DocumentStore interface {
	ReadDocument(ctx context.Context, name string) (*store.Snapshot, error)
	WriteDocument(ctx context.Context, name string, doc *store.Document, ifVersion int64) (int64, error)
}

// Repository exposes the catalog as a flat list of events over the two
// grouped documents.
type Repository struct {
	docs   DocumentStore
	logger *slog.Logger
	now    func() time.Time

	stamp  bool
	author string
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// WithClock overrides the time source used for metadata stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithMetadata enables createdAt/updatedAt/createdBy stamping on add and
// update. author fills createdBy when the event has none.
func WithMetadata(author string) Option {
	return func(r *Repository) {
		r.stamp = true
		r.author = author
	}
}

// New creates a repository over docs.
func New(docs DocumentStore, opts ...Option) *Repository {
	r := &Repository{
		docs:   docs,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetAllEvents returns every event: territory partitions in document key
// order, each in stored order, followed by the milestone events. Each
// event's TerritoryType is set to its partition.
//
// An empty catalog returns an empty slice and nil. Read failures are
// returned, never reported as an empty catalog.
func (r *Repository) GetAllEvents(ctx context.Context) ([]event.Event, error) {
	territory, err := r.docs.ReadDocument(ctx, store.TerritoryDocument)
	if err != nil {
		return nil, fmt.Errorf("get all events: %w", err)
	}
	events, err := flattenTerritories(territory.Doc)
	if err != nil {
		return nil, fmt.Errorf("get all events: %w", err)
	}

	milestones, err := r.readPartition(ctx, event.Milestone)
	if err != nil {
		return nil, fmt.Errorf("get all events: %w", err)
	}
	decoded, err := decodeAll(milestones.items, event.Milestone)
	if err != nil {
		return nil, fmt.Errorf("get all events: %w", err)
	}
	events = append(events, decoded...)

	if events == nil {
		events = []event.Event{}
	}
	return events, nil
}

// AddEvent validates e and appends it to partition p, creating the
// partition key if needed.
func (r *Repository) AddEvent(ctx context.Context, e event.Event, p event.Partition) error {
	if err := check(e, p); err != nil {
		return fmt.Errorf("add event: %w", err)
	}
	raw, err := r.prepare(e, p, nil)
	if err != nil {
		return fmt.Errorf("add event: %w", err)
	}

	view, err := r.readPartition(ctx, p)
	if err != nil {
		return fmt.Errorf("add event %q: %w", e.ID, err)
	}
	if err := r.write(ctx, view, append(view.items, raw)); err != nil {
		return fmt.Errorf("add event %q: %w", e.ID, err)
	}

	r.logger.Info("event added", "id", e.ID, "partition", p)
	return nil
}

// UpdateEvent replaces the event with e.ID in partition p in a single
// read-modify-write. The first match keeps its position, later
// duplicates are dropped, and e is appended when nothing matches.
// Afterwards exactly one event with that id exists in p.
//
// Matching is confined to p; the same id in another partition is left
// alone.
func (r *Repository) UpdateEvent(ctx context.Context, e event.Event, p event.Partition) error {
	// Validate before reading so an invalid event never touches the store.
	if err := check(e, p); err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	view, err := r.readPartition(ctx, p)
	if err != nil {
		return fmt.Errorf("update event %q: %w", e.ID, err)
	}

	id := event.Normalize(e).ID
	var previous json.RawMessage
	kept := make([]json.RawMessage, 0, len(view.items)+1)
	at := -1
	for _, item := range view.items {
		if event.RecordID(item) != id {
			kept = append(kept, item)
			continue
		}
		if at < 0 {
			at = len(kept)
			previous = item
			kept = append(kept, nil)
		}
	}

	raw, err := r.prepare(e, p, previous)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if at < 0 {
		kept = append(kept, raw)
	} else {
		kept[at] = raw
	}

	if err := r.write(ctx, view, kept); err != nil {
		return fmt.Errorf("update event %q: %w", id, err)
	}

	r.logger.Info("event updated", "id", id, "partition", p, "inserted", at < 0)
	return nil
}

// DeleteEvent removes every event with id from partition p and returns
// how many were removed. The id is trimmed as on add and update. Deleting an id that is not there is a no-op and
// writes nothing.
func (r *Repository) DeleteEvent(ctx context.Context, id string, p event.Partition) (int, error) {
	id = strings.TrimSpace(id)
	if err := checkTarget(id, p); err != nil {
		return 0, fmt.Errorf("delete event: %w", err)
	}

	view, err := r.readPartition(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("delete event %q: %w", id, err)
	}

	kept := make([]json.RawMessage, 0, len(view.items))
	for _, item := range view.items {
		if event.RecordID(item) != id {
			kept = append(kept, item)
		}
	}
	removed := len(view.items) - len(kept)
	if removed == 0 {
		r.logger.Debug("event not found, nothing deleted", "id", id, "partition", p)
		return 0, nil
	}

	if err := r.write(ctx, view, kept); err != nil {
		return 0, fmt.Errorf("delete event %q: %w", id, err)
	}

	r.logger.Info("event deleted", "id", id, "partition", p, "removed", removed)
	return removed, nil
}

// check normalizes e and validates it for partition p.
func check(e event.Event, p event.Partition) error {
	e = event.Normalize(e)
	if err := checkTarget(e.ID, p); err != nil {
		return err
	}
	return e.Validate(p).Err()
}

// prepare normalizes and stamps a checked event and returns its stored
// form. previous is the stored record being replaced, if any.
func (r *Repository) prepare(e event.Event, p event.Partition, previous json.RawMessage) (json.RawMessage, error) {
	e = event.Normalize(e)
	if r.stamp {
		e = r.stampMetadata(e, previous)
	}
	return event.Encode(e)
}

func (r *Repository) stampMetadata(e event.Event, previous json.RawMessage) event.Event {
	now := r.now().UnixMilli()
	if previous != nil {
		if old, err := event.Decode(previous, ""); err == nil {
			if e.CreatedAt == 0 {
				e.CreatedAt = old.CreatedAt
			}
			if e.CreatedBy == "" {
				e.CreatedBy = old.CreatedBy
			}
		}
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	if e.CreatedBy == "" {
		e.CreatedBy = r.author
	}
	e.UpdatedAt = now
	return e
}

// checkTarget rejects an empty id or partition before any I/O.
func checkTarget(id string, p event.Partition) error {
	var violations []event.Violation
	if p == "" {
		violations = append(violations, event.Violation{Field: "territoryType", Code: event.CodeMissingField, Message: "partition is required"})
	}
	if id == "" {
		violations = append(violations, event.Violation{Field: "id", Code: event.CodeMissingField, Message: "missing required field"})
	}
	if len(violations) == 0 {
		return nil
	}
	return &event.ValidationError{ID: id, Partition: p, Violations: violations}
}
