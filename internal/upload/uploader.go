package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/roach88/eventdocs/internal/errs"
	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/store"
)

// DocumentStore is the gateway surface the uploader needs.
type DocumentStore interface {
	ReadDocument(ctx context.Context, name string) (*store.Snapshot, error)
	WriteDocument(ctx context.Context, name string, doc *store.Document, ifVersion int64) (int64, error)
}

// Status is the result of an upload attempt.
type Status string

const (
	StatusUploaded             Status = "uploaded"
	StatusDryRun               Status = "dry_run"
	StatusConfirmationRequired Status = "confirmation_required"
	StatusAborted              Status = "aborted"
)

// PartitionCount is the number of events in one partition.
type PartitionCount struct {
	Partition event.Partition `json:"partition"`
	Events    int             `json:"events"`
}

// Outcome describes what an upload did, or would have done.
//
// StatusConfirmationRequired means the target already has content and
// force was not set. Nothing was written; the caller decides whether to
// retry with force or to Decline.
type Outcome struct {
	Document   string           `json:"document"`
	Status     Status           `json:"status"`
	Total      int              `json:"total"`
	Partitions []PartitionCount `json:"partitions"`

	// Version is the document version after an upload, or the version
	// that was found when confirmation is required.
	Version int64 `json:"version,omitempty"`
}

// Written reports whether the upload reached the store.
func (o *Outcome) Written() bool {
	return o.Status == StatusUploaded
}

// Err returns a user-aborted error for a declined upload, nil otherwise.
// A nil outcome, from a rejected collection, has no such error.
func (o *Outcome) Err() error {
	if o == nil || o.Status != StatusAborted {
		return nil
	}
	return errs.New(errs.KindUserAborted, "upload "+o.Document, "overwrite declined")
}

// Decline turns a confirmation-required outcome into an aborted one.
func Decline(o *Outcome) *Outcome {
	out := *o
	out.Status = StatusAborted
	return &out
}

// Uploader replaces the catalog documents with whole collections.
type Uploader struct {
	docs   DocumentStore
	logger *slog.Logger
	dryRun bool
	check  Checker
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(u *Uploader) {
		u.logger = l
	}
}

// WithDryRun makes uploads validate and summarize without writing.
func WithDryRun(dryRun bool) Option {
	return func(u *Uploader) {
		u.dryRun = dryRun
	}
}

// WithChecker replaces event.Validate as the per-record check.
func WithChecker(c Checker) Option {
	return func(u *Uploader) {
		u.check = c
	}
}

// New creates an uploader over docs.
func New(docs DocumentStore, opts ...Option) *Uploader {
	u := &Uploader{
		docs:   docs,
		logger: slog.Default(),
		check:  event.Validate,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// DryRun reports whether the uploader is in dry-run mode.
func (u *Uploader) DryRun() bool {
	return u.dryRun
}

// UploadTerritoryEvents replaces the territory document with coll.
//
// Every event is validated first and any failure rejects the whole
// collection. In dry-run mode the outcome only summarizes. Otherwise,
// if the document already has content and force is false, nothing is
// written and the outcome asks for confirmation.
func (u *Uploader) UploadTerritoryEvents(ctx context.Context, coll *store.Document, force bool) (*Outcome, error) {
	parts, err := TerritoryPartitions(coll)
	if err != nil {
		return nil, fmt.Errorf("upload territory events: %w", err)
	}
	if err := ValidateTerritories(parts, u.check).Err(); err != nil {
		return nil, fmt.Errorf("upload territory events: %w", err)
	}

	out := &Outcome{Document: store.TerritoryDocument, Partitions: make([]PartitionCount, 0, len(parts))}
	for _, part := range parts {
		out.Partitions = append(out.Partitions, PartitionCount{Partition: part.Name, Events: len(part.Items)})
		out.Total += len(part.Items)
	}

	if u.dryRun {
		out.Status = StatusDryRun
		u.logger.Info("dry run: would upload territory events", "events", out.Total, "territories", len(parts))
		for _, pc := range out.Partitions {
			u.logger.Info("dry run: territory", "partition", pc.Partition, "events", pc.Events)
		}
		return out, nil
	}

	return u.replace(ctx, out, coll.Clone(), force)
}

// UploadMilestoneEvents replaces the milestone document with a
// milestones list holding items. It gates and validates like
// UploadTerritoryEvents.
func (u *Uploader) UploadMilestoneEvents(ctx context.Context, items []json.RawMessage, force bool) (*Outcome, error) {
	if err := ValidateCollection(items, event.Milestone, u.check).Err(); err != nil {
		return nil, fmt.Errorf("upload milestone events: %w", err)
	}

	out := &Outcome{
		Document:   store.MilestoneDocument,
		Total:      len(items),
		Partitions: []PartitionCount{{Partition: event.Milestone, Events: len(items)}},
	}

	if u.dryRun {
		out.Status = StatusDryRun
		u.logger.Info("dry run: would upload milestone events", "events", len(items))
		for _, raw := range items {
			u.logger.Info("dry run: milestone", "id", event.RecordID(raw), "title", gjson.GetBytes(raw, "title").String())
		}
		return out, nil
	}

	doc := store.NewDocument()
	doc.SetList(store.MilestonesKey, items)
	return u.replace(ctx, out, doc, force)
}

// replace runs the existing-content gate and the overwrite. The write is
// guarded by the version read here, so a document changed in between is
// a conflict rather than a silent overwrite.
func (u *Uploader) replace(ctx context.Context, out *Outcome, doc *store.Document, force bool) (*Outcome, error) {
	op := "upload " + out.Document

	snap, err := u.docs.ReadDocument(ctx, out.Document)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if hasContent(snap) && !force {
		u.logger.Warn("document already has content, confirmation required", "document", out.Document, "version", snap.Version)
		out.Status = StatusConfirmationRequired
		out.Version = snap.Version
		return out, nil
	}

	version, err := u.docs.WriteDocument(ctx, out.Document, doc, snap.Version)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out.Status = StatusUploaded
	out.Version = version
	u.logger.Info("uploaded", "document", out.Document, "events", out.Total, "version", version, "forced", force && hasContent(snap))
	return out, nil
}

// hasContent reports whether overwriting snap would lose data. A
// territory document has content when it has any key; a milestone
// document when its milestones list is not empty.
func hasContent(snap *store.Snapshot) bool {
	if !snap.Exists {
		return false
	}
	if snap.Name != store.MilestoneDocument {
		return snap.Doc.Len() > 0
	}
	for _, f := range snap.Doc.Fields() {
		if f.Key != store.MilestonesKey {
			return true
		}
		res := gjson.ParseBytes(f.Value)
		if !res.IsArray() || len(res.Array()) > 0 {
			return true
		}
	}
	return false
}
