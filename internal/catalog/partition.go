package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/eventdocs/internal/errs"
	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/store"
)

// DocumentFor returns the document that holds partition p.
func DocumentFor(p event.Partition) string {
	if p.IsMilestone() {
		return store.MilestoneDocument
	}
	return store.TerritoryDocument
}

// listKey returns the key of p's list inside its document.
func listKey(p event.Partition) string {
	if p.IsMilestone() {
		return store.MilestonesKey
	}
	return string(p)
}

// partitionView is one partition's records as read, plus the snapshot
// needed to write the document back.
type partitionView struct {
	partition event.Partition
	snap      *store.Snapshot
	items     []json.RawMessage
}

// readPartition loads the document holding p and splits out p's list.
// A missing key yields an empty list.
func (r *Repository) readPartition(ctx context.Context, p event.Partition) (*partitionView, error) {
	snap, err := r.docs.ReadDocument(ctx, DocumentFor(p))
	if err != nil {
		return nil, err
	}
	items, err := snap.Doc.List(listKey(p))
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, "read partition "+string(p), err)
	}
	return &partitionView{partition: p, snap: snap, items: items}, nil
}

// write replaces p's list and writes the whole document back, guarded by
// the version that was read.
func (r *Repository) write(ctx context.Context, v *partitionView, items []json.RawMessage) error {
	doc := v.snap.Doc.Clone()
	doc.SetList(listKey(v.partition), items)
	version, err := r.docs.WriteDocument(ctx, v.snap.Name, doc, v.snap.Version)
	if err != nil {
		return err
	}
	r.logger.Debug("document written", "document", v.snap.Name, "version", version, "partition", v.partition)
	return nil
}

// flattenTerritories decodes every list of a territory document in key order.
func flattenTerritories(doc *store.Document) ([]event.Event, error) {
	var events []event.Event
	for _, f := range doc.Fields() {
		items, err := store.ParseList(f.Value)
		if err != nil {
			return nil, errs.Wrap(errs.KindParse, "read partition "+f.Key, err)
		}
		decoded, err := decodeAll(items, event.Partition(f.Key))
		if err != nil {
			return nil, err
		}
		events = append(events, decoded...)
	}
	return events, nil
}

func decodeAll(items []json.RawMessage, p event.Partition) ([]event.Event, error) {
	events := make([]event.Event, 0, len(items))
	for i, raw := range items {
		e, err := event.Decode(raw, p)
		if err != nil {
			return nil, errs.Wrap(errs.KindParse, fmt.Sprintf("read partition %s[%d]", p, i), err)
		}
		events = append(events, e)
	}
	return events, nil
}
