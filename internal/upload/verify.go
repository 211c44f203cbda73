package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roach88/eventdocs/internal/errs"
	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/store"
)

// Verification is the post-upload shape check of both documents.
type Verification struct {
	OK              bool     `json:"ok"`
	Territories     int      `json:"territories"`
	TerritoryEvents int      `json:"territoryEvents"`
	MilestoneEvents int      `json:"milestoneEvents"`
	Problems        []string `json:"problems,omitempty"`
}

// Err returns an error listing the problems of a failed verification.
func (v *Verification) Err() error {
	if v.OK {
		return nil
	}
	return errs.New(errs.KindUnknown, "verify upload", strings.Join(v.Problems, "; "))
}

// VerifyUpload re-reads both documents and checks that the territory
// document is a non-empty mapping of lists and the milestone document
// holds a milestones list. A failed check is reported in the result and
// never undoes anything; the error is only for failed reads.
func (u *Uploader) VerifyUpload(ctx context.Context) (*Verification, error) {
	v := &Verification{}

	territory, err := u.docs.ReadDocument(ctx, store.TerritoryDocument)
	if err != nil {
		return nil, fmt.Errorf("verify upload: %w", err)
	}
	switch {
	case !territory.Exists:
		v.Problems = append(v.Problems, "territory_events document not found")
	case territory.Doc.Len() == 0:
		v.Problems = append(v.Problems, "territory_events document is empty")
	}
	for _, f := range territory.Doc.Fields() {
		res := gjson.ParseBytes(f.Value)
		if !res.IsArray() {
			v.Problems = append(v.Problems, fmt.Sprintf("territory %q is not a list", f.Key))
			continue
		}
		v.Territories++
		v.TerritoryEvents += len(res.Array())
	}

	milestones, err := u.docs.ReadDocument(ctx, store.MilestoneDocument)
	if err != nil {
		return nil, fmt.Errorf("verify upload: %w", err)
	}
	if !milestones.Exists {
		v.Problems = append(v.Problems, "milestone_events document not found")
	} else if raw, ok := milestones.Doc.Get(store.MilestonesKey); !ok {
		v.Problems = append(v.Problems, "milestone_events has no milestones list")
	} else if res := gjson.ParseBytes(raw); !res.IsArray() {
		v.Problems = append(v.Problems, "milestones is not a list")
	} else {
		v.MilestoneEvents = len(res.Array())
	}

	v.OK = len(v.Problems) == 0
	if v.OK {
		u.logger.Info("verified upload", "territories", v.Territories, "territory_events", v.TerritoryEvents, "milestone_events", v.MilestoneEvents)
	} else {
		u.logger.Error("upload verification failed", "problems", strings.Join(v.Problems, "; "))
	}
	return v, nil
}

// MilestoneSummary names one stored milestone.
type MilestoneSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Inventory is a display-only listing of what is stored.
type Inventory struct {
	TerritoryExists bool               `json:"territoryExists"`
	Territories     []PartitionCount   `json:"territories"`
	MilestoneExists bool               `json:"milestoneExists"`
	Milestones      []MilestoneSummary `json:"milestones"`
}

// TerritoryEvents returns the number of territory events listed.
func (inv *Inventory) TerritoryEvents() int {
	n := 0
	for _, pc := range inv.Territories {
		n += pc.Events
	}
	return n
}

// ListExisting enumerates the stored partitions with their event counts
// and the stored milestones. Records are not validated; a value that is
// not a list counts as zero events.
func (u *Uploader) ListExisting(ctx context.Context) (*Inventory, error) {
	inv := &Inventory{Territories: []PartitionCount{}, Milestones: []MilestoneSummary{}}

	territory, err := u.docs.ReadDocument(ctx, store.TerritoryDocument)
	if err != nil {
		return nil, fmt.Errorf("list existing: %w", err)
	}
	inv.TerritoryExists = territory.Exists
	for _, f := range territory.Doc.Fields() {
		res := gjson.ParseBytes(f.Value)
		count := 0
		if res.IsArray() {
			count = len(res.Array())
		}
		inv.Territories = append(inv.Territories, PartitionCount{Partition: event.Partition(f.Key), Events: count})
	}

	milestones, err := u.docs.ReadDocument(ctx, store.MilestoneDocument)
	if err != nil {
		return nil, fmt.Errorf("list existing: %w", err)
	}
	inv.MilestoneExists = milestones.Exists
	if raw, ok := milestones.Doc.Get(store.MilestonesKey); ok && gjson.ParseBytes(raw).IsArray() {
		gjson.ParseBytes(raw).ForEach(func(_, item gjson.Result) bool {
			inv.Milestones = append(inv.Milestones, MilestoneSummary{
				ID:    item.Get("id").String(),
				Title: item.Get("title").String(),
			})
			return true
		})
	}

	u.logger.Debug("listed existing events", "territories", len(inv.Territories), "milestones", len(inv.Milestones))
	return inv, nil
}
