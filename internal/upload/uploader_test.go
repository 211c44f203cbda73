package upload

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventdocs/internal/catalog"
	"github.com/roach88/eventdocs/internal/errs"
	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/store"
	"github.com/roach88/eventdocs/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestUploader(t *testing.T, opts ...Option) (*Uploader, *store.Gateway) {
	t.Helper()
	g := testutil.NewGateway(t)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(g, opts...), g
}

func mustDoc(t *testing.T, raw string) *store.Document {
	t.Helper()
	doc, err := store.ParseDocument([]byte(raw))
	require.NoError(t, err)
	return doc
}

func milestoneItems(t *testing.T) []json.RawMessage {
	t.Helper()
	items, err := MilestoneList(mustDoc(t, testutil.MilestoneJSON))
	require.NoError(t, err)
	return items
}

// countingStore counts writes and can run a hook before forwarding one.
type countingStore struct {
	DocumentStore
	writes      int
	beforeWrite func()
}

func (c *countingStore) WriteDocument(ctx context.Context, name string, doc *store.Document, ifVersion int64) (int64, error) {
	c.writes++
	if c.beforeWrite != nil {
		c.beforeWrite()
	}
	return c.DocumentStore.WriteDocument(ctx, name, doc, ifVersion)
}

func TestUploadTerritoryEvents_ForceScenario(t *testing.T) {
	u, g := newTestUploader(t)
	ctx := context.Background()

	coll := mustDoc(t, `{"rural": [{"id": "e1", "title": "Flood", "type": "disaster", "populationChange": -5, "probability": 0.3, "category": "disaster", "description": "..."}]}`)

	out, err := u.UploadTerritoryEvents(ctx, coll, true)
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, out.Status)
	assert.True(t, out.Written())
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, []PartitionCount{{Partition: "rural", Events: 1}}, out.Partitions)
	assert.Equal(t, int64(1), out.Version)

	snap, err := g.ReadDocument(ctx, store.TerritoryDocument)
	require.NoError(t, err)
	raw, err := json.Marshal(snap.Doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"rural": [{"id": "e1", "title": "Flood", "type": "disaster", "populationChange": -5, "probability": 0.3, "category": "disaster", "description": "..."}]}`, string(raw))

	events, err := catalog.New(g, catalog.WithLogger(quietLogger())).GetAllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "rural", events[0].TerritoryType)
	assert.Equal(t, "e1", events[0].ID)
}

func TestUploadTerritoryEvents_DryRunLeavesStoreUnchanged(t *testing.T) {
	u, g := newTestUploader(t, WithDryRun(true))
	ctx := context.Background()

	_, err := g.WriteDocument(ctx, store.TerritoryDocument, mustDoc(t, `{"urban": []}`), store.AnyVersion)
	require.NoError(t, err)
	before, err := g.ReadDocument(ctx, store.TerritoryDocument)
	require.NoError(t, err)

	out, err := u.UploadTerritoryEvents(ctx, mustDoc(t, testutil.TerritoryJSON), false)
	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, out.Status)
	assert.False(t, out.Written())
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, []PartitionCount{{Partition: "rural", Events: 2}, {Partition: "coastal", Events: 1}}, out.Partitions)

	after, err := g.ReadDocument(ctx, store.TerritoryDocument)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUploadMilestoneEvents_DryRun(t *testing.T) {
	u, g := newTestUploader(t, WithDryRun(true))
	ctx := context.Background()

	out, err := u.UploadMilestoneEvents(ctx, milestoneItems(t), true)
	require.NoError(t, err)
	assert.Equal(t, StatusDryRun, out.Status)
	assert.Equal(t, 1, out.Total)

	snap, err := g.ReadDocument(ctx, store.MilestoneDocument)
	require.NoError(t, err)
	assert.False(t, snap.Exists, "dry run never writes, even with force")
}

func TestUpload_ExistingContentNeedsConfirmation(t *testing.T) {
	g := testutil.NewGateway(t)
	cs := &countingStore{DocumentStore: g}
	u := New(cs, WithLogger(quietLogger()))
	ctx := context.Background()

	first, err := u.UploadTerritoryEvents(ctx, mustDoc(t, `{"urban": []}`), false)
	require.NoError(t, err)
	require.Equal(t, StatusUploaded, first.Status, "empty store needs no confirmation")

	out, err := u.UploadTerritoryEvents(ctx, mustDoc(t, testutil.TerritoryJSON), false)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmationRequired, out.Status)
	assert.Equal(t, first.Version, out.Version)
	assert.Equal(t, 1, cs.writes, "nothing written while confirmation is pending")

	snap, err := g.ReadDocument(ctx, store.TerritoryDocument)
	require.NoError(t, err)
	assert.Equal(t, []string{"urban"}, snap.Doc.Keys())

	// The operator agreed: re-invoke with force.
	out, err = u.UploadTerritoryEvents(ctx, mustDoc(t, testutil.TerritoryJSON), true)
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, out.Status)
	assert.Equal(t, 2, cs.writes)

	snap, err = g.ReadDocument(ctx, store.TerritoryDocument)
	require.NoError(t, err)
	assert.Equal(t, []string{"rural", "coastal"}, snap.Doc.Keys())
}

func TestUploadMilestoneEvents_ConfirmationGate(t *testing.T) {
	u, g := newTestUploader(t)
	ctx := context.Background()

	// An existing but empty milestones list holds nothing to lose.
	_, err := g.WriteDocument(ctx, store.MilestoneDocument, store.DefaultDocument(store.MilestoneDocument), store.AnyVersion)
	require.NoError(t, err)

	out, err := u.UploadMilestoneEvents(ctx, milestoneItems(t), false)
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, out.Status)

	out, err = u.UploadMilestoneEvents(ctx, milestoneItems(t), false)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmationRequired, out.Status)

	snap, err := g.ReadDocument(ctx, store.MilestoneDocument)
	require.NoError(t, err)
	assert.Equal(t, []string{store.MilestonesKey}, snap.Doc.Keys())
	items, err := snap.Doc.List(store.MilestonesKey)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestDecline(t *testing.T) {
	pending := &Outcome{Document: store.TerritoryDocument, Status: StatusConfirmationRequired, Total: 3}
	require.NoError(t, pending.Err())

	out := Decline(pending)
	assert.Equal(t, StatusAborted, out.Status)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, StatusConfirmationRequired, pending.Status, "input is not modified")

	err := out.Err()
	require.Error(t, err)
	assert.True(t, errs.IsUserAborted(err))

	var rejected *Outcome
	assert.NoError(t, rejected.Err())
}

func TestUploadTerritoryEvents_InvalidRejectsAll(t *testing.T) {
	g := testutil.NewGateway(t)
	cs := &countingStore{DocumentStore: g}
	u := New(cs, WithLogger(quietLogger()))

	coll := mustDoc(t, `{
		"rural": [
			{"id": "e1", "title": "Flood", "description": "d", "type": "disaster", "populationChange": -5, "probability": 0.3, "category": "disaster"},
			{"id": "e2", "title": "Bad", "description": "d", "type": "disaster", "populationChange": -5, "probability": 2, "category": "disaster"}
		],
		"urban": [
			{"id": "u1", "title": "No category", "description": "d", "type": "disaster", "populationChange": 1, "probability": 0.1}
		]
	}`)

	out, err := u.UploadTerritoryEvents(context.Background(), coll, true)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, 0, cs.writes, "a partly valid collection is not uploaded")

	var cerr *CollectionError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Report.Failures, 2)
	assert.Equal(t, 3, cerr.Report.Checked)
	assert.Equal(t, "e2", cerr.Report.Failures[0].ID)
	assert.Equal(t, "u1", cerr.Report.Failures[1].ID)
	assert.Contains(t, err.Error(), "category")
}

func TestUploadMilestoneEvents_MissingThreshold(t *testing.T) {
	u, _ := newTestUploader(t)

	items := []json.RawMessage{json.RawMessage(`{"id": "m1", "title": "T", "description": "d", "type": "milestone", "populationChange": 0, "probability": 1, "category": "milestone"}`)}
	_, err := u.UploadMilestoneEvents(context.Background(), items, true)
	require.Error(t, err)

	var cerr *CollectionError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Report.Failures, 1)
	names := make([]string, 0)
	for _, v := range cerr.Report.Failures[0].Violations {
		names = append(names, v.Field)
	}
	assert.Contains(t, names, "threshold")
}

func TestUploadTerritoryEvents_StrictChecker(t *testing.T) {
	u, _ := newTestUploader(t, WithChecker(event.ValidateStrict))

	coll := mustDoc(t, `{"rural": [{"id": "e1", "title": "T", "description": "d", "type": "meteor", "populationChange": 0, "probability": 0.5, "category": "disaster"}]}`)
	_, err := u.UploadTerritoryEvents(context.Background(), coll, true)
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Contains(t, err.Error(), "type")
}

func TestUploadTerritoryEvents_ConcurrentWriterConflict(t *testing.T) {
	g := testutil.NewGateway(t)
	cs := &countingStore{DocumentStore: g}
	u := New(cs, WithLogger(quietLogger()))
	ctx := context.Background()

	cs.beforeWrite = func() {
		_, err := g.WriteDocument(ctx, store.TerritoryDocument, mustDoc(t, `{"arctic": []}`), store.AnyVersion)
		require.NoError(t, err)
	}

	_, err := u.UploadTerritoryEvents(ctx, mustDoc(t, testutil.TerritoryJSON), true)
	require.Error(t, err)
	assert.True(t, errs.IsConflict(err))

	snap, err := g.ReadDocument(ctx, store.TerritoryDocument)
	require.NoError(t, err)
	assert.Equal(t, []string{"arctic"}, snap.Doc.Keys(), "the other writer's data survives")
}

func TestValidateCollection(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"id": "ok", "title": "T", "description": "d", "type": "disaster", "populationChange": 0, "probability": 0.5, "category": "disaster"}`),
		json.RawMessage(`"not an object"`),
		json.RawMessage(`{"id": "bad"}`),
	}

	report := ValidateCollection(items, "rural", nil)
	assert.False(t, report.Valid())
	assert.Equal(t, 3, report.Checked)
	require.Len(t, report.Failures, 2)

	assert.Equal(t, 1, report.Failures[0].Index)
	assert.Equal(t, "record", report.Failures[0].Violations[0].Field)

	assert.Equal(t, 2, report.Failures[1].Index)
	assert.Equal(t, "bad", report.Failures[1].ID)
	assert.Len(t, report.Failures[1].Violations, 6, "every missing field is reported")
}

func TestValidateTerritories_RejectsMilestoneKey(t *testing.T) {
	parts, err := TerritoryPartitions(mustDoc(t, `{"milestone": []}`))
	require.NoError(t, err)

	report := ValidateTerritories(parts, nil)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "territoryType", report.Failures[0].Violations[0].Field)
}

func TestUpload_ReadBackThroughRepository(t *testing.T) {
	u, g := newTestUploader(t)
	ctx := context.Background()

	_, err := u.UploadTerritoryEvents(ctx, mustDoc(t, `{
		"rural": [
			{"id": "e1", "title": "Flood", "description": "d", "type": "disaster", "populationChange": -5, "probability": 0.3, "category": "disaster", "createdAt": 1767225600000, "createdBy": "ops"},
			{"id": "e2", "title": "Fair", "description": "d", "type": "immigration", "populationChange": 1e1, "probability": 0.5, "category": "opportunity", "notes": ["kept"]}
		]
	}`), true)
	require.NoError(t, err)
	_, err = u.UploadMilestoneEvents(ctx, milestoneItems(t), true)
	require.NoError(t, err)

	events, err := catalog.New(g, catalog.WithLogger(quietLogger())).GetAllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "ops", events[0].CreatedBy)
	assert.Equal(t, 10.0, events[1].PopulationChange)
	require.NotNil(t, events[2].Threshold)
	assert.Equal(t, int64(1000), *events[2].Threshold)
}

func TestUpload_RejectsRecordsTheCatalogCannotRead(t *testing.T) {
	tests := []struct {
		name   string
		upload func(u *Uploader) error
		field  string
	}{
		{
			name: "numeric title",
			upload: func(u *Uploader) error {
				_, err := u.UploadTerritoryEvents(context.Background(), mustDoc(t, `{"rural": [
					{"id": "e1", "title": 5, "description": "d", "type": "disaster", "populationChange": -5, "probability": 0.3, "category": "disaster"}
				]}`), true)
				return err
			},
			field: "title",
		},
		{
			name: "fractional threshold literal",
			upload: func(u *Uploader) error {
				items, err := MilestoneList(mustDoc(t, `{"milestones": [
					{"id": "m1", "title": "Town", "description": "d", "type": "milestone", "populationChange": 2, "probability": 1, "category": "milestone", "threshold": 1000.0}
				]}`))
				require.NoError(t, err)
				_, err = u.UploadMilestoneEvents(context.Background(), items, true)
				return err
			},
			field: "threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, g := newTestUploader(t)

			err := tt.upload(u)
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))

			var cerr *CollectionError
			require.ErrorAs(t, err, &cerr)
			require.Len(t, cerr.Report.Failures, 1)
			assert.Equal(t, tt.field, cerr.Report.Failures[0].Violations[0].Field)

			events, err := catalog.New(g, catalog.WithLogger(quietLogger())).GetAllEvents(context.Background())
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}
