package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/testutil"
	"github.com/roach88/eventdocs/internal/upload"
)

// seed uploads the standard collections into the store behind rootOpts.
func seed(t *testing.T, rootOpts *RootOptions) {
	t.Helper()
	territory, milestones := collectionFiles(t)
	seedOpts := *rootOpts
	seedOpts.Format = "text"
	_, err := execute(NewUploadCommand(&seedOpts), "--territory", territory, "--milestones", milestones, "--force")
	require.NoError(t, err)
}

func TestValidate_Valid(t *testing.T) {
	territory, milestones := collectionFiles(t)
	rootOpts := &RootOptions{Format: "text"}

	out, err := execute(NewValidateCommand(rootOpts), "--territory", territory, "--milestones", milestones)
	require.NoError(t, err)
	assert.Equal(t, "✓ All 4 events valid\n", out)
}

func TestValidate_Invalid(t *testing.T) {
	dir := t.TempDir()
	territory := testutil.WriteFile(t, dir, "t.json", `{
		"rural": [
			{"id": "e1", "title": "Flood", "description": "d", "type": "disaster", "populationChange": 500, "probability": 0.3, "category": "disaster"}
		],
		"milestone": []
	}`)
	milestones := testutil.WriteFile(t, dir, "m.json", `{"milestones": [{"id": "m1"}]}`)

	t.Run("text", func(t *testing.T) {
		out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "--territory", territory, "--milestones", milestones)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "✗ Validation failed")
		assert.Contains(t, out, "rural[0] e1\n  populationChange:")
		assert.Contains(t, out, "milestone\n  territoryType:")
		assert.Contains(t, out, "milestone[0] m1\n")
		assert.Contains(t, out, "Error [E003]")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), "--territory", territory, "--milestones", milestones)
		require.Error(t, err)

		resp := decode(t, out)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, ErrCodeValidation, resp.Error.Code)

		var result ValidationResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.False(t, result.Valid)
		assert.Equal(t, 2, result.Report.Checked)
		assert.Len(t, result.Report.Failures, 3)
	})
}

func TestValidate_Strict(t *testing.T) {
	dir := t.TempDir()
	territory := testutil.WriteFile(t, dir, "t.json", `{
		"rural": [
			{"id": "e1", "title": "Flood", "description": "d", "type": "flood", "populationChange": -5, "probability": 0.3, "category": "weather"}
		]
	}`)
	rootOpts := &RootOptions{Format: "text"}

	out, err := execute(NewValidateCommand(rootOpts), "--territory", territory)
	require.NoError(t, err, "only strict mode checks enumerations")
	assert.Contains(t, out, "All 1 events valid")

	out, err = execute(NewValidateCommand(rootOpts), "--territory", territory, "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "rural[0] e1")
}

func TestVerify(t *testing.T) {
	rootOpts := testRootOptions(t, "text")

	out, err := execute(NewVerifyCommand(rootOpts))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Verification failed")
	assert.Contains(t, out, "  territory_events document not found")
	assert.Contains(t, out, "Error [E010]")

	seed(t, rootOpts)

	out, err = execute(NewVerifyCommand(rootOpts))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Found 3 territory events across 2 territories")
	assert.Contains(t, out, "✓ Found 1 milestone events")
}

func TestList_JSON(t *testing.T) {
	rootOpts := testRootOptions(t, "json")
	seed(t, rootOpts)

	out, err := execute(NewListCommand(rootOpts))
	require.NoError(t, err)

	var inv upload.Inventory
	require.NoError(t, json.Unmarshal(decode(t, out).Data, &inv))
	assert.True(t, inv.TerritoryExists)
	assert.Equal(t, []upload.PartitionCount{
		{Partition: "rural", Events: 2},
		{Partition: "coastal", Events: 1},
	}, inv.Territories)
	assert.Equal(t, []upload.MilestoneSummary{{ID: "m1", Title: "First Town"}}, inv.Milestones)
}

func TestExport_Stdout(t *testing.T) {
	rootOpts := testRootOptions(t, "text")
	seed(t, rootOpts)

	opts := &ExportOptions{RootOptions: rootOpts, Now: func() time.Time { return testutil.Epoch }}
	out, err := execute(newExportCommand(opts))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Events Export\n\n> Generated: 2026-01-01T00:00:00Z\n"))
	assert.Contains(t, out, "### rural")
	assert.Contains(t, out, "| e1 | Flood | disaster | -5 | 0.3 |")
	assert.Contains(t, out, "| c1 | Storm | disaster | -10 | 0.1 |")
	assert.Contains(t, out, `A storm hits \| the docks.`)
	assert.Contains(t, out, "| m1 | First Town | 1000 | milestone | +2 | 1 |")
	assert.Less(t, strings.Index(out, "### rural"), strings.Index(out, "### coastal"))
}

func TestExport_File(t *testing.T) {
	rootOpts := testRootOptions(t, "json")
	path := filepath.Join(t.TempDir(), "events-export.md")

	out, err := execute(NewExportCommand(rootOpts), "--output", path)
	require.NoError(t, err)

	var result ExportResult
	require.NoError(t, json.Unmarshal(decode(t, out).Data, &result))
	assert.Equal(t, path, result.Output)
	assert.Equal(t, 0, result.Events)
	assert.Empty(t, result.Markdown)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "_No territory events found._")
	assert.Contains(t, string(data), "_No milestone events found._")
}

func TestEvents_Lifecycle(t *testing.T) {
	rootOpts := testRootOptions(t, "text")
	opts := &EventsOptions{RootOptions: rootOpts, IDs: event.NewFixedGenerator("gen-1")}

	out, err := execute(newEventsAddCommand(opts),
		"-p", "rural", "--title", "Flood", "--description", "The river bursts its banks.",
		"--type", "disaster", "--category", "disaster", "--population-change", "-5", "--probability", "0.3")
	require.NoError(t, err)
	assert.Equal(t, "✓ Added rural/gen-1\n", out)

	out, err = execute(NewEventsCommand(rootOpts),
		"add", "-p", "milestone", "--id", "m1", "--title", "First Town", "--description", "A town.",
		"--type", "milestone", "--category", "milestone", "--probability", "1", "--threshold", "1000")
	require.NoError(t, err)
	assert.Equal(t, "✓ Added milestone/m1\n", out)

	out, err = execute(NewEventsCommand(rootOpts), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "rural          gen-1                    Flood\n")
	assert.Contains(t, out, "milestone      m1                       First Town (threshold 1000)\n")
	assert.Contains(t, out, "2 events\n")

	out, err = execute(NewEventsCommand(rootOpts),
		"update", "-p", "rural", "--id", "gen-1", "--title", "Great Flood", "--description", "Worse.",
		"--type", "disaster", "--category", "disaster", "--population-change", "-8", "--probability", "0.1")
	require.NoError(t, err)
	assert.Equal(t, "✓ Updated rural/gen-1\n", out)

	rootOpts.Format = "json"
	out, err = execute(NewEventsCommand(rootOpts), "list", "-p", "rural")
	require.NoError(t, err)
	var events []event.Event
	require.NoError(t, json.Unmarshal(decode(t, out).Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Great Flood", events[0].Title)
	assert.Equal(t, -8.0, events[0].PopulationChange)

	rootOpts.Format = "text"
	out, err = execute(NewEventsCommand(rootOpts), "delete", "-p", "rural", "--id", "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "✓ Deleted rural/gen-1\n", out)

	out, err = execute(NewEventsCommand(rootOpts), "delete", "-p", "rural", "--id", "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to delete: no event gen-1 in rural\n", out)
}

func TestEvents_AddInvalid(t *testing.T) {
	rootOpts := testRootOptions(t, "json")

	out, err := execute(NewEventsCommand(rootOpts),
		"add", "-p", "milestone", "--id", "m1", "--title", "First Town", "--description", "A town.",
		"--type", "milestone", "--category", "milestone", "--probability", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decode(t, out)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "threshold")

	rootOpts.Format = "text"
	out, err = execute(NewEventsCommand(rootOpts), "list")
	require.NoError(t, err)
	assert.Equal(t, "No events\n", out)
}

func TestEvents_AddRequiresFlags(t *testing.T) {
	rootOpts := testRootOptions(t, "text")

	_, err := execute(NewEventsCommand(rootOpts), "add", "-p", "rural", "--title", "Flood")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestEvents_StampsMetadata(t *testing.T) {
	rootOpts := testRootOptions(t, "json")
	rootOpts.StampMetadata = true
	rootOpts.Author = "ops"

	_, err := execute(NewEventsCommand(rootOpts),
		"add", "-p", "urban", "--id", "u1", "--title", "Riot", "--description", "Unrest.",
		"--type", "emigration", "--category", "conflict", "--population-change", "-3", "--probability", "0.05")
	require.NoError(t, err)

	out, err := execute(NewEventsCommand(rootOpts), "list")
	require.NoError(t, err)
	var events []event.Event
	require.NoError(t, json.Unmarshal(decode(t, out).Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "ops", events[0].CreatedBy)
	assert.Positive(t, events[0].CreatedAt)
	assert.Equal(t, events[0].CreatedAt, events[0].UpdatedAt)
}
