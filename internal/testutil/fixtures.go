package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/eventdocs/internal/event"
	"github.com/roach88/eventdocs/internal/store"
)

// NewGateway returns a gateway connected to a fresh database under
// t.TempDir(). The session is closed when the test ends.
func NewGateway(t *testing.T) *store.Gateway {
	t.Helper()
	g := store.NewGateway()
	creds := store.Credentials{Database: filepath.Join(t.TempDir(), "events.db"), Create: true}
	if err := g.Open(context.Background(), creds); err != nil {
		t.Fatalf("open gateway: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

// WriteCredentials writes a credentials file for a new database in a
// temp directory and returns its path.
func WriteCredentials(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.yaml")
	if err := store.WriteCredentials(path, store.Credentials{Database: filepath.Join(dir, "events.db"), Create: true}); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}

// WriteFile writes content to name under dir and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// Flood is a valid rural territory event.
func Flood() event.Event {
	return event.Event{
		ID:               "e1",
		Title:            "Flood",
		Description:      "The river bursts its banks.",
		Type:             event.TypeDisaster,
		PopulationChange: -5,
		Probability:      0.3,
		Category:         event.CategoryDisaster,
	}
}

// Harvest is a valid territory event.
func Harvest() event.Event {
	return event.Event{
		ID:               "e2",
		Title:            "Good Harvest",
		Description:      "Settlers arrive for the harvest.",
		Type:             event.TypeImmigration,
		PopulationChange: 4.5,
		Probability:      0.2,
		Category:         event.CategoryOpportunity,
	}
}

// FirstTown is a valid milestone event.
func FirstTown() event.Event {
	return event.Event{
		ID:               "m1",
		Title:            "First Town",
		Description:      "The settlement becomes a town.",
		Type:             event.TypeMilestone,
		PopulationChange: 2,
		Probability:      1,
		Category:         event.CategoryMilestone,
		Threshold:        event.Int64(1000),
	}
}

// TerritoryJSON is a valid territory collection with two partitions.
const TerritoryJSON = `{
  "rural": [
    {"id": "e1", "title": "Flood", "description": "The river bursts its banks.", "type": "disaster", "populationChange": -5, "probability": 0.3, "category": "disaster"},
    {"id": "e2", "title": "Good Harvest", "description": "Settlers arrive for the harvest.", "type": "immigration", "populationChange": 4.5, "probability": 0.2, "category": "opportunity"}
  ],
  "coastal": [
    {"id": "c1", "title": "Storm", "description": "A storm hits | the docks.", "type": "disaster", "populationChange": -10, "probability": 0.1, "category": "disaster"}
  ]
}`

// MilestoneJSON is a valid milestone collection.
const MilestoneJSON = `{
  "milestones": [
    {"id": "m1", "title": "First Town", "description": "The settlement becomes a town.", "type": "milestone", "populationChange": 2, "probability": 1, "category": "milestone", "threshold": 1000}
  ]
}`
