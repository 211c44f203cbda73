package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestGateway returns a gateway connected to a fresh database.
func createTestGateway(t *testing.T) *Gateway {
	t.Helper()
	g := NewGateway(WithClock(func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
	creds := Credentials{Database: filepath.Join(t.TempDir(), "events.db"), Create: true}
	if err := g.Open(context.Background(), creds); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

// mustParse parses a JSON document or fails the test.
func mustParse(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(raw))
	if err != nil {
		t.Fatalf("ParseDocument(%s) failed: %v", raw, err)
	}
	return doc
}
