package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/eventdocs/internal/errs"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - documents table
const currentSchemaVersion = 1

// The two logical documents of the catalog.
const (
	TerritoryDocument = "territory_events"
	MilestoneDocument = "milestone_events"
)

// MilestonesKey is the single key of the milestone document.
const MilestonesKey = "milestones"

// ErrNotConnected is wrapped by every operation attempted while the
// gateway is disconnected.
var ErrNotConnected = errors.New("not connected")

// Gateway reads and writes the catalog documents as opaque structures.
//
// A Gateway is an explicit session handle: it starts disconnected,
// becomes connected after a successful Connect, and drops back to
// disconnected when a later Connect fails. While disconnected all reads
// and writes fail fast with a connection error; nothing is retried.
//
// A Gateway is not safe for concurrent use.
type Gateway struct {
	db         *sql.DB
	collection string
	database   string
	now        func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock overrides the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// NewGateway returns a disconnected gateway.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect loads credentials from location and opens the session.
func (g *Gateway) Connect(ctx context.Context, location string) error {
	creds, err := LoadCredentials(location)
	if err != nil {
		g.disconnect()
		return errs.Wrap(errs.KindConnection, "connect", err)
	}
	return g.Open(ctx, creds)
}

// Open establishes the session from already loaded credentials.
// Any previous session is closed first, whatever the outcome.
func (g *Gateway) Open(ctx context.Context, creds Credentials) error {
	g.disconnect()

	if !creds.Create && creds.Database != ":memory:" {
		if _, err := os.Stat(creds.Database); err != nil {
			return errs.Wrap(errs.KindConnection, "connect", fmt.Errorf("database %s: %w", creds.Database, err))
		}
	}

	db, err := openDB(ctx, creds.Database)
	if err != nil {
		return errs.Wrap(errs.KindConnection, "connect", err)
	}

	g.db = db
	g.collection = creds.collection()
	g.database = creds.Database
	return nil
}

// Connected reports whether a session is established.
func (g *Gateway) Connected() bool {
	return g.db != nil
}

// Database returns the path of the connected database, or "".
func (g *Gateway) Database() string {
	return g.database
}

// Close ends the session. Safe to call when disconnected.
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	g.database = ""
	return err
}

func (g *Gateway) disconnect() {
	_ = g.Close()
}

// openDB opens a SQLite database and applies pragmas and schema.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and ":memory:" databases
	// live only as long as their connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist. Idempotent.
func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// checkName rejects anything but the two catalog documents.
func checkName(op, name string) error {
	switch name {
	case TerritoryDocument, MilestoneDocument:
		return nil
	default:
		return errs.New(errs.KindNotFound, op, fmt.Sprintf("unknown document %q", name))
	}
}

// DefaultDocument returns the empty form of a catalog document:
// {} for territory events, {"milestones": []} for milestone events.
func DefaultDocument(name string) *Document {
	doc := NewDocument()
	if name == MilestoneDocument {
		doc.SetList(MilestonesKey, nil)
	}
	return doc
}
