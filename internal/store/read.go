package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/roach88/eventdocs/internal/errs"
)

// Snapshot is a document as read, with the version to pass back to a
// conditional write.
type Snapshot struct {
	Name string
	Doc  *Document

	// Version is 0 when the document does not exist.
	Version   int64
	Exists    bool
	UpdatedAt time.Time
}

// ReadDocument returns the named document. A missing document reads as
// its empty default with Exists=false rather than an error.
func (g *Gateway) ReadDocument(ctx context.Context, name string) (*Snapshot, error) {
	op := "read " + name
	if err := checkName(op, name); err != nil {
		return nil, err
	}
	if g.db == nil {
		return nil, errs.Wrap(errs.KindConnection, op, ErrNotConnected)
	}

	var (
		body      string
		version   int64
		updatedAt int64
	)
	err := g.db.QueryRowContext(ctx, `
		SELECT body, version, updated_at
		FROM documents
		WHERE collection = ? AND name = ?
	`, g.collection, name).Scan(&body, &version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &Snapshot{Name: name, Doc: DefaultDocument(name)}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindRead, op, err)
	}

	doc, err := ParseDocument([]byte(body))
	if err != nil {
		return nil, errs.Wrap(errs.KindParse, op, err)
	}

	return &Snapshot{
		Name:      name,
		Doc:       doc,
		Version:   version,
		Exists:    true,
		UpdatedAt: time.UnixMilli(updatedAt).UTC(),
	}, nil
}
