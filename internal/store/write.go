package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/eventdocs/internal/errs"
)

// AnyVersion disables the version check of WriteDocument.
const AnyVersion int64 = -1

// WriteDocument replaces the named document as a whole and returns the
// new version.
//
// ifVersion is an optimistic concurrency token:
//   - AnyVersion overwrites unconditionally
//   - 0 requires that the document does not exist yet
//   - n > 0 requires the stored version to be exactly n
//
// A failed precondition is a conflict error and nothing is written.
// There is no partial or append primitive; callers read, modify and
// write the full document.
func (g *Gateway) WriteDocument(ctx context.Context, name string, doc *Document, ifVersion int64) (int64, error) {
	op := "write " + name
	if err := checkName(op, name); err != nil {
		return 0, err
	}
	if g.db == nil {
		return 0, errs.Wrap(errs.KindConnection, op, ErrNotConnected)
	}

	body, err := doc.MarshalJSON()
	if err != nil {
		return 0, errs.Wrap(errs.KindWrite, op, err)
	}
	now := g.now().UnixMilli()

	var (
		version int64
		row     *sql.Row
	)
	switch {
	case ifVersion == AnyVersion:
		row = g.db.QueryRowContext(ctx, `
			INSERT INTO documents (collection, name, body, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(collection, name) DO UPDATE
			SET body = excluded.body,
			    version = documents.version + 1,
			    updated_at = excluded.updated_at
			RETURNING version
		`, g.collection, name, string(body), now)
	case ifVersion == 0:
		row = g.db.QueryRowContext(ctx, `
			INSERT INTO documents (collection, name, body, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(collection, name) DO NOTHING
			RETURNING version
		`, g.collection, name, string(body), now)
	case ifVersion > 0:
		row = g.db.QueryRowContext(ctx, `
			UPDATE documents
			SET body = ?, version = version + 1, updated_at = ?
			WHERE collection = ? AND name = ? AND version = ?
			RETURNING version
		`, string(body), now, g.collection, name, ifVersion)
	default:
		return 0, errs.New(errs.KindWrite, op, fmt.Sprintf("invalid version precondition %d", ifVersion))
	}

	err = row.Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &errs.Error{
			Kind:    errs.KindConflict,
			Op:      op,
			Message: fmt.Sprintf("document changed since version %d was read", ifVersion),
		}
	}
	if err != nil {
		return 0, errs.Wrap(errs.KindWrite, op, err)
	}

	return version, nil
}
