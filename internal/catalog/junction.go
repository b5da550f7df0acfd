package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/yomiyougu/core/internal/yomerr"
)

const junctionColumns = `id, uuid, book_id, collection_id, created_at, deleted_at`

// AddToCollection creates a live junction row between a book and a collection.
func (s *Store) AddToCollection(ctx context.Context, tx *sql.Tx, bookID, collectionID int64) (*BookCollection, error) {
	now := time.Now().UTC()
	bc := &BookCollection{
		UUID:         uuid.NewString(),
		BookID:       bookID,
		CollectionID: collectionID,
		CreatedAt:    now,
	}

	res, err := s.q(tx).ExecContext(ctx,
		`INSERT INTO book_collections (uuid, book_id, collection_id, created_at, deleted_at)
		 VALUES (?, ?, ?, ?, NULL)`,
		bc.UUID, bookID, collectionID, toMillis(now))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDuplicateConstraint, err, "adding book %d to collection %d", bookID, collectionID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading inserted junction id")
	}
	bc.ID = id

	return bc, nil
}

// RemoveFromCollection soft-deletes the live junction row for a book/collection pair.
func (s *Store) RemoveFromCollection(ctx context.Context, tx *sql.Tx, bookID, collectionID int64) error {
	now := time.Now().UTC()
	_, err := s.q(tx).ExecContext(ctx,
		`UPDATE book_collections SET deleted_at = ? WHERE book_id = ? AND collection_id = ? AND deleted_at IS NULL`,
		toMillis(now), bookID, collectionID)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "removing book %d from collection %d", bookID, collectionID)
	}
	return nil
}

// ReplaceCollectionSetForBook removes every live junction row for bookID not
// in collectionIDs and adds any missing ones, leaving exactly collectionIDs
// as the book's live collection set.
func (s *Store) ReplaceCollectionSetForBook(ctx context.Context, tx *sql.Tx, bookID int64, collectionIDs []int64) error {
	current, err := s.ListCollectionsForBook(ctx, tx, bookID)
	if err != nil {
		return err
	}

	want := make(map[int64]bool, len(collectionIDs))
	for _, id := range collectionIDs {
		want[id] = true
	}

	have := make(map[int64]bool, len(current))
	for _, bc := range current {
		have[bc.CollectionID] = true
		if !want[bc.CollectionID] {
			if err := s.RemoveFromCollection(ctx, tx, bookID, bc.CollectionID); err != nil {
				return err
			}
		}
	}

	for id := range want {
		if !have[id] {
			if _, err := s.AddToCollection(ctx, tx, bookID, id); err != nil {
				return err
			}
		}
	}

	return nil
}

// ListCollectionsForBook returns every live junction row for a book.
func (s *Store) ListCollectionsForBook(ctx context.Context, tx *sql.Tx, bookID int64) ([]*BookCollection, error) {
	rows, err := s.q(tx).QueryContext(ctx,
		`SELECT `+junctionColumns+` FROM book_collections WHERE book_id = ? AND deleted_at IS NULL`, bookID)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "listing collections for book %d", bookID)
	}
	defer rows.Close()

	var out []*BookCollection
	for rows.Next() {
		bc, err := scanJunctionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bc)
	}
	return out, rows.Err()
}

// GetJunctionByUUID returns a junction row by UUID regardless of tombstone
// state, or (nil, nil) if none exists. Used by merge to resolve remote rows.
func (s *Store) GetJunctionByUUID(ctx context.Context, tx *sql.Tx, id string) (*BookCollection, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT `+junctionColumns+` FROM book_collections WHERE uuid = ?`, id)
	bc, err := scanJunctionRow(row)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}
	return bc, err
}

func scanJunctionRow(row rowScanner) (*BookCollection, error) {
	var (
		bc        BookCollection
		deletedAt sql.NullInt64
		createdAtMs int64
	)

	err := row.Scan(&bc.ID, &bc.UUID, &bc.BookID, &bc.CollectionID, &createdAtMs, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "scanning junction row")
	}

	bc.CreatedAt = fromMillis(createdAtMs)
	if deletedAt.Valid {
		t := fromMillis(deletedAt.Int64)
		bc.DeletedAt = &t
	}

	return &bc, nil
}
