package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yomiyougu/core/internal/yomerr"
)

const collectionColumns = `id, uuid, name, description, cover_path, created_at, updated_at, deleted_at`

// CreateCollection inserts a new collection with a unique live name.
func (s *Store) CreateCollection(ctx context.Context, tx *sql.Tx, name string, description, coverPath *string) (*Collection, error) {
	now := time.Now().UTC()
	c := &Collection{
		UUID:        uuid.NewString(),
		Name:        name,
		Description: description,
		CoverPath:   coverPath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := s.q(tx).ExecContext(ctx,
		`INSERT INTO collections (uuid, name, description, cover_path, created_at, updated_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		c.UUID, c.Name, c.Description, c.CoverPath, toMillis(now), toMillis(now))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDuplicateConstraint, err, "creating collection %q", name)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading inserted collection id")
	}
	c.ID = id

	return c, nil
}

// GetCollection returns a collection by id, or (nil, nil) if not found.
func (s *Store) GetCollection(ctx context.Context, tx *sql.Tx, id int64) (*Collection, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
	return scanCollection(row)
}

// GetCollectionByUUID returns a collection by UUID, or (nil, nil) if not found.
func (s *Store) GetCollectionByUUID(ctx context.Context, tx *sql.Tx, id string) (*Collection, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE uuid = ?`, id)
	return scanCollection(row)
}

// UpdateCollection updates the name/description/cover of a live collection.
func (s *Store) UpdateCollection(ctx context.Context, tx *sql.Tx, id int64, name string, description, coverPath *string, forceUpdatedAt *time.Time) error {
	updatedAt := time.Now().UTC()
	if forceUpdatedAt != nil {
		updatedAt = *forceUpdatedAt
	}

	_, err := s.q(tx).ExecContext(ctx,
		`UPDATE collections SET name = ?, description = ?, cover_path = ?, updated_at = ? WHERE id = ?`,
		name, description, coverPath, toMillis(updatedAt), id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDuplicateConstraint, err, "updating collection %d", id)
	}
	return nil
}

// SoftDeleteCollection tombstones a collection, rewriting its name so the
// live namespace may reclaim it later.
func (s *Store) SoftDeleteCollection(ctx context.Context, tx *sql.Tx, id int64) error {
	now := time.Now().UTC()

	row := s.q(tx).QueryRowContext(ctx, `SELECT name FROM collections WHERE id = ?`, id)
	var name string
	if err := row.Scan(&name); err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading collection %d name", id)
	}

	newName := fmt.Sprintf("%s__deleted_%d", name, now.Unix())

	_, err := s.q(tx).ExecContext(ctx,
		`UPDATE collections SET deleted_at = ?, updated_at = ?, name = ? WHERE id = ?`,
		toMillis(now), toMillis(now), newName, id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "soft-deleting collection %d", id)
	}

	return nil
}

// ListCollections returns every live collection, ordered by name. Book
// counts are not included; CollectionBookCount returns them.
func (s *Store) ListCollections(ctx context.Context, tx *sql.Tx) ([]*Collection, error) {
	rows, err := s.q(tx).QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "listing collections")
	}
	defer rows.Close()

	var out []*Collection
	for rows.Next() {
		c, err := scanCollectionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CollectionBookCount counts live junction rows pointing at live books.
func (s *Store) CollectionBookCount(ctx context.Context, tx *sql.Tx, collectionID int64) (int, error) {
	row := s.q(tx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM book_collections bc
		JOIN books b ON b.id = bc.book_id
		WHERE bc.collection_id = ? AND bc.deleted_at IS NULL AND b.deleted_at IS NULL`,
		collectionID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "counting books in collection %d", collectionID)
	}
	return count, nil
}

func scanCollection(row *sql.Row) (*Collection, error) {
	c, err := scanCollectionRow(row)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}
	return c, err
}

func scanCollectionRow(row rowScanner) (*Collection, error) {
	var (
		c                      Collection
		description, coverPath sql.NullString
		deletedAt              sql.NullInt64
		createdAtMs, updatedAtMs int64
	)

	err := row.Scan(&c.ID, &c.UUID, &c.Name, &description, &coverPath, &createdAtMs, &updatedAtMs, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "scanning collection row")
	}

	if description.Valid {
		c.Description = &description.String
	}
	if coverPath.Valid {
		c.CoverPath = &coverPath.String
	}
	c.CreatedAt = fromMillis(createdAtMs)
	c.UpdatedAt = fromMillis(updatedAtMs)
	if deletedAt.Valid {
		t := fromMillis(deletedAt.Int64)
		c.DeletedAt = &t
	}

	return &c, nil
}
