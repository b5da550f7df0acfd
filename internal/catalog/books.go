package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yomiyougu/core/internal/yomerr"
)

const bookColumns = `id, uuid, file_path, filename, file_size, file_hash, title,
	current_page, total_pages, reading_status, is_favorite, last_read_at,
	added_at, updated_at, deleted_at`

// NewBook describes the fields required to create a Book.
type NewBook struct {
	FilePath   string
	Filename   string
	FileSize   *int64
	FileHash   *string
	Title      string
	TotalPages int
}

// CreateBook inserts a new book row with a freshly generated UUID and
// returns the stored row. tx may be nil to run outside a transaction.
func (s *Store) CreateBook(ctx context.Context, tx *sql.Tx, in NewBook) (*Book, error) {
	now := time.Now().UTC()
	b := &Book{
		UUID:          uuid.NewString(),
		FilePath:      in.FilePath,
		Filename:      in.Filename,
		FileSize:      in.FileSize,
		FileHash:      in.FileHash,
		Title:         in.Title,
		TotalPages:    in.TotalPages,
		ReadingStatus: StatusUnread,
		AddedAt:       now,
		UpdatedAt:     now,
	}

	res, err := s.q(tx).ExecContext(ctx, `INSERT INTO books
		(uuid, file_path, filename, file_size, file_hash, title, current_page,
		 total_pages, reading_status, is_favorite, last_read_at, added_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, 0, NULL, ?, ?, NULL)`,
		b.UUID, b.FilePath, b.Filename, b.FileSize, b.FileHash, b.Title, b.TotalPages, string(b.ReadingStatus),
		toMillis(b.AddedAt), toMillis(b.UpdatedAt))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "inserting book")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading inserted book id")
	}
	b.ID = id

	return b, nil
}

// GetBookByID returns a book by its local integer id, including soft-deleted
// rows. Returns (nil, nil) if not found.
func (s *Store) GetBookByID(ctx context.Context, tx *sql.Tx, id int64) (*Book, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// GetBookByHashLive returns the live (non-deleted) book with the given
// content hash, or (nil, nil) if none exists.
func (s *Store) GetBookByHashLive(ctx context.Context, tx *sql.Tx, hash string) (*Book, error) {
	row := s.q(tx).QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE file_hash = ? AND deleted_at IS NULL LIMIT 1`, hash)
	return scanBook(row)
}

// GetBookByHashDeleted returns the most recently tombstoned book with the
// given content hash, or (nil, nil) if none exists.
func (s *Store) GetBookByHashDeleted(ctx context.Context, tx *sql.Tx, hash string) (*Book, error) {
	row := s.q(tx).QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE file_hash = ? AND deleted_at IS NOT NULL
		 ORDER BY deleted_at DESC LIMIT 1`, hash)
	return scanBook(row)
}

// GetBookByUUID returns a book by UUID regardless of tombstone state, or
// (nil, nil) if none exists. Used by the merge engine to resolve remote
// references.
func (s *Store) GetBookByUUID(ctx context.Context, tx *sql.Tx, id string) (*Book, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE uuid = ?`, id)
	return scanBook(row)
}

// UpdateBook applies a partial patch to an existing book and bumps
// updated_at, unless forceUpdatedAt is non-nil (used by merge, which
// applies the remote's authoritative timestamp instead of "now").
func (s *Store) UpdateBook(ctx context.Context, tx *sql.Tx, id int64, patch BookPatch, forceUpdatedAt *time.Time) error {
	sets := []string{}
	args := []any{}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.CurrentPage != nil {
		sets = append(sets, "current_page = ?")
		args = append(args, *patch.CurrentPage)
	}
	if patch.TotalPages != nil {
		sets = append(sets, "total_pages = ?")
		args = append(args, *patch.TotalPages)
	}
	if patch.ReadingStatus != nil {
		sets = append(sets, "reading_status = ?")
		args = append(args, string(*patch.ReadingStatus))
	}
	if patch.IsFavorite != nil {
		sets = append(sets, "is_favorite = ?")
		args = append(args, *patch.IsFavorite)
	}
	if patch.LastReadAt != nil {
		sets = append(sets, "last_read_at = ?")
		args = append(args, toMillis(*patch.LastReadAt))
	}
	if patch.FilePath != nil {
		sets = append(sets, "file_path = ?")
		args = append(args, *patch.FilePath)
	}
	if patch.FileHash != nil {
		sets = append(sets, "file_hash = ?")
		args = append(args, *patch.FileHash)
	}
	if patch.FileSize != nil {
		sets = append(sets, "file_size = ?")
		args = append(args, *patch.FileSize)
	}

	updatedAt := time.Now().UTC()
	if forceUpdatedAt != nil {
		updatedAt = *forceUpdatedAt
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, toMillis(updatedAt))

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE books SET %s WHERE id = ?`, strings.Join(sets, ", "))

	if _, err := s.q(tx).ExecContext(ctx, query, args...); err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "updating book %d", id)
	}

	return nil
}

// SoftDeleteBook tombstones a book without removing it.
func (s *Store) SoftDeleteBook(ctx context.Context, tx *sql.Tx, id int64) error {
	now := time.Now().UTC()
	_, err := s.q(tx).ExecContext(ctx,
		`UPDATE books SET deleted_at = ?, updated_at = ? WHERE id = ?`, toMillis(now), toMillis(now), id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "soft-deleting book %d", id)
	}
	return nil
}

// RestoreBookWithPath clears a book's tombstone, repoints file_path at a
// freshly imported location, and bumps updated_at. The UUID is preserved.
func (s *Store) RestoreBookWithPath(ctx context.Context, tx *sql.Tx, id int64, filePath string, totalPages int) error {
	now := time.Now().UTC()
	_, err := s.q(tx).ExecContext(ctx,
		`UPDATE books SET deleted_at = NULL, file_path = ?, total_pages = ?, updated_at = ? WHERE id = ?`,
		filePath, totalPages, toMillis(now), id)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "restoring book %d", id)
	}
	return nil
}

// ListBooks returns live books matching filter, ordered by
// last_read_at DESC NULLS LAST, added_at DESC.
func (s *Store) ListBooks(ctx context.Context, tx *sql.Tx, filter ListFilter) ([]*Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books b WHERE b.deleted_at IS NULL`
	args := []any{}

	if filter.CollectionID != nil {
		query += ` AND b.id IN (SELECT book_id FROM book_collections
			WHERE collection_id = ? AND deleted_at IS NULL)`
		args = append(args, *filter.CollectionID)
	}
	if filter.Status != nil {
		query += ` AND b.reading_status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.FavoritesOnly {
		query += ` AND b.is_favorite = 1`
	}

	query += ` ORDER BY (b.last_read_at IS NULL) ASC, b.last_read_at DESC, b.added_at DESC`

	rows, err := s.q(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "listing books")
	}
	defer rows.Close()

	var out []*Book
	for rows.Next() {
		b, err := scanBookRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "iterating books")
	}

	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row *sql.Row) (*Book, error) {
	b, err := scanBookRow(row)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}
	return b, err
}

func scanBookRow(row rowScanner) (*Book, error) {
	var (
		b                    Book
		fileSize             sql.NullInt64
		fileHash             sql.NullString
		lastReadAt, deletedAt sql.NullInt64
		readingStatus        string
		isFavorite           bool
		addedAtMs, updatedAtMs int64
	)

	err := row.Scan(&b.ID, &b.UUID, &b.FilePath, &b.Filename, &fileSize, &fileHash, &b.Title,
		&b.CurrentPage, &b.TotalPages, &readingStatus, &isFavorite, &lastReadAt,
		&addedAtMs, &updatedAtMs, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "scanning book row")
	}

	if fileSize.Valid {
		b.FileSize = &fileSize.Int64
	}
	if fileHash.Valid {
		b.FileHash = &fileHash.String
	}
	b.ReadingStatus = ReadingStatus(readingStatus)
	b.IsFavorite = isFavorite
	b.AddedAt = fromMillis(addedAtMs)
	b.UpdatedAt = fromMillis(updatedAtMs)
	if lastReadAt.Valid {
		t := fromMillis(lastReadAt.Int64)
		b.LastReadAt = &t
	}
	if deletedAt.Valid {
		t := fromMillis(deletedAt.Int64)
		b.DeletedAt = &t
	}

	return &b, nil
}
