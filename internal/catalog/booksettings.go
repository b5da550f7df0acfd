package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/yomiyougu/core/internal/yomerr"
)

const bookSettingsColumns = `id, uuid, book_id, reading_direction, page_display_mode,
	image_fit_mode, reader_background, sync_progress, updated_at`

// UpsertBookSettings creates or replaces the single live settings row for a
// book. When in.UUID is empty, the existing row's UUID is preserved (or a
// new one minted for a first-time local write); when in.UUID is set — the
// merge engine always sets it — the row adopts that UUID on conflict, so a
// remote settings record for a book whose local settings row has a
// different UUID still converges onto one identity instead of leaving the
// two sides permanently disagreeing.
func (s *Store) UpsertBookSettings(ctx context.Context, tx *sql.Tx, bookID int64, in BookSettings, forceUpdatedAt *time.Time) (*BookSettings, error) {
	existing, err := s.GetBookSettings(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}

	id := in.UUID
	if id == "" {
		if existing != nil {
			id = existing.UUID
		} else {
			id = uuid.NewString()
		}
	}

	updatedAt := time.Now().UTC()
	if forceUpdatedAt != nil {
		updatedAt = *forceUpdatedAt
	}

	_, err = s.q(tx).ExecContext(ctx, `INSERT INTO book_settings
		(uuid, book_id, reading_direction, page_display_mode, image_fit_mode, reader_background, sync_progress, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE SET
		 uuid = excluded.uuid,
		 reading_direction = excluded.reading_direction,
		 page_display_mode = excluded.page_display_mode,
		 image_fit_mode = excluded.image_fit_mode,
		 reader_background = excluded.reader_background,
		 sync_progress = excluded.sync_progress,
		 updated_at = excluded.updated_at`,
		id, bookID, nullableString(in.ReadingDirection), nullableString(in.PageDisplayMode),
		nullableString(in.ImageFitMode), in.ReaderBackground, in.SyncProgress, toMillis(updatedAt))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "upserting settings for book %d", bookID)
	}

	return s.GetBookSettings(ctx, tx, bookID)
}

// GetBookSettings returns the live settings row for a book, or (nil, nil)
// if none has been set.
func (s *Store) GetBookSettings(ctx context.Context, tx *sql.Tx, bookID int64) (*BookSettings, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT `+bookSettingsColumns+` FROM book_settings WHERE book_id = ?`, bookID)
	bs, err := scanBookSettingsRow(row)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}
	return bs, err
}

// GetBookSettingsByUUID returns a settings row by UUID, or (nil, nil) if none exists.
func (s *Store) GetBookSettingsByUUID(ctx context.Context, tx *sql.Tx, id string) (*BookSettings, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT `+bookSettingsColumns+` FROM book_settings WHERE uuid = ?`, id)
	bs, err := scanBookSettingsRow(row)
	if err == sql.ErrNoRows {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}
	return bs, err
}

func nullableString[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func scanBookSettingsRow(row rowScanner) (*BookSettings, error) {
	var (
		bs                                                     BookSettings
		direction, display, fit, background                    sql.NullString
		syncProgress                                            bool
		updatedAtMs                                             int64
	)

	err := row.Scan(&bs.ID, &bs.UUID, &bs.BookID, &direction, &display, &fit, &background, &syncProgress, &updatedAtMs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "scanning book_settings row")
	}

	if direction.Valid {
		d := ReadingDirection(direction.String)
		bs.ReadingDirection = &d
	}
	if display.Valid {
		d := PageDisplayMode(display.String)
		bs.PageDisplayMode = &d
	}
	if fit.Valid {
		f := ImageFitMode(fit.String)
		bs.ImageFitMode = &f
	}
	if background.Valid {
		bs.ReaderBackground = &background.String
	}
	bs.SyncProgress = syncProgress
	bs.UpdatedAt = fromMillis(updatedAtMs)

	return &bs, nil
}
