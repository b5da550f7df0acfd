package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/yomiyougu/core/internal/yomerr"
)

// GetSyncState reads the singleton sync_state row.
func (s *Store) GetSyncState(ctx context.Context, tx *sql.Tx) (*SyncState, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT last_sync_at, last_sync_device, sync_file_id FROM sync_state WHERE id = 1`)

	var lastSyncAt sql.NullInt64
	var lastSyncDevice, syncFileID sql.NullString

	if err := row.Scan(&lastSyncAt, &lastSyncDevice, &syncFileID); err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "reading sync_state")
	}

	st := &SyncState{}
	if lastSyncAt.Valid {
		t := fromMillis(lastSyncAt.Int64)
		st.LastSyncAt = &t
	}
	if lastSyncDevice.Valid {
		st.LastSyncDevice = &lastSyncDevice.String
	}
	if syncFileID.Valid {
		st.SyncFileID = &syncFileID.String
	}

	return st, nil
}

// WriteSyncState overwrites the singleton sync_state row.
func (s *Store) WriteSyncState(ctx context.Context, tx *sql.Tx, st SyncState) error {
	var lastSyncAt *int64
	if st.LastSyncAt != nil {
		ms := toMillis(*st.LastSyncAt)
		lastSyncAt = &ms
	}

	_, err := s.q(tx).ExecContext(ctx,
		`UPDATE sync_state SET last_sync_at = ?, last_sync_device = ?, sync_file_id = ? WHERE id = 1`,
		lastSyncAt, st.LastSyncDevice, st.SyncFileID)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "writing sync_state")
	}
	return nil
}

// SinceLastSync returns the window start for merge's "what changed since
// last sync" reasoning, or the zero time if this device has never synced.
func (s *Store) SinceLastSync(ctx context.Context, tx *sql.Tx) (time.Time, error) {
	st, err := s.GetSyncState(ctx, tx)
	if err != nil {
		return time.Time{}, err
	}
	if st.LastSyncAt == nil {
		return time.Time{}, nil
	}
	return *st.LastSyncAt, nil
}
