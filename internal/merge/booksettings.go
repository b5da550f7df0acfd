package merge

import (
	"context"
	"database/sql"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/snapshot"
)

// mergeBookSettings reconciles per-book reader overrides. The table
// carries no tombstone column (spec §3: "at most one live row per
// book"), so deletion dominance never applies here — comparison is
// plain last-write-wins on updated_at.
func (e *Engine) mergeBookSettings(ctx context.Context, tx *sql.Tx, remote map[string]snapshot.RemoteBookSettings, opts Options, stats *Stats) (map[string]snapshot.RemoteBookSettings, error) {
	out := make(map[string]snapshot.RemoteBookSettings, len(remote))

	if !opts.SyncProgress {
		for k, v := range remote {
			out[k] = v
		}
		return out, nil
	}

	local, err := e.store.ListAllBookSettings(ctx, tx)
	if err != nil {
		return nil, err
	}

	byUUID := make(map[string]*catalog.BookSettings, len(local))
	for _, bs := range local {
		byUUID[bs.UUID] = bs
	}

	handled := make(map[string]bool, len(remote))

	for id, rs := range remote {
		row, ok := byUUID[id]

		if !ok {
			book, err := e.store.GetBookByUUID(ctx, tx, rs.BookUUID)
			if err != nil {
				return nil, err
			}
			if book == nil {
				out[id] = rs
				stats.SkippedReferences++
				continue
			}

			forced := fromMillis(rs.UpdatedAt)
			created, err := e.store.UpsertBookSettings(ctx, tx, book.ID, catalog.BookSettings{
				UUID:             id,
				ReadingDirection: rs.ReadingDirection,
				PageDisplayMode:  rs.PageDisplayMode,
				ImageFitMode:     rs.ImageFitMode,
				ReaderBackground: rs.ReaderBackground,
				SyncProgress:     rs.SyncProgress,
			}, &forced)
			if err != nil {
				return nil, err
			}
			stats.SettingsDownloaded++
			out[id] = snapshot.FromBookSettings(created, rs.BookUUID)
			handled[id] = true
			// The upsert replaced this book's existing local row, if any,
			// under the remote UUID; its old UUID must not be re-uploaded.
			for _, bs := range local {
				if bs.BookID == book.ID {
					handled[bs.UUID] = true
				}
			}
			continue
		}

		decision := resolveConflict(row.UpdatedAt.UnixMilli(), rs.UpdatedAt, false, false, opts.Strategy)

		switch decision {
		case decisionUseRemote:
			book, err := e.store.GetBookByID(ctx, tx, row.BookID)
			if err != nil {
				return nil, err
			}
			forced := fromMillis(rs.UpdatedAt)
			updated, err := e.store.UpsertBookSettings(ctx, tx, row.BookID, catalog.BookSettings{
				UUID:             id,
				ReadingDirection: rs.ReadingDirection,
				PageDisplayMode:  rs.PageDisplayMode,
				ImageFitMode:     rs.ImageFitMode,
				ReaderBackground: rs.ReaderBackground,
				SyncProgress:     rs.SyncProgress,
			}, &forced)
			if err != nil {
				return nil, err
			}
			stats.SettingsDownloaded++
			out[id] = snapshot.FromBookSettings(updated, book.UUID)

		case decisionUseLocal:
			book, err := e.store.GetBookByID(ctx, tx, row.BookID)
			if err != nil {
				return nil, err
			}
			stats.SettingsUploaded++
			out[id] = snapshot.FromBookSettings(row, book.UUID)

		default:
			out[id] = rs
		}

		handled[id] = true
	}

	for _, bs := range local {
		if handled[bs.UUID] {
			continue
		}
		book, err := e.store.GetBookByID(ctx, tx, bs.BookID)
		if err != nil {
			return nil, err
		}
		if book == nil {
			continue
		}
		out[bs.UUID] = snapshot.FromBookSettings(bs, book.UUID)
		stats.SettingsUploaded++
	}

	return out, nil
}
