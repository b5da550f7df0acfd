package merge

import (
	"context"
	"database/sql"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/snapshot"
)

// mergeBookmarks reconciles bookmarks, skipping any record whose parent
// book is not yet known locally (same eventual-convergence rule as the
// junction pass).
func (e *Engine) mergeBookmarks(ctx context.Context, tx *sql.Tx, remote map[string]snapshot.RemoteBookmark, opts Options, stats *Stats) (map[string]snapshot.RemoteBookmark, error) {
	out := make(map[string]snapshot.RemoteBookmark, len(remote))

	if !opts.SyncProgress {
		for k, v := range remote {
			out[k] = v
		}
		return out, nil
	}

	local, err := e.store.ListAllBookmarks(ctx, tx)
	if err != nil {
		return nil, err
	}

	byUUID := make(map[string]*catalog.Bookmark, len(local))
	for _, bm := range local {
		byUUID[bm.UUID] = bm
	}

	handled := make(map[string]bool, len(remote))

	for id, rb := range remote {
		row, ok := byUUID[id]

		if !ok {
			book, err := e.store.GetBookByUUID(ctx, tx, rb.BookUUID)
			if err != nil {
				return nil, err
			}
			if book == nil {
				out[id] = rb
				stats.SkippedReferences++
				continue
			}

			if rb.DeletedAt != nil {
				out[id] = rb
				handled[id] = true
				continue
			}

			created, err := e.store.CreateBookmarkWithIdentity(ctx, tx, id, book.ID, rb.Name, rb.Description, rb.Page,
				fromMillis(rb.CreatedAt), fromMillis(rb.UpdatedAt))
			if err != nil {
				return nil, err
			}
			stats.BookmarksDownloaded++
			out[id] = snapshot.FromBookmark(created, rb.BookUUID)
			handled[id] = true
			continue
		}

		localDeleted := row.DeletedAt != nil
		remoteDeleted := rb.DeletedAt != nil
		decision := resolveConflict(row.UpdatedAt.UnixMilli(), rb.UpdatedAt, localDeleted, remoteDeleted, opts.Strategy)

		switch decision {
		case decisionUseRemote:
			forced := fromMillis(rb.UpdatedAt)
			if err := e.store.UpdateBookmark(ctx, tx, row.ID, rb.Name, rb.Description, rb.Page, &forced); err != nil {
				return nil, err
			}
			if err := e.store.SetBookmarkDeletedAt(ctx, tx, row.ID, fromNullMillis(rb.DeletedAt)); err != nil {
				return nil, err
			}
			stats.BookmarksDownloaded++
			out[id] = rb

		case decisionUseLocal:
			stats.BookmarksUploaded++
			out[id] = snapshot.FromBookmark(row, rb.BookUUID)

		default:
			out[id] = rb
		}

		handled[id] = true
	}

	for _, bm := range local {
		if handled[bm.UUID] {
			continue
		}
		book, err := e.store.GetBookByID(ctx, tx, bm.BookID)
		if err != nil {
			return nil, err
		}
		if book == nil {
			continue
		}
		out[bm.UUID] = snapshot.FromBookmark(bm, book.UUID)
		stats.BookmarksUploaded++
	}

	return out, nil
}
