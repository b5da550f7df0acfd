package merge

import (
	"context"
	"database/sql"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/snapshot"
)

// applyProgressPatch is the subset of a RemoteBook that travels when
// SyncBooks is off but SyncProgress is on (spec §4.8, second bullet).
func applyProgressPatch(rb snapshot.RemoteBook) catalog.BookPatch {
	status := rb.ReadingStatus
	page := rb.CurrentPage
	return catalog.BookPatch{
		CurrentPage:   &page,
		ReadingStatus: &status,
		LastReadAt:    fromNullMillis(rb.LastReadAt),
	}
}

// applyFullPatch is every mutable field of a book row, used when
// SyncBooks is on and the remote side wins.
func applyFullPatch(rb snapshot.RemoteBook) catalog.BookPatch {
	title := rb.Title
	status := rb.ReadingStatus
	page := rb.CurrentPage
	total := rb.TotalPages
	fav := rb.IsFavorite
	return catalog.BookPatch{
		Title:         &title,
		CurrentPage:   &page,
		TotalPages:    &total,
		ReadingStatus: &status,
		IsFavorite:    &fav,
		LastReadAt:    fromNullMillis(rb.LastReadAt),
		FilePath:      &rb.FilePath,
		FileHash:      rb.FileHash,
		FileSize:      rb.FileSize,
	}
}

// mergeBooks classifies every book UUID seen locally or remotely and
// returns the merged map to re-upload. When both SyncBooks and
// SyncProgress are off, books are not visited at all: the remote map
// passes through unchanged.
func (e *Engine) mergeBooks(ctx context.Context, tx *sql.Tx, remote map[string]snapshot.RemoteBook, opts Options, stats *Stats) (map[string]snapshot.RemoteBook, error) {
	out := make(map[string]snapshot.RemoteBook, len(remote))

	if !opts.SyncBooks && !opts.SyncProgress {
		for k, v := range remote {
			out[k] = v
		}
		return out, nil
	}

	local, err := e.store.ListAllBooks(ctx, tx)
	if err != nil {
		return nil, err
	}

	byUUID := make(map[string]*catalog.Book, len(local))
	byHashLive := make(map[string]*catalog.Book)
	for _, b := range local {
		byUUID[b.UUID] = b
		if b.DeletedAt == nil && b.FileHash != nil {
			byHashLive[*b.FileHash] = b
		}
	}

	handled := make(map[string]bool, len(remote))

	for id, rb := range remote {
		row, ok := byUUID[id]

		// UUID-drift recovery: same archive imported independently on
		// two devices before either had synced.
		if !ok && rb.FileHash != nil {
			if drift, found := byHashLive[*rb.FileHash]; found && !handled[drift.UUID] {
				if err := e.store.RewriteBookUUID(ctx, tx, drift.ID, id); err != nil {
					return nil, err
				}
				delete(byUUID, drift.UUID)
				drift.UUID = id
				byUUID[id] = drift
				row, ok = drift, true
			}
		}

		if !ok {
			if !opts.SyncBooks || rb.DeletedAt != nil {
				// Progress-only sync never creates books; a remote
				// tombstone with no local row has nothing to apply.
				out[id] = rb
				handled[id] = true
				continue
			}

			created, err := e.store.CreateBookWithIdentity(ctx, tx, id, snapshot.ToNewBook(rb),
				fromMillis(rb.AddedAt), fromMillis(rb.UpdatedAt))
			if err != nil {
				return nil, err
			}
			if rb.CurrentPage != 0 || rb.ReadingStatus != "" || rb.IsFavorite {
				patch := applyFullPatch(rb)
				if err := e.store.UpdateBook(ctx, tx, created.ID, patch, ptrTime(fromMillis(rb.UpdatedAt))); err != nil {
					return nil, err
				}
				created, err = e.store.GetBookByID(ctx, tx, created.ID)
				if err != nil {
					return nil, err
				}
			}

			stats.BooksDownloaded++
			out[id] = snapshot.FromBook(created)
			handled[id] = true
			continue
		}

		localDeleted := row.DeletedAt != nil
		remoteDeleted := rb.DeletedAt != nil
		decision := resolveConflict(row.UpdatedAt.UnixMilli(), rb.UpdatedAt, localDeleted, remoteDeleted, opts.Strategy)

		switch decision {
		case decisionUseRemote:
			forced := fromMillis(rb.UpdatedAt)
			if opts.SyncBooks {
				if err := e.store.UpdateBook(ctx, tx, row.ID, applyFullPatch(rb), &forced); err != nil {
					return nil, err
				}
				if err := e.store.SetBookDeletedAt(ctx, tx, row.ID, fromNullMillis(rb.DeletedAt)); err != nil {
					return nil, err
				}
			} else {
				if err := e.store.UpdateBook(ctx, tx, row.ID, applyProgressPatch(rb), &forced); err != nil {
					return nil, err
				}
			}
			refreshed, err := e.store.GetBookByID(ctx, tx, row.ID)
			if err != nil {
				return nil, err
			}
			stats.BooksDownloaded++
			out[id] = snapshot.FromBook(refreshed)

		case decisionUseLocal:
			stats.BooksUploaded++
			out[id] = snapshot.FromBook(row)

		default:
			out[id] = rb
		}

		handled[id] = true
	}

	if opts.SyncBooks {
		for _, b := range local {
			if handled[b.UUID] {
				continue
			}
			out[b.UUID] = snapshot.FromBook(b)
			stats.BooksUploaded++
		}
	}

	return out, nil
}
