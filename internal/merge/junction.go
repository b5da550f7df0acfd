package merge

import (
	"context"
	"database/sql"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/snapshot"
)

// mergeJunction reconciles the books↔collections junction. It runs after
// mergeBooks and mergeCollections so that a referent inserted by either
// of those passes is already visible here. A record whose book_uuid or
// collection_uuid has no local match yet is skipped rather than applied
// — it materializes automatically on a later sync once the referent
// exists (spec §4.8, "eventual, not immediate, referential convergence").
func (e *Engine) mergeJunction(ctx context.Context, tx *sql.Tx, remote map[string]snapshot.RemoteBookCollection, opts Options, stats *Stats) (map[string]snapshot.RemoteBookCollection, error) {
	out := make(map[string]snapshot.RemoteBookCollection, len(remote))

	if !opts.SyncBooks {
		for k, v := range remote {
			out[k] = v
		}
		return out, nil
	}

	local, err := e.store.ListAllBookCollections(ctx, tx)
	if err != nil {
		return nil, err
	}

	byUUID := make(map[string]*catalog.BookCollection, len(local))
	byPairLive := make(map[[2]int64]*catalog.BookCollection)
	for _, bc := range local {
		byUUID[bc.UUID] = bc
		if bc.DeletedAt == nil {
			byPairLive[[2]int64{bc.BookID, bc.CollectionID}] = bc
		}
	}

	handled := make(map[string]bool, len(remote))

	for id, rj := range remote {
		row, ok := byUUID[id]

		if !ok {
			book, err := e.store.GetBookByUUID(ctx, tx, rj.BookUUID)
			if err != nil {
				return nil, err
			}
			collection, err := e.store.GetCollectionByUUID(ctx, tx, rj.CollectionUUID)
			if err != nil {
				return nil, err
			}
			if book == nil || collection == nil {
				out[id] = rj
				stats.SkippedReferences++
				continue
			}

			// Pair-drift recovery: the same (book, collection) link was
			// made independently on two devices before either had synced.
			// Adopt the remote UUID instead of inserting a second live row,
			// which would violate the live-pair unique index.
			if existing, found := byPairLive[[2]int64{book.ID, collection.ID}]; found && !handled[existing.UUID] {
				if err := e.store.RewriteJunctionUUID(ctx, tx, existing.ID, id); err != nil {
					return nil, err
				}
				delete(byUUID, existing.UUID)
				existing.UUID = id
				byUUID[id] = existing
				row, ok = existing, true
			}

			if !ok {
				if rj.DeletedAt != nil {
					out[id] = rj
					handled[id] = true
					continue
				}

				created, err := e.store.CreateJunctionWithIdentity(ctx, tx, id, book.ID, collection.ID, fromMillis(rj.CreatedAt))
				if err != nil {
					return nil, err
				}
				stats.JunctionDownloaded++
				out[id] = snapshot.FromBookCollection(created, rj.BookUUID, rj.CollectionUUID)
				handled[id] = true
				continue
			}
		}

		localDeleted := row.DeletedAt != nil
		remoteDeleted := rj.DeletedAt != nil
		decision := resolveConflict(row.CreatedAt.UnixMilli(), rj.CreatedAt, localDeleted, remoteDeleted, opts.Strategy)

		switch decision {
		case decisionUseRemote:
			if err := e.store.SetJunctionDeletedAt(ctx, tx, row.ID, fromNullMillis(rj.DeletedAt)); err != nil {
				return nil, err
			}
			stats.JunctionDownloaded++
			out[id] = rj

		case decisionUseLocal:
			stats.JunctionUploaded++
			out[id] = snapshot.FromBookCollection(row, rj.BookUUID, rj.CollectionUUID)

		default:
			out[id] = rj
		}

		handled[id] = true
	}

	for _, bc := range local {
		if handled[bc.UUID] {
			continue
		}
		book, err := e.store.GetBookByID(ctx, tx, bc.BookID)
		if err != nil {
			return nil, err
		}
		collection, err := e.store.GetCollection(ctx, tx, bc.CollectionID)
		if err != nil {
			return nil, err
		}
		if book == nil || collection == nil {
			continue
		}
		out[bc.UUID] = snapshot.FromBookCollection(bc, book.UUID, collection.UUID)
		stats.JunctionUploaded++
	}

	return out, nil
}
