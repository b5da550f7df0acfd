package merge

import (
	"context"
	"database/sql"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/snapshot"
)

func (e *Engine) mergeCollections(ctx context.Context, tx *sql.Tx, remote map[string]snapshot.RemoteCollection, opts Options, stats *Stats) (map[string]snapshot.RemoteCollection, error) {
	out := make(map[string]snapshot.RemoteCollection, len(remote))

	if !opts.SyncBooks {
		for k, v := range remote {
			out[k] = v
		}
		return out, nil
	}

	local, err := e.store.ListAllCollections(ctx, tx)
	if err != nil {
		return nil, err
	}

	byUUID := make(map[string]*catalog.Collection, len(local))
	for _, c := range local {
		byUUID[c.UUID] = c
	}

	handled := make(map[string]bool, len(remote))

	for id, rc := range remote {
		row, ok := byUUID[id]

		if !ok {
			if rc.DeletedAt != nil {
				out[id] = rc
				handled[id] = true
				continue
			}
			created, err := e.store.CreateCollectionWithIdentity(ctx, tx, id, rc.Name, rc.Description, rc.CoverPath,
				fromMillis(rc.CreatedAt), fromMillis(rc.UpdatedAt))
			if err != nil {
				return nil, err
			}
			stats.CollectionsDownloaded++
			out[id] = snapshot.FromCollection(created)
			handled[id] = true
			continue
		}

		localDeleted := row.DeletedAt != nil
		remoteDeleted := rc.DeletedAt != nil
		decision := resolveConflict(row.UpdatedAt.UnixMilli(), rc.UpdatedAt, localDeleted, remoteDeleted, opts.Strategy)

		switch decision {
		case decisionUseRemote:
			forced := fromMillis(rc.UpdatedAt)
			if err := e.store.UpdateCollection(ctx, tx, row.ID, rc.Name, rc.Description, rc.CoverPath, &forced); err != nil {
				return nil, err
			}
			if err := e.store.SetCollectionDeletedAt(ctx, tx, row.ID, rc.Name, fromNullMillis(rc.DeletedAt)); err != nil {
				return nil, err
			}
			refreshed, err := e.store.GetCollection(ctx, tx, row.ID)
			if err != nil {
				return nil, err
			}
			stats.CollectionsDownloaded++
			out[id] = snapshot.FromCollection(refreshed)

		case decisionUseLocal:
			stats.CollectionsUploaded++
			out[id] = snapshot.FromCollection(row)

		default:
			out[id] = rc
		}

		handled[id] = true
	}

	for _, c := range local {
		if handled[c.UUID] {
			continue
		}
		out[c.UUID] = snapshot.FromCollection(c)
		stats.CollectionsUploaded++
	}

	return out, nil
}
