package merge

import (
	"encoding/json"

	"github.com/yomiyougu/core/internal/snapshot"
)

// mergeAppSettings compares the whole app-settings document by its
// single updated_at timestamp — spec §4.8 merges this class "by whole-
// document timestamp", unlike every per-row entity class above. It
// returns the resolved AppSettings (for the caller to persist locally
// when the remote side won), whether the local copy changed, and the
// raw value map to place in the outgoing snapshot.
func (e *Engine) mergeAppSettings(remote *snapshot.Snapshot, local AppSettings, opts Options, stats *Stats) (AppSettings, bool, map[string]json.RawMessage) {
	if !opts.SyncSettings {
		return local, false, remote.AppSettings
	}

	remoteUpdated := remote.AppSettingsUpdatedAt
	localUpdated := local.UpdatedAt.UnixMilli()

	switch resolveConflict(localUpdated, remoteUpdated, false, false, opts.Strategy) {
	case decisionUseRemote:
		stats.AppSettingsDownloaded = true
		return AppSettings{Values: remote.AppSettings, UpdatedAt: fromMillis(remote.AppSettingsUpdatedAt)}, true, remote.AppSettings
	case decisionUseLocal:
		stats.AppSettingsUploaded = true
		return local, false, local.Values
	default:
		return local, false, local.Values
	}
}
