// Package merge implements the pull-merge-push reconciliation at the
// heart of a sync cycle: given a downloaded remote snapshot and the
// local catalog, it classifies every row of every entity class into
// "keep local", "adopt remote", or "no-op", applies the local side of
// that decision inside one caller-supplied transaction, and returns the
// snapshot to upload next.
//
// Each entity class gets its own classification pass (mergeBooks,
// mergeCollections, ...), mirroring reconciler.go's per-item
// classification in the teacher repository: a pure decision function
// (resolveConflict) plus a thin per-row apply step, so the decision
// logic is unit-testable without a database.
package merge

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/snapshot"
)

// Strategy overrides the default last-write-wins comparison for rows
// where neither side is tombstoned.
type Strategy string

const (
	// LastWriteWins resolves to whichever side has the greater
	// updated_at, no-op on exact equality. The default.
	LastWriteWins Strategy = ""
	RemoteWins    Strategy = "remote_wins"
	LocalWins     Strategy = "local_wins"
)

// Options gates which entity classes a merge pass visits, per spec
// §4.8: four independent flags plus the conflict strategy.
type Options struct {
	SyncBooks      bool
	SyncBooksFiles bool
	SyncSettings   bool
	SyncProgress   bool
	Strategy       Strategy
}

// Disabled reports whether every feature flag is off, the signal the
// sync orchestrator uses to skip a cloud round-trip entirely.
func (o Options) Disabled() bool {
	return !o.SyncBooks && !o.SyncBooksFiles && !o.SyncSettings && !o.SyncProgress
}

// decision is the outcome of resolveConflict for one row.
type decision int

const (
	decisionNoop decision = iota
	decisionUseLocal
	decisionUseRemote
)

// resolveConflict is the single pure function every per-entity merge
// pass calls. Deletion dominates unconditionally; otherwise the
// strategy (default last-write-wins) decides, with exact equality
// resolving to no-op.
func resolveConflict(localUpdated, remoteUpdated int64, localDeleted, remoteDeleted bool, strategy Strategy) decision {
	if localDeleted != remoteDeleted {
		if localDeleted {
			return decisionUseLocal
		}
		return decisionUseRemote
	}

	switch strategy {
	case RemoteWins:
		return decisionUseRemote
	case LocalWins:
		return decisionUseLocal
	default:
		switch {
		case remoteUpdated > localUpdated:
			return decisionUseRemote
		case localUpdated > remoteUpdated:
			return decisionUseLocal
		default:
			return decisionNoop
		}
	}
}

// Stats counts rows moved in each direction per entity class, surfaced
// to the caller as part of cloudsync.SyncResult.
type Stats struct {
	BooksUploaded, BooksDownloaded             int
	CollectionsUploaded, CollectionsDownloaded int
	JunctionUploaded, JunctionDownloaded       int
	BookmarksUploaded, BookmarksDownloaded     int
	SettingsUploaded, SettingsDownloaded       int
	AppSettingsUploaded, AppSettingsDownloaded bool
	SkippedReferences                         int
}

// AppSettings is the local app-settings document state merge needs:
// the raw per-key values and the whole-document timestamp spec §4.8
// compares against the snapshot's app_settings_updated_at.
type AppSettings struct {
	Values    map[string]json.RawMessage
	UpdatedAt time.Time
}

// Result is everything a merge pass produces: the snapshot to upload
// next and, if the local app-settings document changed, its new value
// for the caller to persist to settings.json.
type Result struct {
	Snapshot          *snapshot.Snapshot
	Stats             Stats
	AppSettings       AppSettings
	AppSettingsChanged bool
}

// Engine merges one pulled remote snapshot against the local catalog.
type Engine struct {
	store *catalog.Store
}

// New constructs an Engine over a catalog store. The caller is
// responsible for wrapping Merge in a Store.WithTx call.
func New(store *catalog.Store) *Engine {
	return &Engine{store: store}
}

// Merge runs every entity class's pass, in the order books → collections
// → junction → bookmarks → book_settings → app_settings, so later passes
// can resolve UUID references created by earlier ones within this same
// sync. No pass reads now: every row, and the app-settings document,
// keeps its own authoritative updated_at.
func (e *Engine) Merge(ctx context.Context, tx *sql.Tx, remote *snapshot.Snapshot, local AppSettings, opts Options, now time.Time) (*Result, error) {
	var stats Stats

	books, err := e.mergeBooks(ctx, tx, remote.Books, opts, &stats)
	if err != nil {
		return nil, err
	}

	collections, err := e.mergeCollections(ctx, tx, remote.Collections, opts, &stats)
	if err != nil {
		return nil, err
	}

	junction, err := e.mergeJunction(ctx, tx, remote.BookCollections, opts, &stats)
	if err != nil {
		return nil, err
	}

	bookmarks, err := e.mergeBookmarks(ctx, tx, remote.Bookmarks, opts, &stats)
	if err != nil {
		return nil, err
	}

	bookSettings, err := e.mergeBookSettings(ctx, tx, remote.BookSettings, opts, &stats)
	if err != nil {
		return nil, err
	}

	appSettings, appChanged, appValues := e.mergeAppSettings(remote, local, opts, &stats)

	out := &snapshot.Snapshot{
		Version:              snapshot.CurrentVersion,
		LastModifiedAt:       remote.LastModifiedAt,
		Books:                books,
		Bookmarks:            bookmarks,
		Collections:          collections,
		BookCollections:      junction,
		BookSettings:         bookSettings,
		AppSettings:          appValues,
		AppSettingsUpdatedAt: appSettings.UpdatedAt.UnixMilli(),
		Extra:                remote.Extra,
	}

	return &Result{
		Snapshot:           out,
		Stats:              stats,
		AppSettings:        appSettings,
		AppSettingsChanged: appChanged,
	}, nil
}
