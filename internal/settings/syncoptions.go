package settings

import (
	"encoding/json"

	"github.com/yomiyougu/core/internal/merge"
)

// Well-known keys for the sync category's four feature flags and its
// conflict strategy, the only settings the sync orchestrator reads.
const (
	KeySyncBooks      = "sync.books"
	KeySyncBooksFiles = "sync.books_files"
	KeySyncSettings   = "sync.settings"
	KeySyncProgress   = "sync.progress"
	KeySyncStrategy   = "sync.strategy"
)

func boolOf(doc *Document, key string) bool {
	item, ok := doc.Get(key)
	if !ok {
		return false
	}
	var v bool
	_ = json.Unmarshal(item.Widget.Value, &v)
	return v
}

func stringOf(doc *Document, key string) string {
	item, ok := doc.Get(key)
	if !ok {
		return ""
	}
	var v string
	_ = json.Unmarshal(item.Widget.Value, &v)
	return v
}

// SyncOptions extracts the sync orchestrator's merge.Options from the
// settings document's four feature flags and conflict strategy. Any item
// missing from the document (e.g. an older settings.json predating a new
// flag) defaults to off.
func SyncOptions(doc *Document) merge.Options {
	return merge.Options{
		SyncBooks:      boolOf(doc, KeySyncBooks),
		SyncBooksFiles: boolOf(doc, KeySyncBooksFiles),
		SyncSettings:   boolOf(doc, KeySyncSettings),
		SyncProgress:   boolOf(doc, KeySyncProgress),
		Strategy:       merge.Strategy(stringOf(doc, KeySyncStrategy)),
	}
}
