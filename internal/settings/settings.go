// Package settings owns the app-settings document: a versioned tree of
// categories to items, each item a widget-tagged union of a current value
// and a default, with its own whole-document updated_at used by the merge
// engine. This is the one piece of application state that lives outside
// the relational catalog (spec calls it out explicitly as a separate
// external interface).
package settings

import "encoding/json"

// CurrentVersion is the document schema version this package writes.
const CurrentVersion = 1

// WidgetKind is the closed set of UI controls an item can render as.
type WidgetKind string

const (
	WidgetToggle WidgetKind = "toggle"
	WidgetSelect WidgetKind = "select"
	WidgetSlider WidgetKind = "slider"
	WidgetText   WidgetKind = "text"
)

// Widget carries an item's current and default value alongside the kind
// of control that edits it. Value and DefaultValue are left as raw JSON
// since their shape depends on Kind (bool for toggle, string for select,
// number for slider, ...).
type Widget struct {
	Kind         WidgetKind      `json:"kind"`
	Value        json.RawMessage `json:"value"`
	DefaultValue json.RawMessage `json:"defaultValue"`
	Options      []string        `json:"options,omitempty"`
}

// Item is one setting within a category.
type Item struct {
	Key             string   `json:"key"`
	Label           string   `json:"label"`
	Description     string   `json:"description,omitempty"`
	Widget          Widget   `json:"widget"`
	RequiresRestart bool     `json:"requiresRestart,omitempty"`
	Platforms       []string `json:"platforms,omitempty"`
}

// Category groups related items under a heading.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Items []Item `json:"items"`
}

// Document is the full settings.json contents.
type Document struct {
	Version    int        `json:"version"`
	UpdatedAt  int64      `json:"updatedAt"`
	Categories []Category `json:"categories"`
}

// Get returns the item with the given key, searching every category.
func (d *Document) Get(key string) (Item, bool) {
	for _, cat := range d.Categories {
		for _, item := range cat.Items {
			if item.Key == key {
				return item, true
			}
		}
	}
	return Item{}, false
}

// Set replaces the value of the item with the given key and reports
// whether a matching item was found. The caller is responsible for
// bumping UpdatedAt.
func (d *Document) Set(key string, value json.RawMessage) bool {
	for ci := range d.Categories {
		for ii := range d.Categories[ci].Items {
			if d.Categories[ci].Items[ii].Key == key {
				d.Categories[ci].Items[ii].Widget.Value = value
				return true
			}
		}
	}
	return false
}

func boolValue(v bool) json.RawMessage {
	if v {
		return json.RawMessage("true")
	}
	return json.RawMessage("false")
}

func stringValue(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

// Default builds the document shipped on first run: currently just the
// sync category, with every flag off and last-write-wins as the strategy,
// matching spec.md's four-flag SyncOptions plus its conflict strategy.
func Default() *Document {
	return &Document{
		Version: CurrentVersion,
		Categories: []Category{
			{
				Key:   "sync",
				Label: "Sync",
				Items: []Item{
					{
						Key:         KeySyncBooks,
						Label:       "Sync library",
						Description: "Sync book metadata and collections across devices.",
						Widget:      Widget{Kind: WidgetToggle, Value: boolValue(false), DefaultValue: boolValue(false)},
					},
					{
						Key:         KeySyncBooksFiles,
						Label:       "Sync archive files",
						Description: "Upload and download the underlying archive files, not just metadata.",
						Widget:      Widget{Kind: WidgetToggle, Value: boolValue(false), DefaultValue: boolValue(false)},
					},
					{
						Key:         KeySyncSettings,
						Label:       "Sync app settings",
						Description: "Sync this settings document itself across devices.",
						Widget:      Widget{Kind: WidgetToggle, Value: boolValue(false), DefaultValue: boolValue(false)},
					},
					{
						Key:         KeySyncProgress,
						Label:       "Sync reading progress",
						Description: "Sync current page, reading status, bookmarks, and per-book overrides.",
						Widget:      Widget{Kind: WidgetToggle, Value: boolValue(false), DefaultValue: boolValue(false)},
					},
					{
						Key:         KeySyncStrategy,
						Label:       "Conflict strategy",
						Description: "How to resolve a row edited on two devices since the last sync.",
						Widget: Widget{
							Kind:         WidgetSelect,
							Value:        stringValue(""),
							DefaultValue: stringValue(""),
							Options:      []string{"", "remote_wins", "local_wins"},
						},
					},
				},
			},
		},
	}
}
