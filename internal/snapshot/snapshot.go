// Package snapshot defines the JSON wire shape exchanged with the cloud
// area and conversions to and from catalog rows. A snapshot is the whole
// state of one user's library as seen from the cloud; it never carries
// local integer ids, only UUIDs.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/yomerr"
)

// CurrentVersion is the only wire version this package writes or accepts
// without refusing to merge.
const CurrentVersion = 1

// Snapshot is the document stored under the well-known cloud filename.
// Unknown top-level keys present on decode are preserved verbatim in
// Extra and re-emitted on encode, so a future writer's additions survive
// a round trip through an older one.
type Snapshot struct {
	Version              int                            `json:"version"`
	LastModifiedBy       *string                         `json:"last_modified_by,omitempty"`
	LastModifiedAt       int64                           `json:"last_modified_at"`
	Books                map[string]RemoteBook           `json:"books"`
	Bookmarks            map[string]RemoteBookmark       `json:"bookmarks"`
	Collections          map[string]RemoteCollection     `json:"collections"`
	BookCollections      map[string]RemoteBookCollection `json:"book_collections"`
	BookSettings         map[string]RemoteBookSettings   `json:"book_settings"`
	AppSettings          map[string]json.RawMessage      `json:"app_settings"`
	AppSettingsUpdatedAt int64                            `json:"app_settings_updated_at"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Empty returns a fresh snapshot with every collection initialized, as
// used when the cloud side has no snapshot yet.
func Empty() *Snapshot {
	return &Snapshot{
		Version:         CurrentVersion,
		Books:           make(map[string]RemoteBook),
		Bookmarks:       make(map[string]RemoteBookmark),
		Collections:     make(map[string]RemoteCollection),
		BookCollections: make(map[string]RemoteBookCollection),
		BookSettings:    make(map[string]RemoteBookSettings),
		AppSettings:     make(map[string]json.RawMessage),
	}
}

// RemoteBook mirrors catalog.Book minus its local integer id.
type RemoteBook struct {
	UUID          string             `json:"uuid"`
	FilePath      string             `json:"file_path"`
	Filename      string             `json:"filename"`
	FileSize      *int64             `json:"file_size,omitempty"`
	FileHash      *string            `json:"file_hash,omitempty"`
	Title         string             `json:"title"`
	CurrentPage   int                `json:"current_page"`
	TotalPages    int                `json:"total_pages"`
	ReadingStatus catalog.ReadingStatus `json:"reading_status"`
	IsFavorite    bool               `json:"is_favorite"`
	LastReadAt    *int64             `json:"last_read_at,omitempty"`
	AddedAt       int64              `json:"added_at"`
	UpdatedAt     int64              `json:"updated_at"`
	DeletedAt     *int64             `json:"deleted_at,omitempty"`
}

// RemoteCollection mirrors catalog.Collection.
type RemoteCollection struct {
	UUID        string  `json:"uuid"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	CoverPath   *string `json:"cover_path,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
	DeletedAt   *int64  `json:"deleted_at,omitempty"`
}

// RemoteBookCollection mirrors the books↔collections junction row,
// referencing both sides by UUID.
type RemoteBookCollection struct {
	UUID           string `json:"uuid"`
	BookUUID       string `json:"book_uuid"`
	CollectionUUID string `json:"collection_uuid"`
	CreatedAt      int64  `json:"created_at"`
	DeletedAt      *int64 `json:"deleted_at,omitempty"`
}

// RemoteBookmark mirrors catalog.Bookmark, referencing its parent book by UUID.
type RemoteBookmark struct {
	UUID        string  `json:"uuid"`
	BookUUID    string  `json:"book_uuid"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Page        int     `json:"page"`
	CreatedAt   int64   `json:"created_at"`
	UpdatedAt   int64   `json:"updated_at"`
	DeletedAt   *int64  `json:"deleted_at,omitempty"`
}

// RemoteBookSettings mirrors catalog.BookSettings, referencing its book by UUID.
type RemoteBookSettings struct {
	UUID             string                    `json:"uuid"`
	BookUUID         string                    `json:"book_uuid"`
	ReadingDirection *catalog.ReadingDirection `json:"reading_direction,omitempty"`
	PageDisplayMode  *catalog.PageDisplayMode  `json:"page_display_mode,omitempty"`
	ImageFitMode     *catalog.ImageFitMode     `json:"image_fit_mode,omitempty"`
	ReaderBackground *string                   `json:"reader_background,omitempty"`
	SyncProgress     bool                      `json:"sync_progress"`
	UpdatedAt        int64                     `json:"updated_at"`
}

// Decode parses a wire-format snapshot, refusing any version newer than
// CurrentVersion and preserving unrecognized top-level keys.
func Decode(data []byte) (*Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, yomerr.Wrap(yomerr.CodeSerializationFailed, err, "decoding snapshot")
	}

	var versioned struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &versioned); err != nil {
		return nil, yomerr.Wrap(yomerr.CodeSerializationFailed, err, "reading snapshot version")
	}
	if versioned.Version > CurrentVersion {
		return nil, yomerr.New(yomerr.CodeSerializationFailed,
			fmt.Sprintf("snapshot version %d is newer than supported version %d", versioned.Version, CurrentVersion))
	}

	snap := Empty()
	knownFields := []string{
		"version", "last_modified_by", "last_modified_at", "books", "bookmarks",
		"collections", "book_collections", "book_settings", "app_settings",
		"app_settings_updated_at",
	}

	type alias Snapshot
	if err := json.Unmarshal(data, (*alias)(snap)); err != nil {
		return nil, yomerr.Wrap(yomerr.CodeSerializationFailed, err, "decoding snapshot body")
	}

	snap.Extra = make(map[string]json.RawMessage)
	for key, value := range raw {
		if !contains(knownFields, key) {
			snap.Extra[key] = value
		}
	}

	if snap.Books == nil {
		snap.Books = make(map[string]RemoteBook)
	}
	if snap.Bookmarks == nil {
		snap.Bookmarks = make(map[string]RemoteBookmark)
	}
	if snap.Collections == nil {
		snap.Collections = make(map[string]RemoteCollection)
	}
	if snap.BookCollections == nil {
		snap.BookCollections = make(map[string]RemoteBookCollection)
	}
	if snap.BookSettings == nil {
		snap.BookSettings = make(map[string]RemoteBookSettings)
	}
	if snap.AppSettings == nil {
		snap.AppSettings = make(map[string]json.RawMessage)
	}

	return snap, nil
}

// Encode serializes the snapshot back to wire bytes, re-merging any
// preserved unknown top-level keys.
func (s *Snapshot) Encode() ([]byte, error) {
	type alias Snapshot
	known, err := json.Marshal((*alias)(s))
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeSerializationFailed, err, "encoding snapshot")
	}

	if len(s.Extra) == 0 {
		return known, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, yomerr.Wrap(yomerr.CodeSerializationFailed, err, "re-merging snapshot extras")
	}
	for key, value := range s.Extra {
		merged[key] = value
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeSerializationFailed, err, "encoding merged snapshot")
	}
	return out, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
