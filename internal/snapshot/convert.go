package snapshot

import (
	"time"

	"github.com/yomiyougu/core/internal/catalog"
)

func toMillis(t time.Time) int64   { return t.UnixMilli() }
func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func toNullMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromNullMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

// FromBook converts a catalog row into its wire representation.
func FromBook(b *catalog.Book) RemoteBook {
	return RemoteBook{
		UUID:          b.UUID,
		FilePath:      b.FilePath,
		Filename:      b.Filename,
		FileSize:      b.FileSize,
		FileHash:      b.FileHash,
		Title:         b.Title,
		CurrentPage:   b.CurrentPage,
		TotalPages:    b.TotalPages,
		ReadingStatus: b.ReadingStatus,
		IsFavorite:    b.IsFavorite,
		LastReadAt:    toNullMillis(b.LastReadAt),
		AddedAt:       toMillis(b.AddedAt),
		UpdatedAt:     toMillis(b.UpdatedAt),
		DeletedAt:     toNullMillis(b.DeletedAt),
	}
}

// FromCollection converts a catalog row into its wire representation.
func FromCollection(c *catalog.Collection) RemoteCollection {
	return RemoteCollection{
		UUID:        c.UUID,
		Name:        c.Name,
		Description: c.Description,
		CoverPath:   c.CoverPath,
		CreatedAt:   toMillis(c.CreatedAt),
		UpdatedAt:   toMillis(c.UpdatedAt),
		DeletedAt:   toNullMillis(c.DeletedAt),
	}
}

// FromBookCollection converts a junction row into its wire representation,
// resolving the two sides' UUIDs via the supplied lookup functions.
func FromBookCollection(bc *catalog.BookCollection, bookUUID, collectionUUID string) RemoteBookCollection {
	return RemoteBookCollection{
		UUID:           bc.UUID,
		BookUUID:       bookUUID,
		CollectionUUID: collectionUUID,
		CreatedAt:      toMillis(bc.CreatedAt),
		DeletedAt:      toNullMillis(bc.DeletedAt),
	}
}

// FromBookmark converts a catalog row into its wire representation.
func FromBookmark(bm *catalog.Bookmark, bookUUID string) RemoteBookmark {
	return RemoteBookmark{
		UUID:        bm.UUID,
		BookUUID:    bookUUID,
		Name:        bm.Name,
		Description: bm.Description,
		Page:        bm.Page,
		CreatedAt:   toMillis(bm.CreatedAt),
		UpdatedAt:   toMillis(bm.UpdatedAt),
		DeletedAt:   toNullMillis(bm.DeletedAt),
	}
}

// FromBookSettings converts a catalog row into its wire representation.
func FromBookSettings(bs *catalog.BookSettings, bookUUID string) RemoteBookSettings {
	return RemoteBookSettings{
		UUID:             bs.UUID,
		BookUUID:         bookUUID,
		ReadingDirection: bs.ReadingDirection,
		PageDisplayMode:  bs.PageDisplayMode,
		ImageFitMode:     bs.ImageFitMode,
		ReaderBackground: bs.ReaderBackground,
		SyncProgress:     bs.SyncProgress,
		UpdatedAt:        toMillis(bs.UpdatedAt),
	}
}

// ToNewBook converts a remote book record not yet present locally into the
// fields needed to insert it as a cloud-only placeholder.
func ToNewBook(r RemoteBook) catalog.NewBook {
	return catalog.NewBook{
		FilePath:   catalog.CloudPathPrefix + r.UUID,
		Filename:   r.Filename,
		FileSize:   r.FileSize,
		FileHash:   r.FileHash,
		Title:      r.Title,
		TotalPages: r.TotalPages,
	}
}

// TimestampedRecord's UpdatedAtMillis and DeletedAtMillis extract the
// comparison timestamp and tombstone state generically; the merge engine works against these
// rather than against each Remote* type's fields directly.
type TimestampedRecord interface {
	UpdatedAtMillis() int64
	DeletedAtMillis() *int64
}

func (r RemoteBook) UpdatedAtMillis() int64     { return r.UpdatedAt }
func (r RemoteBook) DeletedAtMillis() *int64    { return r.DeletedAt }
func (r RemoteCollection) UpdatedAtMillis() int64  { return r.UpdatedAt }
func (r RemoteCollection) DeletedAtMillis() *int64 { return r.DeletedAt }
func (r RemoteBookmark) UpdatedAtMillis() int64    { return r.UpdatedAt }
func (r RemoteBookmark) DeletedAtMillis() *int64   { return r.DeletedAt }
func (r RemoteBookCollection) UpdatedAtMillis() int64  { return r.CreatedAt }
func (r RemoteBookCollection) DeletedAtMillis() *int64 { return r.DeletedAt }
func (r RemoteBookSettings) UpdatedAtMillis() int64  { return r.UpdatedAt }
func (r RemoteBookSettings) DeletedAtMillis() *int64 { return nil }
