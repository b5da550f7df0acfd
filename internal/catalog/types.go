// Package catalog is the relational persistence layer over books,
// collections, bookmarks, per-book settings, the book↔collection junction,
// and the singleton sync-state row. It is the only package that talks to
// the database; every other package reaches the store through Store's
// exported operations.
package catalog

import "time"

// ReadingStatus is the closed set of reading-progress states a book may be in.
type ReadingStatus string

const (
	StatusUnread    ReadingStatus = "unread"
	StatusReading   ReadingStatus = "reading"
	StatusCompleted ReadingStatus = "completed"
	StatusOnHold    ReadingStatus = "on_hold"
	StatusDropped   ReadingStatus = "dropped"
)

// ReadingDirection is a BookSettings override.
type ReadingDirection string

const (
	DirectionLTR      ReadingDirection = "ltr"
	DirectionRTL      ReadingDirection = "rtl"
	DirectionVertical ReadingDirection = "vertical"
)

// PageDisplayMode is a BookSettings override.
type PageDisplayMode string

const (
	DisplaySingle     PageDisplayMode = "single"
	DisplayDouble     PageDisplayMode = "double"
	DisplayContinuous PageDisplayMode = "auto"
)

// ImageFitMode is a BookSettings override.
type ImageFitMode string

const (
	FitWidth    ImageFitMode = "fit_width"
	FitHeight   ImageFitMode = "fit_height"
	FitScreen   ImageFitMode = "fit_screen"
	FitOriginal ImageFitMode = "original"
)

// CloudPathPrefix marks a Book.FilePath as not-yet-downloaded.
const CloudPathPrefix = "cloud://"

// Book represents one imported archive treated as a single reading unit.
type Book struct {
	ID            int64
	UUID          string
	FilePath      string
	Filename      string
	FileSize      *int64
	FileHash      *string
	Title         string
	CurrentPage   int
	TotalPages    int
	ReadingStatus ReadingStatus
	IsFavorite    bool
	LastReadAt    *time.Time
	AddedAt       time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// IsCloudOnly reports whether the book's archive has not yet been downloaded.
func (b *Book) IsCloudOnly() bool {
	return len(b.FilePath) >= len(CloudPathPrefix) && b.FilePath[:len(CloudPathPrefix)] == CloudPathPrefix
}

// BookPatch carries partial updates to a Book; nil fields are left
// unchanged. Used by UpdateBook.
type BookPatch struct {
	Title         *string
	CurrentPage   *int
	TotalPages    *int
	ReadingStatus *ReadingStatus
	IsFavorite    *bool
	LastReadAt    *time.Time
	FilePath      *string
	FileHash      *string
	FileSize      *int64
}

// Collection is a user-defined grouping of books.
type Collection struct {
	ID          int64
	UUID        string
	Name        string
	Description *string
	CoverPath   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// BookCollection is the books↔collections junction row.
type BookCollection struct {
	ID           int64
	UUID         string
	BookID       int64
	CollectionID int64
	CreatedAt    time.Time
	DeletedAt    *time.Time
}

// Bookmark marks a specific page within a book.
type Bookmark struct {
	ID          int64
	UUID        string
	BookID      int64
	Name        string
	Description *string
	Page        int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// BookSettings holds at most one live row of per-book reader overrides.
type BookSettings struct {
	ID               int64
	UUID             string
	BookID           int64
	ReadingDirection *ReadingDirection
	PageDisplayMode  *PageDisplayMode
	ImageFitMode     *ImageFitMode
	ReaderBackground *string
	SyncProgress     bool
	UpdatedAt        time.Time
}

// SyncState is the singleton row tracking this device's last sync.
type SyncState struct {
	LastSyncAt     *time.Time
	LastSyncDevice *string
	SyncFileID     *string
}

// ListFilter narrows ListBooks.
type ListFilter struct {
	CollectionID  *int64
	Status        *ReadingStatus
	FavoritesOnly bool
}
