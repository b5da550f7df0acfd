// Package pageserver resolves (book id, page index) into image bytes,
// caching each book's sorted entry list so repeated page reads do not
// re-walk the archive's central directory every time.
package pageserver

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yomiyougu/core/internal/archive"
	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/yomerr"
)

// entryListCacheCapacity bounds the number of books whose sorted entry
// list is held in memory at once.
const entryListCacheCapacity = 10

// Page is the result of a successful page lookup.
type Page struct {
	Bytes []byte
	Mime  string
	// CacheControl is guidance for HTTP transports; page bytes never
	// change for a given (book, page) once imported.
	CacheControl string
}

// Server resolves pages for books known to the catalog.
type Server struct {
	store *catalog.Store
	cache *lru.Cache[int64, []string]
}

// New constructs a Server with an LRU of the spec-mandated capacity (~10).
func New(store *catalog.Store) (*Server, error) {
	cache, err := lru.New[int64, []string](entryListCacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("pageserver: creating entry list cache: %w", err)
	}
	return &Server{store: store, cache: cache}, nil
}

// GetPage returns the bytes and MIME type of page index pageIndex (0-based)
// within bookID's archive.
func (s *Server) GetPage(ctx context.Context, bookID int64, pageIndex int) (*Page, error) {
	book, err := s.store.GetBookByID(ctx, nil, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, yomerr.New(yomerr.CodePageOutOfRange, fmt.Sprintf("book %d not found", bookID))
	}

	if book.IsCloudOnly() {
		return nil, yomerr.New(yomerr.CodeIOError, fmt.Sprintf("book %d has not been downloaded from the cloud yet", bookID))
	}

	entries, err := s.entriesFor(bookID, book.FilePath)
	if err != nil {
		return nil, err
	}

	if pageIndex < 0 || pageIndex >= len(entries) {
		return nil, yomerr.New(yomerr.CodePageOutOfRange, fmt.Sprintf("page %d out of range (0..%d)", pageIndex, len(entries)-1))
	}

	reader, err := archive.Open(book.FilePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	name := entries[pageIndex]
	data, err := reader.ReadImage(name)
	if err != nil {
		return nil, err
	}

	return &Page{
		Bytes:        data,
		Mime:         archive.MimeType(name),
		CacheControl: "public, max-age=31536000, immutable",
	}, nil
}

// entriesFor returns the cached naturally-ordered entry list for a book,
// populating the cache on a miss.
func (s *Server) entriesFor(bookID int64, filePath string) ([]string, error) {
	if entries, ok := s.cache.Get(bookID); ok {
		return entries, nil
	}

	reader, err := archive.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	entries, err := reader.NaturallyOrderedImageEntries()
	if err != nil {
		return nil, err
	}

	s.cache.Add(bookID, entries)

	return entries, nil
}

// Invalidate evicts a single book's cached entry list. Callers must call
// this whenever a book's file_path changes or the book is deleted.
func (s *Server) Invalidate(bookID int64) {
	s.cache.Remove(bookID)
}

// Clear evicts every cached entry list.
func (s *Server) Clear() {
	s.cache.Purge()
}
