// Package importer orchestrates the archive reader, content hasher, and
// catalog store into the single "bring this file into the library"
// operation.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yomiyougu/core/internal/archive"
	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/contenthash"
	"github.com/yomiyougu/core/internal/yomerr"
)

// knownArchiveExtensions strips case-insensitively from a filename to
// derive a default title.
var knownArchiveExtensions = []string{".cbz", ".zip", ".cbr", ".rar", ".cb7", ".7z"}

// Source is an opaque handle to archive bytes not yet materialized as a
// local file — the Go analogue of a mobile content URI.
type Source interface {
	// Materialize writes the source's bytes into dir and returns the
	// resulting file path and suggested filename.
	Materialize(dir string) (path string, filename string, err error)
}

// FilePathSource is a Source that is already a regular file on disk.
type FilePathSource struct {
	Path string
}

func (f FilePathSource) Materialize(dir string) (string, string, error) {
	return f.Path, filepath.Base(f.Path), nil
}

// ReaderSource is a Source backed by an io.Reader with a suggested name —
// it must always be materialized and always forces managed storage on,
// since the origin reader is not re-openable.
type ReaderSource struct {
	Reader           io.Reader
	SuggestedName    string
}

func (r ReaderSource) Materialize(dir string) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", yomerr.Wrap(yomerr.CodeIOError, err, "creating materialization directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "import-*-"+sanitizeName(r.SuggestedName))
	if err != nil {
		return "", "", yomerr.Wrap(yomerr.CodeIOError, err, "creating temp file for opaque import source")
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, r.Reader); err != nil {
		return "", "", yomerr.Wrap(yomerr.CodeIOError, err, "materializing opaque import source")
	}

	return tmp.Name(), r.SuggestedName, nil
}

func (ReaderSource) forceManagedStorage() bool { return true }

// forcesManagedStorage is implemented only by sources (like ReaderSource)
// whose origin is not re-openable.
type forcesManagedStorage interface {
	forceManagedStorage() bool
}

// Options controls one Import call.
type Options struct {
	CollectionID        *int64
	SaveToManagedStorage bool
	ManagedDir           string
	// OriginalFilename overrides the filename derived from the source,
	// used when the opaque source's suggested name is unreliable.
	OriginalFilename *string
}

// Importer ties together archive detection, content hashing, and the catalog.
type Importer struct {
	store *catalog.Store
}

func New(store *catalog.Store) *Importer {
	return &Importer{store: store}
}

// Import runs the full detect → count → hash → dedup/restore/insert →
// optional-copy algorithm and returns the resulting Book.
func (im *Importer) Import(ctx context.Context, source Source, opts Options) (*catalog.Book, error) {
	opts = forceManagedStorageIfOpaque(source, opts)

	srcPath, filename, err := source.Materialize(opts.ManagedDir)
	if err != nil {
		return nil, err
	}
	if opts.OriginalFilename != nil {
		filename = *opts.OriginalFilename
	}

	if _, err := archive.Detect(srcPath); err != nil {
		return nil, err
	}

	reader, err := archive.Open(srcPath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	count, err := reader.Count()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, yomerr.ErrEmptyArchive
	}

	hash, err := contenthash.HashArchive(reader)
	if err != nil {
		return nil, err
	}

	if live, err := im.store.GetBookByHashLive(ctx, nil, hash); err != nil {
		return nil, err
	} else if live != nil {
		return nil, yomerr.New(yomerr.CodeDuplicateEntry, fmt.Sprintf("duplicate of existing book %q", live.Title))
	}

	finalPath := srcPath
	var copiedTo string
	if opts.SaveToManagedStorage {
		finalPath, err = copyToManagedStorage(srcPath, filename, opts.ManagedDir)
		if err != nil {
			return nil, err
		}
		copiedTo = finalPath
	}

	rollback := func() {
		if copiedTo != "" {
			_ = os.Remove(copiedTo)
		}
	}

	tombstoned, err := im.store.GetBookByHashDeleted(ctx, nil, hash)
	if err != nil {
		rollback()
		return nil, err
	}
	if tombstoned != nil {
		if err := im.store.RestoreBookWithPath(ctx, nil, tombstoned.ID, finalPath, count); err != nil {
			rollback()
			return nil, err
		}

		book, err := im.store.GetBookByID(ctx, nil, tombstoned.ID)
		if err != nil {
			rollback()
			return nil, err
		}

		if opts.CollectionID != nil {
			if _, err := im.store.AddToCollection(ctx, nil, book.ID, *opts.CollectionID); err != nil {
				rollback()
				return nil, err
			}
		}

		return book, nil
	}

	title := deriveTitle(filename)
	var sizePtr *int64
	if info, statErr := os.Stat(finalPath); statErr == nil {
		size := info.Size()
		sizePtr = &size
	}

	book, err := im.store.CreateBook(ctx, nil, catalog.NewBook{
		FilePath:   finalPath,
		Filename:   filename,
		FileSize:   sizePtr,
		FileHash:   &hash,
		Title:      title,
		TotalPages: count,
	})
	if err != nil {
		rollback()
		return nil, err
	}

	if opts.CollectionID != nil {
		if _, err := im.store.AddToCollection(ctx, nil, book.ID, *opts.CollectionID); err != nil {
			rollback()
			return nil, err
		}
	}

	return book, nil
}

func forceManagedStorageIfOpaque(source Source, opts Options) Options {
	if f, ok := source.(forcesManagedStorage); ok && f.forceManagedStorage() {
		opts.SaveToManagedStorage = true
	}
	return opts
}

// deriveTitle strips a known archive extension, case-insensitively, and
// performs no other processing.
func deriveTitle(filename string) string {
	lower := strings.ToLower(filename)
	for _, ext := range knownArchiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}

// copyToManagedStorage copies srcPath into dir, avoiding name collisions
// with "{stem}_{n}.{ext}" naming.
func copyToManagedStorage(srcPath, filename, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", yomerr.Wrap(yomerr.CodeIOError, err, "creating managed storage directory %s", dir)
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	dest := filepath.Join(dir, filename)
	for n := 1; fileExists(dest); n++ {
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}

	if err := copyFile(srcPath, dest); err != nil {
		return "", err
	}

	return dest, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeIOError, err, "opening %s for copy", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeIOError, err, "creating %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return yomerr.Wrap(yomerr.CodeIOError, err, "copying %s to %s", src, dst)
	}

	return out.Sync()
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		return "import"
	}
	return name
}
