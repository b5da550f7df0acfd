// Package archive reads comic/manga archive containers (ZIP/CBZ, RAR/CBR),
// listing and extracting the image entries they hold while hiding the
// container format behind one small backend interface.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/yomiyougu/core/internal/yomerr"
)

// Format identifies a detected container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatRar
)

// magic byte prefixes used for content-based detection. Extension is only a
// fallback — a renamed .cbz that is really a RAR file must still open.
var (
	zipMagic = []byte("PK")
	rarMagic = []byte("Rar!")
)

// imageExtensions is the closed set of entry suffixes treated as pages.
// Comparison is case-insensitive.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsImageEntry reports whether name names an image page, not metadata,
// a directory, a dotfile, or a macOS resource-fork artifact.
func IsImageEntry(name string) bool {
	if name == "" || strings.HasSuffix(name, "/") {
		return false
	}

	base := path.Base(name)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(base, ".") || strings.Contains(name, "/.") {
		return false
	}

	if strings.HasPrefix(name, "__MACOSX/") || strings.Contains(name, "/__MACOSX/") {
		return false
	}

	return imageExtensions[strings.ToLower(path.Ext(base))]
}

// Detect sniffs the container format from its leading bytes, falling back
// to the file extension only when the magic bytes are inconclusive.
func Detect(fsPath string) (Format, error) {
	f, err := os.Open(fsPath)
	if err != nil {
		return FormatUnknown, yomerr.Wrap(yomerr.CodeIOError, err, "opening %s", fsPath)
	}
	defer f.Close()

	head := make([]byte, 8)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return FormatZip, nil
	case bytes.HasPrefix(head, rarMagic):
		return FormatRar, nil
	}

	switch strings.ToLower(path.Ext(fsPath)) {
	case ".zip", ".cbz":
		return FormatZip, nil
	case ".rar", ".cbr":
		return FormatRar, nil
	}

	return FormatUnknown, yomerr.New(yomerr.CodeFormatUnsupported, fmt.Sprintf("unrecognized archive format for %s", fsPath))
}

// backend is the minimal contract each container format implements.
// Exactly two backends exist; new formats are added here, not through a
// plugin mechanism, since the supported set is closed by spec.
type backend interface {
	// sortedImageEntries returns every image entry name in lexicographic
	// order — the order content hashing depends on.
	sortedImageEntries() ([]string, error)
	// readImage returns the raw bytes of the named entry.
	readImage(name string) ([]byte, error)
	close() error
}

// Reader opens an archive once and serves repeated listing/read calls
// against it until Close.
type Reader struct {
	format  Format
	backend backend
}

// Open detects the format of fsPath and opens a Reader against it.
func Open(fsPath string) (*Reader, error) {
	format, err := Detect(fsPath)
	if err != nil {
		return nil, err
	}

	var b backend
	switch format {
	case FormatZip:
		b, err = openZip(fsPath)
	case FormatRar:
		b, err = openRar(fsPath)
	default:
		return nil, yomerr.New(yomerr.CodeFormatUnsupported, fmt.Sprintf("unsupported format for %s", fsPath))
	}
	if err != nil {
		return nil, err
	}

	return &Reader{format: format, backend: b}, nil
}

// Format reports the container format this Reader opened.
func (r *Reader) Format() Format { return r.format }

// SortedImageEntries returns image entries in lexicographic order, the
// order content hashing walks. Returns yomerr.ErrEmptyArchive when the
// archive holds no recognized image entries.
func (r *Reader) SortedImageEntries() ([]string, error) {
	entries, err := r.backend.sortedImageEntries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, yomerr.ErrEmptyArchive
	}
	return entries, nil
}

// NaturallyOrderedImageEntries returns the same entries as
// SortedImageEntries but ordered for display: numeric runs compare by
// value, not lexicographically, so "page2.jpg" sorts before "page10.jpg".
func (r *Reader) NaturallyOrderedImageEntries() ([]string, error) {
	entries, err := r.SortedImageEntries()
	if err != nil {
		return nil, err
	}

	ordered := make([]string, len(entries))
	copy(ordered, entries)
	NaturalSort(ordered)

	return ordered, nil
}

// ReadImage returns the decoded bytes of one entry by name.
func (r *Reader) ReadImage(name string) ([]byte, error) {
	return r.backend.readImage(name)
}

// Count returns the number of image entries in the archive.
func (r *Reader) Count() (int, error) {
	entries, err := r.backend.sortedImageEntries()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Close releases any resources (open file handles) held by the backend.
func (r *Reader) Close() error {
	return r.backend.close()
}

// MimeType returns the MIME type to serve for an image entry name, based
// on its extension.
func MimeType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
