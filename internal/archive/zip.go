package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"

	"github.com/yomiyougu/core/internal/yomerr"
)

// zipBackend reads image entries from a ZIP/CBZ container via the stdlib
// archive/zip reader, which supports random access to entries.
type zipBackend struct {
	path string
	rc   *zip.ReadCloser
}

func openZip(fsPath string) (*zipBackend, error) {
	rc, err := zip.OpenReader(fsPath)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeIOError, err, "opening zip %s", fsPath)
	}
	return &zipBackend{path: fsPath, rc: rc}, nil
}

func (z *zipBackend) sortedImageEntries() ([]string, error) {
	names := make([]string, 0, len(z.rc.File))
	for _, f := range z.rc.File {
		if IsImageEntry(f.Name) {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (z *zipBackend) readImage(name string) ([]byte, error) {
	for _, f := range z.rc.File {
		if f.Name != name {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, yomerr.Wrap(yomerr.CodeIOError, err, "opening zip entry %s", name)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, yomerr.Wrap(yomerr.CodeIOError, err, "reading zip entry %s", name)
		}

		return data, nil
	}

	return nil, yomerr.New(yomerr.CodePageOutOfRange, fmt.Sprintf("entry %s not found in archive", name))
}

func (z *zipBackend) close() error {
	return z.rc.Close()
}
