//go:build desktop

package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/nwaples/rardecode/v2"
	"github.com/yomiyougu/core/internal/yomerr"
)

// rarBackend reads image entries from a RAR/CBR container. RAR decoding is
// sequential-only (rardecode/v2 has no random-access API), so unlike the
// zip backend every image entry is buffered into memory at open time.
// Mobile builds exclude this backend entirely (see rar_stub.go) — CBR
// support there mirrors the desktop-only restriction the original app
// applies to its own RAR reader.
type rarBackend struct {
	names  []string
	images map[string][]byte
}

func openRar(fsPath string) (*rarBackend, error) {
	f, err := os.Open(fsPath)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeIOError, err, "opening rar %s", fsPath)
	}
	defer f.Close()

	rr, err := rardecode.NewReader(f)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeIOError, err, "reading rar header %s", fsPath)
	}

	images := make(map[string][]byte)
	var names []string

	for {
		header, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, yomerr.Wrap(yomerr.CodeIOError, err, "walking rar entries in %s", fsPath)
		}

		if header.IsDir || !IsImageEntry(header.Name) {
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, rr); err != nil {
			return nil, yomerr.Wrap(yomerr.CodeIOError, err, "extracting rar entry %s", header.Name)
		}

		images[header.Name] = buf.Bytes()
		names = append(names, header.Name)
	}

	sort.Strings(names)

	return &rarBackend{names: names, images: images}, nil
}

func (r *rarBackend) sortedImageEntries() ([]string, error) {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out, nil
}

func (r *rarBackend) readImage(name string) ([]byte, error) {
	data, ok := r.images[name]
	if !ok {
		return nil, yomerr.New(yomerr.CodePageOutOfRange, fmt.Sprintf("entry %s not found in archive", name))
	}
	return data, nil
}

func (r *rarBackend) close() error {
	return nil
}
