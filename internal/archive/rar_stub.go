//go:build !desktop

package archive

import "github.com/yomiyougu/core/internal/yomerr"

// rarBackend is unavailable on non-desktop builds (mobile targets), matching
// the original app's platform restriction on its RAR reader.
type rarBackend struct{}

func openRar(fsPath string) (*rarBackend, error) {
	return nil, yomerr.New(yomerr.CodeFormatUnsupported, "rar/cbr archives are not supported on this platform")
}

func (r *rarBackend) sortedImageEntries() ([]string, error) { return nil, nil }
func (r *rarBackend) readImage(name string) ([]byte, error) { return nil, nil }
func (r *rarBackend) close() error                          { return nil }
