// Package contenthash computes a content-identity hash for an archive that
// is independent of its container format or its entries' physical order.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/yomiyougu/core/internal/archive"
)

// HashArchive returns the hex-encoded SHA-256 digest of an archive's image
// content: every image entry, in lexicographic name order, streamed into
// one hash in sequence. Two archives holding the same pages produce the
// same hash regardless of container format (zip vs rar) or the physical
// entry order the container stores them in.
func HashArchive(r *archive.Reader) (string, error) {
	entries, err := r.SortedImageEntries()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, name := range entries {
		data, err := r.ReadImage(name)
		if err != nil {
			return "", err
		}
		if _, err := h.Write(data); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashArchiveAt opens fsPath, hashes it, and closes it.
func HashArchiveAt(fsPath string) (string, error) {
	r, err := archive.Open(fsPath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	return HashArchive(r)
}
