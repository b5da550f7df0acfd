package settings

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/yomiyougu/core/internal/yomerr"
)

// FilePerms restricts settings.json to owner-only read/write, the same
// posture tokenfile.go takes for credential-adjacent state.
const FilePerms = 0o600

// DirPerms is used when creating the settings directory.
const DirPerms = 0o700

// Load reads settings.json from path, returning a fresh Default()
// document if the file does not yet exist.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeConfigReadFailed, err, "reading settings file %s", path)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, yomerr.Wrap(yomerr.CodeConfigParseFailed, err, "decoding settings file %s", path)
	}

	return &doc, nil
}

// Save writes the document to path atomically (temp file in the same
// directory, fsync, then rename), mirroring tokenfile.Save.
func Save(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return yomerr.Wrap(yomerr.CodeSerializationFailed, err, "encoding settings document")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "creating settings directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "creating temp settings file")
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "setting permissions on temp settings file")
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "writing temp settings file")
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "syncing temp settings file")
	}

	if err := tmp.Close(); err != nil {
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "closing temp settings file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "renaming temp settings file to %s", path)
	}

	success = true

	return nil
}

// Touch bumps UpdatedAt to now and saves. Callers mutate the document via
// Set, then call Touch to persist with a consistent timestamp.
func Touch(path string, doc *Document, now time.Time) error {
	doc.UpdatedAt = now.UnixMilli()
	return Save(path, doc)
}
