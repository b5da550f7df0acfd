// Package deviceid owns the lazily-created device_id.json file: a random,
// stable identifier stamped into a snapshot's last_modified_by field so a
// device can recognize its own prior writes.
package deviceid

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yomiyougu/core/internal/yomerr"
)

// FilePerms matches settings.json and the OAuth token file's posture.
const FilePerms = 0o600

// DirPerms is used when creating the parent directory.
const DirPerms = 0o700

type file struct {
	DeviceID string `json:"device_id"`
}

// Load returns the device id stored at path, generating and persisting a
// new one on first call.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return generate(path)
	}
	if err != nil {
		return "", yomerr.Wrap(yomerr.CodeConfigReadFailed, err, "reading device id file %s", path)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return "", yomerr.Wrap(yomerr.CodeConfigParseFailed, err, "decoding device id file %s", path)
	}
	if f.DeviceID == "" {
		return generate(path)
	}

	return f.DeviceID, nil
}

func generate(path string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", yomerr.Wrap(yomerr.CodeIOError, err, "generating device id")
	}
	id := hex.EncodeToString(buf)

	if err := save(path, id); err != nil {
		return "", err
	}

	return id, nil
}

func save(path, id string) error {
	data, err := json.Marshal(file{DeviceID: id})
	if err != nil {
		return yomerr.Wrap(yomerr.CodeSerializationFailed, err, "encoding device id")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerms); err != nil {
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "creating device id directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".device_id-*.tmp")
	if err != nil {
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "creating temp device id file")
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
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "setting permissions on temp device id file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "writing temp device id file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "syncing temp device id file")
	}
	if err := tmp.Close(); err != nil {
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "closing temp device id file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return yomerr.Wrap(yomerr.CodeConfigWriteFailed, err, "renaming temp device id file to %s", path)
	}

	success = true

	return nil
}
