package cloudstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/yomiyougu/core/internal/yomerr"
)

// snapshotFilename is the well-known name the sync snapshot is stored
// under in the cloud area's root folder.
const snapshotFilename = "sync_snapshot.json"

// bookFileName returns the cloud blob name for an archive with content
// hash hash: the extension is always .cbz, independent of the source
// container format.
func bookFileName(hash string) string {
	return "book_" + hash + ".cbz"
}

// Transport is the eight operations a sync cycle needs from the cloud
// area. Implementations never interpret snapshot contents; they move
// opaque bytes and list/locate objects by name.
type Transport interface {
	// FindSnapshot resolves the snapshot object's remote id. cachedID, if
	// non-empty, is tried first and trusted if it still resolves; this
	// avoids a listing round trip on the common path.
	FindSnapshot(ctx context.Context, cachedID string) (id string, found bool, err error)

	// DownloadSnapshot fetches the snapshot at id and returns its raw body;
	// decoding is left to the caller.
	DownloadSnapshot(ctx context.Context, id string) (io.ReadCloser, error)

	// UploadSnapshot writes data as the snapshot object, updating
	// existingID in place when non-empty or creating it otherwise, and
	// returns the resulting remote id.
	UploadSnapshot(ctx context.Context, data []byte, existingID string) (id string, err error)

	// FindBookFile resolves the remote id of the book blob named by hash,
	// if one exists.
	FindBookFile(ctx context.Context, hash string) (id string, found bool, err error)

	// UploadBookFile uploads the file at localPath as a blob named hash
	// and returns its remote id.
	UploadBookFile(ctx context.Context, localPath, hash string) (id string, err error)

	// DownloadBookFile fetches the blob named hash to targetPath.
	DownloadBookFile(ctx context.Context, hash, targetPath string) error

	// ListBookFiles enumerates every hash currently stored remotely.
	ListBookFiles(ctx context.Context) (hashes []string, err error)

	// DeleteBookFile removes the blob named hash, reporting whether it
	// existed.
	DeleteBookFile(ctx context.Context, hash string) (existed bool, err error)
}

// apiItem is the minimal shape of a remote object listing entry, matched
// against a generic "list items in folder" / "get item by id" REST
// surface: an id, a name, and a download URL when the item is a file.
type apiItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	IsFolder    bool   `json:"isFolder,omitempty"`
}

type apiItemList struct {
	Items []apiItem `json:"items"`
}

// CloudTransport is the concrete Transport backed by Client.
type CloudTransport struct {
	client *Client
}

func NewCloudTransport(client *Client) *CloudTransport {
	return &CloudTransport{client: client}
}

func (t *CloudTransport) FindSnapshot(ctx context.Context, cachedID string) (string, bool, error) {
	if cachedID != "" {
		if _, err := t.statItem(ctx, cachedID); err == nil {
			return cachedID, true, nil
		}
	}

	items, err := t.listRoot(ctx)
	if err != nil {
		return "", false, err
	}

	for _, item := range items {
		if !item.IsFolder && item.Name == snapshotFilename {
			return item.ID, true, nil
		}
	}

	return "", false, nil
}

func (t *CloudTransport) DownloadSnapshot(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := t.client.Do(ctx, http.MethodGet, "/items/"+url.PathEscape(id)+"/content", nil, "")
	if err != nil {
		return nil, fmt.Errorf("cloudstore: downloading snapshot %s: %w", id, err)
	}
	return resp.Body, nil
}

func (t *CloudTransport) UploadSnapshot(ctx context.Context, data []byte, existingID string) (string, error) {
	path := "/root/content?name=" + url.QueryEscape(snapshotFilename)
	if existingID != "" {
		path = "/items/" + url.PathEscape(existingID) + "/content"
	}

	resp, err := t.client.Do(ctx, http.MethodPut, path, newByteReader(data), "application/json")
	if err != nil {
		return "", fmt.Errorf("cloudstore: uploading snapshot: %w", err)
	}
	defer resp.Body.Close()

	var item apiItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", fmt.Errorf("cloudstore: decoding snapshot upload response: %w", err)
	}

	return item.ID, nil
}

func (t *CloudTransport) FindBookFile(ctx context.Context, hash string) (string, bool, error) {
	items, err := t.listRoot(ctx)
	if err != nil {
		return "", false, err
	}

	name := bookFileName(hash)
	for _, item := range items {
		if !item.IsFolder && item.Name == name {
			return item.ID, true, nil
		}
	}

	return "", false, nil
}

// UploadBookFile is a no-op returning the existing id if the blob is
// already present remotely under this hash.
func (t *CloudTransport) UploadBookFile(ctx context.Context, localPath, hash string) (string, error) {
	if id, found, err := t.FindBookFile(ctx, hash); err != nil {
		return "", err
	} else if found {
		return id, nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("cloudstore: opening %s for upload: %w", localPath, err)
	}
	defer f.Close()

	path := "/root/content?name=" + url.QueryEscape(bookFileName(hash))
	resp, err := t.client.Do(ctx, http.MethodPut, path, f, "application/octet-stream")
	if err != nil {
		return "", fmt.Errorf("cloudstore: uploading book file %s: %w", hash, err)
	}
	defer resp.Body.Close()

	var item apiItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", fmt.Errorf("cloudstore: decoding book file upload response: %w", err)
	}

	return item.ID, nil
}

func (t *CloudTransport) DownloadBookFile(ctx context.Context, hash, targetPath string) error {
	id, found, err := t.FindBookFile(ctx, hash)
	if err != nil {
		return err
	}
	if !found {
		return yomerr.New(yomerr.CodeSyncTransportFailed, fmt.Sprintf("book file %s not found remotely", hash))
	}

	resp, err := t.client.Do(ctx, http.MethodGet, "/items/"+url.PathEscape(id)+"/content", nil, "")
	if err != nil {
		return fmt.Errorf("cloudstore: downloading book file %s: %w", hash, err)
	}
	defer resp.Body.Close()

	out, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("cloudstore: creating %s: %w", targetPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(targetPath)
		return fmt.Errorf("cloudstore: writing %s: %w", targetPath, err)
	}

	return out.Close()
}

func (t *CloudTransport) ListBookFiles(ctx context.Context) ([]string, error) {
	items, err := t.listRoot(ctx)
	if err != nil {
		if isTransportNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	hashes := make([]string, 0, len(items))
	for _, item := range items {
		if hash, ok := parseBookFileName(item.Name); !item.IsFolder && ok {
			hashes = append(hashes, hash)
		}
	}

	return hashes, nil
}

// parseBookFileName extracts the content hash from a cloud blob name of
// the form book_{hex}.cbz.
func parseBookFileName(name string) (string, bool) {
	const prefix, suffix = "book_", ".cbz"
	if len(name) <= len(prefix)+len(suffix) || name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
		return "", false
	}
	return name[len(prefix) : len(name)-len(suffix)], true
}

func (t *CloudTransport) DeleteBookFile(ctx context.Context, hash string) (bool, error) {
	id, found, err := t.FindBookFile(ctx, hash)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	resp, err := t.client.Do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, "")
	if err != nil {
		if isTransportNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("cloudstore: deleting book file %s: %w", hash, err)
	}
	resp.Body.Close()

	return true, nil
}

func (t *CloudTransport) statItem(ctx context.Context, id string) (*apiItem, error) {
	resp, err := t.client.Do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var item apiItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("cloudstore: decoding item %s: %w", id, err)
	}

	return &item, nil
}

func (t *CloudTransport) listRoot(ctx context.Context) ([]apiItem, error) {
	return t.listPath(ctx, "/root/children")
}

func (t *CloudTransport) listPath(ctx context.Context, path string) ([]apiItem, error) {
	resp, err := t.client.Do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, fmt.Errorf("cloudstore: listing %s: %w", path, err)
	}
	defer resp.Body.Close()

	var list apiItemList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("cloudstore: decoding listing %s: %w", path, err)
	}

	return list.Items, nil
}

func isTransportNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}
