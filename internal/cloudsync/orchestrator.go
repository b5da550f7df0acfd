// Package cloudsync drives one end-to-end sync cycle: authenticate, pull
// the remote snapshot, merge it against the local catalog, push the
// result, then best-effort push any archive blobs the cloud side is
// missing. It never talks to a concrete cloud API directly — it depends
// only on cloudstore.Transport and the TokenSource/TokenVault interfaces
// this package declares for the embedding shell to satisfy.
package cloudsync

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/cloudstore"
	"github.com/yomiyougu/core/internal/merge"
	"github.com/yomiyougu/core/internal/settings"
	"github.com/yomiyougu/core/internal/snapshot"
	"github.com/yomiyougu/core/internal/yomerr"
)

// SyncResult reports what one SyncNow call moved, mirroring the counters
// spec §4.9 asks for plus non-fatal per-file upload errors.
type SyncResult struct {
	merge.Stats
	FileErrors []error
}

// Orchestrator runs sync_now's state machine: Idle → TokenCheck →
// PullSnapshot → Merge → PushSnapshot → PushFiles → Idle. A sync.Mutex
// enforces that only one cycle runs at a time, mirroring the teacher
// engine's single in-flight cycle guard.
type Orchestrator struct {
	store        *catalog.Store
	transport    cloudstore.Transport
	tokens       TokenSource
	vault        TokenVault
	settingsPath string
	deviceID     string
	logger       *slog.Logger
	progress     Progress

	mu sync.Mutex
}

// Config collects Orchestrator's dependencies.
type Config struct {
	Store        *catalog.Store
	Transport    cloudstore.Transport
	Tokens       TokenSource
	Vault        TokenVault
	SettingsPath string
	DeviceID     string
	Logger       *slog.Logger
	// Progress is optional; when set, SyncNow reports each stage
	// transition to it for a connected UI shell to display.
	Progress Progress
}

func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:        cfg.Store,
		transport:    cfg.Transport,
		tokens:       cfg.Tokens,
		vault:        cfg.Vault,
		settingsPath: cfg.SettingsPath,
		deviceID:     cfg.DeviceID,
		logger:       logger,
		progress:     cfg.Progress,
	}
}

// SyncNow runs one complete sync cycle. Concurrent calls are serialized;
// a caller that invokes SyncNow while one is already in flight simply
// waits its turn rather than racing the catalog transaction.
func (o *Orchestrator) SyncNow(ctx context.Context) (*SyncResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	o.logger.Info("sync cycle starting")
	o.report(ctx, "starting", "")

	authed, err := o.vault.IsAuthenticated(ctx)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeNotAuthenticated, err, "checking authentication state")
	}
	if !authed {
		return nil, yomerr.New(yomerr.CodeNotAuthenticated, "no cloud account is signed in")
	}

	doc, err := settings.Load(o.settingsPath)
	if err != nil {
		return nil, err
	}
	opts := settings.SyncOptions(doc)

	if opts.Disabled() {
		o.logger.Info("sync cycle skipped: every sync flag is off")
		o.report(ctx, "skipped", "every sync flag is off")
		return &SyncResult{}, nil
	}

	if err := o.ensureFreshToken(ctx); err != nil {
		return nil, err
	}

	o.logger.Info("pulling remote snapshot")
	o.report(ctx, "pulling", "")
	remote, cachedID, err := o.pullSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	o.logger.Info("merging snapshot against local catalog")
	o.report(ctx, "merging", "")
	var mergeResult *merge.Result
	localAppSettings := merge.AppSettings{Values: rawSettingsValues(doc), UpdatedAt: fromUnixMilli(doc.UpdatedAt)}

	txErr := o.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		result, err := merge.New(o.store).Merge(ctx, tx, remote, localAppSettings, opts, now)
		if err != nil {
			return err
		}
		mergeResult = result

		result.Snapshot.LastModifiedBy = &o.deviceID
		result.Snapshot.LastModifiedAt = now.UnixMilli()

		return o.store.WriteSyncState(ctx, tx, catalog.SyncState{
			LastSyncAt:     &now,
			LastSyncDevice: &o.deviceID,
			SyncFileID:     stringPtrOrNil(cachedID),
		})
	})
	if txErr != nil {
		return nil, yomerr.Wrap(yomerr.CodeSyncFailed, txErr, "merging sync snapshot")
	}

	if mergeResult.AppSettingsChanged {
		applySettingsValues(doc, mergeResult.AppSettings.Values)
		if err := settings.Touch(o.settingsPath, doc, mergeResult.AppSettings.UpdatedAt); err != nil {
			o.logger.Warn("failed to persist merged app settings", slog.String("error", err.Error()))
		}
	}

	o.logger.Info("pushing merged snapshot")
	o.report(ctx, "pushing", "")
	if err := o.pushSnapshot(ctx, mergeResult.Snapshot, cachedID); err != nil {
		return nil, err
	}

	result := &SyncResult{Stats: mergeResult.Stats}

	if opts.SyncBooksFiles {
		o.report(ctx, "pushing_files", "")
		result.FileErrors = o.pushMissingBookFiles(ctx)
	}

	o.logger.Info("sync cycle complete",
		slog.Duration("duration", time.Since(start)),
		slog.Int("books_uploaded", result.BooksUploaded),
		slog.Int("books_downloaded", result.BooksDownloaded),
		slog.Int("file_errors", len(result.FileErrors)),
	)
	o.report(ctx, "complete", "")

	return result, nil
}

func (o *Orchestrator) ensureFreshToken(ctx context.Context) error {
	_, expiresAt, err := o.tokens.AccessToken(ctx)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeNotAuthenticated, err, "reading stored access token")
	}
	if time.Now().Before(expiresAt) {
		return nil
	}

	if _, _, err := o.tokens.Refresh(ctx); err != nil {
		if clearErr := o.vault.Clear(ctx); clearErr != nil {
			o.logger.Warn("failed to clear token vault after refresh failure", slog.String("error", clearErr.Error()))
		}
		return yomerr.Wrap(yomerr.CodeNotAuthenticated, err, "refreshing expired access token")
	}

	return nil
}

func (o *Orchestrator) pullSnapshot(ctx context.Context) (*snapshot.Snapshot, string, error) {
	var cachedID string
	if err := o.store.WithTx(ctx, func(tx *sql.Tx) error {
		st, err := o.store.GetSyncState(ctx, tx)
		if err != nil {
			return err
		}
		if st.SyncFileID != nil {
			cachedID = *st.SyncFileID
		}
		return nil
	}); err != nil {
		return nil, "", err
	}

	id, found, err := o.transport.FindSnapshot(ctx, cachedID)
	if err != nil {
		return nil, "", yomerr.Wrap(yomerr.CodeSyncTransportFailed, err, "locating remote snapshot")
	}
	if !found {
		return snapshot.Empty(), "", nil
	}

	body, err := o.transport.DownloadSnapshot(ctx, id)
	if err != nil {
		return nil, "", yomerr.Wrap(yomerr.CodeSyncTransportFailed, err, "downloading remote snapshot")
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", yomerr.Wrap(yomerr.CodeSyncTransportFailed, err, "reading remote snapshot body")
	}

	snap, err := snapshot.Decode(data)
	if err != nil {
		return nil, "", err
	}

	return snap, id, nil
}

func (o *Orchestrator) pushSnapshot(ctx context.Context, snap *snapshot.Snapshot, existingID string) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}

	newID, err := o.transport.UploadSnapshot(ctx, data, existingID)
	if err != nil {
		return yomerr.Wrap(yomerr.CodeSyncTransportFailed, err, "uploading merged snapshot")
	}

	return o.store.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		return o.store.WriteSyncState(ctx, tx, catalog.SyncState{
			LastSyncAt:     &now,
			LastSyncDevice: &o.deviceID,
			SyncFileID:     &newID,
		})
	})
}

// pushMissingBookFiles enumerates local live books with a content hash
// and an on-disk path, diffs against what the cloud side already has,
// and uploads whatever is missing. A single file's failure is recorded
// as a warning and does not abort the remaining uploads (spec §4.9 step 8).
func (o *Orchestrator) pushMissingBookFiles(ctx context.Context) []error {
	var local []*catalog.Book
	err := o.store.WithTx(ctx, func(tx *sql.Tx) error {
		books, err := o.store.ListAllBooks(ctx, tx)
		if err != nil {
			return err
		}
		local = books
		return nil
	})
	if err != nil {
		return []error{err}
	}

	remoteHashes, err := o.transport.ListBookFiles(ctx)
	if err != nil {
		return []error{yomerr.Wrap(yomerr.CodeSyncTransportFailed, err, "listing remote book files")}
	}
	present := make(map[string]bool, len(remoteHashes))
	for _, h := range remoteHashes {
		present[h] = true
	}

	var errs []error
	for _, b := range local {
		if b.DeletedAt != nil || b.FileHash == nil || b.IsCloudOnly() {
			continue
		}
		if present[*b.FileHash] {
			continue
		}
		if _, statErr := os.Stat(b.FilePath); statErr != nil {
			errs = append(errs, yomerr.Wrap(yomerr.CodeIOError, statErr, "book file missing on disk for upload: %s", b.FilePath))
			continue
		}

		if _, err := o.transport.UploadBookFile(ctx, b.FilePath, *b.FileHash); err != nil {
			errs = append(errs, yomerr.Wrap(yomerr.CodeSyncTransportFailed, err, "uploading book file %s", *b.FileHash))
		}
	}

	return errs
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
