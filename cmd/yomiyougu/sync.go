package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yomiyougu/core/internal/cloudstore"
	"github.com/yomiyougu/core/internal/cloudsync"
	"github.com/yomiyougu/core/internal/cloudsync/deviceid"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one cloud sync cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := mustApp(cmd.Context())

			if !app.Cfg.Cloud.Enabled {
				fmt.Println("cloud sync is disabled (set cloud.enabled = true in config.toml)")
				return nil
			}

			id, err := deviceid.Load(app.DeviceIDPath)
			if err != nil {
				return err
			}

			auth := newEnvTokenAuth()
			client := cloudstore.NewClient(app.Cfg.Cloud.BaseURL, &http.Client{}, cloudsync.NewCloudstoreTokenSource(auth), app.Logger)

			orch := cloudsync.New(cloudsync.Config{
				Store:        app.Store,
				Transport:    cloudstore.NewCloudTransport(client),
				Tokens:       auth,
				Vault:        auth,
				SettingsPath: app.SettingsPath,
				DeviceID:     id,
				Logger:       app.Logger,
				Progress:     app.EventBroadcaster,
			})

			result, err := orch.SyncNow(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Printf("sync complete: %d books uploaded, %d downloaded, %d skipped references\n",
				result.BooksUploaded, result.BooksDownloaded, result.SkippedReferences)

			for _, fe := range result.FileErrors {
				fmt.Printf("warning: %v\n", fe)
			}

			return nil
		},
	}
}
