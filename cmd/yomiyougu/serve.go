package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yomiyougu/core/internal/pageserver"
)

func newServeCmd() *cobra.Command {
	var flagAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve page images over HTTP for a local UI shell to embed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := mustApp(cmd.Context())

			mux := http.NewServeMux()
			mux.Handle("/book/", pageserver.NewHandler(app.PageServer))
			mux.Handle("/events", app.EventBroadcaster)

			app.Logger.Info("page server listening", "addr", flagAddr)

			server := &http.Server{
				Addr:    flagAddr,
				Handler: mux,
			}

			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("page server: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "127.0.0.1:4173", "address to listen on")

	return cmd
}
