package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yomiyougu/core/internal/importer"
)

func newImportCmd() *cobra.Command {
	var flagCollectionID int64
	var flagCopy bool

	cmd := &cobra.Command{
		Use:   "import <archive-path>",
		Short: "Import a CBZ/CBR/ZIP/RAR archive into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := mustApp(cmd.Context())

			opts := importer.Options{
				SaveToManagedStorage: flagCopy,
				ManagedDir:           app.Cfg.Library.ManagedDir,
			}
			if cmd.Flags().Changed("collection") {
				opts.CollectionID = &flagCollectionID
			}

			book, err := app.Importer.Import(cmd.Context(), importer.FilePathSource{Path: args[0]}, opts)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Printf("imported %q as book #%d (%d pages)\n", book.Title, book.ID, book.TotalPages)

			return nil
		},
	}

	cmd.Flags().Int64Var(&flagCollectionID, "collection", 0, "add the imported book to this collection id")
	cmd.Flags().BoolVar(&flagCopy, "copy", false, "copy the archive into managed storage instead of importing in place")

	return cmd
}
