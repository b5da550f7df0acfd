package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yomiyougu/core/internal/catalog"
)

func newListCmd() *cobra.Command {
	var flagCollectionID int64
	var flagFavoritesOnly bool
	var flagStatus string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := mustApp(cmd.Context())

			filter := catalog.ListFilter{FavoritesOnly: flagFavoritesOnly}
			if cmd.Flags().Changed("collection") {
				filter.CollectionID = &flagCollectionID
			}
			if flagStatus != "" {
				status := catalog.ReadingStatus(flagStatus)
				filter.Status = &status
			}

			books, err := app.Store.ListBooks(cmd.Context(), nil, filter)
			if err != nil {
				return fmt.Errorf("listing books: %w", err)
			}

			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(books)
			}

			printBooksTable(books)

			return nil
		},
	}

	cmd.Flags().Int64Var(&flagCollectionID, "collection", 0, "filter to books in this collection")
	cmd.Flags().BoolVar(&flagFavoritesOnly, "favorites", false, "only show favorited books")
	cmd.Flags().StringVar(&flagStatus, "status", "", "filter by reading status (unread, reading, completed)")

	return cmd
}

func printBooksTable(books []*catalog.Book) {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tTITLE\tPAGE\tTOTAL\tSTATUS\tFAVORITE")
	for _, b := range books {
		fav := ""
		if b.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n", b.ID, b.Title, b.CurrentPage, b.TotalPages, b.ReadingStatus, fav)
	}
}
