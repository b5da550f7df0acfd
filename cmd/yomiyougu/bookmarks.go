package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBookmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage per-book bookmarks",
	}

	cmd.AddCommand(newBookmarkAddCmd())
	cmd.AddCommand(newBookmarkListCmd())
	cmd.AddCommand(newBookmarkRemoveCmd())

	return cmd
}

func newBookmarkAddCmd() *cobra.Command {
	var flagDescription string

	cmd := &cobra.Command{
		Use:   "add <book-id> <page> <name>",
		Short: "Add a bookmark at a page",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := mustApp(cmd.Context())

			bookID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q: %w", args[0], err)
			}

			page, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid page %q: %w", args[1], err)
			}

			var desc *string
			if flagDescription != "" {
				desc = &flagDescription
			}

			bm, err := app.Store.CreateBookmark(cmd.Context(), nil, bookID, args[2], desc, page)
			if err != nil {
				return fmt.Errorf("creating bookmark: %w", err)
			}

			fmt.Printf("created bookmark #%d %q at page %d\n", bm.ID, bm.Name, bm.Page)

			return nil
		},
	}

	cmd.Flags().StringVar(&flagDescription, "description", "", "bookmark description")

	return cmd
}

func newBookmarkListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <book-id>",
		Short: "List bookmarks for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := mustApp(cmd.Context())

			bookID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q: %w", args[0], err)
			}

			bookmarks, err := app.Store.ListBookmarksByBook(cmd.Context(), nil, bookID)
			if err != nil {
				return fmt.Errorf("listing bookmarks: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintln(w, "ID\tPAGE\tNAME")
			for _, bm := range bookmarks {
				fmt.Fprintf(w, "%d\t%d\t%s\n", bm.ID, bm.Page, bm.Name)
			}

			return nil
		},
	}
}

func newBookmarkRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <bookmark-id>",
		Short: "Delete a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := mustApp(cmd.Context())

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bookmark id %q: %w", args[0], err)
			}

			return app.Store.SoftDeleteBookmark(cmd.Context(), nil, id)
		},
	}
}

func parseTwoIDs(args []string) (int64, int64, error) {
	a, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid id %q: %w", args[0], err)
	}

	b, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid id %q: %w", args[1], err)
	}

	return a, b, nil
}
