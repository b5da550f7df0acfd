package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCollectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "Manage book collections",
	}

	cmd.AddCommand(newCollectionCreateCmd())
	cmd.AddCommand(newCollectionListCmd())
	cmd.AddCommand(newCollectionAddCmd())
	cmd.AddCommand(newCollectionRemoveCmd())

	return cmd
}

func newCollectionCreateCmd() *cobra.Command {
	var flagDescription string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := mustApp(cmd.Context())

			var desc *string
			if flagDescription != "" {
				desc = &flagDescription
			}

			c, err := app.Store.CreateCollection(cmd.Context(), nil, args[0], desc, nil)
			if err != nil {
				return fmt.Errorf("creating collection: %w", err)
			}

			fmt.Printf("created collection #%d %q\n", c.ID, c.Name)

			return nil
		},
	}

	cmd.Flags().StringVar(&flagDescription, "description", "", "collection description")

	return cmd
}

func newCollectionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := mustApp(cmd.Context())

			collections, err := app.Store.ListCollections(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("listing collections: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintln(w, "ID\tNAME\tBOOKS")
			for _, c := range collections {
				count, err := app.Store.CollectionBookCount(cmd.Context(), nil, c.ID)
				if err != nil {
					return fmt.Errorf("counting books in collection %d: %w", c.ID, err)
				}
				fmt.Fprintf(w, "%d\t%s\t%d\n", c.ID, c.Name, count)
			}

			return nil
		},
	}
}

func newCollectionAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <book-id> <collection-id>",
		Short: "Add a book to a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := mustApp(cmd.Context())

			bookID, collectionID, err := parseTwoIDs(args)
			if err != nil {
				return err
			}

			if _, err := app.Store.AddToCollection(cmd.Context(), nil, bookID, collectionID); err != nil {
				return fmt.Errorf("adding book to collection: %w", err)
			}

			return nil
		},
	}
}

func newCollectionRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id> <collection-id>",
		Short: "Remove a book from a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := mustApp(cmd.Context())

			bookID, collectionID, err := parseTwoIDs(args)
			if err != nil {
				return err
			}

			if err := app.Store.RemoveFromCollection(cmd.Context(), nil, bookID, collectionID); err != nil {
				return fmt.Errorf("removing book from collection: %w", err)
			}

			return nil
		},
	}
}
