package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yomiyougu/core/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and write the app settings document",
	}

	cmd.AddCommand(newSettingsGetCmd())
	cmd.AddCommand(newSettingsSetCmd())

	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the current value for a settings key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := mustApp(cmd.Context())

			doc, err := settings.Load(app.SettingsPath)
			if err != nil {
				return err
			}

			item, ok := doc.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown settings key %q", args[0])
			}

			fmt.Println(string(item.Widget.Value))

			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <json-value>",
		Short: "Set a settings key to a raw JSON value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := mustApp(cmd.Context())

			doc, err := settings.Load(app.SettingsPath)
			if err != nil {
				return err
			}

			var probe json.RawMessage
			if err := json.Unmarshal([]byte(args[1]), &probe); err != nil {
				return fmt.Errorf("value %q is not valid JSON: %w", args[1], err)
			}

			if !doc.Set(args[0], probe) {
				return fmt.Errorf("unknown settings key %q", args[0])
			}

			return settings.Touch(app.SettingsPath, doc, time.Now())
		},
	}
}
