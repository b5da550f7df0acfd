package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yomiyougu/core/internal/catalog"
	"github.com/yomiyougu/core/internal/config"
	"github.com/yomiyougu/core/internal/importer"
	"github.com/yomiyougu/core/internal/pageserver"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagLibraryDir string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// skipConfigAnnotation marks commands that do not need the catalog opened
// (e.g. a future "config show" command).
const skipConfigAnnotation = "skipConfig"

// App bundles every component constructed once at startup and threaded
// explicitly into every command — the realization of the "global
// singletons" design note as a value passed through context.Context,
// rather than as package-level state. internal/catalog cannot own this
// type itself: a Facade there would need to import importer, pageserver,
// and cloudsync, which already import catalog.
type App struct {
	Cfg              *config.Config
	Store            *catalog.Store
	Importer         *importer.Importer
	PageServer       *pageserver.Server
	EventBroadcaster *pageserver.EventBroadcaster
	DeviceIDPath     string
	SettingsPath     string
	Logger           *slog.Logger
}

type appContextKey struct{}

func appFrom(ctx context.Context) *App {
	app, _ := ctx.Value(appContextKey{}).(*App)
	return app
}

func mustApp(ctx context.Context) *App {
	app := appFrom(ctx)
	if app == nil {
		panic("BUG: App not found in context — ensure the command does not skip startup")
	}
	return app
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "yomiyougu",
		Short:   "Offline-first manga/comic library and sync CLI",
		Long:    "Import, browse, and sync a local manga/comic library backed by the yomiyougu catalog and merge engine.",
		Version: version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}
			return startApp(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if app := appFrom(cmd.Context()); app != nil && app.Store != nil {
				return app.Store.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagLibraryDir, "library-dir", "", "library data directory (database, managed storage, settings)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newCollectionCmd())
	cmd.AddCommand(newBookmarkCmd())
	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// startApp resolves configuration, opens the catalog, and constructs every
// component the command tree depends on, storing the result on the
// command's context for RunE handlers to retrieve via mustApp.
func startApp(cmd *cobra.Command) error {
	logger := buildLogger(nil)

	cli := config.CLIOverrides{ConfigPath: flagConfigPath}
	if cmd.Flags().Changed("library-dir") {
		cli.LibraryDir = flagLibraryDir
	}

	env := config.ReadEnvOverrides()

	cfg, err := config.Resolve(env, cli, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := config.EnsureDataDirs(cfg); err != nil {
		return err
	}

	finalLogger := buildLogger(cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := catalog.Open(ctx, config.DatabasePath(cfg.Library.RootDir), finalLogger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}

	app := &App{
		Cfg:              cfg,
		Store:            store,
		Importer:         importer.New(store),
		EventBroadcaster: pageserver.NewEventBroadcaster(finalLogger),
		DeviceIDPath:     config.DeviceIDPath(cfg.Library.RootDir),
		SettingsPath:     config.SettingsPath(cfg.Library.RootDir),
		Logger:           finalLogger,
	}

	pageServer, err := pageserver.New(store)
	if err != nil {
		store.Close()
		return fmt.Errorf("starting page server: %w", err)
	}
	app.PageServer = pageServer

	cmd.SetContext(context.WithValue(ctx, appContextKey{}, app))

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Pass nil for pre-config bootstrap. Config-file log level
// provides the baseline; --verbose, --debug, and --quiet override it
// because CLI flags always win. The flags are mutually exclusive (enforced
// by Cobra).
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}
	if flagDebug {
		level = slog.LevelDebug
	}
	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
