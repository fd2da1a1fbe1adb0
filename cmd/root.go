package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/adapters/preview"
	"github.com/kamal-hamza/hx-cli/internal/adapters/repository"
	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/config"
	"github.com/kamal-hamza/hx-cli/pkg/logging"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
	"github.com/kamal-hamza/hx-cli/pkg/vault"
)

// annotationNoCatalog marks commands that run without opening the database
const annotationNoCatalog = "hx/no-catalog"

var (
	// Global flags
	rootFlagConfig  string
	rootFlagStorage string
	rootFlagVerbose bool
	rootFlagQuiet   bool

	// Global state
	appConfig     *config.Config
	appConfigPath string
	appVault      *vault.Vault
	appCtx        = context.Background()

	// Catalog
	catalogStore *repository.Store
	previewGen   *preview.Generator

	// Services
	importService      *services.ImportService
	removeService      *services.RemoveService
	listService        *services.ListService
	renameService      *services.RenameService
	tagService         *services.TagService
	maintenanceService *services.MaintenanceService
	migrateService     *services.MigrateService
	statsService       *services.StatsService
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hx",
	Short: "HX - A catalog for HDRI environment maps",
	Long: ui.StyleTitle.Render("HX") + " - HDRI Asset Catalog\n\n" +
		"Import HDR environment maps into a managed store, tag them,\n" +
		"and find them again by name, tag or date.",
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	appCtx = ctx

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlagConfig, "config", "", "Path to config.yaml")
	rootCmd.PersistentFlags().StringVar(&rootFlagStorage, "root", "", "Storage root (overrides storage_root)")
	rootCmd.PersistentFlags().BoolVarP(&rootFlagVerbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().BoolVarP(&rootFlagQuiet, "quiet", "q", false, "Only log errors")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeApp loads configuration and, unless the command opts out,
// opens the catalog and wires the services
func initializeApp(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	if skipsCatalog(cmd) {
		return nil
	}

	if !appVault.Exists() {
		fmt.Println(ui.FormatError("Storage root not initialized"))
		fmt.Println(ui.FormatInfo("Run 'hx init' to create it at " + appVault.RootPath))
		return fmt.Errorf("storage root %s does not exist", appVault.RootPath)
	}

	return openCatalog(cmd.Context())
}

// loadConfig reads config.yaml, applies global flags and resolves the vault
func loadConfig() error {
	path := rootFlagConfig
	if path == "" {
		var err error
		path, err = vault.ConfigFilePath()
		if err != nil {
			return fmt.Errorf("failed to locate config: %w", err)
		}
	}
	appConfigPath = path

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	appConfig = cfg

	level := cfg.LogLevel
	if rootFlagVerbose {
		level = "debug"
	} else if rootFlagQuiet {
		level = "error"
	}
	logging.Setup(level, os.Stderr)
	ui.SetTheme(cfg.ColorTheme)

	root := cfg.StorageRoot
	if rootFlagStorage != "" {
		root = rootFlagStorage
	}
	v, err := vault.New(root, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}
	v.ConfigPath = path
	appVault = v

	log.Debug().Str("config", path).Str("root", v.RootPath).Str("db", v.DatabasePath).Msg("configuration loaded")
	return nil
}

// openCatalog opens the database and builds every service on top of it
func openCatalog(ctx context.Context) error {
	if ctx == nil {
		ctx = getContext()
	}
	store, err := repository.Open(ctx, appVault.DatabasePath)
	if err != nil {
		fmt.Println(ui.FormatError("Failed to open catalog: " + appVault.DatabasePath))
		return err
	}
	catalogStore = store

	previewGen = preview.NewGenerator(previewOptions(appConfig))

	importService = services.NewImportService(appVault, store, store, previewGen, services.ImportOptions{
		PreviewFileName:    appConfig.Preview.FileName,
		PlaceholderOnError: appConfig.Preview.PlaceholderOnError,
	})
	removeService = services.NewRemoveService(appVault, store)
	listService = services.NewListService(store, store, services.ListDefaults{
		CaseSensitive: appConfig.SearchCaseSensitive,
		SortBy:        appConfig.DefaultSort,
		Reverse:       appConfig.ReverseSort,
		FilterMode:    appConfig.FilterMode,
	})
	renameService = services.NewRenameService(store)
	tagService = services.NewTagService(store, store)
	maintenanceService = services.NewMaintenanceService(appVault, store, previewGen)
	migrateService = services.NewMigrateService(store, store, nil)
	statsService = services.NewStatsService(store, store)

	return nil
}

// previewOptions maps the preview section of the config onto the generator
func previewOptions(cfg *config.Config) preview.Options {
	opts := preview.DefaultOptions()
	opts.Curve = preview.ToneCurve{Gain: cfg.Preview.Gain, Gamma: cfg.Preview.Gamma}
	opts.MaxWidth = cfg.Preview.MaxWidth
	opts.MaxHeight = cfg.Preview.MaxHeight
	opts.JPEGQuality = cfg.Preview.JPEGQuality
	return opts
}

// shutdownApp closes the catalog if one was opened
func shutdownApp(cmd *cobra.Command, args []string) error {
	if catalogStore == nil {
		return nil
	}
	err := catalogStore.Close()
	catalogStore = nil
	return err
}

// skipsCatalog reports whether cmd or one of its parents is annotated to run
// without the database
func skipsCatalog(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
		if c.Annotations[annotationNoCatalog] == "true" {
			return true
		}
	}
	return false
}

// getContext returns a context for operations, cancelled on interrupt
func getContext() context.Context {
	if appCtx == nil {
		return context.Background()
	}
	return appCtx
}
