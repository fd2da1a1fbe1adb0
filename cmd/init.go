package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/adapters/repository"
	"github.com/kamal-hamza/hx-cli/pkg/config"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the hx storage root",
	Long: `Initialize the hx storage root and catalog.

This creates the managed store at ~/.local/share/hx/ (or --root) with:
  - catalog.db  : The SQLite catalog of assets and tags
  - .inbox/     : Drop folder watched by 'hx watch'
  - .cache/     : Generated reports such as the tag chart
  - NNNNN_name/ : One folder per imported asset

A default config.yaml is written if none exists.`,
	Annotations: map[string]string{annotationNoCatalog: "true"},
	RunE:        runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if appVault.Exists() {
		if _, err := os.Stat(appVault.DatabasePath); err == nil {
			fmt.Println(ui.FormatWarning("Storage root already initialized"))
			fmt.Println(ui.FormatMuted("Location: " + appVault.RootPath))
			return nil
		}
	}

	fmt.Println(ui.FormatInfo("Initializing hx storage root..."))
	fmt.Println()

	if err := appVault.Initialize(); err != nil {
		fmt.Println(ui.FormatError("Failed to initialize storage root"))
		return err
	}

	// Opening the catalog creates the database and applies the schema
	store, err := repository.Open(getContext(), appVault.DatabasePath)
	if err != nil {
		fmt.Println(ui.FormatError("Failed to create catalog"))
		return err
	}
	version, _ := store.Version(getContext())
	if err := store.Close(); err != nil {
		return err
	}
	fmt.Println(ui.FormatSuccess("Catalog created"))

	if err := createDefaultConfig(appConfigPath); err != nil {
		// Don't fail - config is optional
		fmt.Println(ui.FormatWarning("Failed to create default config: " + err.Error()))
	}

	fmt.Println(ui.FormatSuccess("Storage root initialized successfully!"))
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Location", appVault.RootPath))
	fmt.Println(ui.RenderKeyValue("Catalog", appVault.DatabasePath))
	fmt.Println(ui.RenderKeyValue("Schema", fmt.Sprintf("v%d", version)))
	fmt.Println(ui.RenderKeyValue("Config", appConfigPath))
	fmt.Println()
	fmt.Println(ui.FormatInfo("Next steps:"))
	fmt.Println(ui.FormatMuted("  1. Import an environment map: hx import ~/Downloads/sunset_beach.hdr"))
	fmt.Println(ui.FormatMuted("  2. Tag it: hx tag add \"Golden Hour\" --asset 1"))
	fmt.Println(ui.FormatMuted("  3. Find it again: hx list --tag \"Golden Hour\""))

	return nil
}

// createDefaultConfig writes the defaults unless a config file already exists
func createDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Println(ui.FormatSuccess("Default config created"))
	return nil
}
