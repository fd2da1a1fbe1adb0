package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var (
	cleanDryRun   bool
	cleanMissing  bool
	cleanStrays   bool
	cleanPreviews bool
	cleanCache    bool
	cleanYes      bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Repair what 'hx doctor' reports",
	Long: `Remove records and folders left behind by interrupted imports.

Pending records (imports that never completed) are always removed
together with their folders. Other repairs are opt-in.

Examples:
  hx clean --dry-run          # Show what would change
  hx clean                    # Remove pending records
  hx clean --missing          # Also drop assets whose source is gone
  hx clean --previews         # Rebuild missing previews
  hx clean --strays --yes     # Delete folders with no record`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVarP(&cleanDryRun, "dry-run", "n", false, "Report without changing anything")
	cleanCmd.Flags().BoolVar(&cleanMissing, "missing", false, "Remove assets whose source file is missing")
	cleanCmd.Flags().BoolVar(&cleanStrays, "strays", false, "Delete asset folders that have no record")
	cleanCmd.Flags().BoolVar(&cleanPreviews, "previews", false, "Regenerate missing previews")
	cleanCmd.Flags().BoolVar(&cleanCache, "cache", false, "Also empty the cache directory")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "Do not ask before deleting stray folders")
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := getContext()

	if cleanStrays && !cleanDryRun && !cleanYes {
		if !confirm(os.Stdin, "Delete every asset folder that has no catalog record?") {
			fmt.Println(ui.FormatInfo("Operation cancelled."))
			return nil
		}
	}

	resp, err := maintenanceService.Clean(ctx, services.CleanRequest{
		DryRun:             cleanDryRun,
		RemoveMissing:      cleanMissing,
		RemoveStrays:       cleanStrays,
		RegeneratePreviews: cleanPreviews,
	})
	if err != nil {
		fmt.Println(ui.FormatError("Clean failed"))
		return err
	}

	verb := "Removed"
	regen := "Regenerated"
	if cleanDryRun {
		verb = "Would remove"
		regen = "Would regenerate"
	}

	for _, id := range resp.RemovedPending {
		fmt.Println(ui.FormatSuccess(fmt.Sprintf("%s pending %s", verb, ui.FormatAssetID(id))))
	}
	for _, id := range resp.RemovedMissing {
		fmt.Println(ui.FormatSuccess(fmt.Sprintf("%s %s (source missing)", verb, ui.FormatAssetID(id))))
	}
	for _, id := range resp.Regenerated {
		fmt.Println(ui.FormatSuccess(fmt.Sprintf("%s preview of %s", regen, ui.FormatAssetID(id))))
	}
	for _, dir := range resp.RemovedStrays {
		fmt.Println(ui.FormatSuccess(fmt.Sprintf("%s folder %s", verb, dir)))
	}
	for _, e := range resp.Errors {
		fmt.Println(ui.FormatError(e.Error()))
	}

	if cleanCache {
		if cleanDryRun {
			fmt.Println(ui.FormatInfo("Would empty " + appVault.CachePath))
		} else if err := appVault.CleanCache(); err != nil {
			fmt.Println(ui.FormatError("Failed to empty cache"))
			return err
		} else {
			fmt.Println(ui.FormatSuccess("Cache emptied"))
		}
	}

	changed := len(resp.RemovedPending) + len(resp.RemovedMissing) + len(resp.Regenerated) + len(resp.RemovedStrays)
	if changed == 0 && len(resp.Errors) == 0 {
		fmt.Println(ui.FormatSuccess("Nothing to clean"))
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("%d repair(s) failed", len(resp.Errors))
	}
	return nil
}
