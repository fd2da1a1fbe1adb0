package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of the store",
	Long: `Diagnose the storage root and catalog.

Checks for:
  - Storage root, inbox and cache directories
  - Configuration file and catalog schema
  - Pending records left by interrupted imports
  - Assets whose source or preview file is missing
  - Asset folders without a catalog record

Nothing is changed; run 'hx clean' to repair what is reported.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := getContext()

	fmt.Println(ui.FormatTitle("HX Doctor"))
	fmt.Println()

	checkStep("Storage Root", func() error {
		if !appVault.Exists() {
			return fmt.Errorf("not found at %s", appVault.RootPath)
		}
		return nil
	})

	checkStep("Inbox Directory", func() error {
		if _, err := os.Stat(appVault.InboxPath); os.IsNotExist(err) {
			return fmt.Errorf("missing at %s (run 'hx init')", appVault.InboxPath)
		}
		return nil
	})

	checkStep("Cache Directory", func() error {
		if _, err := os.Stat(appVault.CachePath); os.IsNotExist(err) {
			return fmt.Errorf("missing at %s (run 'hx init')", appVault.CachePath)
		}
		return nil
	})

	checkStep("Config File", func() error {
		if _, err := os.Stat(appConfigPath); os.IsNotExist(err) {
			// Defaults apply, so this is informational
			return fmt.Errorf("not found at %s, using defaults", appConfigPath)
		}
		return nil
	})

	checkStep("Catalog Schema", func() error {
		v, err := catalogStore.Version(ctx)
		if err != nil {
			return err
		}
		if v == 0 {
			return fmt.Errorf("no schema version recorded")
		}
		return nil
	})

	report, err := maintenanceService.Diagnose(ctx)
	if err != nil {
		fmt.Println(ui.FormatError("Failed to inspect catalog"))
		return err
	}

	checkStep(fmt.Sprintf("Pending Imports (%d)", len(report.Pending)), func() error {
		if len(report.Pending) == 0 {
			return nil
		}
		for _, a := range report.Pending {
			fmt.Printf("    %s %s\n", ui.FormatAssetID(a.ID), ui.StyleMuted.Render(a.DisplayName))
		}
		return fmt.Errorf("%d import(s) never completed", len(report.Pending))
	})

	checkStep(fmt.Sprintf("Asset Files (%d checked)", report.Checked), func() error {
		if len(report.Missing) == 0 {
			return nil
		}
		for _, m := range report.Missing {
			what := "preview"
			switch {
			case m.SourceMissing && m.PreviewMissing:
				what = "source and preview"
			case m.SourceMissing:
				what = "source"
			}
			fmt.Printf("    %s %s %s\n", ui.FormatAssetID(m.Asset.ID), m.Asset.DisplayName, ui.StyleMuted.Render("missing "+what))
		}
		return fmt.Errorf("%d asset(s) with missing files", len(report.Missing))
	})

	checkStep(fmt.Sprintf("Stray Folders (%d)", len(report.StrayFolders)), func() error {
		if len(report.StrayFolders) == 0 {
			return nil
		}
		for _, dir := range report.StrayFolders {
			fmt.Printf("    %s\n", ui.StyleMuted.Render(dir))
		}
		return fmt.Errorf("%d folder(s) have no catalog record", len(report.StrayFolders))
	})

	fmt.Println()
	if report.Healthy() {
		fmt.Println(ui.FormatSuccess("Catalog is healthy"))
		return nil
	}
	fmt.Println(ui.FormatInfo("Run 'hx clean --dry-run' to see what would be repaired"))
	return nil
}

func checkStep(name string, check func() error) {
	err := check()
	if err == nil {
		fmt.Printf("%s %s\n", ui.StyleSuccess.Render(ui.IconSuccess), name)
	} else {
		fmt.Printf("%s %s\n", ui.StyleError.Render(ui.IconError), name)
		fmt.Printf("    %s\n", ui.StyleMuted.Render(err.Error()))
	}
}
