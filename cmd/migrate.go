package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/adapters/repository"
	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var migrateDryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate <legacy.db>",
	Short: "Import a catalog from the old single-table layout",
	Long: `Import records from a legacy database with one wide table.

Every tag_* column becomes a tag (reusing tags that already exist) and
every completed row becomes an asset with its original paths, name,
upload date and tag values. Files are not copied; assets keep pointing
at their old locations. The legacy database is opened read-only.

Examples:
  hx migrate ~/old/hdri.db --dry-run
  hx migrate ~/old/hdri.db`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVarP(&migrateDryRun, "dry-run", "n", false, "Report what would be imported")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	legacy, err := repository.OpenLegacy(args[0])
	if err != nil {
		fmt.Println(ui.FormatError("Failed to open legacy database"))
		return err
	}
	defer legacy.Close()

	resp, err := migrateService.Execute(getContext(), services.MigrateRequest{
		Source: legacy,
		DryRun: migrateDryRun,
	})
	if err != nil {
		fmt.Println(ui.FormatError("Migration failed"))
		return err
	}

	prefix := ""
	if migrateDryRun {
		prefix = "Would create "
		fmt.Println(ui.FormatInfo("Dry run, nothing was changed"))
		fmt.Println()
	}

	for _, t := range resp.TagsCreated {
		fmt.Println(ui.FormatSuccess(prefix + "tag " + ui.FormatTag(t.Name)))
	}
	for _, t := range resp.TagsReused {
		fmt.Println(ui.FormatMuted("  reused tag " + ui.FormatTag(t.Name)))
	}
	for _, reason := range resp.Skipped {
		fmt.Println(ui.FormatWarning("Skipped " + reason))
	}

	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Tags created", fmt.Sprint(len(resp.TagsCreated))))
	fmt.Println(ui.RenderKeyValue("Tags reused", fmt.Sprint(len(resp.TagsReused))))
	fmt.Println(ui.RenderKeyValue("Assets", fmt.Sprint(len(resp.Imported))))
	fmt.Println(ui.RenderKeyValue("Skipped", fmt.Sprint(len(resp.Skipped))))
	return nil
}
