package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var previewAll bool

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview [id]...",
	Short: "Regenerate asset previews",
	Long: `Rebuild preview thumbnails from the stored sources.

Use this after changing the preview settings (gain, gamma, size or
quality) to bring existing previews in line.

Examples:
  hx preview 7
  hx preview --all`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVarP(&previewAll, "all", "a", false, "Regenerate every preview")
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := getContext()

	var ids []int64
	switch {
	case previewAll:
		resp, err := listService.Execute(ctx, services.ListRequest{SortBy: "date"})
		if err != nil {
			return err
		}
		for _, a := range resp.Assets {
			ids = append(ids, a.ID)
		}
	case len(args) > 0:
		var err error
		if ids, err = parseIDs(args); err != nil {
			return err
		}
	default:
		return fmt.Errorf("give asset ids or --all")
	}

	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		out, err := maintenanceService.RegeneratePreview(ctx, id)
		if err != nil {
			failed++
			fmt.Println(ui.FormatError(err.Error()))
			continue
		}
		fmt.Println(ui.FormatSuccess(fmt.Sprintf("%s %s", ui.FormatAssetID(id), out)))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d previews failed", failed, len(ids))
	}
	return nil
}
