package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var (
	importName string
	importTags []string
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:     "import <file>...",
	Short:   "Import HDRI files into the store",
	Aliases: []string{"add"},
	Long: `Copy files into the store, generate a preview and record them.

Each file gets its own folder named after its id and display name.
HDR sources (.hdr, .pic, .exr, .pfm) are tone mapped for the preview;
if a preview cannot be produced a grey placeholder is written instead.

Examples:
  hx import sunset_beach.hdr
  hx import studio.exr --name "Studio Softbox" --tag Indoor
  hx import ~/Downloads/*.hdr --tag Outdoor`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importName, "name", "n", "", "Display name (single file only)")
	importCmd.Flags().StringSliceVarP(&importTags, "tag", "t", nil, "Tag to set on the imported asset (repeatable)")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importName != "" && len(args) > 1 {
		return errors.New("--name can only be used when importing a single file")
	}

	ctx := getContext()
	failed := 0
	for _, path := range args {
		resp, err := importService.Execute(ctx, services.ImportRequest{
			SourcePath:  path,
			DisplayName: importName,
			Tags:        importTags,
		})
		if err != nil {
			failed++
			fmt.Println(ui.FormatError(fmt.Sprintf("%s: %v", filepath.Base(path), err)))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		a := resp.Asset
		fmt.Println(ui.FormatImport(fmt.Sprintf("%s %s", ui.FormatAssetID(a.ID), a.DisplayName)))
		fmt.Println(ui.FormatMuted("  " + filepath.Dir(a.SourcePath)))
		if resp.PlaceholderUsed {
			fmt.Println(ui.FormatMuted("  placeholder preview"))
		}
		printWarnings(resp.Warnings)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(args))
	}
	if len(args) > 1 {
		fmt.Println()
		fmt.Println(ui.FormatSuccess(fmt.Sprintf("Imported %d files", len(args))))
	}
	return nil
}
