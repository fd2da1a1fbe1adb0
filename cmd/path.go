package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var (
	pathCopy    bool
	pathPreview bool
	pathFolder  bool
)

// pathCmd represents the path command
var pathCmd = &cobra.Command{
	Use:   "path [id]",
	Short: "Print the stored path of an asset",
	Long: `Print the absolute path of an asset's source file.

Examples:
  hx path 7
  hx path 7 --preview
  blender --python-expr "..." -- "$(hx path 7)"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPath,
}

func init() {
	pathCmd.Flags().BoolVarP(&pathCopy, "copy", "c", false, "Copy the path to the clipboard")
	pathCmd.Flags().BoolVarP(&pathPreview, "preview", "p", false, "Print the preview path")
	pathCmd.Flags().BoolVarP(&pathFolder, "folder", "f", false, "Print the asset folder")
}

func runPath(cmd *cobra.Command, args []string) error {
	asset, err := resolveAsset(args)
	if err != nil {
		if errors.Is(err, errSelectionCancelled) {
			fmt.Println(ui.FormatInfo("Selection cancelled."))
			return nil
		}
		return err
	}

	var path string
	switch {
	case pathFolder:
		path = removeService.AssetFolder(asset)
	case pathPreview:
		path = asset.PreviewPath
	default:
		path = asset.SourcePath
	}

	fmt.Println(path)
	if pathCopy {
		copyToClipboard(path)
	}
	return nil
}
