package cmd

import (
	"errors"
	"fmt"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

// errSelectionCancelled is returned when the user leaves the finder
var errSelectionCancelled = errors.New("selection cancelled")

var (
	pickPreview bool
	pickOpen    bool
)

// pickCmd represents the pick command
var pickCmd = &cobra.Command{
	Use:   "pick [search]",
	Short: "Fuzzy-find an asset and copy its path",
	Long: `Open an interactive fuzzy finder over all assets.

The selected asset's source path is printed and copied to the
clipboard, ready to paste into a renderer or scene file.

Examples:
  hx pick
  hx pick sunset --preview
  hx pick --open`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPick,
}

func init() {
	pickCmd.Flags().BoolVarP(&pickPreview, "preview", "p", false, "Use the preview path instead of the source")
	pickCmd.Flags().BoolVarP(&pickOpen, "open", "o", false, "Open the preview with the default viewer")
}

func runPick(cmd *cobra.Command, args []string) error {
	search := ""
	if len(args) > 0 {
		search = args[0]
	}

	asset, err := selectAsset(services.ListRequest{Search: search})
	if err != nil {
		if errors.Is(err, errSelectionCancelled) {
			fmt.Println(ui.FormatInfo("Selection cancelled."))
			return nil
		}
		return err
	}

	path := asset.SourcePath
	if pickPreview {
		path = asset.PreviewPath
	}
	fmt.Println(path)
	copyToClipboard(path)

	if pickOpen {
		return OpenFile(asset.PreviewPath)
	}
	return nil
}

// selectAsset runs the list request and lets the user choose one result.
// A single result is returned without prompting.
func selectAsset(req services.ListRequest) (*domain.Asset, error) {
	resp, err := listService.Execute(getContext(), req)
	if err != nil {
		return nil, err
	}
	if resp.Total == 0 {
		if req.Search != "" {
			return nil, fmt.Errorf("no assets match %q", req.Search)
		}
		return nil, errors.New("no assets in the catalog")
	}
	if resp.Total == 1 {
		return &resp.Assets[0], nil
	}

	idx, err := fuzzyfinder.Find(
		resp.Assets,
		func(i int) string {
			return fmt.Sprintf("%s  %s", ui.FormatAssetID(resp.Assets[i].ID), resp.Assets[i].DisplayName)
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			return describeAsset(&resp.Assets[i], resp.Tags)
		}),
	)
	if err != nil {
		// User cancelled (Ctrl+C or ESC)
		return nil, errSelectionCancelled
	}
	return &resp.Assets[idx], nil
}

// describeAsset is the plain-text summary shown in finder previews
func describeAsset(a *domain.Asset, defs []domain.Tag) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:    %s\n", a.DisplayName)
	fmt.Fprintf(&b, "ID:      %d\n", a.ID)
	fmt.Fprintf(&b, "Date:    %s\n", formatDate(a.CreatedAt))
	names := tagNames(a, defs)
	if len(names) > 0 {
		fmt.Fprintf(&b, "Tags:    %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Source:  %s\n", a.SourcePath)
	fmt.Fprintf(&b, "Preview: %s\n", a.PreviewPath)
	return b.String()
}

// resolveAsset parses an id argument, or falls back to the finder when
// there is none
func resolveAsset(args []string) (*domain.Asset, error) {
	if len(args) == 0 {
		return selectAsset(services.ListRequest{})
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	return catalogStore.Get(getContext(), id)
}
