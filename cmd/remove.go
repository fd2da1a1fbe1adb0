package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var removeYes bool

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:     "remove [id]...",
	Short:   "Remove assets and their folders",
	Aliases: []string{"rm"},
	Long: `Delete assets from the store.

The asset's folder is deleted first, then its record. A folder that is
already gone does not block removal. Without an id an interactive
finder is opened.

Examples:
  hx remove 7
  hx remove 3 4 5 --yes
  hx rm`,
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Do not ask for confirmation")
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := getContext()

	var targets []*domain.Asset
	if len(args) == 0 {
		a, err := selectAsset(services.ListRequest{})
		if err != nil {
			if errors.Is(err, errSelectionCancelled) {
				fmt.Println(ui.FormatInfo("Operation cancelled."))
				return nil
			}
			return err
		}
		targets = append(targets, a)
	} else {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		for _, id := range ids {
			a, err := catalogStore.Get(ctx, id)
			if err != nil {
				return err
			}
			targets = append(targets, a)
		}
	}

	if !removeYes {
		for _, a := range targets {
			fmt.Printf("  %s %s\n", ui.FormatAssetID(a.ID), ui.StyleBold.Render(a.DisplayName))
		}
		if !confirm(os.Stdin, fmt.Sprintf("Delete %d asset(s) and their files?", len(targets))) {
			fmt.Println(ui.FormatInfo("Operation cancelled."))
			return nil
		}
	}

	failed := 0
	for _, a := range targets {
		resp, err := removeService.Execute(ctx, services.RemoveRequest{ID: a.ID})
		if err != nil {
			failed++
			fmt.Println(ui.FormatError(err.Error()))
			continue
		}
		fmt.Println(ui.FormatSuccess(fmt.Sprintf("Removed %s %s", ui.FormatAssetID(a.ID), a.DisplayName)))
		printWarnings(resp.Warnings)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d removals failed", failed, len(targets))
	}
	return nil
}
