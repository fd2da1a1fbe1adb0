package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var renameCmd = &cobra.Command{
	Use:   "rename <id> <new-name>",
	Short: "Change an asset's display name",
	Long: `Change the display name of an asset.

Only the catalog record changes; the asset's folder keeps its original
name so paths already handed to other tools stay valid.

Examples:
  hx rename 7 "Sunset Beach (overcast)"
  hx rename 12 Studio Softbox`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	name := strings.Join(args[1:], " ")
	if strings.TrimSpace(name) == "" {
		return errors.New("new name cannot be empty")
	}

	resp, err := renameService.Execute(getContext(), services.RenameRequest{ID: id, NewName: name})
	if err != nil {
		fmt.Println(ui.FormatError("Failed to rename asset"))
		return err
	}

	fmt.Println(ui.FormatSuccess(fmt.Sprintf("Renamed %s: %s → %s",
		ui.FormatAssetID(id), resp.OldName, resp.Asset.DisplayName)))
	return nil
}
