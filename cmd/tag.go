package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var (
	tagAddAsset  int64
	tagRemoveYes bool
	tagListByUse bool
)

var tagCmd = &cobra.Command{
	Use:   "tag [command]",
	Short: "Manage tags and tag values",
	Long: `Define, delete and apply tags.

Tags are named boolean attributes shared by every asset. A tag may be
referred to by its name ("Golden Hour") or its identifier
("tag_golden_hour").`,
}

var tagListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List tags with usage counts",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE:    runTagList,
}

var tagAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Define a new tag",
	Example: `  hx tag add "Golden Hour"
  hx tag add Overcast --asset 7`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := tagService.Add(getContext(), args[0], tagAddAsset)
		if err != nil {
			fmt.Println(ui.FormatError("Failed to add tag"))
			return err
		}
		fmt.Println(ui.FormatSuccess(fmt.Sprintf("Tag %s added (%s)", ui.FormatTag(tag.Name), tag.Identifier)))
		if tagAddAsset != 0 {
			fmt.Println(ui.FormatMuted("  set on " + ui.FormatAssetID(tagAddAsset)))
		}
		return nil
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:     "remove <tag>",
	Short:   "Delete a tag from every asset",
	Aliases: []string{"rm"},
	Example: `  hx tag remove "Golden Hour"
  hx tag remove tag_golden_hour --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runTagRemove,
}

var tagSetCmd = &cobra.Command{
	Use:     "set <tag> <id>...",
	Short:   "Set a tag on assets",
	Example: `  hx tag set Outdoor 3 4 5`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTagValues(args[0], args[1:], true)
	},
}

var tagUnsetCmd = &cobra.Command{
	Use:     "unset <tag> <id>...",
	Short:   "Clear a tag on assets",
	Example: `  hx tag unset Outdoor 4`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTagValues(args[0], args[1:], false)
	},
}

var tagShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the tags set on an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		tags, err := tagService.AssetTags(getContext(), id)
		if err != nil {
			return err
		}
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.Name
		}
		fmt.Println(ui.FormatAssetID(id) + "  " + ui.FormatTags(names))
		return nil
	},
}

func init() {
	tagAddCmd.Flags().Int64VarP(&tagAddAsset, "asset", "a", 0, "Also set the new tag on this asset")
	tagRemoveCmd.Flags().BoolVarP(&tagRemoveYes, "yes", "y", false, "Do not ask for confirmation")
	tagListCmd.Flags().BoolVarP(&tagListByUse, "usage", "u", false, "Sort by usage instead of creation order")

	tagCmd.AddCommand(tagListCmd)
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRemoveCmd)
	tagCmd.AddCommand(tagSetCmd)
	tagCmd.AddCommand(tagUnsetCmd)
	tagCmd.AddCommand(tagShowCmd)
}

func runTagList(cmd *cobra.Command, args []string) error {
	infos, err := tagService.List(getContext())
	if err != nil {
		fmt.Println(ui.FormatError("Failed to list tags"))
		return err
	}
	if len(infos) == 0 {
		fmt.Println(ui.FormatWarning("No tags defined"))
		fmt.Println(ui.FormatInfo("Create one with: hx tag add \"Golden Hour\""))
		return nil
	}
	if tagListByUse {
		services.SortByUsage(infos)
	}

	fmt.Println(ui.FormatTitle("Tags"))
	fmt.Println()
	table := ui.NewTable([]ui.TableColumn{
		{Header: "Name", Width: 16, MaxWidth: 40, Align: "left"},
		{Header: "Identifier", Width: 16, Align: "left"},
		{Header: "Assets", Width: 6, Align: "right"},
	})
	for _, info := range infos {
		table.AddRow(ui.FormatTag(info.Tag.Name), info.Tag.Identifier, strconv.Itoa(info.Count))
	}
	fmt.Print(table.Render())
	return nil
}

func runTagRemove(cmd *cobra.Command, args []string) error {
	ctx := getContext()
	tag, err := tagService.Find(ctx, args[0])
	if err != nil {
		return err
	}

	if !tagRemoveYes {
		prompt := fmt.Sprintf("Delete tag %s and its value on every asset?", tag.Name)
		if !confirm(os.Stdin, prompt) {
			fmt.Println(ui.FormatInfo("Operation cancelled."))
			return nil
		}
	}

	if _, err := tagService.Remove(ctx, tag.Identifier); err != nil {
		fmt.Println(ui.FormatError("Failed to remove tag"))
		return err
	}
	fmt.Println(ui.FormatSuccess("Tag " + ui.FormatTag(tag.Name) + " removed"))
	return nil
}

func setTagValues(ref string, idArgs []string, value bool) error {
	ids, err := parseIDs(idArgs)
	if err != nil {
		return err
	}
	ctx := getContext()
	tag, err := tagService.Find(ctx, ref)
	if err != nil {
		return err
	}
	if err := tagService.Set(ctx, tag.Identifier, value, ids...); err != nil {
		return err
	}

	verb := "Set"
	if !value {
		verb = "Cleared"
	}
	fmt.Println(ui.FormatSuccess(fmt.Sprintf("%s %s on %d asset(s)", verb, ui.FormatTag(tag.Name), len(ids))))
	return nil
}
