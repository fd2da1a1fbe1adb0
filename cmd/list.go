package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var (
	listSearch        string
	listTags          []string
	listAny           bool
	listSortBy        string
	listReverse       bool
	listCaseSensitive bool
	listPaths         bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List and search assets",
	Aliases: []string{"ls"},
	Long: `List assets in a table, optionally filtered by name and tags.

The name search is a substring match, case-insensitive unless
--case-sensitive or search_case_sensitive is set. Tags may be given by
name ("Golden Hour") or identifier ("tag_golden_hour").

Examples:
  hx list
  hx list --search sunset
  hx list --tag Outdoor --tag "Golden Hour"
  hx list --tag Indoor --tag Studio --any
  hx list --sort date --reverse
  hx list --paths | xargs -I{} cp {} ./renders/`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Filter by display name substring")
	listCmd.Flags().StringSliceVarP(&listTags, "tag", "t", nil, "Filter by tag (repeatable)")
	listCmd.Flags().BoolVar(&listAny, "any", false, "Match any of the tags instead of all")
	// Sort defaults to the config value, handled in runList
	listCmd.Flags().StringVar(&listSortBy, "sort", "name", "Sort by field (name, date)")
	listCmd.Flags().BoolVarP(&listReverse, "reverse", "r", false, "Reverse sort order")
	listCmd.Flags().BoolVar(&listCaseSensitive, "case-sensitive", false, "Match the search case-sensitively")
	listCmd.Flags().BoolVar(&listPaths, "paths", false, "Print only source paths, one per line")
}

// listRequestFromFlags maps the list flags onto a request; unchanged flags
// leave the configured defaults in charge
func listRequestFromFlags(cmd *cobra.Command) services.ListRequest {
	req := services.ListRequest{
		Search:  listSearch,
		Tags:    listTags,
		Reverse: listReverse,
	}
	if cmd.Flags().Changed("sort") {
		req.SortBy = listSortBy
	}
	if listAny {
		req.Mode = "any"
	}
	if cmd.Flags().Changed("case-sensitive") {
		cs := listCaseSensitive
		req.CaseSensitive = &cs
	}
	return req
}

func runList(cmd *cobra.Command, args []string) error {
	resp, err := listService.Execute(getContext(), listRequestFromFlags(cmd))
	if err != nil {
		fmt.Println(ui.FormatError("Failed to list assets"))
		return err
	}

	if listPaths {
		for _, a := range resp.Assets {
			fmt.Println(a.SourcePath)
		}
		return nil
	}

	if resp.Total == 0 {
		if listSearch != "" || len(listTags) > 0 {
			fmt.Println(ui.FormatWarning("No assets match the filter"))
		} else {
			fmt.Println(ui.FormatWarning("No assets found"))
			fmt.Println(ui.FormatInfo("Import your first HDRI with: hx import <file>"))
		}
		return nil
	}

	fmt.Println(ui.FormatTitle(listTitle()))
	fmt.Println()

	table := ui.NewTable([]ui.TableColumn{
		{Header: "ID", Width: 5, Align: "right"},
		{Header: "Name", Width: 20, MaxWidth: 40, Align: "left"},
		{Header: "Date", Width: 10, Align: "left"},
		{Header: "Tags", Width: 10, MaxWidth: 50, Align: "left"},
	})
	for i := range resp.Assets {
		a := &resp.Assets[i]
		table.AddRow(
			ui.FormatAssetID(a.ID),
			a.DisplayName,
			formatDate(a.CreatedAt),
			ui.FormatTags(tagNames(a, resp.Tags)),
		)
	}
	fmt.Print(table.Render())
	fmt.Println()
	fmt.Println(ui.FormatMuted(fmt.Sprintf("%d asset(s)", resp.Total)))

	return nil
}

func listTitle() string {
	var parts []string
	if listSearch != "" {
		parts = append(parts, fmt.Sprintf("name ~ %q", listSearch))
	}
	if len(listTags) > 0 {
		sep := " & "
		if listAny {
			sep = " | "
		}
		parts = append(parts, strings.Join(listTags, sep))
	}
	if len(parts) == 0 {
		return "Assets"
	}
	return "Assets (" + strings.Join(parts, ", ") + ")"
}
