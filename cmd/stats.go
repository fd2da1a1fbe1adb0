package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

var (
	statsChart    bool
	statsChartOut string
	statsOpen     bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	Long: `Summarize the catalog: asset counts, disk usage and tag usage.

With --chart an HTML report with a bar chart of assets per tag and a
line chart of imports per month is written to the cache folder.

Examples:
  hx stats
  hx stats --chart --open
  hx stats --chart --out ./report.html`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsChart, "chart", false, "Write an HTML chart report")
	statsCmd.Flags().StringVar(&statsChartOut, "out", "", "Report path (default <root>/.cache/stats.html)")
	statsCmd.Flags().BoolVar(&statsOpen, "open", false, "Open the report after writing it")
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := statsService.Execute(getContext())
	if err != nil {
		fmt.Println(ui.FormatError("Failed to collect statistics"))
		return err
	}

	fmt.Println(ui.FormatTitle("Catalog"))
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Assets", strconv.Itoa(st.Assets)))
	fmt.Println(ui.RenderKeyValue("Untagged", strconv.Itoa(st.Untagged)))
	if st.Pending > 0 {
		fmt.Println(ui.RenderKeyValue("Pending", ui.StyleWarning.Render(strconv.Itoa(st.Pending)+" (run 'hx clean')")))
	}
	fmt.Println(ui.RenderKeyValue("Disk usage", humanBytes(st.SourceBytes)))
	if st.Assets > 0 {
		fmt.Println(ui.RenderKeyValue("First import", formatDate(st.Oldest)))
		fmt.Println(ui.RenderKeyValue("Last import", formatDate(st.Newest)))
	}

	if len(st.Tags) > 0 {
		fmt.Println()
		fmt.Println(ui.FormatTitle("Tags"))
		fmt.Println()

		byUse := append([]services.TagInfo(nil), st.Tags...)
		services.SortByUsage(byUse)
		table := ui.NewTable([]ui.TableColumn{
			{Header: "Tag", Width: 16, MaxWidth: 40, Align: "left"},
			{Header: "Assets", Width: 6, Align: "right"},
			{Header: "Share", Width: 6, Align: "right"},
		})
		for _, info := range byUse {
			table.AddRow(ui.FormatTag(info.Tag.Name), strconv.Itoa(info.Count), percent(info.Count, st.Assets))
		}
		fmt.Print(table.Render())
	}

	if !statsChart {
		return nil
	}

	out := statsChartOut
	if out == "" {
		out = appVault.GetCachePath("stats.html")
	}
	if err := writeStatsReport(st, out); err != nil {
		fmt.Println(ui.FormatError("Failed to write chart report"))
		return err
	}
	fmt.Println()
	fmt.Println(ui.FormatSuccess("Chart written to " + out))

	if statsOpen {
		return OpenFile(out)
	}
	return nil
}

// writeStatsReport renders the stats charts as one HTML page at path
func writeStatsReport(st *services.Stats, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	if err := renderStatsPage(st, f); err != nil {
		return err
	}
	return f.Close()
}

// renderStatsPage writes the tag usage and import history charts to w
func renderStatsPage(st *services.Stats, w io.Writer) error {
	names := make([]string, len(st.Tags))
	counts := make([]opts.BarData, len(st.Tags))
	for i, info := range st.Tags {
		names[i] = info.Tag.Name
		counts[i] = opts.BarData{Value: info.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Assets per tag",
			Subtitle: fmt.Sprintf("%d assets, %d untagged", st.Assets, st.Untagged),
		}),
	)
	bar.SetXAxis(names).AddSeries("assets", counts)

	months := make([]string, len(st.ByMonth))
	imports := make([]opts.LineData, len(st.ByMonth))
	for i, m := range st.ByMonth {
		months[i] = m.Month
		imports[i] = opts.LineData{Value: m.Count}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Imports per month"}),
	)
	line.SetXAxis(months).AddSeries("imports", imports)

	page := components.NewPage()
	page.PageTitle = "hx catalog statistics"
	page.AddCharts(bar, line)
	return page.Render(w)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func percent(part, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(part)*100/float64(total))
}
