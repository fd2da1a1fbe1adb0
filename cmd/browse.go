package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/internal/core/services"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

// messageTimeout is how long a status message stays in the footer
const messageTimeout = 3 * time.Second

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Interactive search, filter and sort",
	Long: `Launch a full-screen browser over the catalog.

Every change to the search text, tag filter or sort order re-runs the
query against the catalog.

Keyboard Shortcuts:
  Navigation:
    ↑/k         Move up
    ↓/j         Move down
    g / G       Jump to top / bottom
    PgUp/PgDn   Scroll details

  Filtering:
    /           Edit the name search
    t           Pick tags (space toggles, esc returns)
    a           Toggle all / any tag matching
    c           Toggle case-sensitive search
    x           Clear every filter

  Sorting:
    s           Switch between name and date
    r           Reverse the order

  Actions:
    Enter       Print the source path and exit
    y           Copy the source path to the clipboard
    o           Open the preview image

  General:
    ?           Show help
    q           Quit`,
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	m := newBrowseModel(getContext())
	m.refresh()

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running browser: %w", err)
	}

	if bm, ok := final.(browseModel); ok && bm.picked != "" {
		fmt.Println(bm.picked)
	}
	return nil
}

// Browser view modes
type browseMode int

const (
	browseModeList browseMode = iota
	browseModeSearch
	browseModeTags
	browseModeHelp
)

type browseStatusMsg struct {
	message string
	style   lipgloss.Style
}

type browseClearMsg struct{}

// browseModel holds the query state and the last result
type browseModel struct {
	ctx    context.Context
	assets []domain.Asset
	tags   []domain.Tag
	err    error

	// Query state
	selected      map[string]bool // tag identifiers in the filter
	anyMode       bool
	sortBy        string
	reverse       bool
	caseSensitive bool

	cursor        int
	offset        int
	tagCursor     int
	mode          browseMode
	searchInput   textinput.Model
	details       viewport.Model
	help          help.Model
	keys          browseKeyMap
	width         int
	height        int
	ready         bool
	message       string
	messageStyle  lipgloss.Style
	messageExpiry time.Time
	picked        string // source path printed on exit
}

// Key bindings
type browseKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Top     key.Binding
	Bottom  key.Binding
	Search  key.Binding
	Tags    key.Binding
	Toggle  key.Binding
	AnyAll  key.Binding
	Case    key.Binding
	Clear   key.Binding
	Sort    key.Binding
	Reverse key.Binding
	Pick    key.Binding
	Copy    key.Binding
	Open    key.Binding
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Search, k.Tags, k.Sort, k.Pick, k.Help, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Search, k.Tags, k.Toggle, k.AnyAll, k.Case, k.Clear},
		{k.Sort, k.Reverse},
		{k.Pick, k.Copy, k.Open, k.Help, k.Escape, k.Quit},
	}
}

var browseKeys = browseKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Top: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G"),
		key.WithHelp("G", "bottom"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Tags: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "tags"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "toggle tag"),
	),
	AnyAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "all/any"),
	),
	Case: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "case"),
	),
	Clear: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "clear filters"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "name/date"),
	),
	Reverse: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reverse"),
	),
	Pick: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "print path"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy path"),
	),
	Open: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open preview"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
}

func newBrowseModel(ctx context.Context) browseModel {
	ti := textinput.New()
	ti.Placeholder = "Search assets..."
	ti.CharLimit = 100
	ti.Width = 50

	vp := viewport.New(40, 10)
	vp.Style = lipgloss.NewStyle().Foreground(ui.ColorDefault)

	return browseModel{
		ctx:           ctx,
		selected:      make(map[string]bool),
		anyMode:       appConfig.FilterMode == "any",
		sortBy:        appConfig.DefaultSort,
		caseSensitive: appConfig.SearchCaseSensitive,
		mode:          browseModeList,
		searchInput:   ti,
		details:       vp,
		help:          help.New(),
		keys:          browseKeys,
	}
}

// request builds the list request for the current query state
func (m *browseModel) request() services.ListRequest {
	cs := m.caseSensitive
	req := services.ListRequest{
		Search:        m.searchInput.Value(),
		Mode:          "all",
		SortBy:        m.sortBy,
		Reverse:       m.reverse,
		CaseSensitive: &cs,
	}
	if m.anyMode {
		req.Mode = "any"
	}
	for _, t := range m.tags {
		if m.selected[t.Identifier] {
			req.Tags = append(req.Tags, t.Identifier)
		}
	}
	return req
}

// refresh re-runs the query and keeps the cursor in range
func (m *browseModel) refresh() {
	resp, err := listService.Execute(m.ctx, m.request())
	if err != nil {
		m.err = err
		m.assets = nil
	} else {
		m.err = nil
		m.assets = resp.Assets
		m.tags = resp.Tags
	}

	if m.cursor >= len(m.assets) {
		m.cursor = max(len(m.assets)-1, 0)
	}
	if m.tagCursor >= len(m.tags) {
		m.tagCursor = max(len(m.tags)-1, 0)
	}
	m.adjustViewport()
	m.updateDetails()
}

func (m *browseModel) current() *domain.Asset {
	if m.cursor < 0 || m.cursor >= len(m.assets) {
		return nil
	}
	return &m.assets[m.cursor]
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.details.Width = m.detailsWidth()
		m.details.Height = m.listHeight()
		m.ready = true
		m.adjustViewport()
		m.updateDetails()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case browseModeSearch:
			return m.updateSearch(msg)
		case browseModeTags:
			return m.updateTags(msg)
		case browseModeHelp:
			m.mode = browseModeList
			return m, nil
		default:
			return m.updateList(msg)
		}

	case browseStatusMsg:
		m.message = msg.message
		m.messageStyle = msg.style
		m.messageExpiry = time.Now().Add(messageTimeout)
		return m, tea.Tick(messageTimeout+100*time.Millisecond, func(time.Time) tea.Msg {
			return browseClearMsg{}
		})

	case browseClearMsg:
		if time.Now().After(m.messageExpiry) {
			m.message = ""
		}
		return m, nil
	}

	return m, nil
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.move(-1)

	case key.Matches(msg, m.keys.Down):
		m.move(1)

	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.offset = 0
		m.updateDetails()

	case key.Matches(msg, m.keys.Bottom):
		m.cursor = max(len(m.assets)-1, 0)
		m.adjustViewport()
		m.updateDetails()

	case msg.Type == tea.KeyPgUp:
		m.details.ViewUp()

	case msg.Type == tea.KeyPgDown:
		m.details.ViewDown()

	case key.Matches(msg, m.keys.Search):
		m.mode = browseModeSearch
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Tags):
		if len(m.tags) == 0 {
			return m, statusCmd("No tags defined", ui.StyleWarning)
		}
		m.mode = browseModeTags

	case key.Matches(msg, m.keys.AnyAll):
		m.anyMode = !m.anyMode
		m.refresh()

	case key.Matches(msg, m.keys.Case):
		m.caseSensitive = !m.caseSensitive
		m.refresh()

	case key.Matches(msg, m.keys.Clear):
		m.searchInput.SetValue("")
		m.selected = make(map[string]bool)
		m.refresh()

	case key.Matches(msg, m.keys.Sort):
		if m.sortBy == "date" {
			m.sortBy = "name"
		} else {
			m.sortBy = "date"
		}
		m.refresh()

	case key.Matches(msg, m.keys.Reverse):
		m.reverse = !m.reverse
		m.refresh()

	case key.Matches(msg, m.keys.Pick):
		if a := m.current(); a != nil {
			m.picked = a.SourcePath
			return m, tea.Quit
		}

	case key.Matches(msg, m.keys.Copy):
		if a := m.current(); a != nil {
			return m, copyPathCmd(a.SourcePath)
		}

	case key.Matches(msg, m.keys.Open):
		if a := m.current(); a != nil {
			return m, openPreviewCmd(a.PreviewPath)
		}

	case key.Matches(msg, m.keys.Help):
		m.mode = browseModeHelp
	}

	return m, nil
}

func (m browseModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.keys.Escape):
		m.mode = browseModeList
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.refresh()
		return m, nil

	case msg.Type == tea.KeyEnter:
		m.mode = browseModeList
		m.searchInput.Blur()
		return m, nil

	// Only arrow keys navigate in search mode, not j/k
	case msg.Type == tea.KeyUp:
		m.move(-1)

	case msg.Type == tea.KeyDown:
		m.move(1)

	default:
		before := m.searchInput.Value()
		m.searchInput, cmd = m.searchInput.Update(msg)
		if m.searchInput.Value() != before {
			m.refresh()
		}
		return m, cmd
	}

	return m, nil
}

func (m browseModel) updateTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Tags):
		m.mode = browseModeList

	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case msg.Type == tea.KeyLeft, key.Matches(msg, m.keys.Up), msg.String() == "h":
		if m.tagCursor > 0 {
			m.tagCursor--
		}

	case msg.Type == tea.KeyRight, key.Matches(msg, m.keys.Down), msg.String() == "l":
		if m.tagCursor < len(m.tags)-1 {
			m.tagCursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.tagCursor < len(m.tags) {
			id := m.tags[m.tagCursor].Identifier
			if m.selected[id] {
				delete(m.selected, id)
			} else {
				m.selected[id] = true
			}
			m.refresh()
		}

	case key.Matches(msg, m.keys.AnyAll):
		m.anyMode = !m.anyMode
		m.refresh()
	}

	return m, nil
}

func (m *browseModel) move(delta int) {
	next := m.cursor + delta
	if next < 0 || next >= len(m.assets) {
		return
	}
	m.cursor = next
	m.adjustViewport()
	m.updateDetails()
}

func (m *browseModel) updateDetails() {
	switch a := m.current(); {
	case m.err != nil:
		m.details.SetContent(ui.StyleError.Render(m.err.Error()))
	case a == nil:
		m.details.SetContent("")
	default:
		m.details.SetContent(describeAsset(a, m.tags))
	}
	m.details.GotoTop()
}

// Layout: header, search bar (3 lines), tag bar, blank, list, blank, footer (2 lines)
func (m browseModel) listHeight() int {
	return max(m.height-9, 3)
}

func (m browseModel) listWidth() int {
	if m.detailsWidth() == 0 {
		return m.width
	}
	return m.width * 55 / 100
}

func (m browseModel) detailsWidth() int {
	w := m.width - m.width*55/100 - 2
	if w < 30 {
		return 0
	}
	return w
}

func (m *browseModel) adjustViewport() {
	listHeight := m.listHeight()

	// Scroll down
	if m.cursor >= m.offset+listHeight {
		m.offset = m.cursor - listHeight + 1
	}

	// Scroll up
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
}

func (m browseModel) View() string {
	if !m.ready {
		return "\n  Loading catalog..."
	}
	if m.mode == browseModeHelp {
		return m.viewHelp()
	}

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(m.renderSearchBar())
	s.WriteString("\n")
	s.WriteString(m.renderTagBar())
	s.WriteString("\n\n")

	listLines := strings.Split(m.renderList(m.listWidth()), "\n")
	var detailLines []string
	if m.detailsWidth() > 0 {
		detailLines = strings.Split(m.details.View(), "\n")
	}

	for i := 0; i < m.listHeight(); i++ {
		var listLine, detailLine string
		if i < len(listLines) {
			listLine = listLines[i]
		}
		if i < len(detailLines) {
			detailLine = detailLines[i]
		}
		s.WriteString(padRight(listLine, m.listWidth()))
		if detailLine != "" {
			s.WriteString("  ")
			s.WriteString(detailLine)
		}
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.renderFooter())
	return s.String()
}

func (m browseModel) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ui.ColorPrimary).
		Padding(1, 2)

	h := m.help
	h.ShowAll = true

	return titleStyle.Render("Keyboard Shortcuts") + "\n\n" +
		lipgloss.NewStyle().Padding(0, 2).Render(h.View(m.keys)) + "\n\n" +
		ui.StyleMuted.Render("  Press any key to return")
}

func (m browseModel) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(ui.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	statsStyle := lipgloss.NewStyle().
		Foreground(ui.ColorMuted).
		Align(lipgloss.Right)

	rootPath := appVault.RootPath
	if home, err := os.UserHomeDir(); err == nil {
		rootPath = strings.Replace(rootPath, home, "~", 1)
	}

	dir := "↑"
	if m.reverse != appConfig.ReverseSort {
		dir = "↓"
	}
	caseLabel := "off"
	if m.caseSensitive {
		caseLabel = "on"
	}

	title := titleStyle.Render(ui.IconImage + " HX Browser")
	stats := statsStyle.Render(fmt.Sprintf("%d assets  sort %s %s  case %s  %s",
		len(m.assets), m.sortBy, dir, caseLabel, rootPath))

	spacer := max(m.width-lipgloss.Width(title)-lipgloss.Width(stats), 0)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		title,
		strings.Repeat(" ", spacer),
		stats,
	)
}

func (m browseModel) renderSearchBar() string {
	borderColor := ui.ColorMuted
	if m.mode == browseModeSearch {
		borderColor = ui.ColorPrimary
	}

	searchStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(max(m.width-4, 10))

	prompt := ui.StyleMuted.Render("/ ")
	if m.mode == browseModeSearch {
		prompt = ui.StylePrimary.Render("/ ")
	}

	content := prompt + m.searchInput.View()
	if m.mode != browseModeSearch && m.searchInput.Value() == "" {
		content = prompt + ui.StyleMuted.Render("Press / to search...")
	}

	return searchStyle.Render(content)
}

// renderTagBar shows every tag on one line, scrolled so the tag cursor is visible
func (m browseModel) renderTagBar() string {
	if len(m.tags) == 0 {
		return ui.StyleMuted.Render(" No tags defined")
	}

	prefix := " Tags (all): "
	if m.anyMode {
		prefix = " Tags (any): "
	}

	parts := make([]string, len(m.tags))
	for i, t := range m.tags {
		label := "[ ] " + t.Name
		style := ui.StyleMuted
		if m.selected[t.Identifier] {
			label = "[x] " + t.Name
			style = ui.StyleAccent
		}
		if m.mode == browseModeTags && i == m.tagCursor {
			style = ui.StylePrimary
		}
		parts[i] = style.Render(label)
	}

	start := 0
	for start < m.tagCursor &&
		lipgloss.Width(prefix)+lipgloss.Width(strings.Join(parts[start:m.tagCursor+1], "  ")) > m.width {
		start++
	}

	line := ui.StyleMuted.Render(prefix) + strings.Join(parts[start:], "  ")
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}

func (m browseModel) renderList(width int) string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(ui.ColorMuted).
		Italic(true).
		Padding(1, 2)

	if m.err != nil {
		return emptyStyle.Render("Query failed, see details.")
	}
	if len(m.assets) == 0 {
		if m.searchInput.Value() != "" || len(m.selected) > 0 {
			return emptyStyle.Render("No assets match the filter.")
		}
		return emptyStyle.Render("No assets yet. Import one with 'hx import <file>'.")
	}

	line := lipgloss.NewStyle().MaxWidth(width)
	var s strings.Builder
	end := min(m.offset+m.listHeight(), len(m.assets))
	for i := m.offset; i < end; i++ {
		a := &m.assets[i]

		cursor := "  "
		nameStyle := lipgloss.NewStyle().Foreground(ui.ColorDefault)
		if i == m.cursor {
			cursor = ui.StylePrimary.Render("▶ ")
			nameStyle = ui.StylePrimary
		}

		row := fmt.Sprintf("%s%s  %s  %s",
			cursor,
			ui.StyleMuted.Render(fmt.Sprintf("%05d", a.ID)),
			ui.StyleMuted.Render(formatDate(a.CreatedAt)),
			nameStyle.Render(a.DisplayName),
		)
		s.WriteString(line.Render(row))
		if i < end-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

func (m browseModel) renderFooter() string {
	var statusLine string
	if m.message != "" && time.Now().Before(m.messageExpiry) {
		statusLine = m.messageStyle.Render(m.message)
	} else {
		statusLine = ui.StyleMuted.Render("Ready")
	}
	return statusLine + "\n" + m.help.View(m.keys)
}

func padRight(s string, width int) string {
	// Strip ANSI codes to get real length
	realLen := lipgloss.Width(s)
	if realLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-realLen)
}

func statusCmd(message string, style lipgloss.Style) tea.Cmd {
	return func() tea.Msg {
		return browseStatusMsg{message: message, style: style}
	}
}

func copyPathCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(path); err != nil {
			return browseStatusMsg{message: "Clipboard access failed", style: ui.StyleError}
		}
		return browseStatusMsg{message: "Copied " + path, style: ui.StyleSuccess}
	}
}

func openPreviewCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if err := OpenFile(path); err != nil {
			return browseStatusMsg{message: err.Error(), style: ui.StyleError}
		}
		return browseStatusMsg{message: "Opened " + path, style: ui.StyleSuccess}
	}
}
