package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/pkg/ui"
)

// parseID parses a positive asset id such as "7" or "00007"
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid asset id %q", s)
	}
	return id, nil
}

// parseIDs parses every argument as an asset id
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// formatDate renders a creation time with the configured layout
func formatDate(t time.Time) string {
	layout := "2006-01-02"
	if appConfig != nil && appConfig.DisplayDateFormat != "" {
		layout = appConfig.DisplayDateFormat
	}
	return t.Local().Format(layout)
}

// tagNames returns the names of the tags set on an asset, in definition order
func tagNames(a *domain.Asset, defs []domain.Tag) []string {
	var names []string
	for _, t := range a.TrueTags(defs) {
		names = append(names, t.Name)
	}
	return names
}

// copyToClipboard copies text and reports the outcome on one line
func copyToClipboard(text string) bool {
	if err := clipboard.WriteAll(text); err != nil {
		fmt.Println(ui.FormatMuted("(Clipboard access failed)"))
		return false
	}
	fmt.Println(ui.FormatMuted("(Copied to clipboard)"))
	return true
}

// confirm asks a yes/no question on in; anything but y/yes is a no
func confirm(in io.Reader, prompt string) bool {
	fmt.Print(ui.StyleWarning.Render(prompt + " [y/N]: "))
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// OpenFile opens a file using the OS default application.
func OpenFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}

	// Start() detaches so hx can exit while the viewer stays open
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open '%s': %w", path, err)
	}
	return nil
}

// preferredEditor returns $VISUAL, $EDITOR or vi
func preferredEditor() string {
	if env := os.Getenv("VISUAL"); env != "" {
		return env
	}
	if env := os.Getenv("EDITOR"); env != "" {
		return env
	}
	return "vi"
}

// printWarnings prints each warning on its own line
func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Println(ui.FormatWarning(w))
	}
}
