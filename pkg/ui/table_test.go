package ui

import (
	"strings"
	"testing"
)

func TestTable_RenderAlignsColumns(t *testing.T) {
	SetTheme("dark")
	table := NewTable([]TableColumn{
		{Header: "ID", Align: "right"},
		{Header: "NAME"},
	})
	table.AddRow("1", "Sunset Beach")
	table.AddRow("12", "Étoile")

	lines := strings.Split(strings.TrimRight(table.Render(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines", len(lines))
	}

	if !strings.Contains(lines[2], " 1  Sunset Beach") {
		t.Errorf("row 1 not right-aligned: %q", lines[2])
	}
	if !strings.Contains(lines[3], "12  Étoile") {
		t.Errorf("row 2 mismatch: %q", lines[3])
	}
}

func TestTable_MissingCellsAndTruncation(t *testing.T) {
	table := NewTable([]TableColumn{
		{Header: "NAME", MaxWidth: 6},
		{Header: "TAGS"},
	})
	table.AddRow("Mountain Lake")

	out := table.Render()
	if !strings.Contains(out, "Mount…") {
		t.Errorf("expected truncated name, got %q", out)
	}
}

func TestTable_NoColumns(t *testing.T) {
	if got := NewTable(nil).Render(); got != "" {
		t.Errorf("Render() = %q, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"toolong", 4, "too…"},
		{"unbounded", 0, "unbounded"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPadString(t *testing.T) {
	tests := []struct {
		s, align string
		width    int
		want     string
	}{
		{"ab", "left", 4, "ab  "},
		{"ab", "right", 4, "  ab"},
		{"ab", "center", 5, " ab  "},
		{"abcdef", "left", 3, "abcdef"},
	}
	for _, tt := range tests {
		if got := padString(tt.s, tt.width, tt.align); got != tt.want {
			t.Errorf("padString(%q, %d, %q) = %q, want %q", tt.s, tt.width, tt.align, got, tt.want)
		}
	}
}

func TestFormatTags_Empty(t *testing.T) {
	if got := FormatTags(nil); !strings.Contains(got, "-") {
		t.Errorf("FormatTags(nil) = %q", got)
	}
	got := FormatTags([]string{"outdoor", "golden hour"})
	if !strings.Contains(got, "#outdoor") || !strings.Contains(got, "#golden hour") {
		t.Errorf("FormatTags() = %q", got)
	}
}
