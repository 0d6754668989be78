package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jb388/ise-fahey/internal/pipeline"
)

// Terminal renders the result with lipgloss tables in the given theme.
func Terminal(res *pipeline.Result, theme Theme) string {
	st := theme.Styles()
	var parts []string
	parts = append(parts, st.Title.Render("Fine-root Δ14C analysis: "+res.Dataset.Source))
	for _, sec := range Build(res) {
		parts = append(parts, renderSection(sec, st))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// TerminalSection renders a single section, as used by the pager.
func TerminalSection(sec Section, theme Theme) string {
	return renderSection(sec, theme.Styles())
}

func renderSection(sec Section, st Styles) string {
	var parts []string
	parts = append(parts, st.Heading.Render(sec.Title))
	for _, l := range sec.Lines {
		if sec.Title == "Warnings" {
			parts = append(parts, st.Warning.Render("! "+l))
			continue
		}
		parts = append(parts, renderLine(l, st))
	}
	for _, t := range sec.Tables {
		if t.Title != "" {
			parts = append(parts, st.Label.Render(t.Title))
		}
		parts = append(parts, renderTable(t, st))
	}
	return strings.Join(parts, "\n")
}

// renderLine styles "label: value" lines.
func renderLine(l string, st Styles) string {
	if i := strings.Index(l, ": "); i > 0 && i < 40 {
		return st.Label.Render(l[:i+1]) + " " + st.Value.Render(l[i+2:])
	}
	return st.Value.Render(l)
}

func renderTable(t Table, st Styles) string {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.Border).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Header
			}
			if row >= 0 && row < len(t.Signif) && t.Signif[row] {
				return st.Signif
			}
			return st.Cell
		})
	return tbl.Render()
}
