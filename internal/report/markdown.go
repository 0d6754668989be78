package report

import (
	"fmt"
	"strings"

	"github.com/jb388/ise-fahey/internal/pipeline"
)

// Markdown renders the result as a Markdown document. Each section starts
// with a "## " heading so SplitSections can page through it.
func Markdown(res *pipeline.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Fine-root Δ14C analysis: %s\n\n", res.Dataset.Source)
	for _, sec := range Build(res) {
		writeSection(&b, sec)
	}
	return b.String()
}

func writeSection(b *strings.Builder, sec Section) {
	fmt.Fprintf(b, "## %s\n\n", sec.Title)
	for _, l := range sec.Lines {
		fmt.Fprintf(b, "- %s\n", l)
	}
	if len(sec.Lines) > 0 {
		b.WriteString("\n")
	}
	for _, t := range sec.Tables {
		writeTable(b, t)
	}
}

func writeTable(b *strings.Builder, t Table) {
	if t.Title != "" {
		fmt.Fprintf(b, "**%s**\n\n", t.Title)
	}
	b.WriteString("| " + strings.Join(t.Headers, " | ") + " |\n")
	sep := make([]string, len(t.Headers))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("|" + strings.Join(sep, "|") + "|\n")
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", "\\|")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.WriteString("\n")
}

// Page is one "## " section of a Markdown report.
type Page struct {
	Title string
	Body  string
}

// SplitSections cuts a Markdown report at its "## " headings. Text before the
// first heading becomes a page titled by the document's "# " heading. Empty
// pages are dropped.
func SplitSections(md string) []Page {
	var pages []Page
	var cur *Page
	var body []string
	flush := func() {
		if cur != nil {
			cur.Body = strings.TrimSpace(strings.Join(body, "\n"))
			if cur.Body != "" {
				pages = append(pages, *cur)
			}
		}
		body = body[:0]
	}
	for _, line := range strings.Split(md, "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			flush()
			cur = &Page{Title: strings.TrimSpace(strings.TrimPrefix(line, "## "))}
		case strings.HasPrefix(line, "# ") && cur == nil:
			cur = &Page{Title: strings.TrimSpace(strings.TrimPrefix(line, "# "))}
		default:
			if cur == nil {
				cur = &Page{}
			}
			body = append(body, line)
		}
	}
	flush()
	return pages
}
