package report

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/jb388/ise-fahey/internal/pipeline"
	"github.com/jb388/ise-fahey/internal/sample"
)

const fixtureCSV = `trt,hzn,plot,rep,d14c,d14c_rerun
control,O,1,1,60,NA
control,O,1,2,62,NA
control,O,2,1,58,NA
control,O,2,2,NA,64
0.25,O,3,1,50,NA
0.25,O,3,2,52,NA
0.25,O,4,1,47,NA
0.25,O,4,2,49,NA
control,M,1,1,30,NA
control,M,1,2,33,NA
control,M,2,1,28,NA
control,M,2,2,31,NA
0.25,M,3,1,25,NA
0.25,M,3,2,22,NA
0.25,M,4,1,20,NA
0.25,M,4,2,NA,NA
`

func result(t *testing.T) *pipeline.Result {
	t.Helper()
	ds, err := sample.Read(strings.NewReader(fixtureCSV), sample.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ds.Source = "roots.csv"
	log := logrus.New()
	log.SetOutput(io.Discard)
	res, err := pipeline.New(pipeline.Config{}, log).Analyze(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestMarkdown(t *testing.T) {
	md := Markdown(result(t))

	for _, want := range []string{
		"# Fine-root Δ14C analysis: roots.csv",
		"## Dataset",
		"- Records: 16 (15 measured)",
		"## Treatment by horizon summary",
		"| treatment | horizon | n | mean | sd | se | ci low | ci high |",
		"| control | organic | 4 | 61.000 |",
		"## Difference from control by plot",
		"## Linear model",
		"- Formula: d14c ~ trt * hzn",
		"## Organic horizon",
		"## Mineral horizon",
		"| 0.25-control |",
		"## Warnings",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestSplitSections(t *testing.T) {
	pages := SplitSections(Markdown(result(t)))
	if len(pages) == 0 {
		t.Fatal("no pages")
	}
	if pages[0].Title != "Dataset" {
		t.Errorf("first page %q", pages[0].Title)
	}
	var titles []string
	for _, p := range pages {
		titles = append(titles, p.Title)
		if p.Body == "" {
			t.Errorf("page %q is empty", p.Title)
		}
	}
	if got := strings.Join(titles, ","); !strings.Contains(got, "Organic horizon,Mineral horizon,Warnings") {
		t.Errorf("titles = %s", got)
	}
}

func TestSplitSectionsPreamble(t *testing.T) {
	pages := SplitSections("# Title\nintro text\n\n## One\nbody\n## Two\n\n")
	if len(pages) != 2 {
		t.Fatalf("pages = %+v", pages)
	}
	if pages[0].Title != "Title" || pages[0].Body != "intro text" {
		t.Errorf("preamble = %+v", pages[0])
	}
	if pages[1].Title != "One" || pages[1].Body != "body" {
		t.Errorf("second = %+v", pages[1])
	}
}

func TestTerminal(t *testing.T) {
	out := Terminal(result(t), GetTheme("soil"))
	for _, want := range []string{"Treatment by horizon summary", "Linear model", "0.25-control", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal output missing %q", want)
		}
	}
}

func TestGetTheme(t *testing.T) {
	if GetTheme("nope").Name != "default" {
		t.Error("unknown theme should fall back to default")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names mismatch")
	}
}

func TestPval(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.0001, "<0.001"},
		{0.01234, "0.0123"},
		{0.5, "0.5000"},
	}
	for _, tt := range tests {
		if got := pval(tt.p); got != tt.want {
			t.Errorf("pval(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
	if stars(0.004) != "**" || stars(0.2) != "" {
		t.Error("stars thresholds")
	}
}
