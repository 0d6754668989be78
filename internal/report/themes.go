package report

import "github.com/charmbracelet/lipgloss"

// Theme defines the colours of terminal output.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
}

var (
	ThemeDefault = Theme{
		Name:      "default",
		Primary:   lipgloss.Color("#0077be"),
		Secondary: lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Success:   lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffcc00"),
		Error:     lipgloss.Color("#ff4444"),
	}

	ThemeSoil = Theme{
		Name:      "soil",
		Primary:   lipgloss.Color("#8c510a"), // organic horizon
		Secondary: lipgloss.Color("#01665e"), // mineral horizon
		Accent:    lipgloss.Color("#dfc27d"),
		Text:      lipgloss.Color("#f6e8c3"),
		Muted:     lipgloss.Color("#80735a"),
		Success:   lipgloss.Color("#5ab4ac"),
		Warning:   lipgloss.Color("#d8b365"),
		Error:     lipgloss.Color("#ff4757"),
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Primary:   lipgloss.Color("#ffffff"),
		Secondary: lipgloss.Color("#cccccc"),
		Accent:    lipgloss.Color("#0088ff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#888888"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ffaa00"),
		Error:     lipgloss.Color("#ff0000"),
	}

	Themes = []Theme{ThemeDefault, ThemeSoil, ThemeMinimal}
)

// GetTheme returns a theme by name, falling back to the default.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeDefault
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// Styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Heading lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Border  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Signif  lipgloss.Style
	Warning lipgloss.Style
}

func (t Theme) Styles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary),
		Heading: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Secondary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(t.Accent).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Foreground(t.Text).Padding(0, 1),
		Border:  lipgloss.NewStyle().Foreground(t.Muted),
		Label:   lipgloss.NewStyle().Foreground(t.Muted),
		Value:   lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Signif:  lipgloss.NewStyle().Foreground(t.Success).Bold(true).Padding(0, 1),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
	}
}
