package viz

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Name     string
	Title    lipgloss.Color
	Positive lipgloss.Color
	Negative lipgloss.Color
	Text     lipgloss.Color
	Muted    lipgloss.Color
	Warning  lipgloss.Color
}

var Themes = []Theme{
	{
		Name:     "steel",
		Title:    lipgloss.Color("#00d7ff"),
		Positive: lipgloss.Color("#5fd7ff"),
		Negative: lipgloss.Color("#ff875f"),
		Text:     lipgloss.Color("#e4e4e4"),
		Muted:    lipgloss.Color("#6c6c6c"),
		Warning:  lipgloss.Color("#ffaf00"),
	},
	{
		Name:     "retro",
		Title:    lipgloss.Color("#00ff00"),
		Positive: lipgloss.Color("#88ff88"),
		Negative: lipgloss.Color("#00aa00"),
		Text:     lipgloss.Color("#00ff00"),
		Muted:    lipgloss.Color("#005500"),
		Warning:  lipgloss.Color("#ffff00"),
	},
	{
		Name:     "minimal",
		Title:    lipgloss.Color("#ffffff"),
		Positive: lipgloss.Color("#0088ff"),
		Negative: lipgloss.Color("#ff4444"),
		Text:     lipgloss.Color("#ffffff"),
		Muted:    lipgloss.Color("#888888"),
		Warning:  lipgloss.Color("#ffaa00"),
	},
}

// ThemeIndex returns the position of the named theme, or 0.
func ThemeIndex(name string) int {
	for i, t := range Themes {
		if t.Name == name {
			return i
		}
	}
	return 0
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

type styles struct {
	title, label, value, muted, warning, positive, negative, panel lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Foreground(t.Title).Bold(true).MarginBottom(1),
		label:    lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		value:    lipgloss.NewStyle().Foreground(t.Text),
		muted:    lipgloss.NewStyle().Foreground(t.Muted),
		warning:  lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		positive: lipgloss.NewStyle().Foreground(t.Positive),
		negative: lipgloss.NewStyle().Foreground(t.Negative),
		panel:    lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 2),
	}
}
