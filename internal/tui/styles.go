package tui

import "github.com/charmbracelet/lipgloss"

// Theme colours the chrome around the canvas. The canvas itself is
// monochrome.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Faint   lipgloss.Color
	Running lipgloss.Color
	Paused  lipgloss.Color
	Border  lipgloss.Color
}

var Themes = []Theme{
	{
		Name: "terminal", Title: "86", Accent: "86", Text: "255", Muted: "242",
		Faint: "238", Running: "82", Paused: "220", Border: "240",
	},
	{
		Name: "retro", Title: "#00ff00", Accent: "#88ff88", Text: "#00ff00", Muted: "#00aa00",
		Faint: "#005500", Running: "#88ff88", Paused: "#ffff00", Border: "#005500",
	},
	{
		Name: "ocean", Title: "#00a8cc", Accent: "#ffd700", Text: "#e0f0ff", Muted: "#4488aa",
		Faint: "#2a5577", Running: "#00ff88", Paused: "#ffcc00", Border: "#0077be",
	},
	{
		Name: "minimal", Title: "#ffffff", Accent: "#0088ff", Text: "#ffffff", Muted: "#888888",
		Faint: "#555555", Running: "#00ff00", Paused: "#ffaa00", Border: "#444444",
	},
}

// GetTheme returns the named theme, or the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

type styles struct {
	header, accent, text, muted, faint, running, paused lipgloss.Style
	canvas, panel                                       lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		header:  lipgloss.NewStyle().Foreground(t.Title).Bold(true),
		accent:  lipgloss.NewStyle().Foreground(t.Accent),
		text:    lipgloss.NewStyle().Foreground(t.Text),
		muted:   lipgloss.NewStyle().Foreground(t.Muted),
		faint:   lipgloss.NewStyle().Foreground(t.Faint),
		running: lipgloss.NewStyle().Foreground(t.Running),
		paused:  lipgloss.NewStyle().Foreground(t.Paused),
		canvas:  lipgloss.NewStyle().PaddingLeft(canvasPadX),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Border).
			PaddingLeft(1).
			Width(panelWidth),
	}
}
