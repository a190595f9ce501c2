package styles

import (
	"modeltool/internal/config"
	"modeltool/internal/logsink"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the core UI styles
type Theme struct {
	App        lipgloss.Style
	Title      lipgloss.Style
	Pane       lipgloss.Style
	Selected   lipgloss.Style
	Unselected lipgloss.Style
	Directory  lipgloss.Style
	Native     lipgloss.Style
	Importable lipgloss.Style
	Help       lipgloss.Style
	Label      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	Error      lipgloss.Style
	Info       lipgloss.Style

	// Colors feeds the progress bar gradient.
	Colors struct {
		Primary  string
		Emphasis string
	}
}

// FromConfig builds the theme from the configured colors.
func FromConfig(cfg *config.Config) Theme {
	if cfg == nil {
		cfg = config.New()
	}
	c := cfg.Theme

	var t Theme
	t.Colors.Primary = c.Primary
	t.Colors.Emphasis = c.Emphasis

	t.App = lipgloss.NewStyle().
		Padding(0, 1)
	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(c.Primary))
	t.Pane = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(c.Border)).
		Padding(0, 1)
	t.Selected = lipgloss.NewStyle().
		Foreground(lipgloss.Color(c.Emphasis)).
		Bold(true)
	t.Unselected = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#999999"))
	t.Directory = lipgloss.NewStyle().
		Foreground(lipgloss.Color(c.Info)).
		Bold(true)
	t.Native = lipgloss.NewStyle().
		Foreground(lipgloss.Color(c.Success))
	t.Importable = lipgloss.NewStyle().
		Foreground(lipgloss.Color(c.Primary))
	t.Help = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5A9"))
	t.Label = lipgloss.NewStyle().
		Foreground(lipgloss.Color(c.Info))
	t.Success = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Success))
	t.Warning = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Warning))
	t.Error = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Error)).Bold(true)
	t.Info = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Info))
	return t
}

// Severity returns the style used for a log record of severity s.
func (t Theme) Severity(s logsink.Severity) lipgloss.Style {
	switch s {
	case logsink.Error:
		return t.Error
	case logsink.Warning:
		return t.Warning
	case logsink.Info:
		return t.Info
	case logsink.Debug, logsink.Verbose:
		return t.Unselected
	default:
		return t.Unselected
	}
}
