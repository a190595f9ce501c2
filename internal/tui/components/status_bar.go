package components

import (
	"fmt"

	"modeltool/internal/tui/styles"
	"modeltool/pkg/types"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusBar shows the orchestrator state, the progress of the operation in
// flight and the last status message.
type StatusBar struct {
	text     string
	state    types.OperationState
	percent  types.Progress
	spinner  spinner.Model
	progress progress.Model
	theme    styles.Theme
}

func NewStatusBar(theme styles.Theme) *StatusBar {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.Help

	p := progress.New(
		progress.WithGradient(theme.Colors.Primary, theme.Colors.Emphasis),
		progress.WithWidth(30),
	)

	return &StatusBar{
		spinner:  s,
		progress: p,
		theme:    theme,
	}
}

// Tick starts the spinner.
func (s *StatusBar) Tick() tea.Msg {
	return s.spinner.Tick()
}

func (s *StatusBar) SetText(text string) {
	s.text = text
}

func (s *StatusBar) Text() string {
	return s.text
}

func (s *StatusBar) SetState(state types.OperationState) {
	s.state = state
}

func (s *StatusBar) SetProgress(p types.Progress) {
	s.percent = p
}

func (s *StatusBar) SetWidth(w int) {
	if w > 10 {
		s.progress.Width = w
	}
}

func (s *StatusBar) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

func (s *StatusBar) View() string {
	state := s.stateStyle().Render(s.state.String())
	line := state
	if s.state.InFlight() {
		line = s.spinner.View() + " " + state
	}
	if s.state.Transferring() {
		line += fmt.Sprintf("  %s %5.1f%%", s.progress.ViewAs(float64(s.percent)/100), float64(s.percent))
	}
	if s.text != "" {
		line += "  " + s.theme.Help.Render(s.text)
	}
	return line
}

func (s *StatusBar) stateStyle() lipgloss.Style {
	switch s.state {
	case types.Failed:
		return s.theme.Error
	case types.ReadComplete, types.ImportComplete, types.WriteComplete:
		return s.theme.Success
	case types.Idle, types.Ready:
		return s.theme.Label
	default:
		return s.theme.Warning
	}
}
