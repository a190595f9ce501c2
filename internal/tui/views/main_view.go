package views

import (
	"strings"

	"modeltool/internal/tui/components"
	"modeltool/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// ModelReader defines the interface that views use to read model state
type ModelReader interface {
	FileList() *components.FileList
	Inspector() *components.MeshInspector
	LogPane() *components.LogPane
	StatusBar() *components.StatusBar
	Theme() styles.Theme
	HelpView() string
	ShowHelp() bool
	Width() int
}

// RenderMainView lays out the listing and the inspector side by side, with
// the log pane, the status line and the key help below.
func RenderMainView(m ModelReader) string {
	t := m.Theme()
	var sb strings.Builder

	sb.WriteString(renderBanner(t) + "\n")

	left := t.Pane.Render(m.FileList().View())
	right := t.Pane.Render(m.Inspector().View())
	if w := m.Width(); w > 0 && lipgloss.Width(left)+lipgloss.Width(right) > w {
		sb.WriteString(lipgloss.JoinVertical(lipgloss.Left, left, right))
	} else {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	}
	sb.WriteString("\n")

	sb.WriteString(t.Pane.Render(m.LogPane().View()) + "\n")
	sb.WriteString(m.StatusBar().View() + "\n")
	if m.ShowHelp() {
		sb.WriteString(RenderHelp(t) + "\n")
	}
	sb.WriteString(m.HelpView())

	return t.App.Render(sb.String())
}

func RenderHelp(t styles.Theme) string {
	return t.Help.Render(`
Open a directory to browse it. Opening a .lmdl file reads it as is;
opening any other model file imports it through the engine.
A loaded model can be written next to its source as .lmdl, and
"convert all" does that for every importable file in the directory.
`)
}

func renderBanner(t styles.Theme) string {
	return t.Title.Render("modeltool") + t.Help.Render("  3D model import and conversion")
}
