package components

import (
	"strings"

	"modeltool/internal/logsink"
	"modeltool/internal/tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// LogPane is a scrollable view of the filtered log records. It follows the
// newest record unless the user has scrolled up.
type LogPane struct {
	viewport  viewport.Model
	records   []logsink.Record
	verbosity logsink.Severity
	theme     styles.Theme
}

func NewLogPane(theme styles.Theme, width, height int) *LogPane {
	return &LogPane{
		viewport: viewport.New(width, height),
		theme:    theme,
	}
}

func (lp *LogPane) SetSize(width, height int) {
	lp.viewport.Width = width
	lp.viewport.Height = height
	lp.render()
}

func (lp *LogPane) SetVerbosity(s logsink.Severity) {
	lp.verbosity = s
}

func (lp *LogPane) SetRecords(records []logsink.Record) {
	follow := lp.viewport.AtBottom() || len(lp.records) == 0
	lp.records = records
	lp.render()
	if follow {
		lp.viewport.GotoBottom()
	}
}

func (lp *LogPane) Records() []logsink.Record {
	return lp.records
}

func (lp *LogPane) render() {
	lines := make([]string, 0, len(lp.records))
	for _, r := range lp.records {
		lines = append(lines, lp.theme.Severity(r.Severity).Render(r.String()))
	}
	lp.viewport.SetContent(strings.Join(lines, "\n"))
}

func (lp *LogPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	lp.viewport, cmd = lp.viewport.Update(msg)
	return cmd
}

func (lp *LogPane) View() string {
	title := lp.theme.Title.Render("Log") + lp.theme.Help.Render(" ≤ "+lp.verbosity.String())
	if len(lp.records) == 0 {
		return title + "\n" + lp.theme.Unselected.Render("(empty)")
	}
	return title + "\n" + lp.viewport.View()
}
