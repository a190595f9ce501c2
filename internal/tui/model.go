// Package tui is the terminal front end of the orchestrator. Every
// orchestrator observable is consumed through its own subscription; user
// actions run as tea.Cmds so the UI stays responsive during transfers.
package tui

import (
	"context"
	"fmt"
	"path/filepath"

	"modeltool/internal/config"
	"modeltool/internal/errors"
	"modeltool/internal/log"
	"modeltool/internal/logsink"
	"modeltool/internal/model"
	"modeltool/internal/orchestrator"
	"modeltool/internal/tui/components"
	"modeltool/internal/tui/messages"
	"modeltool/internal/tui/styles"
	"modeltool/internal/tui/views"
	"modeltool/pkg/types"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const logPaneHeight = 8

type Model struct {
	ctx      context.Context
	orch     *orchestrator.Orchestrator
	keys     KeyMap
	help     help.Model
	theme    styles.Theme
	startDir string
	version  string

	fileList  *components.FileList
	inspector *components.MeshInspector
	logPane   *components.LogPane
	statusBar *components.StatusBar

	showHelp       bool
	onlyImportable bool
	width          int
	quitting       bool

	stateCh    <-chan types.OperationState
	progressCh <-chan types.Progress
	listingCh  <-chan []types.FileEntry
	modelCh    <-chan *model.Description
	logCh      <-chan []logsink.Record
	dirCh      <-chan string
	unsubs     []func()
}

// New creates the browser over orch and subscribes to its observables.
// startDir, when set, is opened by Init.
func New(ctx context.Context, orch *orchestrator.Orchestrator, cfg *config.Config, startDir, version string) *Model {
	theme := styles.FromConfig(cfg)
	m := &Model{
		ctx:       ctx,
		orch:      orch,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		theme:     theme,
		startDir:  startDir,
		version:   version,
		fileList:  components.NewFileList(theme),
		inspector: components.NewMeshInspector(theme),
		logPane:   components.NewLogPane(theme, 80, logPaneHeight),
		statusBar: components.NewStatusBar(theme),
	}
	m.logPane.SetVerbosity(orch.Verbosity())

	m.stateCh = subscribe(m, orch.State())
	m.progressCh = subscribe(m, orch.Progress())
	m.listingCh = subscribe(m, orch.Listing())
	m.modelCh = subscribe(m, orch.Model())
	m.logCh = subscribe(m, orch.LogView())
	m.dirCh = subscribe(m, orch.WorkingDir())
	return m
}

func subscribe[T any](m *Model, o *orchestrator.Observable[T]) <-chan T {
	ch, unsubscribe := o.Subscribe()
	m.unsubs = append(m.unsubs, unsubscribe)
	return ch
}

// listen waits for the next value on ch. A closed channel ends the stream.
func listen[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

func (m *Model) waitState() tea.Cmd {
	return listen(m.stateCh, func(s types.OperationState) tea.Msg { return messages.StateMsg{State: s} })
}

func (m *Model) waitProgress() tea.Cmd {
	return listen(m.progressCh, func(p types.Progress) tea.Msg { return messages.ProgressMsg{Progress: p} })
}

func (m *Model) waitListing() tea.Cmd {
	return listen(m.listingCh, func(e []types.FileEntry) tea.Msg { return messages.ListingMsg{Entries: e} })
}

func (m *Model) waitModel() tea.Cmd {
	return listen(m.modelCh, func(d *model.Description) tea.Msg { return messages.ModelMsg{Model: d} })
}

func (m *Model) waitLog() tea.Cmd {
	return listen(m.logCh, func(r []logsink.Record) tea.Msg { return messages.LogMsg{Records: r} })
}

func (m *Model) waitDir() tea.Cmd {
	return listen(m.dirCh, func(d string) tea.Msg { return messages.DirectoryChangeMsg{Path: d} })
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.waitState(), m.waitProgress(), m.waitListing(),
		m.waitModel(), m.waitLog(), m.waitDir(),
		m.statusBar.Tick,
	}
	if m.startDir != "" {
		dir := m.startDir
		cmds = append(cmds, m.run("open", func(ctx context.Context) error {
			return m.orch.ChangeDirectory(ctx, dir)
		}))
	}
	return tea.Batch(cmds...)
}

// Close ends every subscription.
func (m *Model) Close() {
	for _, unsubscribe := range m.unsubs {
		unsubscribe()
	}
	m.unsubs = nil
}

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	return views.RenderMainView(m)
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.statusBar.SetWidth(msg.Width / 3)
		m.logPane.SetSize(msg.Width-4, logPaneHeight)
		rows := msg.Height - logPaneHeight - 12
		m.fileList.SetHeight(rows)
		return m, nil

	case messages.StateMsg:
		m.statusBar.SetState(msg.State)
		return m, m.waitState()

	case messages.ProgressMsg:
		m.statusBar.SetProgress(msg.Progress)
		return m, m.waitProgress()

	case messages.ListingMsg:
		m.fileList.SetFiles(msg.Entries)
		return m, m.waitListing()

	case messages.ModelMsg:
		m.inspector.SetModel(msg.Model)
		m.inspector.Select(m.orch.SelectedMesh())
		return m, m.waitModel()

	case messages.LogMsg:
		m.logPane.SetRecords(msg.Records)
		return m, m.waitLog()

	case messages.DirectoryChangeMsg:
		m.fileList.SetCurrentDir(msg.Path)
		return m, m.waitDir()

	case messages.OperationDoneMsg:
		m.statusBar.SetText(describeResult(msg.Operation, msg.Err))
		return m, nil

	case messages.BatchDoneMsg:
		text := fmt.Sprintf("converted %d of %d", msg.Result.Succeeded(), len(msg.Result.Items))
		if msg.Result.Failed() > 0 {
			text += fmt.Sprintf(", %d failed", msg.Result.Failed())
		}
		if msg.Err != nil {
			text = describeResult("convert all", msg.Err)
		}
		m.statusBar.SetText(text)
		return m, nil
	}

	cmd := m.statusBar.Update(msg)
	return m, cmd
}

func describeResult(op string, err error) string {
	switch {
	case err == nil:
		return op + " done"
	case errors.IsBusy(err):
		return "busy: wait for the current operation or cancel it"
	case errors.IsCancelled(err):
		return op + " cancelled"
	default:
		return fmt.Sprintf("%s failed: %v", op, err)
	}
}

// run executes fn off the UI goroutine and reports its result.
func (m *Model) run(name string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := <-m.orch.Go(ctx, fn)
		if err != nil {
			log.LogWithError(err).Debugf("%s from the terminal UI failed", name)
		}
		return messages.OperationDoneMsg{Operation: name, Err: err}
	}
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.orch.Cancel()
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp

	case key.Matches(msg, m.keys.Up):
		m.fileList.MoveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.fileList.MoveCursor(1)

	case key.Matches(msg, m.keys.Open):
		entry := m.fileList.CurrentFile()
		if entry == nil {
			return m, nil
		}
		path := entry.Path
		m.statusBar.SetText("opening " + filepath.Base(path))
		return m, m.run("open", func(ctx context.Context) error {
			return m.orch.Open(ctx, path)
		})

	case key.Matches(msg, m.keys.GoBack):
		return m, m.run("parent directory", m.orch.MoveUp)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.run("refresh", func(context.Context) error {
			return m.orch.Refresh()
		})

	case key.Matches(msg, m.keys.Filter):
		m.onlyImportable = !m.onlyImportable
		m.orch.SetShowOnlyImportable(m.onlyImportable)
		if m.onlyImportable {
			m.statusBar.SetText("showing model files only")
		} else {
			m.statusBar.SetText("showing all files")
		}

	case key.Matches(msg, m.keys.Convert):
		m.statusBar.SetText("converting")
		return m, m.run("convert", func(ctx context.Context) error {
			return m.orch.Write(ctx, "")
		})

	case key.Matches(msg, m.keys.ConvertAll):
		m.statusBar.SetText("converting all")
		ctx := m.ctx
		return m, func() tea.Msg {
			res, err := m.orch.ConvertAll(ctx)
			return messages.BatchDoneMsg{Result: res, Err: err}
		}

	case key.Matches(msg, m.keys.Cancel):
		if m.orch.Cancel() {
			m.statusBar.SetText("cancelling")
		}

	case key.Matches(msg, m.keys.Close):
		if err := m.orch.CloseModel(); err != nil {
			m.statusBar.SetText(describeResult("close", err))
		} else {
			m.statusBar.SetText("model closed")
		}

	case key.Matches(msg, m.keys.NextMesh):
		m.selectMesh(m.inspector.Selected() + 1)

	case key.Matches(msg, m.keys.PrevMesh):
		m.selectMesh(m.inspector.Selected() - 1)

	case key.Matches(msg, m.keys.Verbosity):
		next := (m.orch.Verbosity() + 1) % logsink.Severity(len(logsink.Severities))
		m.orch.SetVerbosity(next)
		m.logPane.SetVerbosity(next)
		m.statusBar.SetText("log level " + next.String())

	case key.Matches(msg, m.keys.ClearLog):
		m.orch.ClearLog()

	case key.Matches(msg, m.keys.LogUp), key.Matches(msg, m.keys.LogDown):
		return m, m.logPane.Update(msg)
	}
	return m, nil
}

func (m *Model) selectMesh(idx int) {
	if err := m.orch.SelectMesh(idx); err != nil {
		return
	}
	m.inspector.Select(idx)
}

// Getters used by the views.

func (m *Model) FileList() *components.FileList           { return m.fileList }
func (m *Model) Inspector() *components.MeshInspector     { return m.inspector }
func (m *Model) LogPane() *components.LogPane             { return m.logPane }
func (m *Model) StatusBar() *components.StatusBar         { return m.statusBar }
func (m *Model) Theme() styles.Theme                      { return m.theme }
func (m *Model) ShowHelp() bool                           { return m.showHelp }
func (m *Model) Width() int                               { return m.width }
func (m *Model) HelpView() string                         { return m.help.View(m.keys) }
func (m *Model) Keys() KeyMap                             { return m.keys }
func (m *Model) Version() string                          { return m.version }
func (m *Model) OnlyImportable() bool                     { return m.onlyImportable }
func (m *Model) Orchestrator() *orchestrator.Orchestrator { return m.orch }
