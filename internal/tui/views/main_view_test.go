package views

import (
	"fmt"
	"testing"
	"time"

	"modeltool/internal/config"
	"modeltool/internal/logsink"
	"modeltool/internal/model"
	"modeltool/internal/tui/components"
	"modeltool/internal/tui/styles"
	"modeltool/pkg/testutils"
	"modeltool/pkg/types"

	"github.com/stretchr/testify/assert"
)

// Mock model for testing
type mockModel struct {
	fileList  *components.FileList
	inspector *components.MeshInspector
	logPane   *components.LogPane
	statusBar *components.StatusBar
	theme     styles.Theme
	showHelp  bool
	width     int
}

func newMockModel() *mockModel {
	theme := styles.FromConfig(config.New())
	return &mockModel{
		fileList:  components.NewFileList(theme),
		inspector: components.NewMeshInspector(theme),
		logPane:   components.NewLogPane(theme, 80, 5),
		statusBar: components.NewStatusBar(theme),
		theme:     theme,
	}
}

func (m *mockModel) FileList() *components.FileList       { return m.fileList }
func (m *mockModel) Inspector() *components.MeshInspector { return m.inspector }
func (m *mockModel) LogPane() *components.LogPane         { return m.logPane }
func (m *mockModel) StatusBar() *components.StatusBar     { return m.statusBar }
func (m *mockModel) Theme() styles.Theme                  { return m.theme }
func (m *mockModel) HelpView() string                     { return "enter open • q quit" }
func (m *mockModel) ShowHelp() bool                       { return m.showHelp }
func (m *mockModel) Width() int                           { return m.width }

func sampleModel() *model.Description {
	d := model.NewDescription("/models/ship.obj", 200)
	d.Bounds = model.Bounds{Center: model.Vec3{X: 1}, Extent: model.Vec3{X: 2, Y: 2, Z: 2}, Radius: 3.464}
	d.AddMesh(model.Mesh{VertexCount: 24, IndexCount: 36, Diffuse: model.NewColor(1, 0, 0, 1), DiffuseTexture: "hull.png"})
	d.AddMesh(model.Mesh{VertexCount: 8, IndexCount: 12})
	return d
}

func TestRenderMainView(t *testing.T) {
	modTime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		setup    func(m *mockModel)
		contains []string // Strings that should be present in the output
		excludes []string // Strings that should not be present in the output
	}{
		{
			name: "empty directory",
			setup: func(m *mockModel) {
				m.fileList.SetCurrentDir("/test")
			},
			contains: []string{
				"Directory: /test",
				"No files found",
				"No model loaded",
				"Idle",
				"enter open",
			},
			excludes: []string{
				"Opening a .lmdl file",
			},
		},
		{
			name: "directory with files",
			setup: func(m *mockModel) {
				m.fileList.SetCurrentDir("/test")
				m.fileList.SetFiles([]types.FileEntry{
					{Name: "parts", Path: "/test/parts", IsDir: true},
					{Name: "ship.obj", Path: "/test/ship.obj", Classification: types.Importable, Size: 1000, ModTime: modTime},
					{Name: "ship.lmdl", Path: "/test/ship.lmdl", Classification: types.EngineNative, Size: 1000 * 1000, ModTime: modTime},
				})
			},
			contains: []string{
				"> parts/",
				"ship.obj",
				"1.0 kB",
				"1.0 MB",
				"2024-05-01 12:00",
			},
		},
		{
			name: "model loaded",
			setup: func(m *mockModel) {
				m.inspector.SetModel(sampleModel())
				m.inspector.Select(1)
				m.statusBar.SetState(types.ImportComplete)
			},
			contains: []string{
				"ship.obj",
				"Meshes:",
				"Vertices:     32",
				"Indices:      48",
				"Mesh 2/2",
				"Normal map:   (none)",
				"ImportComplete",
			},
		},
		{
			name: "operation in flight",
			setup: func(m *mockModel) {
				m.statusBar.SetState(types.Importing)
				m.statusBar.SetProgress(42.5)
				m.statusBar.SetText("opening ship.obj")
			},
			contains: []string{
				"Importing",
				"42.5%",
				"opening ship.obj",
			},
		},
		{
			name: "log records",
			setup: func(m *mockModel) {
				m.logPane.SetVerbosity(logsink.Warning)
				m.logPane.SetRecords([]logsink.Record{
					{Time: modTime, Text: "import failed", Severity: logsink.Error},
					{Time: modTime, Text: "unknown statement", Severity: logsink.Warning},
				})
			},
			contains: []string{
				"≤ Warning",
				"12:00:00 [Error] import failed",
				"12:00:00 [Warning] unknown statement",
			},
		},
		{
			name: "with help shown",
			setup: func(m *mockModel) {
				m.showHelp = true
			},
			contains: []string{
				"Opening a .lmdl file reads it as is",
			},
		},
		{
			name: "narrow terminal stacks panes",
			setup: func(m *mockModel) {
				m.width = 20
				m.inspector.SetModel(sampleModel())
			},
			contains: []string{
				"Directory:",
				"Mesh 1/2",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockModel()
			tt.setup(m)
			output := testutils.StripANSI(RenderMainView(m))

			// Check required strings are present
			for _, s := range tt.contains {
				assert.Contains(t, output, s, fmt.Sprintf("output should contain '%s'", s))
			}

			// Check excluded strings are not present
			for _, s := range tt.excludes {
				assert.NotContains(t, output, s, fmt.Sprintf("output should not contain '%s'", s))
			}
		})
	}
}

func TestRenderHelp(t *testing.T) {
	output := RenderHelp(styles.FromConfig(nil))
	for _, phrase := range []string{".lmdl", "convert all", "importable"} {
		assert.Contains(t, output, phrase)
	}
}
