package components

import (
	"fmt"
	"strings"

	"modeltool/internal/tui/styles"
	"modeltool/pkg/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// FileList renders the working directory listing with a cursor.
type FileList struct {
	files      []types.FileEntry
	cursor     int
	offset     int
	height     int
	currentDir string
	theme      styles.Theme
}

func NewFileList(theme styles.Theme) *FileList {
	return &FileList{theme: theme, height: 15}
}

// SetFiles replaces the listing. The cursor stays on the same path when it
// is still listed.
func (fl *FileList) SetFiles(files []types.FileEntry) {
	var current string
	if f := fl.CurrentFile(); f != nil {
		current = f.Path
	}
	fl.files = files
	fl.cursor = 0
	for i, f := range files {
		if f.Path == current {
			fl.cursor = i
			break
		}
	}
	fl.clampOffset()
}

func (fl *FileList) SetCurrentDir(dir string) {
	if dir != fl.currentDir {
		fl.cursor, fl.offset = 0, 0
	}
	fl.currentDir = dir
}

// SetHeight sets the number of visible rows.
func (fl *FileList) SetHeight(h int) {
	if h < 1 {
		h = 1
	}
	fl.height = h
	fl.clampOffset()
}

func (fl *FileList) MoveCursor(delta int) {
	newPos := fl.cursor + delta
	if newPos >= 0 && newPos < len(fl.files) {
		fl.cursor = newPos
		fl.clampOffset()
	}
}

func (fl *FileList) clampOffset() {
	if fl.cursor < fl.offset {
		fl.offset = fl.cursor
	}
	if fl.cursor >= fl.offset+fl.height {
		fl.offset = fl.cursor - fl.height + 1
	}
	if fl.offset < 0 {
		fl.offset = 0
	}
}

func (fl *FileList) GetCursor() int {
	return fl.cursor
}

func (fl *FileList) Files() []types.FileEntry {
	return fl.files
}

func (fl *FileList) CurrentDir() string {
	return fl.currentDir
}

func (fl *FileList) CurrentFile() *types.FileEntry {
	if fl.cursor >= 0 && fl.cursor < len(fl.files) {
		return &fl.files[fl.cursor]
	}
	return nil
}

func (fl *FileList) View() string {
	var s strings.Builder

	s.WriteString(fl.theme.Title.Render("Directory: "+fl.currentDir) + "\n\n")

	if len(fl.files) == 0 {
		s.WriteString(fl.theme.Unselected.Render("No files found") + "\n")
		return s.String()
	}

	end := fl.offset + fl.height
	if end > len(fl.files) {
		end = len(fl.files)
	}
	for i := fl.offset; i < end; i++ {
		file := fl.files[i]

		cursor := " "
		name := fl.entryStyle(file).Render(label(file))
		if i == fl.cursor {
			cursor = ">"
			name = fl.theme.Selected.Render(label(file))
		}

		details := ""
		if !file.IsDir {
			details = fmt.Sprintf(" %8s  %s", humanize.Bytes(uint64(file.Size)), file.ModTime.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(&s, "%s %s%s\n", cursor, name, fl.theme.Unselected.Render(details))
	}
	if len(fl.files) > fl.height {
		fmt.Fprintf(&s, "%s\n", fl.theme.Help.Render(fmt.Sprintf("%d/%d", fl.cursor+1, len(fl.files))))
	}
	return s.String()
}

func (fl *FileList) entryStyle(f types.FileEntry) lipgloss.Style {
	switch {
	case f.IsDir:
		return fl.theme.Directory
	case f.Classification == types.EngineNative:
		return fl.theme.Native
	case f.Classification == types.Importable:
		return fl.theme.Importable
	default:
		return fl.theme.Unselected
	}
}

func label(f types.FileEntry) string {
	if f.IsDir {
		return f.Name + "/"
	}
	return f.Name
}
