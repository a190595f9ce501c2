package types

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// NativeExtension is the engine-native model format's file extension.
const NativeExtension = ".lmdl"

// DefaultImportExtensions is the importer allow-list used when the
// configuration does not override it.
var DefaultImportExtensions = []string{
	".dae", ".blend", ".3ds", ".ase", ".obj", ".ifc", ".xgl", ".zgl", ".ply",
	".dxf", ".lwo", ".lws", ".lxo", ".stl", ".x", ".ac", ".ms3d",
}

// Classification tells the orchestrator what opening an entry means.
type Classification int

const (
	// Other files are neither native nor on the import allow-list.
	Other Classification = iota
	// EngineNative files are already in the target representation.
	EngineNative
	// Importable files match the importer allow-list.
	Importable
)

// String returns the classification name
func (c Classification) String() string {
	switch c {
	case Other:
		return "Other"
	case EngineNative:
		return "EngineNative"
	case Importable:
		return "Importable"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

// FileEntry is an immutable snapshot of one directory listing entry.
// It becomes stale on any filesystem mutation; re-list instead of patching.
type FileEntry struct {
	Path           string         `json:"path"`
	Name           string         `json:"name"`
	Extension      string         `json:"extension"`
	IsDir          bool           `json:"is_dir"`
	Classification Classification `json:"classification"`
	Size           int64          `json:"size"`
	ModTime        time.Time      `json:"mod_time"`
}

// IsImportable reports whether the entry is a file on the import allow-list.
func (f FileEntry) IsImportable() bool {
	return !f.IsDir && f.Classification == Importable
}

// IsNative reports whether the entry is an engine-native model file.
func (f FileEntry) IsNative() bool {
	return !f.IsDir && f.Classification == EngineNative
}

// Classifier matches file names against the importer allow-list.
type Classifier struct {
	extensions []string
	importable glob.Glob
}

// NewClassifier compiles the allow-list into a single "*.{a,b,c}" glob.
// Extensions are matched case-insensitively, with or without a leading dot.
func NewClassifier(extensions []string) (*Classifier, error) {
	if len(extensions) == 0 {
		extensions = DefaultImportExtensions
	}
	alts := make([]string, 0, len(extensions))
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		e := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if e == "" {
			return nil, fmt.Errorf("empty import extension")
		}
		if strings.ContainsAny(e, "{},*?[]\\") {
			return nil, fmt.Errorf("invalid import extension %q", ext)
		}
		if "."+e == NativeExtension {
			return nil, fmt.Errorf("native extension %s cannot be importable", NativeExtension)
		}
		alts = append(alts, e)
		normalized = append(normalized, "."+e)
	}
	g, err := glob.Compile("*.{" + strings.Join(alts, ",") + "}")
	if err != nil {
		return nil, fmt.Errorf("compile import patterns: %w", err)
	}
	return &Classifier{extensions: normalized, importable: g}, nil
}

// MustClassifier is NewClassifier for known-good allow-lists.
func MustClassifier(extensions []string) *Classifier {
	c, err := NewClassifier(extensions)
	if err != nil {
		panic(err)
	}
	return c
}

// Extensions returns the normalized allow-list.
func (c *Classifier) Extensions() []string {
	out := make([]string, len(c.extensions))
	copy(out, c.extensions)
	return out
}

// Classify returns the classification of a file name.
func (c *Classifier) Classify(name string) Classification {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, NativeExtension) {
		return EngineNative
	}
	if c.importable.Match(lower) {
		return Importable
	}
	return Other
}

// Entry builds a FileEntry snapshot for path.
func (c *Classifier) Entry(path string, info os.FileInfo) FileEntry {
	entry := FileEntry{
		Path:    path,
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if !entry.IsDir {
		entry.Extension = filepath.Ext(entry.Name)
		entry.Classification = c.Classify(entry.Name)
	}
	return entry
}

// List returns a fresh snapshot of dir: subdirectories first, then files,
// each group sorted by name. Entries that vanish mid-listing are skipped.
func (c *Classifier) List(dir string) ([]FileEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var dirs, files []FileEntry
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		entry := c.Entry(filepath.Join(dir, e.Name()), info)
		if entry.IsDir {
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return append(dirs, files...), nil
}

// NativePath replaces everything from the final '.' of path's base name with
// the native extension. Paths without an extension get it appended.
func NativePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + NativeExtension
}
