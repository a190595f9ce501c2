package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TriangleOBJ is the smallest Wavefront file the reference engine accepts.
const TriangleOBJ = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

// CreateTestFilesWithContent creates test files with specific content
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
		require.NoError(t, err)
	}
}

// CreateTestFilesWithDefault creates one native, two importable and one
// unrelated file.
func CreateTestFilesWithDefault(t *testing.T, dir string) {
	files := map[string]string{
		"a.lmdl":    "format: lmdl\n",
		"b.obj":     TriangleOBJ,
		"c.obj":     TriangleOBJ,
		"notes.txt": "not a model",
	}
	CreateTestFilesWithContent(t, dir, files)
}

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	var result []rune
	inEscape := false
	for _, r := range str {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				inEscape = false
			}
			continue
		}
		result = append(result, r)
	}
	return string(result)
}
