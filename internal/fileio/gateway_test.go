package fileio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"modeltool/internal/errors"
	"modeltool/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'v'}, size), 0644))
	return path
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("/models/ship.obj"))
	assert.NoError(t, ValidatePath(`C:\models\ship.obj`))

	for _, p := range []string{"", "   ", "a*b.obj", "what?.obj", `"q".obj`, "a|b", "<x>", "nul\x00.obj", "tab\t.obj"} {
		err := ValidatePath(p)
		require.Error(t, err, p)
		assert.True(t, errors.IsInvalidPath(err), p)
		assert.True(t, errors.Is(err, errors.ErrInvalidPath), p)
	}
}

func TestReadAllProgress(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ship.obj", 10000)

	var samples []types.Progress
	var total types.Progress
	data, err := New(4096).ReadAll(context.Background(), path, func(delta float64) {
		total = total.Add(delta)
		samples = append(samples, total)
	})
	require.NoError(t, err)
	assert.Len(t, data, 10000)

	require.Len(t, samples, 3)
	for i := 1; i < len(samples); i++ {
		assert.GreaterOrEqual(t, samples[i], samples[i-1])
	}
	assert.Equal(t, types.ProgressComplete, samples[len(samples)-1])
}

func TestReadAllEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.obj", 0)

	var deltas []float64
	data, err := New(0).ReadAll(context.Background(), path, func(d float64) { deltas = append(deltas, d) })
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, []float64{100}, deltas)
}

func TestReadAllCancelled(t *testing.T) {
	path := writeFile(t, t.TempDir(), "big.obj", 64*1024)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks := 0
	data, err := New(4096).ReadAll(ctx, path, func(float64) {
		chunks++
		if chunks == 2 {
			cancel()
		}
	})
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, errors.IsCancelled(err))
	assert.Equal(t, 2, chunks)
}

func TestReadAllErrors(t *testing.T) {
	dir := t.TempDir()
	g := New(DefaultChunkSize)

	_, err := g.ReadAll(context.Background(), filepath.Join(dir, "missing.obj"), nil)
	assert.True(t, errors.IsInvalidPath(err))

	_, err = g.ReadAll(context.Background(), dir, nil)
	assert.True(t, errors.IsInvalidPath(err))

	_, err = g.ReadAll(context.Background(), filepath.Join(dir, "bad|name.obj"), nil)
	var fileErr *errors.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, filepath.Join(dir, "bad|name.obj"), fileErr.Path())
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ship.lmdl")
	payload := bytes.Repeat([]byte("mesh"), 2500)

	var total types.Progress
	err := New(4096).WriteAll(context.Background(), path, payload, func(d float64) { total = total.Add(d) })
	require.NoError(t, err)
	assert.Equal(t, types.ProgressComplete, total)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteAllCancelledLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ship.lmdl")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := New(1024).WriteAll(ctx, path, make([]byte, 8192), func(float64) { cancel() })
	require.Error(t, err)
	assert.True(t, errors.IsCancelled(err))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteAllMissingDirectory(t *testing.T) {
	err := New(0).WriteAll(context.Background(), filepath.Join(t.TempDir(), "nope", "x.lmdl"), []byte("x"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.IoError))
}
