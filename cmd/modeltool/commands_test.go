package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"modeltool/pkg/testutils"
	"modeltool/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// runCommand executes the root command against a config file that does not
// exist, so every run uses the built-in defaults.
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCommandContext(t, context.Background(), args...)
}

func runCommandContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(ctx)
	return testutils.StripANSI(stdout.String()), testutils.StripANSI(stderr.String()), err
}

func modelDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutils.CreateTestFilesWithDefault(t, dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "parts"), 0755))
	return dir
}

func TestHelpListsCommands(t *testing.T) {
	out, _, err := runCommand(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"list", "inspect", "convert", "convert-all", "watch", "tui"} {
		assert.Contains(t, out, name)
	}
}

func TestListCommand(t *testing.T) {
	dir := modelDir(t)

	out, _, err := runCommand(t, "list", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Directory: "+dir)
	assert.Contains(t, out, "parts/")
	assert.Regexp(t, `a\.lmdl\s+native`, out)
	assert.Regexp(t, `b\.obj\s+importable`, out)
	assert.Regexp(t, `notes\.txt\s+other`, out)

	// Directories come first
	assert.Less(t, strings.Index(out, "parts/"), strings.Index(out, "a.lmdl"))

	out, _, err = runCommand(t, "list", "--models", dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "notes.txt")
	assert.Contains(t, out, "b.obj")
}

func TestListRejectsMissingDirectory(t *testing.T) {
	_, _, err := runCommand(t, "list", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	dir := modelDir(t)
	path := filepath.Join(dir, "b.obj")

	t.Run("text", func(t *testing.T) {
		out, _, err := runCommand(t, "inspect", path)
		require.NoError(t, err)
		assert.Regexp(t, `Meshes:\s+1`, out)
		assert.Regexp(t, `Vertices:\s+3`, out)
		assert.Contains(t, out, "Mesh 1/1")
		assert.Regexp(t, `Normal map:\s+\(none\)`, out)
	})

	t.Run("yaml", func(t *testing.T) {
		out, _, err := runCommand(t, "inspect", "--format", "yaml", path)
		require.NoError(t, err)
		var r report
		require.NoError(t, yaml.Unmarshal([]byte(out), &r))
		assert.Equal(t, 1, r.Meshes)
		assert.Equal(t, 3, r.Vertices)
		assert.Equal(t, 3, r.Indices)
		require.Len(t, r.MeshList, 1)
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := runCommand(t, "inspect", "-f", "json", path)
		require.NoError(t, err)
		var r report
		require.NoError(t, json.Unmarshal([]byte(out), &r))
		assert.Equal(t, path, r.Path)
		assert.Equal(t, 200, r.FileVersion)
	})

	t.Run("native file", func(t *testing.T) {
		out, _, err := runCommand(t, "inspect", filepath.Join(dir, "a.lmdl"))
		require.NoError(t, err)
		assert.Contains(t, out, "already in the native format")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := runCommand(t, "inspect", "--format", "xml", path)
		require.Error(t, err)
	})
}

func TestConvertCommand(t *testing.T) {
	dir := modelDir(t)

	out, _, err := runCommand(t, "convert", filepath.Join(dir, "b.obj"))
	require.NoError(t, err)
	assert.Contains(t, out, "Converted b.obj")

	data, err := os.ReadFile(filepath.Join(dir, "b.lmdl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "format: lmdl")

	dest := filepath.Join(t.TempDir(), "out.lmdl")
	_, _, err = runCommand(t, "convert", "--out", dest, filepath.Join(dir, "c.obj"))
	require.NoError(t, err)
	assert.FileExists(t, dest)
	assert.NoFileExists(t, filepath.Join(dir, "c.lmdl"))
}

func TestConvertCommandErrors(t *testing.T) {
	dir := modelDir(t)
	testutils.CreateTestFilesWithContent(t, dir, map[string]string{"broken.obj": "v 1 2\n"})

	_, _, err := runCommand(t, "convert", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "convert-all")

	_, stderr, err := runCommand(t, "convert", filepath.Join(dir, "broken.obj"))
	require.Error(t, err)
	assert.Contains(t, stderr, "[Error]")
	assert.NoFileExists(t, filepath.Join(dir, "broken.lmdl"))
}

func TestConvertAllCommand(t *testing.T) {
	dir := modelDir(t)

	out, _, err := runCommand(t, "convert-all", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Converted 2 of 2 files")
	assert.FileExists(t, filepath.Join(dir, "b.lmdl"))
	assert.FileExists(t, filepath.Join(dir, "c.lmdl"))
}

func TestConvertAllReportsFailures(t *testing.T) {
	dir := modelDir(t)
	testutils.CreateTestFilesWithContent(t, dir, map[string]string{"broken.obj": "v 1 2\n"})

	out, _, err := runCommand(t, "convert-all", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 files failed")
	assert.Contains(t, out, "fail  broken.obj")
	assert.Contains(t, out, "Converted 2 of 3 files")

	// Later items still ran
	assert.FileExists(t, filepath.Join(dir, "c.lmdl"))
}

func TestWatchCommandConverts(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFilesWithContent(t, dir, map[string]string{"ship.obj": testutils.TriangleOBJ})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	var out string
	go func() {
		var err error
		out, _, err = runCommandContext(t, ctx, "watch", "--convert", dir)
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "ship.lmdl"))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, out, "Watching "+dir)
	assert.Contains(t, out, "Converted 1 of 1 files")
}

func TestNeedsConversion(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFilesWithContent(t, dir, map[string]string{
		"a.obj":  testutils.TriangleOBJ,
		"a.lmdl": "format: lmdl\n",
	})
	src := filepath.Join(dir, "a.obj")
	now := time.Now()
	entry := types.FileEntry{Path: src, Name: "a.obj", Classification: types.Importable, ModTime: now}

	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.lmdl"), now, now.Add(time.Minute)))
	assert.False(t, needsConversion([]types.FileEntry{entry}))

	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.lmdl"), now, now.Add(-time.Minute)))
	assert.True(t, needsConversion([]types.FileEntry{entry}))

	missing := types.FileEntry{Path: filepath.Join(dir, "b.obj"), Name: "b.obj", Classification: types.Importable, ModTime: now}
	assert.True(t, needsConversion([]types.FileEntry{missing}))

	other := types.FileEntry{Path: filepath.Join(dir, "notes.txt"), Name: "notes.txt", Classification: types.Other}
	assert.False(t, needsConversion([]types.FileEntry{other}))
}

func TestRejectsInvalidVerbosity(t *testing.T) {
	_, _, err := runCommand(t, "--verbosity", "loud", "list", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbosity")
}

func TestThemeFlag(t *testing.T) {
	dir := modelDir(t)

	out, _, err := runCommand(t, "--theme", "monochrome", "list", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "b.obj")

	_, _, err = runCommand(t, "--theme", "neon", "list", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown theme "neon"`)

	out, _, err = runCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "default, dark, light, monochrome")
}

func TestExplicitConfigErrorIsFatal(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log: [unterminated"), 0644))

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "list", t.TempDir()})
	require.Error(t, cmd.Execute())
}
