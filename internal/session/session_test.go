package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"modeltool/internal/config"
	"modeltool/internal/session"
	"modeltool/pkg/testutils"
	"modeltool/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listed(entries []types.FileEntry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

func TestSessionRefreshesOnDirectoryChange(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFilesWithDefault(t, dir)

	cfg := config.New()
	cfg.Watch.DebounceMS = 20
	s, err := session.New(cfg, session.WithEngine(testutils.NewStubEngine()))
	require.NoError(t, err)
	defer s.Close()
	require.True(t, s.Watching())

	orch := s.Orchestrator()
	require.NoError(t, orch.ChangeDirectory(context.Background(), dir))
	assert.Equal(t, types.Ready, orch.State().Get())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "d.stl"), []byte("solid"), 0644))
	require.Eventually(t, func() bool {
		return listed(orch.Listing().Get(), "d.stl")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("session did not stop")
	}
}

func TestSessionWithoutWatcher(t *testing.T) {
	s, err := session.New(config.New(), session.WithEngine(testutils.NewStubEngine()), session.WithoutWatcher())
	require.NoError(t, err)
	defer s.Close()
	assert.False(t, s.Watching())
	assert.Empty(t, s.MetricsAddr())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.Run(ctx))
}

func TestSessionServesMetrics(t *testing.T) {
	s, err := session.New(config.New(),
		session.WithEngine(testutils.NewStubEngine()),
		session.WithoutWatcher(),
		session.WithMetricsAddr("127.0.0.1:0"),
	)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, "127.0.0.1:0", s.MetricsAddr())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, s.Run(ctx))
}

func TestSessionRejectsBadExtensions(t *testing.T) {
	cfg := config.New()
	cfg.Import.Extensions = []string{".lmdl"}
	_, err := session.New(cfg)
	require.Error(t, err)
}

func TestStartDir(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	cfg.Directories.Default = dir

	s, err := session.New(cfg, session.WithoutWatcher())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.StartDir("")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = s.StartDir("relative")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))

	_, err = s.StartDir("bad|name")
	assert.Error(t, err)
}
