package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/recallkit/recall/internal/config"
	"github.com/recallkit/recall/internal/engine"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestGetPidFilePath(t *testing.T) {
	dir := t.TempDir()
	path := getPidFilePath(dir)
	if filepath.Dir(path) != dir {
		t.Fatalf("expected path in %s, got %s", dir, path)
	}
	if filepath.Base(path) != pidFileName {
		t.Fatalf("expected base name %s, got %s", pidFileName, filepath.Base(path))
	}
}

func TestWritePidFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	if err := WritePidFile(dir); err != nil {
		t.Fatalf("WritePidFile: %v", err)
	}
	pid, err := ReadPidFile(dir)
	if err != nil {
		t.Fatalf("ReadPidFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("expected PID %d, got %d", os.Getpid(), pid)
	}
	if !isProcessRunning(pid) {
		t.Fatal("own process must be reported as running")
	}
}

func TestReadPidFile_NotExist(t *testing.T) {
	_, err := ReadPidFile(t.TempDir())
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestReadPidFile_Invalid(t *testing.T) {
	for _, content := range []string{"abc", "-4", "0"} {
		dir := t.TempDir()
		if err := os.WriteFile(getPidFilePath(dir), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadPidFile(dir); err == nil {
			t.Fatalf("expected error for %q", content)
		}
	}
}

func TestRemovePidFile(t *testing.T) {
	dir := t.TempDir()
	if err := WritePidFile(dir); err != nil {
		t.Fatal(err)
	}
	if err := RemovePidFile(dir); err != nil {
		t.Fatalf("RemovePidFile: %v", err)
	}
	if err := RemovePidFile(dir); err != nil {
		t.Fatalf("removing twice must not fail: %v", err)
	}
}

func TestStopDaemon_NoPidFile(t *testing.T) {
	stubConfig(t, config.Default(t.TempDir()))
	out := runApp(t, "stop")
	require.Contains(t, out, "Daemon is not running")
}

func TestStopDaemon_StalePid(t *testing.T) {
	dir := t.TempDir()
	stubConfig(t, config.Default(dir))
	// PIDs are bounded well below this on every supported platform.
	require.NoError(t, os.WriteFile(getPidFilePath(dir), []byte(strconv.Itoa(1<<30)), 0o644))
	out := runApp(t, "stop")
	require.Contains(t, out, "Error stopping daemon")
}

func TestDaemonLogger_WritesFile(t *testing.T) {
	cfg := config.Default(t.TempDir())
	l, closeLog, err := daemonLogger(cfg)
	require.NoError(t, err)
	l.Info("hello %d", 42)
	l.Debug("hidden")
	closeLog()

	data, err := os.ReadFile(filepath.Join(cfg.DataDir, logFileName))
	require.NoError(t, err)
	require.Contains(t, string(data), "hello 42")
	require.NotContains(t, string(data), "hidden")
}

func TestInitDaemonComponents_Run(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.RPCSecret = testSecret
	cfg.Listen = "127.0.0.1:0"
	c, err := initDaemonComponents(context.Background(), cfg, logger.NewMockLogger())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := c.Runner.Last()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	require.True(t, c.Runner.IsRunning())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestInitDaemonComponents_LogOnlySurface(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.RPCSecret = testSecret
	cfg.Surfaces = []string{config.SurfaceLog}
	log := logger.NewMockLogger()
	c, err := initDaemonComponents(context.Background(), cfg, log)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.Engine.RegisterContent(ctx, engine.Content{
		ID:        "n1",
		Kind:      store.KindNote,
		Text:      twentyWords,
		CreatedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	res, err := c.Runner.Activate(ctx, "manual")
	require.NoError(t, err)
	require.Equal(t, 1, res.Scan.Delivered)
	require.Equal(t, 0, c.Notifier.Count())
}

func TestInitDaemonComponents_BadDataDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cfg := config.Default(filepath.Join(file, "sub"))
	cfg.RPCSecret = testSecret
	_, err := initDaemonComponents(context.Background(), cfg, logger.NewMockLogger())
	require.Error(t, err)
}
