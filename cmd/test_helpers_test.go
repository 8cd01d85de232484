package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/recallkit/recall/internal/config"
	"github.com/recallkit/recall/pkg/logger"
	"github.com/recallkit/recall/pkg/recallcli"
	"github.com/stretchr/testify/require"
)

const testSecret = "cmd-test-secret"

var twentyWords = strings.TrimSpace(strings.Repeat("recall ", 20))

// stubConfig makes every command see cfg.
func stubConfig(t *testing.T, cfg config.Config) {
	t.Helper()
	old := loadConfig
	loadConfig = func() (config.Config, error) { return cfg, nil }
	t.Cleanup(func() { loadConfig = old })
}

// newTestDaemon wires the daemon components over a temporary data
// directory and serves them through httptest. The runner is not started;
// activations only happen on request.
func newTestDaemon(t *testing.T) (*DaemonComponents, config.Config) {
	t.Helper()
	t.Setenv(recallcli.VersionCheckEnv, "1")

	cfg := config.Default(t.TempDir())
	cfg.RPCSecret = testSecret
	c, err := initDaemonComponents(context.Background(), cfg, logger.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(c.Close)

	srv := httptest.NewServer(c.Web.Handler())
	t.Cleanup(srv.Close)

	cfg.Listen = strings.TrimPrefix(srv.URL, "http://")
	stubConfig(t, cfg)
	return c, cfg
}

// lockedBuffer is written by progress bars and loggers concurrently.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// runApp runs the CLI with args and returns everything it printed.
func runApp(t *testing.T, args ...string) string {
	t.Helper()
	var buf lockedBuffer
	app := newApp(BuildArgs{Version: "1.0.0", BuildType: "test", Date: "today", Commit: "abc"})
	app.Writer = &buf
	app.ErrWriter = &buf
	require.NoError(t, app.Run(append([]string{"recall"}, args...)))
	return buf.String()
}

// assertErrorFormat checks that error output follows the standard format:
// recall: cmd[action]: msg
func assertErrorFormat(t *testing.T, output, cmd, action string) {
	t.Helper()
	pattern := "recall: " + cmd + "[" + action + "]:"
	if !strings.Contains(output, pattern) {
		t.Errorf("expected error format %q, got:\n%s", pattern, output)
	}
}
