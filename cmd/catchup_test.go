package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/recallkit/recall/internal/config"
	"github.com/recallkit/recall/internal/engine"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
	"github.com/stretchr/testify/require"
)

// seedOverdue captures an item an hour in the past so its first recall
// is due, then releases the store.
func seedOverdue(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.RPCSecret = testSecret
	c, err := initDaemonComponents(context.Background(), cfg, logger.NewMockLogger())
	require.NoError(t, err)
	_, err = c.Engine.RegisterContent(context.Background(), engine.Content{
		ID:        "late",
		Kind:      store.KindTask,
		Text:      twentyWords,
		CreatedAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)
	c.Close()
	stubConfig(t, cfg)
	return cfg
}

func TestCatchup_DeliversOverdue(t *testing.T) {
	cfg := seedOverdue(t)

	out := runApp(t, "catchup", "--quiet", "--prune")
	require.Contains(t, out, "Recall: 10m recall")
	require.Contains(t, out, "task/late")
	require.Contains(t, out, "Found 1 overdue, delivered 1, failed 0, skipped 0")
	require.Contains(t, out, "Pruned 0 settled and 0 stale record(s)")

	st, err := store.OpenDir(context.Background(), cfg.DataDir)
	require.NoError(t, err)
	defer st.Close()
	counts, err := st.Counts(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, counts[store.StatusSent])
	require.Equal(t, 2, counts[store.StatusPending])

	out = runApp(t, "catchup", "--quiet")
	require.Contains(t, out, "Found 0 overdue")
	require.NotContains(t, out, "Pruned")
}

func TestCatchup_ProgressBar(t *testing.T) {
	seedOverdue(t)
	out := runApp(t, "catchup")
	require.Contains(t, out, "Delivering")
	require.Contains(t, out, "delivered 1")
}
