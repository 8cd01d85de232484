package cmd

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/recallkit/recall/internal/config"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/recallcli"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	out := runApp(t, "version")
	require.Contains(t, out, "recall 1.0.0-test")
	require.Contains(t, out, "Build: today=abc")
}

func TestCaptureLifecycle(t *testing.T) {
	c, _ := newTestDaemon(t)

	out := runApp(t, "capture", "--id", "n1", "--kind", "note", twentyWords)
	require.Contains(t, out, "Captured note n1")
	require.Contains(t, out, "Scheduled 3 recall(s)")
	require.Contains(t, out, "10m recall")

	out = runApp(t, "capture", "--id", "n1", twentyWords)
	require.Contains(t, out, "Item already known")

	out = runApp(t, "capture", "--id", "short", "too few words")
	require.Contains(t, out, "Too short to recall")

	out = runApp(t, "bookmark", "n1")
	require.Contains(t, out, "Scheduled 3 recall(s)")
	out = runApp(t, "bookmark", "n1")
	require.Contains(t, out, "n1 was already bookmarked")
	require.Contains(t, out, "No recalls added")

	out = runApp(t, "snooze", "n1")
	require.Contains(t, out, "Snoozed n1 until")

	out = runApp(t, "list", "--item", "n1")
	require.Contains(t, out, "Here are your recalls:")
	require.Contains(t, out, "10m recall")
	require.Contains(t, out, "snoozed 1h")
	require.Equal(t, 7, strings.Count(out, "pending"))

	out = runApp(t, "stats")
	require.Contains(t, out, fmt.Sprintf("%-11s %d", store.StatusPending, 7))
	require.Contains(t, out, fmt.Sprintf("%-11s %d", store.StatusSent, 0))

	out = runApp(t, "activate")
	require.Contains(t, out, "Delivered 0, failed 0")
	out = runApp(t, "stats")
	require.Contains(t, out, "last activation: rpc")

	out = runApp(t, "spotlight")
	require.Contains(t, out, "Nothing to recall right now")

	recs, err := c.Store.ListByItem(context.Background(), "n1")
	require.NoError(t, err)
	out = runApp(t, "dismiss", recs[0].ID)
	require.Contains(t, out, "Dismissed")
	out = runApp(t, "dismiss", recs[0].ID)
	require.Contains(t, out, "Already dismissed")

	out = runApp(t, "cancel", "n1")
	require.Contains(t, out, "Cancelled 6 recall(s)")

	out = runApp(t, "delete", "n1")
	require.Contains(t, out, "Deleted n1")
	out = runApp(t, "delete", "n1")
	assertErrorFormat(t, out, "delete", "delete")
	require.Contains(t, out, "not found")

	out = runApp(t, "list", "--item", "n1")
	require.Contains(t, out, "recall: no recalls found")
}

func TestCapture_StdinAndCreatedAt(t *testing.T) {
	newTestDaemon(t)
	old := stdin
	stdin = strings.NewReader(twentyWords + "\n")
	t.Cleanup(func() { stdin = old })

	created := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	out := runApp(t, "capture", "--id", "old", "--kind", "task", "--created-at", created, "-")
	require.Contains(t, out, "Captured task old")

	out = runApp(t, "spotlight")
	require.Contains(t, out, "Recall (10m recall, task old)")
	require.Contains(t, out, twentyWords)
}

func TestCapture_Errors(t *testing.T) {
	newTestDaemon(t)

	out := runApp(t, "capture", "--created-at", "yesterday", "some text")
	assertErrorFormat(t, out, "capture", "parse_created_at")

	out = runApp(t, "capture", "--kind", "photo", "some text")
	assertErrorFormat(t, out, "capture", "register")

	out = runApp(t, "capture")
	require.Contains(t, out, "expected 1 argument(s)")
}

func TestList_InvalidStatus(t *testing.T) {
	newTestDaemon(t)
	out := runApp(t, "list", "--status", "bogus")
	assertErrorFormat(t, out, "list", "get_list")
}

func TestScoreCommands(t *testing.T) {
	c, _ := newTestDaemon(t)
	runApp(t, "capture", "--id", "a", twentyWords)
	runApp(t, "capture", "--id", "b", twentyWords)

	out := runApp(t, "score", "relate", "a", "b")
	require.Contains(t, out, "Related")
	out = runApp(t, "score", "relate", "a", "b")
	require.Contains(t, out, "Items were already related")

	out = runApp(t, "score", "signal", "a", "open")
	require.Contains(t, out, "Score of a is now 15")

	out = runApp(t, "score", "signal", "a", "wave")
	assertErrorFormat(t, out, "score", "signal")

	out = runApp(t, "score", "view", "b", "enter")
	require.Empty(t, strings.TrimSpace(out))
	out = runApp(t, "score", "view", "b", "leave")
	require.NotContains(t, out, "recall: score")

	it, err := c.Store.GetItem(context.Background(), "b")
	require.NoError(t, err)
	require.Equal(t, 10, it.InteractionScore)
}

func TestGetClient_MissingSecret(t *testing.T) {
	stubConfig(t, config.Default(t.TempDir()))
	out := runApp(t, "stats")
	assertErrorFormat(t, out, "stats", "load_config")
}

func TestGetClient_WrongSecret(t *testing.T) {
	_, cfg := newTestDaemon(t)
	cfg.RPCSecret = "not-the-secret"
	stubConfig(t, cfg)
	out := runApp(t, "spotlight")
	assertErrorFormat(t, out, "spotlight", "get_spotlight")
}

func TestDaemonUnreachable(t *testing.T) {
	t.Setenv(recallcli.VersionCheckEnv, "1")
	cfg := config.Default(t.TempDir())
	cfg.RPCSecret = testSecret
	cfg.Listen = "127.0.0.1:1"
	stubConfig(t, cfg)
	out := runApp(t, "activate")
	assertErrorFormat(t, out, "activate", "activate")
}
