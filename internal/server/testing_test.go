package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/recallkit/recall/internal/daemon"
	"github.com/recallkit/recall/internal/engine"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
)

const testSecret = "test-rpc-secret"

var t0 = time.Date(2026, 7, 1, 8, 30, 0, 0, time.UTC)

var twentyWords = strings.TrimSpace(strings.Repeat("word ", 20))

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeActivator struct {
	mu    sync.Mutex
	calls []string
	last  *daemon.Result
}

func (f *fakeActivator) Activate(_ context.Context, reason string) (daemon.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, reason)
	res := daemon.Result{Trigger: reason, At: t0, Armed: 2}
	f.last = &res
	return res, nil
}

func (f *fakeActivator) Last() (daemon.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return daemon.Result{}, false
	}
	return *f.last, true
}

func (f *fakeActivator) PendingTimers() int { return 3 }

type fixture struct {
	clock    *clock
	store    *store.Store
	engine   *engine.Engine
	daemon   *fakeActivator
	notifier *RPCNotifier
	registry *prometheus.Registry
	web      *WebServer
	handler  http.Handler
}

// newFixture wires a WebServer over a real engine and store. A nil act
// leaves the daemon unavailable.
func newFixture(t *testing.T, act *fakeActivator) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), store.DBFileName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	clk := &clock{now: t0}
	eng, err := engine.New(engine.Options{
		Store:           st,
		Logger:          logger.NewMockLogger(),
		Now:             clk.Now,
		Snooze:          time.Hour,
		SpotlightWindow: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	var a Activator
	if act != nil {
		a = act
	}
	rpc := NewRPCServer(&RPCConfig{Secret: testSecret, Version: "1.0.0", Commit: "abc123"}, eng, a, nil)
	n := NewRPCNotifier(nil)
	reg := prometheus.NewRegistry()
	ws := NewWebServer(WebConfig{Listen: "127.0.0.1:0"}, rpc, n, reg, nil)
	t.Cleanup(func() { _ = ws.Shutdown(context.Background()) })

	return &fixture{
		clock:    clk,
		store:    st,
		engine:   eng,
		daemon:   act,
		notifier: n,
		registry: reg,
		web:      ws,
		handler:  ws.Handler(),
	}
}

// rpcResponse is a decoded JSON-RPC 2.0 response.
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// rpcCall sends a JSON-RPC request through the handler and returns the
// HTTP status and the parsed response.
func rpcCall(t *testing.T, h http.Handler, method string, params any, authToken string) (int, rpcResponse) {
	t.Helper()
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"id":      1,
	}
	if params != nil {
		reqBody["params"] = params
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, PathRPC, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	body, _ := io.ReadAll(rr.Result().Body)
	var out rpcResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("unmarshal response: %v (body: %s)", err, string(body))
		}
	}
	return rr.Code, out
}

// call performs an authorized call that must succeed and decodes the
// result into out.
func (f *fixture) call(t *testing.T, method string, params, out any) {
	t.Helper()
	code, resp := rpcCall(t, f.handler, method, params, testSecret)
	if code != http.StatusOK {
		t.Fatalf("%s: HTTP %d", method, code)
	}
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error %d %s", method, resp.Error.Code, resp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			t.Fatalf("%s: decode result: %v (%s)", method, err, resp.Result)
		}
	}
}

// callErr performs an authorized call that must fail and returns the
// JSON-RPC error code.
func (f *fixture) callErr(t *testing.T, method string, params any) int {
	t.Helper()
	_, resp := rpcCall(t, f.handler, method, params, testSecret)
	if resp.Error == nil {
		t.Fatalf("%s: expected error, got result %s", method, resp.Result)
	}
	return resp.Error.Code
}
