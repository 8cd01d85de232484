package server

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/recallkit/recall/common"
	"github.com/recallkit/recall/internal/daemon"
	"github.com/recallkit/recall/internal/engine"
	"github.com/recallkit/recall/internal/scoring"
	"github.com/recallkit/recall/internal/store"
	"github.com/recallkit/recall/pkg/logger"
)

// Custom JSON-RPC error codes for recall operations.
const (
	codeNotFound      = jrpc2.Code(-32001)
	codeDuplicate     = jrpc2.Code(-32002)
	codeUnavailable   = jrpc2.Code(-32003)
	codeInvalidParams = jrpc2.Code(-32602)
	codeInternal      = jrpc2.Code(-32603)
)

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // Auth token (required -- empty means RPC disabled)
	Version   string // Daemon version
	Commit    string // Git commit
	BuildType string // Build type
}

// Activator runs daemon activations on demand. *daemon.Runner satisfies it.
type Activator interface {
	Activate(ctx context.Context, reason string) (daemon.Result, error)
	Last() (daemon.Result, bool)
	PendingTimers() int
}

// RPCServer manages the JSON-RPC 2.0 bridge and method handlers.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	secret    string
	version   string
	commit    string
	buildType string
	engine    *engine.Engine
	daemon    Activator
	log       logger.Logger
	closeOnce sync.Once
}

// NewRPCServer creates a new RPCServer with method handlers and HTTP bridge.
// act may be nil, in which case daemon.activate reports the daemon as
// unavailable.
func NewRPCServer(cfg *RPCConfig, eng *engine.Engine, act Activator, l logger.Logger) *RPCServer {
	rs := &RPCServer{
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
		engine:    eng,
		daemon:    act,
		log:       logger.OrNop(l),
	}

	rs.methods = handler.Map{
		common.MethodVersion:   handler.New(rs.systemGetVersion),
		common.MethodRegister:  handler.New(rs.contentRegister),
		common.MethodBookmark:  handler.New(rs.contentBookmark),
		common.MethodCancel:    handler.New(rs.contentCancel),
		common.MethodDelete:    handler.New(rs.contentDelete),
		common.MethodSnooze:    handler.New(rs.recallSnooze),
		common.MethodDismiss:   handler.New(rs.recallDismiss),
		common.MethodSpotlight: handler.New(rs.recallSpotlight),
		common.MethodList:      handler.New(rs.recallList),
		common.MethodStats:     handler.New(rs.recallStats),
		common.MethodActivate:  handler.New(rs.daemonActivate),
		common.MethodSignal:    handler.New(rs.scoreSignal),
		common.MethodRelate:    handler.New(rs.scoreRelate),
		common.MethodView:      handler.New(rs.scoreView),
	}

	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// rpcError maps store sentinels onto the custom error codes.
func rpcError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &jrpc2.Error{Code: codeNotFound, Message: err.Error()}
	case errors.Is(err, store.ErrDuplicateKey):
		return &jrpc2.Error{Code: codeDuplicate, Message: err.Error()}
	case errors.Is(err, scoring.ErrNotReportable):
		return &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	}
	return &jrpc2.Error{Code: codeInternal, Message: err.Error()}
}

func missing(param string) error {
	return &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: " + param}
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	return &common.VersionResult{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.buildType,
	}, nil
}

// contentRegister mirrors a captured item and plans its recalls. Store
// failures do not reject the capture; they are reported as a warning.
func (rs *RPCServer) contentRegister(ctx context.Context, p *common.RegisterParams) (*common.RegisterResult, error) {
	if p.ID == "" {
		return nil, missing("id")
	}
	kind, err := store.ParseKind(p.Kind)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	}
	reg, err := rs.engine.RegisterContent(ctx, engine.Content{
		ID:        p.ID,
		Kind:      kind,
		Text:      p.Text,
		CreatedAt: p.CreatedAt,
	})
	res := &common.RegisterResult{
		ItemID:    p.ID,
		Accepted:  true,
		Created:   reg.Created,
		Scheduled: reg.Scheduled,
	}
	if err != nil {
		rs.log.Warning("capture of %s accepted without full schedule: %v", p.ID, err)
		res.Warning = err.Error()
	}
	return res, nil
}

func (rs *RPCServer) contentBookmark(ctx context.Context, p *common.ItemParam) (*common.BookmarkResult, error) {
	if p.ItemID == "" {
		return nil, missing("itemId")
	}
	ext, err := rs.engine.ExtendOnBookmark(ctx, p.ItemID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.BookmarkResult{ItemID: ext.ItemID, Placed: ext.Placed, Scheduled: ext.Scheduled}, nil
}

func (rs *RPCServer) contentCancel(ctx context.Context, p *common.ItemParam) (*common.CancelResult, error) {
	if p.ItemID == "" {
		return nil, missing("itemId")
	}
	n, err := rs.engine.CancelSchedules(ctx, p.ItemID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.CancelResult{Cancelled: n}, nil
}

func (rs *RPCServer) contentDelete(ctx context.Context, p *common.ItemParam) (*common.EmptyResult, error) {
	if p.ItemID == "" {
		return nil, missing("itemId")
	}
	if err := rs.engine.DeleteContent(ctx, p.ItemID); err != nil {
		return nil, rpcError(err)
	}
	return &common.EmptyResult{}, nil
}

// recallSnooze snoozes by item, or by record when the snooze comes from a
// surfaced notification.
func (rs *RPCServer) recallSnooze(ctx context.Context, p *common.SnoozeParams) (*common.RecordResult, error) {
	var (
		r   store.Record
		err error
	)
	switch {
	case p.ItemID != "" && p.RecordID != "":
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "itemId and recordId are mutually exclusive"}
	case p.RecordID != "":
		r, err = rs.engine.SnoozeRecord(ctx, p.RecordID)
	case p.ItemID != "":
		r, err = rs.engine.Snooze(ctx, p.ItemID)
	default:
		return nil, missing("itemId or recordId")
	}
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.RecordResult{Record: r}, nil
}

func (rs *RPCServer) recallDismiss(ctx context.Context, p *common.RecordParam) (*common.DismissResult, error) {
	if p.RecordID == "" {
		return nil, missing("recordId")
	}
	ok, err := rs.engine.Dismiss(ctx, p.RecordID)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.DismissResult{Dismissed: ok}, nil
}

func (rs *RPCServer) recallSpotlight(ctx context.Context) (*common.SpotlightResult, error) {
	r, ok, err := rs.engine.GetDueSpotlight(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	if !ok {
		return &common.SpotlightResult{}, nil
	}
	return &common.SpotlightResult{Found: true, Record: &r}, nil
}

func (rs *RPCServer) recallList(ctx context.Context, p *common.ListParams) (*common.ListResult, error) {
	f := store.ListFilter{ItemID: p.ItemID, Limit: p.Limit}
	for _, s := range p.Status {
		st := store.Status(strings.ToLower(s))
		if !st.IsValid() {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "invalid status: " + s}
		}
		f.Statuses = append(f.Statuses, st)
	}
	if p.Limit < 0 {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "limit must not be negative"}
	}
	recs, err := rs.engine.Records(ctx, f)
	if err != nil {
		return nil, rpcError(err)
	}
	if recs == nil {
		recs = []store.Record{}
	}
	return &common.ListResult{Records: recs}, nil
}

func (rs *RPCServer) recallStats(ctx context.Context) (*common.StatsResult, error) {
	counts, err := rs.engine.Stats(ctx)
	if err != nil {
		return nil, rpcError(err)
	}
	res := &common.StatsResult{Counts: counts}
	if rs.daemon != nil {
		res.PendingTimers = rs.daemon.PendingTimers()
		if last, ok := rs.daemon.Last(); ok {
			res.LastActivation = &last
		}
	}
	return res, nil
}

func (rs *RPCServer) daemonActivate(ctx context.Context) (*daemon.Result, error) {
	if rs.daemon == nil {
		return nil, &jrpc2.Error{Code: codeUnavailable, Message: "delivery daemon not running"}
	}
	res, err := rs.daemon.Activate(ctx, daemon.TriggerRPC)
	if err != nil {
		return nil, rpcError(err)
	}
	return &res, nil
}

func (rs *RPCServer) scoreSignal(ctx context.Context, p *common.SignalParams) (*common.ScoreResult, error) {
	if p.ItemID == "" {
		return nil, missing("itemId")
	}
	s, err := scoring.ParseReported(p.Signal)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	}
	score, err := rs.engine.RecordSignal(ctx, p.ItemID, s)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.ScoreResult{Score: score}, nil
}

func (rs *RPCServer) scoreRelate(ctx context.Context, p *common.RelateParams) (*common.RelateResult, error) {
	if p.A == "" || p.B == "" {
		return nil, missing("a and b")
	}
	if p.A == p.B {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "an item cannot relate to itself"}
	}
	created, err := rs.engine.Relate(ctx, p.A, p.B)
	if err != nil {
		return nil, rpcError(err)
	}
	return &common.RelateResult{Created: created}, nil
}

func (rs *RPCServer) scoreView(ctx context.Context, p *common.ViewParams) (*common.ViewResult, error) {
	if p.ItemID == "" {
		return nil, missing("itemId")
	}
	switch p.Event {
	case common.ViewEnter:
		rs.engine.ViewEnter(p.ItemID)
		return &common.ViewResult{}, nil
	case common.ViewLeave:
		counted, err := rs.engine.ViewLeave(ctx, p.ItemID)
		if err != nil {
			return nil, rpcError(err)
		}
		return &common.ViewResult{Counted: counted}, nil
	}
	return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "invalid view event: " + p.Event}
}

// Close shuts down the HTTP bridge.
func (rs *RPCServer) Close() {
	rs.closeOnce.Do(func() { rs.bridge.Close() })
}
