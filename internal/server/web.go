package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/recallkit/recall/pkg/logger"
	"github.com/rs/cors"
)

// HTTP routes served by the daemon.
const (
	PathRPC     = "/jsonrpc"
	PathRPCWS   = "/jsonrpc/ws"
	PathMetrics = "/metrics"
)

// WebConfig holds the HTTP listener settings.
type WebConfig struct {
	Listen string
	// AllowedOrigins lists browser origins allowed to call the RPC
	// endpoints. Empty means same-origin only.
	AllowedOrigins []string
}

// WebServer exposes the JSON-RPC bridge over HTTP and WebSocket, and the
// Prometheus registry on /metrics.
type WebServer struct {
	cfg      WebConfig
	log      logger.Logger
	rpc      *RPCServer
	notifier *RPCNotifier
	gatherer prometheus.Gatherer
	server   *http.Server
	mu       sync.Mutex

	// base is cancelled on Shutdown so hijacked WebSocket connections end.
	base   context.Context
	cancel context.CancelFunc
}

// NewWebServer creates a WebServer. notifier and gatherer may be nil to
// disable push notifications and /metrics respectively.
func NewWebServer(cfg WebConfig, rpc *RPCServer, notifier *RPCNotifier, gatherer prometheus.Gatherer, l logger.Logger) *WebServer {
	base, cancel := context.WithCancel(context.Background())
	return &WebServer{
		cfg:      cfg,
		log:      logger.OrNop(l),
		rpc:      rpc,
		notifier: notifier,
		gatherer: gatherer,
		base:     base,
		cancel:   cancel,
	}
}

// handleWS upgrades the request and serves JSON-RPC over the connection
// until the client goes away or the server shuts down.
func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, &cws.AcceptOptions{OriginPatterns: originHosts(s.cfg.AllowedOrigins)})
	if err != nil {
		s.log.Warning("websocket accept: %v", err)
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.base, cancel)
	defer stop()

	srv := jrpc2.NewServer(s.rpc.methods, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(newWSChannel(ctx, conn))
	if s.notifier != nil {
		s.notifier.Register(srv)
		defer s.notifier.Unregister(srv)
	}
	s.log.Debug("websocket client connected from %s", r.RemoteAddr)
	if err := srv.Wait(); err != nil && ctx.Err() == nil {
		s.log.Debug("websocket client %s: %v", r.RemoteAddr, err)
	}
}

// originHosts converts origins to the host patterns the WebSocket
// handshake checks against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

// Handler returns the routed, CORS-wrapped handler.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.rpc != nil {
		mux.Handle(PathRPC, requireToken(s.rpc.secret, s.rpc.bridge))
		mux.Handle(PathRPCWS, requireToken(s.rpc.secret, http.HandlerFunc(s.handleWS)))
	}
	if s.gatherer != nil {
		mux.Handle(PathMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		return mux
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(mux)
}

// Start listens on the configured address and blocks until Shutdown.
func (s *WebServer) Start() error {
	s.mu.Lock()
	if s.base.Err() != nil {
		s.mu.Unlock()
		return nil
	}
	s.server = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.log.Info("listening on %s", s.cfg.Listen)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil // Expected during shutdown
	}
	return err
}

// Shutdown gracefully stops the web server and closes WebSocket clients.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rpc != nil {
		s.rpc.Close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
