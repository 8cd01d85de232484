package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/recallkit/recall/common"
	"github.com/recallkit/recall/internal/notify"
	"github.com/recallkit/recall/pkg/logger"
)

// RPCNotifier maintains a set of connected jrpc2 WebSocket servers
// and broadcasts push notifications to all of them. It is the in-app
// notification surface: every delivered recall is pushed to each
// connected client as a recall.deliver notification.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger
}

// NewRPCNotifier creates a new notifier. A nil logger discards output.
func NewRPCNotifier(l logger.Logger) *RPCNotifier {
	return &RPCNotifier{
		servers: make(map[*jrpc2.Server]struct{}),
		log:     logger.OrNop(l),
	}
}

// Register adds a server to the broadcast set.
func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

// Unregister removes a server from the broadcast set.
func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Broadcast sends a push notification to all registered servers and
// returns how many accepted it. Servers that fail to receive (e.g.,
// disconnected) are unregistered.
func (n *RPCNotifier) Broadcast(ctx context.Context, method string, params any) int {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		if err := srv.Notify(ctx, method, params); err != nil {
			n.log.Warning("RPC push failed: %v", err)
			failed = append(failed, srv)
		}
	}

	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
	return len(servers) - len(failed)
}

// Deliver pushes a recall to every connected client. It fails when no
// client received it so the scanner keeps the recall pending.
func (n *RPCNotifier) Deliver(ctx context.Context, msg notify.Notification) error {
	if n.Count() == 0 {
		return notify.ErrNoSubscribers
	}
	if n.Broadcast(ctx, common.NotifyDeliver, msg) == 0 {
		return fmt.Errorf("rpc push %s: %w", msg.Tag, errAllPushesFailed)
	}
	return nil
}

var errAllPushesFailed = errors.New("no client accepted the notification")

// Count returns the number of registered servers.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

var _ notify.Deliverer = (*RPCNotifier)(nil)
