package recallcli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/recallkit/recall/common"
	"github.com/recallkit/recall/internal/notify"
)

// WebSocketURL derives the push endpoint from a JSON-RPC endpoint.
func WebSocketURL(endpoint string) string {
	u := strings.TrimSuffix(endpoint, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// Watch subscribes to delivered recalls and calls fn for each until ctx
// is cancelled or the daemon closes the connection. A clean stop returns
// nil.
func (c *Client) Watch(ctx context.Context, fn func(notify.Notification)) error {
	conn, _, err := cws.Dial(ctx, WebSocketURL(c.endpoint), &cws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + c.secret}},
	})
	if err != nil {
		return err
	}
	ch := &wsChannel{conn: conn, ctx: ctx, done: make(chan struct{})}
	cli := jrpc2.NewClient(ch, &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			if req.Method() != common.NotifyDeliver {
				return
			}
			var n notify.Notification
			if err := req.UnmarshalParams(&n); err == nil {
				fn(n)
			}
		},
	})
	defer cli.Close()

	select {
	case <-ctx.Done():
		return nil
	case <-ch.done:
		if ctx.Err() != nil || cws.CloseStatus(ch.err) == cws.StatusNormalClosure {
			return nil
		}
		return ch.err
	}
}

// wsChannel adapts a WebSocket connection to a jrpc2 channel and records
// the first receive error.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context
	once sync.Once
	done chan struct{}
	err  error
}

func (c *wsChannel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		c.once.Do(func() {
			c.err = err
			close(c.done)
		})
	}
	return data, err
}

func (c *wsChannel) Close() error {
	err := c.conn.Close(cws.StatusNormalClosure, "")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
