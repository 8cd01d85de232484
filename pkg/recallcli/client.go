// Package recallcli is the JSON-RPC client used by the recall command
// line to talk to a running daemon.
package recallcli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"
)

// DefaultTimeout bounds a single call when the caller's context has no
// deadline.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when the daemon does not know the item or
	// recall named in a call.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParams is returned when the daemon rejects the arguments.
	ErrInvalidParams = errors.New("invalid params")
	// ErrUnavailable is returned when the daemon's delivery loop is not
	// running.
	ErrUnavailable = errors.New("daemon unavailable")
)

// Client is a JSON-RPC client bound to one daemon endpoint.
type Client struct {
	cli      *jrpc2.Client
	endpoint string
	secret   string
	timeout  time.Duration
}

// Endpoint returns the JSON-RPC URL for a daemon listen address.
func Endpoint(listen string) string {
	if strings.HasPrefix(listen, "http://") || strings.HasPrefix(listen, "https://") {
		return strings.TrimSuffix(listen, "/") + "/jsonrpc"
	}
	return "http://" + listen + "/jsonrpc"
}

// NewClient returns a client for the daemon at endpoint, authenticating
// with secret.
func NewClient(endpoint, secret string) *Client {
	hc := &http.Client{Transport: &bearerTransport{secret: secret, next: http.DefaultTransport}}
	ch := jhttp.NewChannel(endpoint, &jhttp.ChannelOptions{Client: hc})
	return &Client{
		cli:      jrpc2.NewClient(ch, nil),
		endpoint: endpoint,
		secret:   secret,
		timeout:  DefaultTimeout,
	}
}

// Close releases the underlying channel.
func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.cli.CallResult(ctx, method, params, out); err != nil {
		return fmt.Errorf("%s: %w", method, translate(err))
	}
	return nil
}

// translate maps daemon error codes onto the package sentinels.
func translate(err error) error {
	var e *jrpc2.Error
	if !errors.As(err, &e) {
		return err
	}
	switch e.Code {
	case -32001:
		return fmt.Errorf("%w: %s", ErrNotFound, e.Message)
	case -32003:
		return fmt.Errorf("%w: %s", ErrUnavailable, e.Message)
	case -32602:
		return fmt.Errorf("%w: %s", ErrInvalidParams, e.Message)
	}
	return err
}

type bearerTransport struct {
	secret string
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.secret)
	resp, err := t.next.RoundTrip(r)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, errors.New("daemon rejected the RPC secret")
	}
	return resp, err
}
