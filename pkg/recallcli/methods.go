package recallcli

import (
	"context"
	"time"

	"github.com/recallkit/recall/common"
	"github.com/recallkit/recall/internal/daemon"
)

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var d T
	if err := c.call(ctx, method, params, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) GetDaemonVersion(ctx context.Context) (*common.VersionResult, error) {
	return invoke[common.VersionResult](ctx, c, common.MethodVersion, nil)
}

// Register hands a captured item to the daemon. A zero createdAt means now.
func (c *Client) Register(ctx context.Context, id, kind, text string, createdAt time.Time) (*common.RegisterResult, error) {
	return invoke[common.RegisterResult](ctx, c, common.MethodRegister, &common.RegisterParams{
		ID:        id,
		Kind:      kind,
		Text:      text,
		CreatedAt: createdAt,
	})
}

func (c *Client) Bookmark(ctx context.Context, itemID string) (*common.BookmarkResult, error) {
	return invoke[common.BookmarkResult](ctx, c, common.MethodBookmark, &common.ItemParam{ItemID: itemID})
}

func (c *Client) Cancel(ctx context.Context, itemID string) (*common.CancelResult, error) {
	return invoke[common.CancelResult](ctx, c, common.MethodCancel, &common.ItemParam{ItemID: itemID})
}

func (c *Client) Delete(ctx context.Context, itemID string) error {
	_, err := invoke[common.EmptyResult](ctx, c, common.MethodDelete, &common.ItemParam{ItemID: itemID})
	return err
}

func (c *Client) Snooze(ctx context.Context, itemID string) (*common.RecordResult, error) {
	return invoke[common.RecordResult](ctx, c, common.MethodSnooze, &common.SnoozeParams{ItemID: itemID})
}

// SnoozeRecord dismisses a surfaced recall and snoozes its item.
func (c *Client) SnoozeRecord(ctx context.Context, recordID string) (*common.RecordResult, error) {
	return invoke[common.RecordResult](ctx, c, common.MethodSnooze, &common.SnoozeParams{RecordID: recordID})
}

func (c *Client) Dismiss(ctx context.Context, recordID string) (bool, error) {
	res, err := invoke[common.DismissResult](ctx, c, common.MethodDismiss, &common.RecordParam{RecordID: recordID})
	if err != nil {
		return false, err
	}
	return res.Dismissed, nil
}

func (c *Client) Spotlight(ctx context.Context) (*common.SpotlightResult, error) {
	return invoke[common.SpotlightResult](ctx, c, common.MethodSpotlight, nil)
}

// ListOpts filters List. The zero value lists every record.
type ListOpts = common.ListParams

func (c *Client) List(ctx context.Context, opts *ListOpts) (*common.ListResult, error) {
	if opts == nil {
		opts = &ListOpts{}
	}
	return invoke[common.ListResult](ctx, c, common.MethodList, opts)
}

func (c *Client) Stats(ctx context.Context) (*common.StatsResult, error) {
	return invoke[common.StatsResult](ctx, c, common.MethodStats, nil)
}

// Activate asks the daemon to run a delivery pass now.
func (c *Client) Activate(ctx context.Context) (*daemon.Result, error) {
	return invoke[daemon.Result](ctx, c, common.MethodActivate, nil)
}

func (c *Client) Signal(ctx context.Context, itemID, signal string) (int, error) {
	res, err := invoke[common.ScoreResult](ctx, c, common.MethodSignal, &common.SignalParams{ItemID: itemID, Signal: signal})
	if err != nil {
		return 0, err
	}
	return res.Score, nil
}

func (c *Client) Relate(ctx context.Context, a, b string) (bool, error) {
	res, err := invoke[common.RelateResult](ctx, c, common.MethodRelate, &common.RelateParams{A: a, B: b})
	if err != nil {
		return false, err
	}
	return res.Created, nil
}

// View reports an item entering or leaving the screen.
func (c *Client) View(ctx context.Context, itemID, event string) (bool, error) {
	res, err := invoke[common.ViewResult](ctx, c, common.MethodView, &common.ViewParams{ItemID: itemID, Event: event})
	if err != nil {
		return false, err
	}
	return res.Counted, nil
}
