package common

// JSON-RPC method names served by the daemon.
const (
	MethodVersion = "system.getVersion"

	MethodRegister = "content.register"
	MethodBookmark = "content.bookmark"
	MethodCancel   = "content.cancel"
	MethodDelete   = "content.delete"

	MethodSnooze    = "recall.snooze"
	MethodDismiss   = "recall.dismiss"
	MethodSpotlight = "recall.spotlight"
	MethodList      = "recall.list"
	MethodStats     = "recall.stats"

	MethodActivate = "daemon.activate"

	MethodSignal = "score.signal"
	MethodRelate = "score.relate"
	MethodView   = "score.view"
)

// NotifyDeliver is the push notification sent to WebSocket subscribers
// for every delivered recall.
const NotifyDeliver = "recall.deliver"

// View events accepted by score.view.
const (
	ViewEnter = "enter"
	ViewLeave = "leave"
)
