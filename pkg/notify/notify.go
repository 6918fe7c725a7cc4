package notify

import (
	"livesync/pkg/store"
	"livesync/pkg/utils/syncutils"

	"4d63.com/optional"
)

// Callback runs on the publisher's goroutine. It must be cheap; live
// engines only flag and schedule work from it.
type Callback func()

// Notifier is the change-detection capability engines consume. An
// engine owns at most one live handle per binding and cancels it
// before installing a replacement.
type Notifier interface {
	Subscribe(st store.Store, table string, key optional.Optional[store.PrimaryKeyValues], fn Callback) *Handle
	Cancel(h *Handle)
}

// Handle is an opaque subscription token. Cancelled is observable but
// the token is otherwise only meaningful to the notifier that made it.
type Handle struct {
	fn        Callback
	st        store.Store
	table     string
	id        uint64
	keyHash   uint64
	keyScoped bool
	cancelled syncutils.AtomicBool
}

func (h *Handle) Cancelled() bool {
	return h.cancelled.Get()
}
