package display

import (
	"sync"
	"sync/atomic"

	"pixelcast/handlers"
)

// Inbox is a single-slot mailbox between the network reader and the render
// loop. Post never blocks: a message not yet taken is overwritten and
// counted as dropped. Only the newest message matters because every
// message replaces the previous one on screen anyway.
type Inbox struct {
	mu    sync.Mutex
	msg   handlers.DisplayMessage
	full  bool
	drops uint64
}

func NewInbox() *Inbox {
	return &Inbox{}
}

// Post stores msg, replacing any pending one.
func (b *Inbox) Post(msg handlers.DisplayMessage) {
	b.mu.Lock()
	if b.full {
		atomic.AddUint64(&b.drops, 1)
	}
	b.msg = msg
	b.full = true
	b.mu.Unlock()
}

// Take drains the slot. ok is false when nothing was pending.
func (b *Inbox) Take() (msg handlers.DisplayMessage, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		return handlers.DisplayMessage{}, false
	}
	msg, b.msg, b.full = b.msg, handlers.DisplayMessage{}, false
	return msg, true
}

// Drops is the number of messages overwritten before the render loop saw them.
func (b *Inbox) Drops() uint64 {
	return atomic.LoadUint64(&b.drops)
}
