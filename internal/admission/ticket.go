package admission

import (
	"container/list"
	"context"
)

// Ticket is a place in line. Position is 0 once the slot is held.
type Ticket struct {
	ctrl     *Controller
	elem     *list.Element
	ready    chan struct{}
	updates  chan int
	position int
	granted  bool
	released bool
}

func (t *Ticket) Position() int {
	t.ctrl.mu.Lock()
	defer t.ctrl.mu.Unlock()
	return t.position
}

// Updates delivers the latest position whenever it changes. Stale values are
// dropped, only the newest one is kept.
func (t *Ticket) Updates() <-chan int {
	return t.updates
}

// Ready is closed when the slot has been handed to this ticket.
func (t *Ticket) Ready() <-chan struct{} {
	return t.ready
}

func (t *Ticket) notify(pos int) {
	select {
	case <-t.updates:
	default:
	}
	t.updates <- pos
}

// Wait blocks until the slot is handed to the ticket. On cancellation the
// ticket leaves the queue and every waiter behind it moves up by one.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	default:
	}

	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		t.ctrl.abandon(t)
		return ctx.Err()
	}
}

// Release frees the slot held by this ticket. It is safe to call more than
// once and on a ticket that never got the slot.
func (t *Ticket) Release() {
	t.ctrl.mu.Lock()
	defer t.ctrl.mu.Unlock()

	if t.released {
		return
	}
	t.released = true
	if t.granted {
		t.granted = false
		t.ctrl.releaseLocked()
		return
	}
	if t.elem != nil {
		t.ctrl.waiters.Remove(t.elem)
		t.elem = nil
		t.position = 0
		t.ctrl.renumberLocked()
	}
}
