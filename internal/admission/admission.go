package admission

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/pavelc4/mediaq-bot/pkg/logger"
)

const DefaultMaxQueue = 50

type QueueFullError struct {
	Max int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("queue is full (%d waiting)", e.Max)
}

// ErrQueueFull can be used with errors.Is.
var ErrQueueFull = &QueueFullError{}

func (e *QueueFullError) Is(target error) bool {
	_, ok := target.(*QueueFullError)
	return ok
}

// Controller guards a single execution slot with a bounded FIFO of waiters.
// The slot is handed over directly from the releasing holder to the head
// waiter, so a late TryAcquire can never overtake the queue.
type Controller struct {
	mu       sync.Mutex
	held     bool
	waiters  *list.List
	maxQueue int
}

func New(maxQueue int) *Controller {
	if maxQueue <= 0 {
		maxQueue = DefaultMaxQueue
	}
	return &Controller{
		waiters:  list.New(),
		maxQueue: maxQueue,
	}
}

func (c *Controller) MaxQueue() int {
	return c.maxQueue
}

func (c *Controller) TryAcquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held || c.waiters.Len() > 0 {
		return false
	}
	c.held = true
	return true
}

// Enqueue acquires the slot if it is free, otherwise registers a waiter at
// the back of the queue. The returned Ticket must be released exactly once
// through Ticket.Release.
func (c *Controller) Enqueue() (*Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &Ticket{
		ctrl:    c,
		ready:   make(chan struct{}),
		updates: make(chan int, 1),
	}

	if !c.held && c.waiters.Len() == 0 {
		c.held = true
		t.granted = true
		close(t.ready)
		return t, nil
	}

	if c.waiters.Len() >= c.maxQueue {
		return nil, &QueueFullError{Max: c.maxQueue}
	}

	t.elem = c.waiters.PushBack(t)
	t.position = c.waiters.Len()
	return t, nil
}

// EnqueueAndWait is Enqueue followed by Wait. onQueued, if set, is called
// with the initial position when the caller has to wait.
func (c *Controller) EnqueueAndWait(ctx context.Context, onQueued func(position int)) (*Ticket, error) {
	t, err := c.Enqueue()
	if err != nil {
		return nil, err
	}
	if pos := t.Position(); pos > 0 && onQueued != nil {
		onQueued(pos)
	}
	if err := t.Wait(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Release hands the slot to the head waiter or frees it. Calling it
// without holding the slot is logged and ignored.
func (c *Controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

func (c *Controller) releaseLocked() {
	if !c.held {
		logger.Warn("Admission release without holder")
		return
	}

	front := c.waiters.Front()
	if front == nil {
		c.held = false
		return
	}

	next := c.waiters.Remove(front).(*Ticket)
	next.elem = nil
	next.position = 0
	next.granted = true
	close(next.ready)
	c.renumberLocked()
}

func (c *Controller) renumberLocked() {
	pos := 1
	for e := c.waiters.Front(); e != nil; e = e.Next() {
		t := e.Value.(*Ticket)
		if t.position != pos {
			t.position = pos
			t.notify(pos)
		}
		pos++
	}
}

// abandon removes a waiter that gave up. If the slot was handed over in the
// meantime it is passed on instead.
func (c *Controller) abandon(t *Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.granted {
		t.granted = false
		t.released = true
		c.releaseLocked()
		return
	}
	if t.elem != nil {
		c.waiters.Remove(t.elem)
		t.elem = nil
		t.position = 0
		c.renumberLocked()
	}
}

type Snapshot struct {
	Held   bool
	Queued int
	Max    int
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Held: c.held, Queued: c.waiters.Len(), Max: c.maxQueue}
}
