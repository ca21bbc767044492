// Package idle blocks a caller until its folder changes, the way IMAP IDLE does.
package idle

import (
	"context"
	"sync"

	"github.com/creativeprojects/mailmock/lib"
)

type State int

const (
	// Running means nobody is waiting
	Running State = iota
	// Waiting means one caller is blocked until the next change
	Waiting
	// Aborting means another operation is forcing the waiter to return
	Aborting
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Aborting:
		return "aborting"
	}
	return "unknown"
}

// Controller allows at most one waiter. Wake signals are counted while the waiter is registered.
type Controller struct {
	mu      sync.Mutex
	state   State
	permits int
	signal  chan struct{}
	log     lib.Logger
}

func New() *Controller {
	return NewWithLogger(nil)
}

func NewWithLogger(logger lib.Logger) *Controller {
	return &Controller{
		state:  Running,
		signal: make(chan struct{}, 1),
		log:    lib.OrNoLog(logger),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// AbortIfWaiting forces the waiter to return. It is called before any operation on the folder.
func (c *Controller) AbortIfWaiting() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Waiting {
		return
	}
	c.log.Print("aborting idle")
	c.state = Aborting
	c.releaseLocked()
}

// Release wakes the waiter once for a folder change. The deliver function forwards the event
// to the regular listeners: before waking the waiter, or after when the controller is aborting.
func (c *Controller) Release(deliver func()) {
	if deliver == nil {
		deliver = func() {}
	}
	if c.State() == Aborting {
		c.release()
		deliver()
		return
	}
	deliver()
	c.release()
}

func (c *Controller) release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()
}

func (c *Controller) releaseLocked() {
	if c.state == Running {
		return
	}
	c.permits++
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// Wait blocks until the folder changes. With once it returns after the first wake up,
// otherwise it keeps waiting until aborted, until active returns false, or until ctx is done.
// It returns immediately when another caller is already waiting.
func (c *Controller) Wait(ctx context.Context, once bool, active func() bool) error {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return nil
	}
	c.state = Waiting
	c.permits = 0
	select {
	case <-c.signal:
	default:
	}
	c.mu.Unlock()
	c.log.Print("idle started")

	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.state = Running
		c.permits = 0
		c.log.Print("idle finished")
	}()

	for {
		if c.State() == Aborting {
			return nil
		}
		if active != nil && !active() {
			return nil
		}
		if err := c.acquire(ctx); err != nil {
			return err
		}
		if once {
			return nil
		}
	}
}

func (c *Controller) acquire(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.permits > 0 {
			c.permits--
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()

		select {
		case <-c.signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
