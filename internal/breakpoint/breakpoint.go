// Package breakpoint implements the server/client rendezvous the test
// harness uses to freeze the compositor at deterministic points.
//
// Ownership of the compositor state is handed off, never shared: the
// server owns it while dispatching; the client owns it from the moment
// clientBreak is posted until it releases the breakpoint. The two
// semaphores serialize the handoff, so no locks guard the state.
package breakpoint

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/bnema/waylab/internal/comp"
	"github.com/bnema/waylab/internal/logger"
	"github.com/bnema/waylab/internal/proto"
)

// ErrHangup is returned from Await when the server tears the harness
// down while the client is blocked.
var ErrHangup = errors.New("breakpoint: hangup")

// Record is one pending breakpoint: a site kind plus an optional
// resource filter (0 matches any resource).
type Record struct {
	Kind     proto.BreakpointKind
	Resource proto.ObjectID
}

func (r Record) matches(kind proto.BreakpointKind, resource proto.ObjectID) bool {
	if r.Kind != kind {
		return false
	}
	return r.Resource == 0 || r.Resource == resource
}

// Active is a fired breakpoint. While the client holds it, the server
// thread is asleep inside the site and the client may read or mutate
// the compositor state directly.
type Active struct {
	Record
	Resource   proto.ObjectID // the site's actual resource
	Compositor *comp.Compositor

	ctl      *Controller
	released bool
}

// Release wakes the server; the critical section ends here.
func (a *Active) Release() {
	if a.released {
		logger.Invariant("breakpoint released twice")
	}
	a.released = true
	a.ctl.serverRelease <- struct{}{}
}

// Rearm pushes the same record back onto the pending list so the next
// matching site fires again. Only valid inside the critical section.
func (a *Active) Rearm() {
	a.ctl.pending = append(a.ctl.pending, a.Record)
}

// sem is a counting semaphore.
type sem chan struct{}

func (s sem) post() { s <- struct{}{} }
func (s sem) wait() { <-s }

// Controller owns the pending list, the two semaphores, and the
// single-slot mailbox.
type Controller struct {
	// pending is owned by whichever side owns the compositor state.
	pending []Record

	clientBreak   sem
	serverRelease sem

	// active is the mailbox; written by the server before posting
	// clientBreak, taken by the client in Await.
	active *Active

	// Teardown pipe. The server writes a HANGUP byte and closes its
	// end; a client blocked in Await drains out with ErrHangup.
	hangupR, hangupW int
	hangup           chan struct{}
	shutdown         bool

	log interface {
		Debug(msg interface{}, keyvals ...interface{})
	}
}

// NewController sets up the rendezvous primitives.
func NewController() (*Controller, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}
	c := &Controller{
		clientBreak:   make(sem, 8),
		serverRelease: make(sem, 8),
		hangupR:       fds[0],
		hangupW:       fds[1],
		hangup:        make(chan struct{}),
		log:           logger.Scope("breakpoint"),
	}
	return c, nil
}

// Arm appends a pending breakpoint. Called while holding ownership of
// the server state (normal request dispatch, or inside a critical
// section via Active.Rearm).
func (c *Controller) Arm(kind proto.BreakpointKind, resource proto.ObjectID) {
	c.pending = append(c.pending, Record{Kind: kind, Resource: resource})
	c.log.Debug("breakpoint armed", "kind", kind, "resource", resource)
}

// Pending returns the number of unmatched breakpoints.
func (c *Controller) Pending() int {
	return len(c.pending)
}

// Site is called by the server at each breakpoint site. The first
// matching pending record fires: it is removed, published in the
// mailbox together with the compositor, and the server sleeps until
// the client releases. At most one breakpoint fires per site.
func (c *Controller) Site(kind proto.BreakpointKind, resource proto.ObjectID, state *comp.Compositor) {
	if c.shutdown {
		return
	}
	for i, rec := range c.pending {
		if !rec.matches(kind, resource) {
			continue
		}
		c.pending = append(c.pending[:i], c.pending[i+1:]...)
		c.active = &Active{
			Record:     rec,
			Resource:   resource,
			Compositor: state,
			ctl:        c,
		}
		c.log.Debug("breakpoint hit", "kind", kind, "resource", resource)
		c.clientBreak.post()
		c.serverRelease.wait()
		c.log.Debug("breakpoint released", "kind", kind)
		return
	}
}

// Await blocks the client thread until a breakpoint fires, then
// transfers ownership of the mailbox. Returns ErrHangup on teardown.
func (c *Controller) Await() (*Active, error) {
	select {
	case <-c.clientBreak:
		a := c.active
		c.active = nil
		return a, nil
	case <-c.hangup:
		return nil, ErrHangup
	}
}

// Shutdown signals HANGUP to any client blocked in Await and drops the
// pending list. Safe to call once, from the server side, after the
// dispatch loop has stopped.
func (c *Controller) Shutdown() {
	if c.shutdown {
		return
	}
	c.shutdown = true
	// POLLHUP semantics: one byte then close, so a poller sees both
	// readable and hangup.
	_, _ = unix.Write(c.hangupW, []byte{0x1})
	_ = unix.Close(c.hangupW)
	close(c.hangup)
	c.pending = nil
}

// CloseClientEnd is run from the client thread's cleanup stack; it
// closes the read side of the teardown pipe.
func (c *Controller) CloseClientEnd() {
	_ = unix.Close(c.hangupR)
}
