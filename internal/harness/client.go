// Package harness drives a compositor from a dedicated test-client
// goroutine: it submits protocol requests, consumes events, arms
// breakpoints, and inspects server state inside critical sections.
package harness

import (
	"errors"
	"fmt"

	"github.com/bnema/waylab/internal/breakpoint"
	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/logger"
	"github.com/bnema/waylab/internal/proto"
	"github.com/bnema/waylab/internal/server"
)

// ErrDisconnected is returned once the server has fatally closed this
// client's connection.
var ErrDisconnected = errors.New("harness: disconnected")

// Client is the test-client proxy. All methods must be called from
// the client goroutine the body runs on; compositor state may only be
// touched between Await and Release.
type Client struct {
	srv  *server.Server
	conn *server.Conn
	bp   *breakpoint.Controller

	nextID uint32
	serial uint32

	// queue holds events read but not yet matched by a waiter.
	queue []proto.Event

	cleanups []func()

	log interface {
		Debug(msg interface{}, keyvals ...interface{})
	}
}

// Run starts the server loop, runs body on a dedicated client
// goroutine, then tears the server down and joins. The client's
// cleanup stack runs whether the body succeeds or bails out on
// hangup.
func Run(srv *server.Server, body func(*Client) error) error {
	srv.Start()
	c := &Client{
		srv:  srv,
		conn: srv.Connect(),
		bp:   srv.Breakpoints(),
		log:  logger.Scope("harness"),
	}
	c.OnCleanup(c.bp.CloseClientEnd)

	errCh := make(chan error, 1)
	go func() {
		defer c.runCleanups()
		errCh <- body(c)
	}()
	err := <-errCh
	srv.Shutdown()
	return err
}

// OnCleanup pushes fn onto the cleanup stack; the stack unwinds LIFO
// when the client goroutine exits, including on cancellation.
func (c *Client) OnCleanup(fn func()) {
	c.cleanups = append(c.cleanups, fn)
}

func (c *Client) runCleanups() {
	for i := len(c.cleanups) - 1; i >= 0; i-- {
		c.cleanups[i]()
	}
}

// NewID allocates a client-side object id.
func (c *Client) NewID() proto.ObjectID {
	c.nextID++
	return proto.ObjectID(c.nextID)
}

func (c *Client) send(req proto.Request) {
	c.conn.Send(req)
}

// WaitFor blocks until an event matching the predicate arrives.
// Events that arrive out of interest order stay queued for later
// waiters, so delivery order is still observable per object.
func (c *Client) WaitFor(match func(proto.Event) bool) (proto.Event, error) {
	for i, ev := range c.queue {
		if match(ev) {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return ev, nil
		}
	}
	for {
		ev, ok := <-c.conn.Events()
		if !ok {
			return nil, ErrDisconnected
		}
		if match(ev) {
			return ev, nil
		}
		c.queue = append(c.queue, ev)
	}
}

// Roundtrip fences: returns once the server has processed every
// request sent before it.
func (c *Client) Roundtrip() error {
	c.serial++
	serial := c.serial
	c.send(proto.Sync{Serial: serial})
	_, err := c.WaitFor(func(ev proto.Event) bool {
		done, ok := ev.(proto.SyncDone)
		return ok && done.Serial == serial
	})
	return err
}

// WaitFatal waits for the server to kill this connection and returns
// the protocol error it reported.
func (c *Client) WaitFatal() (proto.FatalError, error) {
	ev, err := c.WaitFor(func(ev proto.Event) bool {
		_, ok := ev.(proto.FatalError)
		return ok
	})
	if err != nil {
		return proto.FatalError{}, err
	}
	return ev.(proto.FatalError), nil
}

// HasQueued reports whether any queued (unmatched) event satisfies the
// predicate; it never blocks. Callers run a Roundtrip first so
// everything the server emitted has been read.
func (c *Client) HasQueued(match func(proto.Event) bool) bool {
	c.drain()
	for _, ev := range c.queue {
		if match(ev) {
			return true
		}
	}
	return false
}

func (c *Client) drain() {
	for {
		select {
		case ev, ok := <-c.conn.Events():
			if !ok {
				return
			}
			c.queue = append(c.queue, ev)
		default:
			return
		}
	}
}

// MovePointer warps the pointer to integer pixel coordinates and
// returns the position the server reports back after constraints were
// applied.
func (c *Client) MovePointer(t uint32, x, y int32) (geometry.Point, error) {
	return c.MovePointerFixed(t, geometry.Pt(x, y))
}

// MovePointerFixed is MovePointer at sub-pixel resolution.
func (c *Client) MovePointerFixed(t uint32, p geometry.Point) (geometry.Point, error) {
	c.send(proto.MovePointer{Time: t, X: p.X, Y: p.Y})
	ev, err := c.WaitFor(func(ev proto.Event) bool {
		_, ok := ev.(proto.PointerPosition)
		return ok
	})
	if err != nil {
		return geometry.Point{}, err
	}
	pos := ev.(proto.PointerPosition)
	return geometry.Point{X: pos.X, Y: pos.Y}, nil
}

// MovePointerAsync submits a pointer motion without waiting for the
// position report. Required when the motion is expected to hit an
// armed pre-input-dispatch breakpoint: the server answers nothing
// until the critical section ends, so a blocking wait here would
// deadlock against Await.
func (c *Client) MovePointerAsync(t uint32, x, y int32) {
	p := geometry.Pt(x, y)
	c.send(proto.MovePointer{Time: t, X: p.X, Y: p.Y})
}

// Button sends a button event.
func (c *Client) Button(t uint32, button uint32, state proto.ButtonState) {
	c.send(proto.SendButton{Time: t, Button: button, State: state})
}

// Click presses and releases the left button.
func (c *Client) Click(t uint32) error {
	c.Button(t, proto.BtnLeft, proto.ButtonPressed)
	c.Button(t+1, proto.BtnLeft, proto.ButtonReleased)
	return c.Roundtrip()
}

// Key sends a key event.
func (c *Client) Key(t uint32, key uint32, state proto.ButtonState) {
	c.send(proto.SendKey{Time: t, Key: key, State: state})
}

// Axis sends a scroll event.
func (c *Client) Axis(t uint32, axis uint32, value geometry.Fixed) {
	c.send(proto.SendAxis{Time: t, Axis: axis, Value: value})
}

// Touch sends a touch event.
func (c *Client) Touch(t uint32, id int32, x, y geometry.Fixed, typ proto.TouchType) {
	c.send(proto.SendTouch{Time: t, ID: id, X: x, Y: y, Type: typ})
}

// Break arms a breakpoint; resource 0 matches any site resource.
func (c *Client) Break(kind proto.BreakpointKind, resource proto.ObjectID) {
	c.send(proto.ClientBreak{Kind: kind, Resource: resource})
}

// Await blocks until an armed breakpoint fires and hands this
// goroutine ownership of the compositor state. The critical section
// ends with Active.Release.
func (c *Client) Await() (*breakpoint.Active, error) {
	a, err := c.bp.Await()
	if err != nil {
		return nil, fmt.Errorf("awaiting breakpoint: %w", err)
	}
	c.log.Debug("entered critical section", "kind", a.Kind)
	return a, nil
}
