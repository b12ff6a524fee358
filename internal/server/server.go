// Package server runs the compositor event loop: it multiplexes client
// requests, applies them to the compositor core, schedules repaints,
// and fires the breakpoint sites the test harness synchronizes on.
package server

import (
	"errors"
	"fmt"

	"github.com/bnema/waylab/internal/breakpoint"
	"github.com/bnema/waylab/internal/comp"
	"github.com/bnema/waylab/internal/constraint"
	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/input"
	"github.com/bnema/waylab/internal/logger"
	"github.com/bnema/waylab/internal/proto"
)

// Options configures the compositor host.
type Options struct {
	Width, Height int32
	Backend       string
	Renderer      string
	Shell         string
	Socket        string
	Modules       []string
}

// ErrUnsupported marks a capability the host cannot provide; the CLI
// maps it to the skip exit code.
var ErrUnsupported = errors.New("unsupported capability")

type envelope struct {
	conn *Conn
	req  proto.Request
}

// Conn is one client connection: an ordered request stream in, an
// ordered event stream out. A protocol violation is fatal to the
// connection only.
type Conn struct {
	srv    *Server
	events chan proto.Event
	closed bool
}

// Send queues a request; requests are processed in order.
func (c *Conn) Send(req proto.Request) {
	c.srv.requests <- envelope{conn: c, req: req}
}

// Events is the ordered server-to-client event stream.
func (c *Conn) Events() <-chan proto.Event {
	return c.events
}

// Server owns the single-threaded compositor loop.
type Server struct {
	comp        *comp.Compositor
	constraints *constraint.Manager
	dispatcher  *input.Dispatcher
	bp          *breakpoint.Controller

	requests chan envelope
	done     chan struct{}
	stopped  chan struct{}

	conn *Conn

	relativePointers map[proto.ObjectID]bool
	syncPending      []uint32

	log interface {
		Debug(msg interface{}, keyvals ...interface{})
		Info(msg interface{}, keyvals ...interface{})
		Error(msg interface{}, keyvals ...interface{})
	}
}

// New builds the server. Only the headless backend and the noop and
// pixman renderers exist; anything else is an unsupported capability.
func New(opts Options) (*Server, error) {
	if opts.Backend != "" && opts.Backend != "headless" {
		return nil, fmt.Errorf("backend %q: %w", opts.Backend, ErrUnsupported)
	}
	switch opts.Renderer {
	case "", "noop", "pixman":
	default:
		return nil, fmt.Errorf("renderer %q: %w", opts.Renderer, ErrUnsupported)
	}
	if opts.Width <= 0 {
		opts.Width = 320
	}
	if opts.Height <= 0 {
		opts.Height = 240
	}

	bp, err := breakpoint.NewController()
	if err != nil {
		return nil, fmt.Errorf("breakpoint controller: %w", err)
	}

	s := &Server{
		comp:             comp.New(opts.Width, opts.Height),
		bp:               bp,
		requests:         make(chan envelope, 64),
		done:             make(chan struct{}),
		stopped:          make(chan struct{}),
		relativePointers: make(map[proto.ObjectID]bool),
		log:              logger.Scope("core"),
	}
	s.constraints = constraint.NewManager(s.comp, s.emit)
	s.dispatcher = input.NewDispatcher(s.comp, s.constraints, bp, s.emit)
	return s, nil
}

// Compositor exposes the core state; outside the loop this may only be
// touched from inside an active breakpoint.
func (s *Server) Compositor() *comp.Compositor {
	return s.comp
}

// Constraints exposes the constraint manager under the same ownership
// rule as Compositor.
func (s *Server) Constraints() *constraint.Manager {
	return s.constraints
}

// Breakpoints returns the rendezvous controller.
func (s *Server) Breakpoints() *breakpoint.Controller {
	return s.bp
}

// Connect attaches the (single) test client.
func (s *Server) Connect() *Conn {
	c := &Conn{srv: s, events: make(chan proto.Event, 1024)}
	s.conn = c
	return c
}

// Start runs the event loop on its own goroutine.
func (s *Server) Start() {
	go s.run()
}

func (s *Server) run() {
	defer close(s.stopped)
	for {
		select {
		case env := <-s.requests:
			s.handle(env)
			s.flushSync()
			s.flushRepaint()
		case <-s.done:
			return
		}
	}
}

// Shutdown stops the loop, signals HANGUP toward a blocked client, and
// tears the core down in order: constraints, pointer, seat,
// compositor.
func (s *Server) Shutdown() {
	close(s.done)
	<-s.stopped
	s.bp.Shutdown()
	s.constraints.PointerDestroyed()
	s.comp.Close()
	s.log.Info("compositor down")
}

func (s *Server) emit(ev proto.Event) {
	if s.conn == nil || s.conn.closed {
		return
	}
	s.conn.events <- ev
}

// fail reports a protocol violation: fatal to the offending client,
// invisible to the rest of the server.
func (s *Server) fail(c *Conn, perr *proto.ProtocolError) {
	s.log.Error("protocol violation", "code", perr.Code, "msg", perr.Message)
	if c == nil || c.closed {
		return
	}
	c.events <- proto.FatalError{Code: perr.Code, Message: perr.Message}
	c.closed = true
	close(c.events)
	if s.conn == c {
		s.conn = nil
	}
}

func (s *Server) handleErr(c *Conn, err error) {
	if err == nil {
		return
	}
	var perr *proto.ProtocolError
	if errors.As(err, &perr) {
		s.fail(c, perr)
		return
	}
	s.log.Error("request failed", "err", err)
}

// flushRepaint repaints every output whose state changed and fires the
// post-repaint site for each.
func (s *Server) flushRepaint() {
	if !s.comp.RepaintNeeded() {
		return
	}
	for _, o := range s.comp.Outputs() {
		s.comp.Repaint(o)
		s.bp.Site(proto.BreakpointPostRepaint, o.ID, s.comp)
	}
}

// flushSync answers sync fences after the requests ahead of them.
func (s *Server) flushSync() {
	for _, serial := range s.syncPending {
		s.emit(proto.SyncDone{Serial: serial})
	}
	s.syncPending = s.syncPending[:0]
}

func (s *Server) handle(env envelope) {
	c := env.conn
	if c != nil && c.closed {
		return
	}
	switch req := env.req.(type) {
	case proto.CreateSurface:
		_, surf, err := s.comp.CreateSurface(req.ID)
		if err != nil {
			s.handleErr(c, proto.NewProtocolError(proto.ErrInvalidObject, "%v", err))
			return
		}
		surf.Width = req.Width
		surf.Height = req.Height
		s.handleErr(c, surf.SetRole(comp.RoleTest))

	case proto.AttachBuffer:
		_, surf := s.comp.Lookup(req.Surface)
		if surf == nil {
			s.handleErr(c, badObject(req.Surface))
			return
		}
		surf.Attach(&comp.Buffer{Type: comp.BufferShm, Width: req.Width, Height: req.Height})

	case proto.SetInputRegion:
		h, surf := s.comp.Lookup(req.Surface)
		if surf == nil {
			s.handleErr(c, badObject(req.Surface))
			return
		}
		if req.Region == nil {
			surf.InputRegion = geometry.Region{}
		} else {
			surf.InputRegion = *req.Region
		}
		// The effective region of a constraint on this surface may have
		// shrunk or emptied; same rules as a set_region in this tick.
		if cn := s.constraints.InputRegionChanged(h); cn != nil {
			s.dispatcher.Reclamp(cn)
		}

	case proto.CommitSurface:
		h, surf := s.comp.Lookup(req.Surface)
		if surf == nil {
			s.handleErr(c, badObject(req.Surface))
			return
		}
		s.comp.Commit(h)
		s.bp.Site(proto.BreakpointSurfaceCommit, req.Surface, s.comp)
		s.dispatcher.RefreshFocus(0)

	case proto.DestroySurface:
		h, surf := s.comp.Lookup(req.Surface)
		if surf == nil {
			return
		}
		s.comp.DestroySurface(h)
		s.dispatcher.RefreshFocus(0)

	case proto.Sync:
		s.syncPending = append(s.syncPending, req.Serial)

	case proto.ConfinePointer:
		h, surf := s.comp.Lookup(req.Surface)
		if surf == nil {
			s.handleErr(c, badObject(req.Surface))
			return
		}
		_, err := s.constraints.Confine(req.ID, h, req.Region, req.Lifetime)
		if err != nil {
			s.handleErr(c, err)
			return
		}
		// A constraint created on the already-activated, focused
		// surface activates immediately; the deliberate interaction
		// has happened.
		s.constraints.TryActivate()

	case proto.LockPointer:
		h, surf := s.comp.Lookup(req.Surface)
		if surf == nil {
			s.handleErr(c, badObject(req.Surface))
			return
		}
		_, err := s.constraints.Lock(req.ID, h, req.Region, req.Lifetime)
		if err != nil {
			s.handleErr(c, err)
			return
		}
		s.constraints.TryActivate()

	case proto.DestroyConstraint:
		if cn := s.constraints.Get(req.Constraint); cn != nil {
			s.constraints.Destroy(cn)
		}

	case proto.SetRegion:
		cn := s.constraints.Get(req.Constraint)
		if cn == nil {
			s.handleErr(c, badObject(req.Constraint))
			return
		}
		s.constraints.SetRegion(cn, req.Region)
		// Same dispatch tick: pull the pointer inside the new region.
		s.dispatcher.Reclamp(cn)

	case proto.SetCursorPositionHint:
		cn := s.constraints.Get(req.Constraint)
		if cn == nil {
			s.handleErr(c, badObject(req.Constraint))
			return
		}
		s.constraints.SetCursorPositionHint(cn, geometry.Point{X: req.X, Y: req.Y})

	case proto.GetRelativePointer:
		s.relativePointers[req.ID] = true
		s.dispatcher.AddRelativePointer()

	case proto.DestroyRelativePointer:
		if s.relativePointers[req.RelativePointer] {
			delete(s.relativePointers, req.RelativePointer)
			s.dispatcher.RemoveRelativePointer()
		}

	case proto.MovePointer:
		s.dispatcher.Motion(req.Time, geometry.Point{X: req.X, Y: req.Y})
		if p := s.comp.Pointer(); p != nil {
			s.emit(proto.PointerPosition{X: p.Pos.X, Y: p.Pos.Y})
		}

	case proto.SendButton:
		s.dispatcher.Button(req.Time, req.Button, req.State)

	case proto.SendKey:
		s.dispatcher.Key(req.Time, req.Key, req.State)

	case proto.SendAxis:
		s.dispatcher.Axis(req.Time, req.Axis, req.Value)

	case proto.SendTouch:
		s.handleErr(c, s.dispatcher.Touch(req.Time, req.ID, req.X, req.Y, req.Type))

	case proto.MoveSurface:
		_, surf := s.comp.Lookup(req.Surface)
		if surf == nil {
			s.handleErr(c, badObject(req.Surface))
			return
		}
		surf.X = req.X
		surf.Y = req.Y
		s.dispatcher.RefreshFocus(0)

	case proto.ActivateSurface:
		h, surf := s.comp.Lookup(req.Surface)
		if surf == nil {
			s.handleErr(c, badObject(req.Surface))
			return
		}
		s.comp.Raise(h)
		s.comp.SetActivated(h)
		s.dispatcher.RefreshFocus(0)
		s.constraints.TryActivate()

	case proto.ClientBreak:
		s.bp.Arm(req.Kind, req.Resource)

	default:
		s.log.Error("unhandled request", "req", fmt.Sprintf("%T", env.req))
	}
}

func badObject(id proto.ObjectID) *proto.ProtocolError {
	return proto.NewProtocolError(proto.ErrInvalidObject, "unknown object id %d", id)
}
