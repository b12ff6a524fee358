// Package comp holds the compositor core state: the surface registry,
// outputs, the seat, and the paint list. All access is single-threaded
// on the server loop, except while a breakpoint hands ownership to the
// test client.
package comp

import (
	"fmt"

	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/logger"
	"github.com/bnema/waylab/internal/proto"
)

// SurfaceHandle is a generational handle into the surface arena. A
// stale handle yields nil on lookup; the zero value never resolves.
type SurfaceHandle struct {
	idx uint32
	gen uint32
}

// NoSurface is the null handle.
var NoSurface = SurfaceHandle{}

func (h SurfaceHandle) String() string {
	return fmt.Sprintf("surface#%d.%d", h.idx, h.gen)
}

type surfaceSlot struct {
	gen uint32
	s   *Surface
}

// Compositor owns all server-side state.
type Compositor struct {
	slots []surfaceSlot
	free  []uint32
	byID  map[proto.ObjectID]SurfaceHandle

	// paint is the view stack, bottom to top.
	paint []SurfaceHandle

	outputs []*Output
	seat    *Seat

	// activated is the shell's activated surface: the last surface the
	// user deliberately interacted with (clicked, or explicitly
	// activated). Constraint activation gates on it.
	activated SurfaceHandle

	repaintNeeded bool

	// onSurfaceDestroy hooks run before a surface is removed, so
	// dependents (constraints) tear down first.
	onSurfaceDestroy []func(SurfaceHandle)

	log interface {
		Debug(msg interface{}, keyvals ...interface{})
	}
}

// New creates a compositor with one output of the given mode.
func New(width, height int32) *Compositor {
	c := &Compositor{
		byID: make(map[proto.ObjectID]SurfaceHandle),
		seat: NewSeat(),
		log:  logger.Scope("core"),
	}
	c.AddOutput(geometry.RectXYWH(0, 0, width, height))
	return c
}

// Seat returns the single seat.
func (c *Compositor) Seat() *Seat {
	return c.seat
}

// Pointer returns the seat pointer, or nil after seat release.
func (c *Compositor) Pointer() *Pointer {
	if c.seat == nil {
		return nil
	}
	return c.seat.Pointer
}

// AddOutput registers an output covering the given rect.
func (c *Compositor) AddOutput(geom geometry.Rect) *Output {
	o := &Output{ID: proto.ObjectID(len(c.outputs) + 1), Geometry: geom}
	c.outputs = append(c.outputs, o)
	return o
}

// Outputs returns all outputs.
func (c *Compositor) Outputs() []*Output {
	return c.outputs
}

// OnSurfaceDestroy registers a hook run before any surface is removed.
func (c *Compositor) OnSurfaceDestroy(fn func(SurfaceHandle)) {
	c.onSurfaceDestroy = append(c.onSurfaceDestroy, fn)
}

// CreateSurface allocates a surface for the given protocol id.
func (c *Compositor) CreateSurface(id proto.ObjectID) (SurfaceHandle, *Surface, error) {
	if _, ok := c.byID[id]; ok {
		return NoSurface, nil, fmt.Errorf("surface id %d already in use", id)
	}
	s := &Surface{ID: id}
	var h SurfaceHandle
	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]
		c.slots[idx].gen++
		c.slots[idx].s = s
		h = SurfaceHandle{idx: idx, gen: c.slots[idx].gen}
	} else {
		c.slots = append(c.slots, surfaceSlot{gen: 1, s: s})
		h = SurfaceHandle{idx: uint32(len(c.slots) - 1), gen: 1}
	}
	c.byID[id] = h
	c.log.Debug("surface created", "id", id, "handle", h)
	return h, s, nil
}

// Surface resolves a handle; stale or null handles yield nil.
func (c *Compositor) Surface(h SurfaceHandle) *Surface {
	if h.gen == 0 || int(h.idx) >= len(c.slots) {
		return nil
	}
	slot := c.slots[h.idx]
	if slot.gen != h.gen {
		return nil
	}
	return slot.s
}

// Lookup resolves a protocol id to a live surface.
func (c *Compositor) Lookup(id proto.ObjectID) (SurfaceHandle, *Surface) {
	h, ok := c.byID[id]
	if !ok {
		return NoSurface, nil
	}
	return h, c.Surface(h)
}

// DestroySurface tears a surface down. Destroy hooks (constraints)
// run first; then the surface leaves the paint list and the arena slot
// is retired so stale handles read as gone.
func (c *Compositor) DestroySurface(h SurfaceHandle) {
	s := c.Surface(h)
	if s == nil {
		return
	}
	for _, fn := range c.onSurfaceDestroy {
		fn(h)
	}
	if p := c.Pointer(); p != nil && p.Focus == h {
		p.Focus = NoSurface
	}
	if c.activated == h {
		c.activated = NoSurface
	}
	c.removePaintNode(h)
	delete(c.byID, s.ID)
	c.slots[h.idx].s = nil
	c.free = append(c.free, h.idx)
	c.repaintNeeded = true
	c.log.Debug("surface destroyed", "id", s.ID)
}

// Commit applies pending surface state. The surface becomes mappable
// on its first committed buffer and joins the top of the view stack.
func (c *Compositor) Commit(h SurfaceHandle) bool {
	s := c.Surface(h)
	if s == nil {
		return false
	}
	if s.pending != nil {
		s.Buffer = s.pending
		s.pending = nil
	}
	if s.Buffer == nil {
		return false
	}
	if !s.Mapped {
		s.Mapped = true
		c.paint = append(c.paint, h)
	}
	c.repaintNeeded = true
	return true
}

// Raise moves a mapped surface to the top of the view stack.
func (c *Compositor) Raise(h SurfaceHandle) {
	for i, ph := range c.paint {
		if ph == h {
			c.paint = append(c.paint[:i], c.paint[i+1:]...)
			c.paint = append(c.paint, h)
			return
		}
	}
}

func (c *Compositor) removePaintNode(h SurfaceHandle) {
	for i, ph := range c.paint {
		if ph == h {
			c.paint = append(c.paint[:i], c.paint[i+1:]...)
			return
		}
	}
}

// SurfacePosition is the surface's screen position; a subsurface is
// slaved to its parent at a fixed offset.
func (c *Compositor) SurfacePosition(h SurfaceHandle) (int32, int32) {
	s := c.Surface(h)
	if s == nil {
		return 0, 0
	}
	if s.role == RoleSubsurface {
		if parent := c.Surface(s.parent); parent != nil {
			px, py := c.SurfacePosition(s.parent)
			return px + s.parentOffX, py + s.parentOffY
		}
	}
	return s.X, s.Y
}

// MakeSubsurface assigns the subsurface role slaved to parent.
func (c *Compositor) MakeSubsurface(h, parent SurfaceHandle, offX, offY int32) error {
	s := c.Surface(h)
	if s == nil || c.Surface(parent) == nil {
		return fmt.Errorf("stale surface handle")
	}
	if err := s.SetRole(RoleSubsurface); err != nil {
		return err
	}
	s.parent = parent
	s.parentOffX = offX
	s.parentOffY = offY
	return nil
}

// GlobalInputRegion is the surface's effective input region translated
// to global coordinates.
func (c *Compositor) GlobalInputRegion(h SurfaceHandle) geometry.Region {
	s := c.Surface(h)
	if s == nil {
		return geometry.Region{}
	}
	x, y := c.SurfacePosition(h)
	return s.EffectiveInputRegion().Translate(x, y)
}

// SurfaceAt resolves the topmost mapped surface whose input region
// contains the global point p.
func (c *Compositor) SurfaceAt(p geometry.Point) SurfaceHandle {
	for i := len(c.paint) - 1; i >= 0; i-- {
		h := c.paint[i]
		s := c.Surface(h)
		if s == nil || !s.Mapped {
			continue
		}
		if c.GlobalInputRegion(h).Contains(p) {
			return h
		}
	}
	return NoSurface
}

// ToLocal converts a global point into h's surface-local coordinates.
func (c *Compositor) ToLocal(h SurfaceHandle, p geometry.Point) geometry.Point {
	x, y := c.SurfacePosition(h)
	return geometry.Point{X: p.X - geometry.F(x), Y: p.Y - geometry.F(y)}
}

// SetActivated records the shell's activated surface.
func (c *Compositor) SetActivated(h SurfaceHandle) {
	c.activated = h
}

// Activated returns the shell's activated surface.
func (c *Compositor) Activated() SurfaceHandle {
	return c.activated
}

// RepaintNeeded reports whether any state changed since the last
// repaint.
func (c *Compositor) RepaintNeeded() bool {
	return c.repaintNeeded
}

// Repaint snapshots the view stack into the output's frame. The
// caller fires the post-repaint breakpoint site afterwards.
func (c *Compositor) Repaint(o *Output) {
	o.frame = append(o.frame[:0], c.paint...)
	c.repaintNeeded = false
	c.log.Debug("repaint", "output", o.ID, "nodes", len(o.frame))
}

// Close releases compositor state in teardown order: surfaces (which
// tear down their constraints through the destroy hooks), then the
// seat.
func (c *Compositor) Close() {
	for id := range c.byID {
		if h, s := c.Lookup(id); s != nil {
			c.DestroySurface(h)
		}
	}
	if c.seat != nil {
		if !c.seat.Release() {
			logger.Invariant("seat double-release")
		}
		c.seat = nil
	}
}
