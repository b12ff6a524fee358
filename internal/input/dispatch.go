// Package input translates raw seat events into the constrained
// pointer motion the clients observe. Dispatch runs single-threaded on
// the server event loop.
package input

import (
	"github.com/bnema/waylab/internal/breakpoint"
	"github.com/bnema/waylab/internal/comp"
	"github.com/bnema/waylab/internal/constraint"
	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/logger"
	"github.com/bnema/waylab/internal/proto"
)

// Sink receives the events dispatch emits toward the focused client.
type Sink func(proto.Event)

// Dispatcher applies the active pointer constraint to every raw event.
type Dispatcher struct {
	comp        *comp.Compositor
	constraints *constraint.Manager
	bp          *breakpoint.Controller
	sink        Sink

	// relativePointers counts the live relative-pointer objects; one
	// RelativeMotion is emitted per raw motion while locked, none when
	// no object exists to receive it.
	relativePointers int

	log interface {
		Debug(msg interface{}, keyvals ...interface{})
	}
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(c *comp.Compositor, m *constraint.Manager, bp *breakpoint.Controller, sink Sink) *Dispatcher {
	return &Dispatcher{
		comp:        c,
		constraints: m,
		bp:          bp,
		sink:        sink,
		log:         logger.Scope("input"),
	}
}

// AddRelativePointer registers a relative-pointer object.
func (d *Dispatcher) AddRelativePointer() {
	d.relativePointers++
}

// RemoveRelativePointer drops one.
func (d *Dispatcher) RemoveRelativePointer() {
	if d.relativePointers > 0 {
		d.relativePointers--
	}
}

func (d *Dispatcher) site() {
	p := d.comp.Pointer()
	var resource proto.ObjectID
	if p != nil && p.HasFocus() {
		if s := d.comp.Surface(p.Focus); s != nil {
			resource = s.ID
		}
	}
	d.bp.Site(proto.BreakpointPreInputDispatch, resource, d.comp)
}

// Motion processes one raw pointer motion toward global candidate
// position raw. Within the tick: constraint transitions apply before
// delivery, at most one absolute and one relative event are emitted,
// and deactivations precede enter/leave.
func (d *Dispatcher) Motion(t uint32, raw geometry.Point) {
	d.site()
	p := d.comp.Pointer()
	if p == nil {
		return
	}

	if cn := d.constraints.ActiveFor(p.Focus); cn != nil {
		switch cn.Kind {
		case constraint.Confined:
			reff := cn.GlobalEffectiveRegion(d.comp)
			if reff.IsEmpty() {
				// An active constraint never has an empty effective
				// region; hold position rather than let the raw point
				// through.
				return
			}
			next := raw
			if !reff.Contains(next) {
				next = reff.Clamp(next)
			}
			// Focus is pinned while confined, even when raw motion
			// would exit the surface.
			if next != p.Pos {
				p.Pos = next
				local := d.comp.ToLocal(p.Focus, next)
				d.sink(proto.Motion{Time: t, X: local.X, Y: local.Y})
			}
		case constraint.Locked:
			// Position is pinned; the raw delta goes out as relative
			// motion instead. Accelerated equals unaccelerated until
			// an acceleration filter is plugged in.
			delta := raw.Sub(p.Pos)
			if (delta != geometry.Point{}) && d.relativePointers > 0 {
				ut := uint64(t) * 1000
				d.sink(proto.RelativeMotion{
					UtimeHi:   uint32(ut >> 32),
					UtimeLo:   uint32(ut),
					Dx:        delta.X,
					Dy:        delta.Y,
					DxUnaccel: delta.X,
					DyUnaccel: delta.Y,
				})
			}
		}
		return
	}

	d.moveUnconstrained(t, raw)
}

func (d *Dispatcher) moveUnconstrained(t uint32, raw geometry.Point) {
	p := d.comp.Pointer()
	newFocus := d.comp.SurfaceAt(raw)
	if newFocus != p.Focus {
		// Deactivation events precede any leave/enter from the same
		// tick.
		d.constraints.FocusLost(p.Focus)
		if old := d.comp.Surface(p.Focus); old != nil {
			d.sink(proto.Leave{Serial: d.comp.Seat().NextSerial(), Surface: old.ID})
		}
		p.Focus = newFocus
		if s := d.comp.Surface(newFocus); s != nil {
			serial := d.comp.Seat().NextSerial()
			p.EnterSerial = serial
			local := d.comp.ToLocal(newFocus, raw)
			d.sink(proto.Enter{Serial: serial, Surface: s.ID, X: local.X, Y: local.Y})
		}
	}
	moved := raw != p.Pos
	p.Pos = raw
	if moved && p.HasFocus() {
		local := d.comp.ToLocal(p.Focus, raw)
		d.sink(proto.Motion{Time: t, X: local.X, Y: local.Y})
	}
}

// RefreshFocus re-resolves pointer focus against the view stack
// without a raw motion, after a surface moved, mapped, or was
// destroyed under the cursor. Unlike Motion this is not pinned by an
// active constraint: a surface pulled out from under the pointer
// loses focus and its constraint deactivates.
func (d *Dispatcher) RefreshFocus(t uint32) {
	p := d.comp.Pointer()
	if p == nil {
		return
	}
	d.moveUnconstrained(t, p.Pos)
}

// Button delivers a button event. Buttons pass constraints unfiltered;
// a press inside the focused surface is the canonical activation
// trigger and the resulting constraint transition applies before the
// press is delivered.
func (d *Dispatcher) Button(t uint32, button uint32, state proto.ButtonState) {
	d.site()
	p := d.comp.Pointer()
	if p == nil {
		return
	}
	if state == proto.ButtonPressed {
		p.ButtonCount++
		if p.HasFocus() {
			d.comp.SetActivated(p.Focus)
		}
		d.constraints.TryActivate()
	} else if p.ButtonCount > 0 {
		p.ButtonCount--
	}
	if p.HasFocus() {
		d.sink(proto.Button{
			Serial: d.comp.Seat().NextSerial(),
			Time:   t,
			Button: button,
			State:  state,
		})
	}
}

// Key delivers a key event; constraints never filter keys.
func (d *Dispatcher) Key(t uint32, key uint32, state proto.ButtonState) {
	d.site()
	if !d.comp.Seat().HasKeyboard {
		logger.Invariant("keyboard device expected but absent")
	}
	d.sink(proto.Key{
		Serial: d.comp.Seat().NextSerial(),
		Time:   t,
		Key:    key,
		State:  state,
	})
}

// Axis delivers a scroll event to the focused surface; constraints
// never filter axes.
func (d *Dispatcher) Axis(t uint32, axis uint32, value geometry.Fixed) {
	d.site()
	p := d.comp.Pointer()
	if p == nil || !p.HasFocus() {
		return
	}
	d.sink(proto.Axis{Time: t, Axis: axis, Value: value})
}

// Touch delivers a touch event. An up event must carry (0, 0).
func (d *Dispatcher) Touch(t uint32, id int32, x, y geometry.Fixed, typ proto.TouchType) error {
	d.site()
	if !d.comp.Seat().HasTouch {
		logger.Invariant("touch device expected but absent")
	}
	if typ == proto.TouchUp && (x != 0 || y != 0) {
		return proto.NewProtocolError(proto.ErrTouchUpWithCoordinate,
			"touch up must carry (0, 0), got (%s, %s)", x, y)
	}
	d.log.Debug("touch", "id", id, "type", typ)
	return nil
}

// Reclamp pulls the pointer back inside an active confined
// constraint's region after a region change, in the same dispatch
// tick. Locked constraints keep their pinned position.
func (d *Dispatcher) Reclamp(cn *constraint.Constraint) {
	if cn.State() != constraint.Active || cn.Kind != constraint.Confined {
		return
	}
	p := d.comp.Pointer()
	if p == nil {
		return
	}
	reff := cn.GlobalEffectiveRegion(d.comp)
	if reff.IsEmpty() || reff.Contains(p.Pos) {
		return
	}
	p.Pos = reff.Clamp(p.Pos)
	local := d.comp.ToLocal(p.Focus, p.Pos)
	d.sink(proto.Motion{Time: 0, X: local.X, Y: local.Y})
}
