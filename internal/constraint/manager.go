package constraint

import (
	"github.com/bnema/waylab/internal/comp"
	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/logger"
	"github.com/bnema/waylab/internal/proto"
)

// EventSink receives the constraint events the manager emits toward
// the owning client.
type EventSink func(proto.Event)

// ActivationPolicy decides whether the shell considers the trigger
// requirement met for a constraint. The default requires the surface
// to be the shell's activated surface, which only a deliberate
// interaction (button press inside it, or explicit activation)
// establishes. A bare focus-in never activates: the manager consults
// the policy only at constraint creation and on a button press.
type ActivationPolicy func(c *comp.Compositor, cn *Constraint) bool

func defaultPolicy(c *comp.Compositor, cn *Constraint) bool {
	return c.Activated() == cn.Surface
}

// Manager owns every constraint of the single seat and enforces the
// at-most-one non-defunct constraint per (surface, pointer) rule.
type Manager struct {
	comp   *comp.Compositor
	sink   EventSink
	policy ActivationPolicy

	constraints []*Constraint

	log interface {
		Debug(msg interface{}, keyvals ...interface{})
	}
}

// NewManager wires a manager to the compositor. The manager registers
// a surface-destroy hook so constraints tear down before their
// surface.
func NewManager(c *comp.Compositor, sink EventSink) *Manager {
	m := &Manager{
		comp:   c,
		sink:   sink,
		policy: defaultPolicy,
		log:    logger.Scope("constraint"),
	}
	c.OnSurfaceDestroy(m.surfaceDestroyed)
	return m
}

// SetActivationPolicy replaces the default button-press trigger
// policy.
func (m *Manager) SetActivationPolicy(p ActivationPolicy) {
	if p != nil {
		m.policy = p
	}
}

// live returns the non-defunct constraint for the surface, if any.
func (m *Manager) live(h comp.SurfaceHandle) *Constraint {
	for _, cn := range m.constraints {
		if cn.Surface == h && cn.state != Defunct {
			return cn
		}
	}
	return nil
}

// Get resolves a constraint by protocol id.
func (m *Manager) Get(id proto.ObjectID) *Constraint {
	for _, cn := range m.constraints {
		if cn.ID == id {
			return cn
		}
	}
	return nil
}

// ActiveFor returns the active constraint on the surface, if any.
func (m *Manager) ActiveFor(h comp.SurfaceHandle) *Constraint {
	if cn := m.live(h); cn != nil && cn.state == Active {
		return cn
	}
	return nil
}

// Confine creates a confined-pointer constraint in the inactive
// state. The pointer already being inside the surface does not
// activate it.
func (m *Manager) Confine(id proto.ObjectID, surface comp.SurfaceHandle, region *geometry.Region, lifetime proto.Lifetime) (*Constraint, error) {
	return m.create(id, Confined, surface, region, lifetime)
}

// Lock creates a locked-pointer constraint in the inactive state.
func (m *Manager) Lock(id proto.ObjectID, surface comp.SurfaceHandle, region *geometry.Region, lifetime proto.Lifetime) (*Constraint, error) {
	return m.create(id, Locked, surface, region, lifetime)
}

func (m *Manager) create(id proto.ObjectID, kind Kind, surface comp.SurfaceHandle, region *geometry.Region, lifetime proto.Lifetime) (*Constraint, error) {
	if m.comp.Surface(surface) == nil {
		return nil, proto.NewProtocolError(proto.ErrNoMemory, "constraint on dead surface")
	}
	if m.live(surface) != nil {
		return nil, proto.NewProtocolError(proto.ErrAlreadyConstrained,
			"surface already has a pointer constraint")
	}
	cn := &Constraint{
		ID:       id,
		Kind:     kind,
		Lifetime: lifetime,
		Surface:  surface,
		Region:   region,
		state:    Inactive,
	}
	m.constraints = append(m.constraints, cn)
	m.log.Debug("constraint created", "id", id, "kind", kind, "lifetime", lifetime)
	return cn, nil
}

// apply runs one trigger through the state machine and emits the
// resulting event. Cursor visibility follows locked activation.
func (m *Manager) apply(cn *Constraint, t Trigger) {
	old := cn.state
	next, action := Transition(cn.state, cn.Lifetime, t)
	cn.state = next
	if next != old {
		m.log.Debug("constraint transition", "id", cn.ID, "from", old, "to", next)
	}
	switch action {
	case ActionEmitActivated:
		if cn.Kind == Locked {
			if p := m.comp.Pointer(); p != nil {
				p.CursorHidden = true
			}
			m.sink(proto.Locked{Constraint: cn.ID})
		} else {
			m.sink(proto.Confined{Constraint: cn.ID})
		}
	case ActionEmitDeactivated:
		if cn.Kind == Locked {
			if p := m.comp.Pointer(); p != nil {
				p.CursorHidden = false
				// The pending position hint is consumed on unlock: the
				// cursor reappears where the client last placed it.
				if cn.Hint != nil {
					x, y := m.comp.SurfacePosition(cn.Surface)
					p.Pos = geometry.Point{
						X: cn.Hint.X + geometry.F(x),
						Y: cn.Hint.Y + geometry.F(y),
					}
					cn.Hint = nil
				}
			}
			m.sink(proto.Unlocked{Constraint: cn.ID})
		} else {
			m.sink(proto.Unconfined{Constraint: cn.ID})
		}
	}
}

// TryActivate runs the activation trigger against the inactive
// constraint of the focused surface, if any. Called by the dispatcher
// on the canonical trigger (button press) before the press is
// delivered.
func (m *Manager) TryActivate() *Constraint {
	p := m.comp.Pointer()
	if p == nil || !p.HasFocus() {
		return nil
	}
	cn := m.live(p.Focus)
	if cn == nil || cn.state != Inactive {
		return nil
	}
	if cn.EffectiveRegion(m.comp).IsEmpty() {
		return nil
	}
	if !m.policy(m.comp, cn) {
		return nil
	}
	m.apply(cn, TriggerActivate)
	return cn
}

// FocusLost deactivates the active constraint of a surface the
// pointer focus is leaving. The deactivation event is emitted before
// any enter/leave of the same tick; the dispatcher calls this first.
func (m *Manager) FocusLost(h comp.SurfaceHandle) {
	if cn := m.ActiveFor(h); cn != nil {
		m.apply(cn, TriggerFocusLost)
	}
}

// Revoke is the shell-level deactivation signal.
func (m *Manager) Revoke(h comp.SurfaceHandle) {
	if cn := m.ActiveFor(h); cn != nil {
		m.apply(cn, TriggerRevoked)
	}
}

// SetRegion updates the constraint region. An active confined
// constraint whose pointer ends up outside the new effective region
// is clamped by the caller in the same dispatch tick; an emptied
// region deactivates.
func (m *Manager) SetRegion(cn *Constraint, region *geometry.Region) {
	cn.Region = region
	if cn.state == Active && cn.EffectiveRegion(m.comp).IsEmpty() {
		m.apply(cn, TriggerRegionEmptied)
	}
}

// InputRegionChanged re-evaluates the surface's constraint after its
// input region changed: an active constraint whose effective region
// became empty deactivates, exactly as with SetRegion. Returns the
// live constraint so the caller can re-clamp in the same tick.
func (m *Manager) InputRegionChanged(h comp.SurfaceHandle) *Constraint {
	cn := m.live(h)
	if cn == nil {
		return nil
	}
	if cn.state == Active && cn.EffectiveRegion(m.comp).IsEmpty() {
		m.apply(cn, TriggerRegionEmptied)
	}
	return cn
}

// SetCursorPositionHint records the locked-cursor hint. Hints on a
// confined constraint are ignored.
func (m *Manager) SetCursorPositionHint(cn *Constraint, hint geometry.Point) {
	if cn.Kind != Locked {
		return
	}
	h := hint
	cn.Hint = &h
}

// Destroy is the explicit client destruction: straight to defunct with
// no event, but an active constraint first emits its deactivation so
// the client observes unlocked/unconfined.
func (m *Manager) Destroy(cn *Constraint) {
	if cn.state == Active {
		m.apply(cn, TriggerRevoked)
	}
	m.apply(cn, TriggerDestroyed)
	if p := m.comp.Pointer(); p != nil && cn.Kind == Locked {
		p.CursorHidden = false
	}
}

// surfaceDestroyed tears down every constraint referencing the
// surface; runs before the surface leaves the registry.
func (m *Manager) surfaceDestroyed(h comp.SurfaceHandle) {
	for _, cn := range m.constraints {
		if cn.Surface == h && cn.state != Defunct {
			m.Destroy(cn)
		}
	}
}

// PointerDestroyed tears down every constraint on seat release.
func (m *Manager) PointerDestroyed() {
	for _, cn := range m.constraints {
		if cn.state != Defunct {
			m.apply(cn, TriggerDestroyed)
		}
	}
}

// Constraints returns all constraints, defunct included; used by the
// harness inside breakpoints.
func (m *Manager) Constraints() []*Constraint {
	return m.constraints
}
