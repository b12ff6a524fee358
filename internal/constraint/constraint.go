// Package constraint implements the pointer-constraint lifecycle: the
// per-(surface,pointer) constraint objects, the pure state transition
// function, and the manager enforcing the single-constraint rule.
package constraint

import (
	"github.com/bnema/waylab/internal/comp"
	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/proto"
)

// Kind of constraint.
type Kind int

const (
	Confined Kind = iota
	Locked
)

func (k Kind) String() string {
	if k == Locked {
		return "locked"
	}
	return "confined"
}

// State of a constraint.
type State int

const (
	Inactive State = iota
	Active
	Defunct
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Defunct:
		return "defunct"
	}
	return "invalid"
}

// Trigger is an input to the state machine.
type Trigger int

const (
	// TriggerActivate fires on a deliberate interaction (button press
	// inside the surface) while focus is on the constrained surface.
	TriggerActivate Trigger = iota
	// TriggerFocusLost fires when pointer focus leaves the surface.
	TriggerFocusLost
	// TriggerRegionEmptied fires when the effective region becomes empty.
	TriggerRegionEmptied
	// TriggerRevoked fires on a shell-level revocation.
	TriggerRevoked
	// TriggerDestroyed fires on explicit client destruction.
	TriggerDestroyed
)

// Action tells the caller which event, if any, to emit.
type Action int

const (
	ActionNone Action = iota
	ActionEmitActivated
	ActionEmitDeactivated
)

// Transition is the pure, total transition function of the constraint
// state machine. Oneshot constraints go defunct on deactivation;
// persistent ones return to inactive. Destruction is always silent.
func Transition(s State, lifetime proto.Lifetime, t Trigger) (State, Action) {
	if t == TriggerDestroyed {
		return Defunct, ActionNone
	}
	switch s {
	case Inactive:
		if t == TriggerActivate {
			return Active, ActionEmitActivated
		}
		return Inactive, ActionNone
	case Active:
		switch t {
		case TriggerFocusLost, TriggerRegionEmptied, TriggerRevoked:
			if lifetime == proto.LifetimeOneshot {
				return Defunct, ActionEmitDeactivated
			}
			return Inactive, ActionEmitDeactivated
		}
		return Active, ActionNone
	default:
		// Defunct absorbs everything and emits nothing.
		return Defunct, ActionNone
	}
}

// Constraint is one confined- or locked-pointer object. Surface and
// pointer are referenced through the compositor registry; a stale
// surface handle reads as gone.
type Constraint struct {
	ID       proto.ObjectID
	Kind     Kind
	Lifetime proto.Lifetime
	Surface  comp.SurfaceHandle

	// Region is surface-local; nil means the whole input region.
	Region *geometry.Region

	// Hint is the cursor position hint of a locked constraint,
	// surface-local.
	Hint *geometry.Point

	state State
}

// State returns the current lifecycle state.
func (cn *Constraint) State() State {
	return cn.state
}

// EffectiveRegion computes the surface-local effective region:
// constraint region intersected with the surface's input region.
func (cn *Constraint) EffectiveRegion(c *comp.Compositor) geometry.Region {
	s := c.Surface(cn.Surface)
	if s == nil {
		return geometry.Region{}
	}
	input := s.EffectiveInputRegion()
	if cn.Region == nil {
		return input
	}
	return cn.Region.Intersect(input)
}

// GlobalEffectiveRegion is EffectiveRegion translated to global
// coordinates.
func (cn *Constraint) GlobalEffectiveRegion(c *comp.Compositor) geometry.Region {
	x, y := c.SurfacePosition(cn.Surface)
	return cn.EffectiveRegion(c).Translate(x, y)
}
