package harness

import (
	"fmt"

	"github.com/bnema/waylab/internal/proto"
)

// CycleState is the demo driver's constraint mode.
type CycleState int

const (
	CycleUnconstrained CycleState = iota
	CycleConfined
	CycleLocked
)

func (s CycleState) String() string {
	switch s {
	case CycleUnconstrained:
		return "unconstrained"
	case CycleConfined:
		return "confined"
	case CycleLocked:
		return "locked"
	}
	return "invalid"
}

// Cycler toggles unconstrained → confined → locked → unconstrained on
// each left-button press inside the focused surface, exercising the
// whole constraint protocol the way the demo client does.
type Cycler struct {
	client  *Client
	surface *Surface

	state    CycleState
	confined *ConfinedPointer
	locked   *LockedPointer
	relative *RelativePointer
}

// NewCycler builds a cycler for the surface; the relative pointer is
// created up front so locked intervals stream deltas immediately.
func NewCycler(c *Client, s *Surface) *Cycler {
	return &Cycler{
		client:   c,
		surface:  s,
		relative: c.GetRelativePointer(),
	}
}

// State returns the current mode.
func (cy *Cycler) State() CycleState {
	return cy.state
}

// Relative exposes the virtual-cursor accumulator.
func (cy *Cycler) Relative() *RelativePointer {
	return cy.relative
}

// Click advances the cycle with one left-button press+release and
// waits for the constraint event confirming the new mode.
func (cy *Cycler) Click(t uint32) error {
	switch cy.state {
	case CycleUnconstrained:
		cy.confined = cy.client.Confine(cy.surface, nil, proto.LifetimePersistent)
		if err := cy.client.Click(t); err != nil {
			return err
		}
		if err := cy.confined.WaitConfined(); err != nil {
			return fmt.Errorf("confining: %w", err)
		}
		cy.state = CycleConfined

	case CycleConfined:
		cy.confined.Destroy()
		if err := cy.confined.WaitUnconfined(); err != nil {
			return fmt.Errorf("unconfining: %w", err)
		}
		cy.confined = nil
		cy.locked = cy.client.Lock(cy.surface, nil, proto.LifetimePersistent)
		if err := cy.client.Click(t); err != nil {
			return err
		}
		if err := cy.locked.WaitLocked(); err != nil {
			return fmt.Errorf("locking: %w", err)
		}
		cy.state = CycleLocked

	case CycleLocked:
		cy.locked.Destroy()
		if err := cy.locked.WaitUnlocked(); err != nil {
			return fmt.Errorf("unlocking: %w", err)
		}
		cy.locked = nil
		if err := cy.client.Click(t); err != nil {
			return err
		}
		cy.state = CycleUnconstrained
	}
	return nil
}
