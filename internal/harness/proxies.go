package harness

import (
	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/proto"
)

// Surface is the client-side handle for a test surface.
type Surface struct {
	ID     proto.ObjectID
	client *Client
}

// CreateSurface makes a bare surface of the given size. It is not
// mapped until a buffer is attached and committed.
func (c *Client) CreateSurface(width, height int32) *Surface {
	s := &Surface{ID: c.NewID(), client: c}
	c.send(proto.CreateSurface{ID: s.ID, Width: width, Height: height})
	return s
}

// AttachShm stages a shared-memory buffer of the given size.
func (s *Surface) AttachShm(width, height int32) {
	s.client.send(proto.AttachBuffer{Surface: s.ID, Width: width, Height: height})
}

// Commit applies pending state; the first commit with a buffer maps
// the surface.
func (s *Surface) Commit() {
	s.client.send(proto.CommitSurface{Surface: s.ID})
}

// Move places the surface's view at a screen position.
func (s *Surface) Move(x, y int32) {
	s.client.send(proto.MoveSurface{Surface: s.ID, X: x, Y: y})
}

// Activate raises the surface and makes it the shell-activated one.
func (s *Surface) Activate() {
	s.client.send(proto.ActivateSurface{Surface: s.ID})
}

// SetInputRegion restricts the surface's input region; nil resets to
// "everywhere".
func (s *Surface) SetInputRegion(r *geometry.Region) {
	s.client.send(proto.SetInputRegion{Surface: s.ID, Region: r})
}

// Destroy tears the surface down; constraints referencing it go
// defunct first.
func (s *Surface) Destroy() {
	s.client.send(proto.DestroySurface{Surface: s.ID})
}

// MapAt attaches a buffer, positions, and commits in one step, then
// fences so the surface is mapped on return.
func (s *Surface) MapAt(x, y, width, height int32) error {
	s.Move(x, y)
	s.AttachShm(width, height)
	s.Commit()
	return s.client.Roundtrip()
}

// ConfinedPointer is the client handle for a confined-pointer
// constraint.
type ConfinedPointer struct {
	ID     proto.ObjectID
	client *Client
}

// Confine requests a confined-pointer constraint; nil region means
// the whole input region.
func (c *Client) Confine(s *Surface, region *geometry.Region, lifetime proto.Lifetime) *ConfinedPointer {
	cp := &ConfinedPointer{ID: c.NewID(), client: c}
	c.send(proto.ConfinePointer{
		ID:       cp.ID,
		Surface:  s.ID,
		Pointer:  1,
		Region:   region,
		Lifetime: lifetime,
	})
	return cp
}

// WaitConfined blocks until the confined event for this constraint.
func (cp *ConfinedPointer) WaitConfined() error {
	_, err := cp.client.WaitFor(func(ev proto.Event) bool {
		e, ok := ev.(proto.Confined)
		return ok && e.Constraint == cp.ID
	})
	return err
}

// WaitUnconfined blocks until the unconfined event.
func (cp *ConfinedPointer) WaitUnconfined() error {
	_, err := cp.client.WaitFor(func(ev proto.Event) bool {
		e, ok := ev.(proto.Unconfined)
		return ok && e.Constraint == cp.ID
	})
	return err
}

// SetRegion replaces the confine region; nil restores the whole input
// region.
func (cp *ConfinedPointer) SetRegion(r *geometry.Region) {
	cp.client.send(proto.SetRegion{Constraint: cp.ID, Region: r})
}

// Destroy releases the constraint.
func (cp *ConfinedPointer) Destroy() {
	cp.client.send(proto.DestroyConstraint{Constraint: cp.ID})
}

// LockedPointer is the client handle for a locked-pointer constraint.
type LockedPointer struct {
	ID     proto.ObjectID
	client *Client
}

// Lock requests a locked-pointer constraint.
func (c *Client) Lock(s *Surface, region *geometry.Region, lifetime proto.Lifetime) *LockedPointer {
	lp := &LockedPointer{ID: c.NewID(), client: c}
	c.send(proto.LockPointer{
		ID:       lp.ID,
		Surface:  s.ID,
		Pointer:  1,
		Region:   region,
		Lifetime: lifetime,
	})
	return lp
}

// WaitLocked blocks until the locked event.
func (lp *LockedPointer) WaitLocked() error {
	_, err := lp.client.WaitFor(func(ev proto.Event) bool {
		e, ok := ev.(proto.Locked)
		return ok && e.Constraint == lp.ID
	})
	return err
}

// WaitUnlocked blocks until the unlocked event.
func (lp *LockedPointer) WaitUnlocked() error {
	_, err := lp.client.WaitFor(func(ev proto.Event) bool {
		e, ok := ev.(proto.Unlocked)
		return ok && e.Constraint == lp.ID
	})
	return err
}

// SetCursorPositionHint tells the compositor where to place the
// cursor on unlock, in surface-local coordinates.
func (lp *LockedPointer) SetCursorPositionHint(x, y geometry.Fixed) {
	lp.client.send(proto.SetCursorPositionHint{Constraint: lp.ID, X: x, Y: y})
}

// SetRegion replaces the lock region.
func (lp *LockedPointer) SetRegion(r *geometry.Region) {
	lp.client.send(proto.SetRegion{Constraint: lp.ID, Region: r})
}

// Destroy releases the constraint.
func (lp *LockedPointer) Destroy() {
	lp.client.send(proto.DestroyConstraint{Constraint: lp.ID})
}

// RelativePointer receives the relative-motion stream while a locked
// constraint is active and accumulates a virtual cursor from the
// deltas.
type RelativePointer struct {
	ID     proto.ObjectID
	client *Client

	virt geometry.Point
}

// GetRelativePointer creates the relative-pointer object for the seat
// pointer.
func (c *Client) GetRelativePointer() *RelativePointer {
	rp := &RelativePointer{ID: c.NewID(), client: c}
	c.send(proto.GetRelativePointer{ID: rp.ID, Pointer: 1})
	return rp
}

// WaitMotion blocks for the next relative-motion event and folds its
// delta into the virtual cursor.
func (rp *RelativePointer) WaitMotion() (proto.RelativeMotion, error) {
	ev, err := rp.client.WaitFor(func(ev proto.Event) bool {
		_, ok := ev.(proto.RelativeMotion)
		return ok
	})
	if err != nil {
		return proto.RelativeMotion{}, err
	}
	rel := ev.(proto.RelativeMotion)
	rp.virt.X += rel.Dx
	rp.virt.Y += rel.Dy
	return rel, nil
}

// Virtual returns the accumulated virtual cursor position.
func (rp *RelativePointer) Virtual() geometry.Point {
	return rp.virt
}

// SeedVirtual initializes the virtual cursor, typically to the
// pointer position at lock time.
func (rp *RelativePointer) SeedVirtual(p geometry.Point) {
	rp.virt = p
}

// Destroy releases the relative pointer.
func (rp *RelativePointer) Destroy() {
	rp.client.send(proto.DestroyRelativePointer{RelativePointer: rp.ID})
}
