// Package proto defines the typed requests and events exchanged between
// the compositor and its clients. Messages are tagged variants rather
// than a serialized wire format: the test client shares the server's
// address space and delivery order is the queue order.
package proto

import (
	"fmt"

	"github.com/bnema/waylab/internal/geometry"
)

// ObjectID identifies a protocol object (surface, pointer, constraint)
// within one connection.
type ObjectID uint32

// Lifetime of a pointer constraint.
type Lifetime uint32

const (
	LifetimeOneshot    Lifetime = 1 // constraint is defunct after the first deactivation
	LifetimePersistent Lifetime = 2 // constraint survives deactivation and may reactivate
)

// ButtonState of a pointer button or key.
type ButtonState uint32

const (
	ButtonReleased ButtonState = 0
	ButtonPressed  ButtonState = 1
)

// Pointer button codes, matching the linux input event codes the
// compositor forwards unmodified.
const (
	BtnLeft   uint32 = 0x110
	BtnRight  uint32 = 0x111
	BtnMiddle uint32 = 0x112
)

// Axis codes, matching wl_pointer scroll axes.
const (
	AxisVerticalScroll   uint32 = 0
	AxisHorizontalScroll uint32 = 1
)

// TouchType distinguishes touch events.
type TouchType uint32

const (
	TouchDown   TouchType = 0
	TouchUp     TouchType = 1
	TouchMotion TouchType = 2
)

// BreakpointKind names a server-side breakpoint site.
type BreakpointKind uint32

const (
	BreakpointPostRepaint BreakpointKind = iota
	BreakpointPreInputDispatch
	BreakpointSurfaceCommit
)

func (k BreakpointKind) String() string {
	switch k {
	case BreakpointPostRepaint:
		return "post-repaint"
	case BreakpointPreInputDispatch:
		return "pre-input-dispatch"
	case BreakpointSurfaceCommit:
		return "surface-commit"
	}
	return fmt.Sprintf("breakpoint(%d)", uint32(k))
}

// Request is a client-to-server message.
type Request interface{ isRequest() }

// Event is a server-to-client message.
type Event interface{ isEvent() }

// Pointer constraint requests.

type ConfinePointer struct {
	ID       ObjectID // client-allocated id for the new constraint
	Surface  ObjectID
	Pointer  ObjectID
	Region   *geometry.Region // nil means the whole input region
	Lifetime Lifetime
}

type LockPointer struct {
	ID       ObjectID
	Surface  ObjectID
	Pointer  ObjectID
	Region   *geometry.Region
	Lifetime Lifetime
}

type DestroyConstraint struct {
	Constraint ObjectID
}

type SetRegion struct {
	Constraint ObjectID
	Region     *geometry.Region
}

type SetCursorPositionHint struct {
	Constraint ObjectID
	X, Y       geometry.Fixed
}

// Relative pointer requests.

type GetRelativePointer struct {
	ID      ObjectID
	Pointer ObjectID
}

type DestroyRelativePointer struct {
	RelativePointer ObjectID
}

// Core surface requests. The real compositor speaks wl_surface; the
// harness drives the same operations through these.

type CreateSurface struct {
	ID            ObjectID
	Width, Height int32
}

type AttachBuffer struct {
	Surface       ObjectID
	Type          uint32 // BufferShm on the comp side
	Width, Height int32
}

type SetInputRegion struct {
	Surface ObjectID
	Region  *geometry.Region // nil resets to "everywhere"
}

type CommitSurface struct {
	Surface ObjectID
}

type DestroySurface struct {
	Surface ObjectID
}

// Sync is a roundtrip fence: the server answers with SyncDone after
// every earlier request has been processed.
type Sync struct {
	Serial uint32
}

// Test harness requests.

type MovePointer struct {
	Time uint32
	X, Y geometry.Fixed
}

type SendButton struct {
	Time   uint32
	Button uint32
	State  ButtonState
}

type SendKey struct {
	Time  uint32
	Key   uint32
	State ButtonState
}

type SendAxis struct {
	Time  uint32
	Axis  uint32
	Value geometry.Fixed
}

type SendTouch struct {
	Time uint32
	ID   int32
	X, Y geometry.Fixed
	Type TouchType
}

type MoveSurface struct {
	Surface ObjectID
	X, Y    int32
}

type ActivateSurface struct {
	Surface ObjectID
}

type ClientBreak struct {
	Kind     BreakpointKind
	Resource ObjectID // 0 means no filter
}

func (CreateSurface) isRequest()          {}
func (AttachBuffer) isRequest()           {}
func (SetInputRegion) isRequest()         {}
func (CommitSurface) isRequest()          {}
func (DestroySurface) isRequest()         {}
func (Sync) isRequest()                   {}
func (ConfinePointer) isRequest()         {}
func (LockPointer) isRequest()            {}
func (DestroyConstraint) isRequest()      {}
func (SetRegion) isRequest()              {}
func (SetCursorPositionHint) isRequest()  {}
func (GetRelativePointer) isRequest()     {}
func (DestroyRelativePointer) isRequest() {}
func (MovePointer) isRequest()            {}
func (SendButton) isRequest()             {}
func (SendKey) isRequest()                {}
func (SendAxis) isRequest()               {}
func (SendTouch) isRequest()              {}
func (MoveSurface) isRequest()            {}
func (ActivateSurface) isRequest()        {}
func (ClientBreak) isRequest()            {}

// Constraint events.

type Confined struct {
	Constraint ObjectID
}

type Unconfined struct {
	Constraint ObjectID
}

type Locked struct {
	Constraint ObjectID
}

type Unlocked struct {
	Constraint ObjectID
}

// RelativeMotion carries one locked-pointer delta. Accelerated and
// unaccelerated values are identical until an acceleration filter is
// plugged in.
type RelativeMotion struct {
	UtimeHi, UtimeLo     uint32
	Dx, Dy               geometry.Fixed
	DxUnaccel, DyUnaccel geometry.Fixed
}

// Pointer events.

type Enter struct {
	Serial  uint32
	Surface ObjectID
	X, Y    geometry.Fixed // surface-local
}

type Leave struct {
	Serial  uint32
	Surface ObjectID
}

type Motion struct {
	Time uint32
	X, Y geometry.Fixed // surface-local
}

type Button struct {
	Serial uint32
	Time   uint32
	Button uint32
	State  ButtonState
}

type Key struct {
	Serial uint32
	Time   uint32
	Key    uint32
	State  ButtonState
}

type Axis struct {
	Time  uint32
	Axis  uint32
	Value geometry.Fixed
}

// PointerPosition reports the global pointer position to the harness.
type PointerPosition struct {
	X, Y geometry.Fixed
}

// SyncDone answers a Sync fence.
type SyncDone struct {
	Serial uint32
}

// FatalError reports a protocol violation to the offending client just
// before the server disconnects it.
type FatalError struct {
	Code    ErrorCode
	Message string
}

func (Confined) isEvent()        {}
func (Unconfined) isEvent()      {}
func (Locked) isEvent()          {}
func (Unlocked) isEvent()        {}
func (RelativeMotion) isEvent()  {}
func (Enter) isEvent()           {}
func (Leave) isEvent()           {}
func (Motion) isEvent()          {}
func (Button) isEvent()          {}
func (Key) isEvent()             {}
func (Axis) isEvent()            {}
func (PointerPosition) isEvent() {}
func (SyncDone) isEvent()        {}
func (FatalError) isEvent()      {}
