package comp

import (
	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/proto"
)

// Role is the at-most-one role a surface may hold.
type Role int

const (
	RoleNone Role = iota
	RoleTest
	RoleSubsurface
	RoleCursor
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleTest:
		return "test"
	case RoleSubsurface:
		return "subsurface"
	case RoleCursor:
		return "cursor"
	}
	return "unknown"
}

// BufferType tags the kind of buffer attached to a surface.
type BufferType int

const (
	BufferNone BufferType = iota
	BufferShm
)

// Buffer is the minimal record the core keeps about client buffers:
// enough for the harness to inspect type and dimensions.
type Buffer struct {
	Type          BufferType
	Width, Height int32
}

// Surface is a client-owned drawing area. It is created bare and
// becomes mappable once a buffer has been attached and committed.
type Surface struct {
	ID            proto.ObjectID
	Width, Height int32
	X, Y          int32 // screen-space position of the surface's view

	// InputRegion is surface-local. Empty means "everywhere".
	InputRegion geometry.Region

	role       Role
	parent     SurfaceHandle
	parentOffX int32
	parentOffY int32

	pending *Buffer
	Buffer  *Buffer
	Mapped  bool
}

// SetRole assigns a role. A role is assigned at most once; any second
// assignment, same role or not, is a protocol violation.
func (s *Surface) SetRole(r Role) error {
	if s.role != RoleNone {
		return proto.NewProtocolError(proto.ErrInvalidSurfaceRole,
			"surface %d already has role %s", s.ID, s.role)
	}
	s.role = r
	return nil
}

// Role returns the surface's current role.
func (s *Surface) Role() Role {
	return s.role
}

// Attach stages a buffer for the next commit.
func (s *Surface) Attach(b *Buffer) {
	s.pending = b
	if b != nil {
		s.Width = b.Width
		s.Height = b.Height
	}
}

// LocalBounds is the surface rectangle in surface-local coordinates.
func (s *Surface) LocalBounds() geometry.Rect {
	return geometry.RectXYWH(0, 0, s.Width, s.Height)
}

// EffectiveInputRegion is the surface-local input region clipped to the
// surface bounds. An empty input region means the whole surface.
func (s *Surface) EffectiveInputRegion() geometry.Region {
	if s.InputRegion.IsEmpty() {
		return geometry.RegionFromRect(s.LocalBounds())
	}
	return s.InputRegion.IntersectRect(s.LocalBounds())
}
