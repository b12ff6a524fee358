package comp

import "github.com/bnema/waylab/internal/geometry"

// Pointer is the seat's logical pointer device.
type Pointer struct {
	Pos          geometry.Point
	Focus        SurfaceHandle
	EnterSerial  uint32
	CursorHidden bool

	// ButtonCount tracks currently held buttons so release of the last
	// one can be distinguished.
	ButtonCount int
}

// HasFocus reports whether the pointer currently focuses a surface.
func (p *Pointer) HasFocus() bool {
	return p.Focus != NoSurface
}

// Seat groups the input devices of the single seat this compositor
// supports.
type Seat struct {
	Pointer *Pointer

	HasKeyboard bool
	HasTouch    bool

	serial   uint32
	released bool
}

// NewSeat creates the seat with a pointer and keyboard/touch
// capabilities flagged on.
func NewSeat() *Seat {
	return &Seat{
		Pointer:     &Pointer{Focus: NoSurface},
		HasKeyboard: true,
		HasTouch:    true,
	}
}

// NextSerial returns a fresh event serial.
func (s *Seat) NextSerial() uint32 {
	s.serial++
	return s.serial
}

// Release tears the seat down. Releasing twice is an internal
// invariant violation surfaced to the caller.
func (s *Seat) Release() bool {
	if s.released {
		return false
	}
	s.released = true
	s.Pointer = nil
	return true
}
