package comp

import (
	"github.com/bnema/waylab/internal/geometry"
	"github.com/bnema/waylab/internal/proto"
)

// Output is one scanout target. Rendering itself is out of scope; the
// output keeps the geometry and the per-frame paint snapshot the
// harness inspects at the post-repaint breakpoint.
type Output struct {
	ID       proto.ObjectID
	Geometry geometry.Rect

	// frame is the paint list captured by the last Repaint, bottom to
	// top.
	frame []SurfaceHandle
}

// TopPaintNode returns the topmost surface of the last repainted
// frame.
func (o *Output) TopPaintNode() (SurfaceHandle, bool) {
	if len(o.frame) == 0 {
		return NoSurface, false
	}
	return o.frame[len(o.frame)-1], true
}

// FrameLen returns the number of paint nodes in the last frame.
func (o *Output) FrameLen() int {
	return len(o.frame)
}
