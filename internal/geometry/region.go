package geometry

// Rect is an axis-aligned rectangle with integer pixel edges.
// Spans are half-open: a point belongs to the rect when
// x in [X0, X1) and y in [Y0, Y1). A pixel is a unit square, so the
// last representable position inside is one fixed-point unit short of
// the right/bottom edge.
type Rect struct {
	X0, Y0, X1, Y1 int32
}

// RectXYWH builds a Rect from an origin and size.
func RectXYWH(x, y, w, h int32) Rect {
	return Rect{X0: x, Y0: y, X1: x + w, Y1: y + h}
}

// Empty reports whether the rect contains no points.
func (r Rect) Empty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Contains reports whether p lies inside the rect.
func (r Rect) Contains(p Point) bool {
	return p.X >= F(r.X0) && p.X < F(r.X1) &&
		p.Y >= F(r.Y0) && p.Y < F(r.Y1)
}

// Intersect returns the overlap of two rects; the result may be empty.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X0: max32(r.X0, o.X0),
		Y0: max32(r.Y0, o.Y0),
		X1: min32(r.X1, o.X1),
		Y1: min32(r.Y1, o.Y1),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Translate returns the rect offset by (dx, dy).
func (r Rect) Translate(dx, dy int32) Rect {
	return Rect{X0: r.X0 + dx, Y0: r.Y0 + dy, X1: r.X1 + dx, Y1: r.Y1 + dy}
}

// ClampPoint returns the nearest point inside the rect. Inclusive on
// the left/top edge, exclusive on the right/bottom: the clamped
// coordinate never reaches F(X1).
func (r Rect) ClampPoint(p Point) Point {
	out := p
	if out.X < F(r.X0) {
		out.X = F(r.X0)
	} else if out.X >= F(r.X1) {
		out.X = F(r.X1) - 1
	}
	if out.Y < F(r.Y0) {
		out.Y = F(r.Y0)
	} else if out.Y >= F(r.Y1) {
		out.Y = F(r.Y1) - 1
	}
	return out
}

// Region is an ordered set of rectangles, closed under union and
// intersection. The zero value is the empty region.
type Region struct {
	rects []Rect
}

// RegionFromRect builds a single-rect region.
func RegionFromRect(r Rect) Region {
	var out Region
	out.Add(r)
	return out
}

// Add unions a rect into the region. Empty rects are ignored.
func (g *Region) Add(r Rect) {
	if r.Empty() {
		return
	}
	g.rects = append(g.rects, r)
}

// IsEmpty reports whether the region contains no points.
func (g Region) IsEmpty() bool {
	for _, r := range g.rects {
		if !r.Empty() {
			return false
		}
	}
	return true
}

// Rects returns the rectangles in insertion order.
func (g Region) Rects() []Rect {
	return g.rects
}

// Contains reports whether p lies inside any rect of the region.
func (g Region) Contains(p Point) bool {
	for _, r := range g.rects {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

// IntersectRect returns the region clipped to r.
func (g Region) IntersectRect(r Rect) Region {
	var out Region
	for _, gr := range g.rects {
		out.Add(gr.Intersect(r))
	}
	return out
}

// Intersect returns the pairwise intersection of two regions.
func (g Region) Intersect(o Region) Region {
	var out Region
	for _, gr := range g.rects {
		for _, or := range o.rects {
			out.Add(gr.Intersect(or))
		}
	}
	return out
}

// Translate returns the region offset by (dx, dy).
func (g Region) Translate(dx, dy int32) Region {
	var out Region
	for _, r := range g.rects {
		out.Add(r.Translate(dx, dy))
	}
	return out
}

// Clamp returns the point of the region nearest to p, by Euclidean
// distance; the first rect wins ties. Clamp(p) == p when p is already
// inside. Calling Clamp on an empty region is a caller bug; it returns
// p unchanged.
func (g Region) Clamp(p Point) Point {
	if g.Contains(p) {
		return p
	}
	best := p
	bestDist := int64(-1)
	for _, r := range g.rects {
		if r.Empty() {
			continue
		}
		c := r.ClampPoint(p)
		dx := int64(c.X - p.X)
		dy := int64(c.Y - p.Y)
		d := dx*dx + dy*dy
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// Bounds returns the bounding box of the region.
func (g Region) Bounds() Rect {
	var out Rect
	first := true
	for _, r := range g.rects {
		if r.Empty() {
			continue
		}
		if first {
			out = r
			first = false
			continue
		}
		out.X0 = min32(out.X0, r.X0)
		out.Y0 = min32(out.Y0, r.Y0)
		out.X1 = max32(out.X1, r.X1)
		out.Y1 = max32(out.Y1, r.Y1)
	}
	return out
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
