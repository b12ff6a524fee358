package geometry

import "testing"

func TestFixedConversions(t *testing.T) {
	tests := []struct {
		name string
		in   Fixed
		want int32
	}{
		{"whole pixel", F(150), 150},
		{"sub-pixel floors", F(150) + 128, 150},
		{"one unit short of edge", F(200) - 1, 199},
		{"negative floors down", F(-3) - 1, -4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Int(); got != tt.want {
				t.Errorf("Int() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRectContainsHalfOpen(t *testing.T) {
	r := RectXYWH(100, 100, 100, 100)

	if !r.Contains(Pt(100, 100)) {
		t.Error("top-left corner should be inside")
	}
	if r.Contains(Pt(200, 150)) {
		t.Error("right edge should be outside")
	}
	if r.Contains(Pt(150, 200)) {
		t.Error("bottom edge should be outside")
	}
	if !r.Contains(Point{X: F(200) - 1, Y: F(150)}) {
		t.Error("last sub-pixel before the right edge should be inside")
	}
}

func TestRectClampPoint(t *testing.T) {
	r := RectXYWH(100, 100, 100, 100)

	tests := []struct {
		name  string
		in    Point
		wantX int32
		wantY int32
	}{
		{"left of rect", Pt(99, 150), 100, 150},
		{"right of rect", Pt(200, 150), 199, 150},
		{"above rect", Pt(150, 99), 150, 100},
		{"below rect", Pt(150, 200), 150, 199},
		{"inside unchanged", Pt(150, 150), 150, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ClampPoint(tt.in)
			if got.X.Int() != tt.wantX || got.Y.Int() != tt.wantY {
				t.Errorf("ClampPoint(%v) = (%d, %d), want (%d, %d)",
					tt.in, got.X.Int(), got.Y.Int(), tt.wantX, tt.wantY)
			}
		})
	}
}

func TestRegionClamp(t *testing.T) {
	var g Region
	g.Add(RectXYWH(0, 0, 10, 10))
	g.Add(RectXYWH(100, 0, 10, 10))

	// Inside is identity.
	p := Pt(5, 5)
	if got := g.Clamp(p); got != p {
		t.Errorf("Clamp of inside point moved it to %v", got)
	}

	// Between the two rects, the nearer one wins.
	got := g.Clamp(Pt(12, 5))
	if got.X.Int() != 9 || got.Y.Int() != 5 {
		t.Errorf("Clamp(12,5) = (%d,%d), want (9,5)", got.X.Int(), got.Y.Int())
	}
	got = g.Clamp(Pt(98, 5))
	if got.X.Int() != 100 {
		t.Errorf("Clamp(98,5).X = %d, want 100", got.X.Int())
	}

	// Clamp result is always a member of the region.
	for _, raw := range []Point{Pt(-20, -20), Pt(55, 5), Pt(200, 200), Pt(12, 40)} {
		c := g.Clamp(raw)
		if !g.Contains(c) {
			t.Errorf("Clamp(%v) = %v is not inside the region", raw, c)
		}
	}
}

func TestRegionIntersect(t *testing.T) {
	a := RegionFromRect(RectXYWH(0, 0, 100, 100))
	b := RegionFromRect(RectXYWH(50, 50, 100, 100))

	got := a.Intersect(b)
	if got.IsEmpty() {
		t.Fatal("overlapping regions should intersect")
	}
	bounds := got.Bounds()
	want := Rect{X0: 50, Y0: 50, X1: 100, Y1: 100}
	if bounds != want {
		t.Errorf("Intersect bounds = %+v, want %+v", bounds, want)
	}

	disjoint := a.Intersect(RegionFromRect(RectXYWH(500, 500, 10, 10)))
	if !disjoint.IsEmpty() {
		t.Error("disjoint regions should produce an empty intersection")
	}
}

func TestRegionTranslate(t *testing.T) {
	g := RegionFromRect(RectXYWH(0, 0, 10, 10)).Translate(100, 200)
	if !g.Contains(Pt(105, 205)) {
		t.Error("translated region should contain the shifted point")
	}
	if g.Contains(Pt(5, 5)) {
		t.Error("translated region should not contain the original point")
	}
}
