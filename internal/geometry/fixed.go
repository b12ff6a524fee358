// Package geometry provides the fixed-point and region math used by the
// compositor core. Coordinates are carried in Q24.8 fixed point, the same
// 1/256-pixel resolution the wire protocol uses.
package geometry

import "fmt"

// Fixed is a signed Q24.8 fixed-point coordinate.
type Fixed int32

const fixedShift = 8

// One is one pixel in fixed-point units.
const One Fixed = 1 << fixedShift

// F converts an integer pixel coordinate to fixed point.
func F(i int32) Fixed {
	return Fixed(i << fixedShift)
}

// FFloat converts a float pixel coordinate to fixed point, truncating
// below 1/256 resolution.
func FFloat(f float64) Fixed {
	return Fixed(f * 256.0)
}

// Int returns the integer pixel part, flooring toward negative infinity.
func (f Fixed) Int() int32 {
	return int32(f >> fixedShift)
}

// Round returns the nearest integer pixel.
func (f Fixed) Round() int32 {
	return int32((f + One/2) >> fixedShift)
}

// Float returns the coordinate as a float64 pixel value.
func (f Fixed) Float() float64 {
	return float64(f) / 256.0
}

func (f Fixed) String() string {
	return fmt.Sprintf("%g", f.Float())
}

// Point is a position in fixed-point coordinates.
type Point struct {
	X, Y Fixed
}

// Pt builds a Point from integer pixel coordinates.
func Pt(x, y int32) Point {
	return Point{X: F(x), Y: F(y)}
}

// Add returns p offset by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the delta p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}
