// Package geometry provides the integer value types used throughout the
// diagram engine: Point, Size, Rect and Color.
//
// Rect follows half-open interval semantics: a point on the exact right or
// bottom edge is outside the rectangle. A zero rectangle (empty size at the
// origin) is treated as "absent" by the set operations, so Union with a zero
// rect is a no-op and Intersect of disjoint rects yields a zero rect.
//
// Mutating methods take pointer receivers and return the receiver for
// chaining; every mutating operation also has a pure counterpart taking a
// value receiver (Union/United, Intersect/Intersected, Offset/Translated).
package geometry

// Point is a 2D coordinate.
type Point struct {
	X, Y int
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Add returns the point translated by p2.
func (p Point) Add(p2 Point) Point { return Point{p.X + p2.X, p.Y + p2.Y} }

// Sub returns the point translated by -p2.
func (p Point) Sub(p2 Point) Point { return Point{p.X - p2.X, p.Y - p2.Y} }

// Size is a 2D extent. A Size with non-positive width or height is empty.
type Size struct {
	Width, Height int
}

// Sz is shorthand for Size{w, h}.
func Sz(w, h int) Size { return Size{Width: w, Height: h} }

// IsEmpty reports whether either dimension is zero or negative.
func (s Size) IsEmpty() bool { return s.Width <= 0 || s.Height <= 0 }

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X, Y, Width, Height int
}

// NewRect constructs a rectangle from top-left coordinates and size.
func NewRect(x, y, w, h int) Rect { return Rect{X: x, Y: y, Width: w, Height: h} }

// RectAt constructs a rectangle from a position and a size.
func RectAt(pos Point, size Size) Rect {
	return Rect{X: pos.X, Y: pos.Y, Width: size.Width, Height: size.Height}
}

// Left returns the minimum X coordinate.
func (r Rect) Left() int { return r.X }

// Top returns the minimum Y coordinate.
func (r Rect) Top() int { return r.Y }

// Right returns the exclusive maximum X coordinate.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive maximum Y coordinate.
func (r Rect) Bottom() int { return r.Y + r.Height }

// TopLeft returns the minimum corner.
func (r Rect) TopLeft() Point { return Point{r.X, r.Y} }

// BottomRight returns the exclusive maximum corner.
func (r Rect) BottomRight() Point { return Point{r.X + r.Width, r.Y + r.Height} }

// Size returns the rectangle's extent.
func (r Rect) Size() Size { return Size{r.Width, r.Height} }

// Center returns the midpoint, rounding toward the top-left.
func (r Rect) Center() Point { return Point{r.X + r.Width/2, r.Y + r.Height/2} }

// IsZero reports whether the rectangle is the absent value: empty size at any
// position counts, so layout code can use the zero Rect as "no bounds yet".
func (r Rect) IsZero() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether the point lies inside the rectangle.
// The right and bottom edges are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// ContainsXY is Contains with bare coordinates.
func (r Rect) ContainsXY(x, y int) bool { return r.Contains(Point{x, y}) }

// ContainsRect reports whether r2 lies fully inside the rectangle.
// Zero rectangles are contained nowhere.
func (r Rect) ContainsRect(r2 Rect) bool {
	if r.IsZero() || r2.IsZero() {
		return false
	}
	return r2.X >= r.X && r2.Y >= r.Y && r2.Right() <= r.Right() && r2.Bottom() <= r.Bottom()
}

// Intersects reports whether the two rectangles overlap in a region of
// positive area.
func (r Rect) Intersects(r2 Rect) bool {
	return !r.Intersected(r2).IsZero()
}

// Intersected returns the overlap of the two rectangles, or a zero Rect if
// they are disjoint.
func (r Rect) Intersected(r2 Rect) Rect {
	x1, y1 := max(r.X, r2.X), max(r.Y, r2.Y)
	x2, y2 := min(r.Right(), r2.Right()), min(r.Bottom(), r2.Bottom())
	if x1 >= x2 || y1 >= y2 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Intersect shrinks the rectangle to the overlap with r2 and returns it.
func (r *Rect) Intersect(r2 Rect) *Rect {
	*r = r.Intersected(r2)
	return r
}

// United returns the bounding box of both rectangles. Zero rectangles are
// treated as absent: uniting with one returns the other unchanged.
func (r Rect) United(r2 Rect) Rect {
	if r2.IsZero() {
		return r
	}
	if r.IsZero() {
		return r2
	}
	x1, y1 := min(r.X, r2.X), min(r.Y, r2.Y)
	x2, y2 := max(r.Right(), r2.Right()), max(r.Bottom(), r2.Bottom())
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Union grows the rectangle to the bounding box of itself and r2 and
// returns it.
func (r *Rect) Union(r2 Rect) *Rect {
	*r = r.United(r2)
	return r
}

// Translated returns the rectangle shifted by (dx, dy).
func (r Rect) Translated(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Offset shifts the rectangle by (dx, dy) and returns it.
func (r *Rect) Offset(dx, dy int) *Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Scaled returns the rectangle with position and size multiplied by factor,
// rounding half away from zero. Used when rescaling bounds between zoom
// levels.
func (r Rect) Scaled(factor float64) Rect {
	return Rect{
		X:      roundInt(float64(r.X) * factor),
		Y:      roundInt(float64(r.Y) * factor),
		Width:  roundInt(float64(r.Width) * factor),
		Height: roundInt(float64(r.Height) * factor),
	}
}

func roundInt(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}

// BoundsOf returns the bounding box of a set of points, or a zero Rect for an
// empty set. Width and height are inclusive of the extreme points, so a
// single point yields a 1x1 rectangle.
func BoundsOf(pts ...Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY, maxX, maxY := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X), max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}
