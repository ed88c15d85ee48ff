package geometry_test

import (
	"fmt"

	"github.com/tablemap/tablemap/pkg/geometry"
)

// Demonstrates rectangle set algebra used throughout layout and routing.
func ExampleRect_United() {
	a := geometry.NewRect(0, 0, 100, 50)
	b := geometry.NewRect(80, 30, 60, 60)

	fmt.Println(a.United(b))
	fmt.Println(a.Intersected(b))
	fmt.Println(a.Intersects(geometry.NewRect(200, 200, 10, 10)))
	// Output:
	// {0 0 140 90}
	// {80 30 20 20}
	// false
}

// Demonstrates deriving a bounding box from routed waypoints.
func ExampleBoundsOf() {
	bounds := geometry.BoundsOf(
		geometry.Pt(10, 40),
		geometry.Pt(90, 40),
		geometry.Pt(90, 120),
	)
	fmt.Println(bounds)
	// Output: {10 40 81 81}
}
