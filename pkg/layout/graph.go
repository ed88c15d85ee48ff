// Package layout computes entity placements for schema diagrams. Two
// strategies are provided: a deterministic skyline grid packing (Grid) and an
// iterative force-directed simulation (Physics.Layout) for relation-aware,
// organic placement.
package layout

import (
	"math"

	"github.com/tablemap/tablemap/pkg/geometry"
)

// Physics holds the tuning constants of the force-directed simulation. All
// values are exposed so hosts can trade convergence speed against layout
// quality; DefaultPhysics returns the shipped defaults.
type Physics struct {
	// EdgeWeight multiplies the attraction of every relation. Higher values
	// group related entities tighter at the cost of slower convergence.
	EdgeWeight float64
	// MaxIterations caps the simulation loop.
	MaxIterations int
	// MinCompletionDistance stops the loop once no node moved further than
	// this in an iteration.
	MinCompletionDistance float64
	// Inertia scales how much of the previous iteration's force carries over.
	Inertia float64
	// Repulsion scales the force pushing all node pairs apart.
	Repulsion float64
	// Attraction scales the force pulling related nodes together.
	Attraction float64
	// MaxDisplace caps per-axis node movement in one iteration.
	MaxDisplace float64
	// FreezeBalance enables oscillation damping for unstable nodes.
	FreezeBalance bool
	// FreezeStrength scales how strongly force reversals accumulate into the
	// per-node freeze memory.
	FreezeStrength float64
	// FreezeInertia smooths the freeze memory, in [0..1].
	FreezeInertia float64
	// Gravity pulls every node toward the origin; smaller values let weakly
	// connected nodes drift further out.
	Gravity float64
	// Speed scales accumulated force before displacement.
	Speed float64
	// Cooling divides the final displacement when above zero.
	Cooling float64
	// OutboundAttraction distributes attraction along a node's relations so
	// hubs migrate toward the center instead of pulling all neighbors onto
	// themselves.
	OutboundAttraction bool
}

// DefaultPhysics returns the standard simulation constants.
func DefaultPhysics() Physics {
	return Physics{
		EdgeWeight:            1,
		MaxIterations:         100,
		MinCompletionDistance: 0.1,
		Inertia:               0.1,
		Repulsion:             400,
		Attraction:            1,
		MaxDisplace:           10,
		FreezeBalance:         true,
		FreezeStrength:        80,
		FreezeInertia:         0.2,
		Gravity:               50,
		Speed:                 1,
		Cooling:               1.0,
		OutboundAttraction:    true,
	}
}

// Node is one simulated body: an entity box identified by name.
type Node struct {
	Name string
	Pos  geometry.Point
	Size geometry.Size
}

// Link is an undirected relation between two named nodes.
type Link struct {
	From, To string
}

// graphNode is the mutable per-node simulation state.
type graphNode struct {
	name        string
	w, h        float64
	x, y        float64
	dx, dy      float64
	dx0, dy0    float64
	freeze      float64
	span        float64
	cardinality int
	fixed       bool // reserved for pinned nodes
}

func (n *graphNode) intersects(o *graphNode) bool {
	x1, y1 := math.Max(n.x, o.x), math.Max(n.y, o.y)
	x2, y2 := math.Min(n.x+n.w, o.x+o.w), math.Min(n.y+n.h, o.y+o.h)
	return x1 < x2 && y1 < y2
}

// Layout runs the force-directed simulation and returns the final top-left
// position per node name.
//
// The loop terminates when the largest per-iteration displacement drops below
// MinCompletionDistance or MaxIterations is reached. If progress is non-nil
// it is invoked once per iteration with the iteration ordinal; returning
// false stops the loop early and the positions computed so far are returned.
func (p Physics) Layout(nodes []Node, links []Link, bounds, viewport geometry.Rect, progress func(iteration int) bool) map[string]geometry.Point {
	sim := make(map[string]*graphNode, len(nodes))
	order := make([]*graphNode, 0, len(nodes))
	for _, in := range nodes {
		n := &graphNode{
			name: in.Name,
			w:    float64(in.Size.Width),
			h:    float64(in.Size.Height),
		}
		n.span = math.Sqrt(n.w*n.w+n.h*n.h) / 2.5
		sim[foldName(in.Name)] = n
		order = append(order, n)
	}
	var edges [][2]*graphNode
	for _, l := range links {
		n1, n2 := sim[foldName(l.From)], sim[foldName(l.To)]
		if n1 == nil || n2 == nil || n1 == n2 {
			continue
		}
		n1.cardinality++
		n2.cardinality++
		edges = append(edges, [2]*graphNode{n1, n2})
	}

	// All nodes start at the viewport center; isolated nodes are pushed
	// aside so they do not bury the connected cluster.
	cx := float64(viewport.X) + float64(viewport.Width)/2
	cy := float64(viewport.Y) + float64(viewport.Height)/2
	for _, n := range order {
		n.x, n.y = cx-n.w/2, cy-n.h/2
		if n.cardinality == 0 {
			n.x += 200
		}
	}

	for step := 0; ; step++ {
		if progress != nil && !progress(step) {
			break
		}
		dist := p.iterate(order, edges, bounds)
		if dist < p.MinCompletionDistance || step+1 >= p.MaxIterations {
			break
		}
	}

	out := make(map[string]geometry.Point, len(order))
	for _, n := range order {
		out[n.name] = geometry.Pt(int(math.Round(n.x)), int(math.Round(n.y)))
	}
	return out
}

// iterate advances the simulation one step and returns the largest absolute
// displacement applied to any node.
func (p Physics) iterate(nodes []*graphNode, edges [][2]*graphNode, bounds geometry.Rect) float64 {
	for _, n := range nodes {
		n.dx0, n.dy0 = n.dx, n.dy
		n.dx *= p.Inertia
		n.dy *= p.Inertia
	}

	// Repulsion between every unordered pair, stronger for hubs.
	for i, n1 := range nodes {
		for _, n2 := range nodes[i+1:] {
			c := p.Repulsion * float64(1+n1.cardinality) * float64(1+n2.cardinality)
			p.repulse(n1, n2, c)
		}
	}

	// Attraction along relations.
	outbound := 0.0
	if p.OutboundAttraction {
		outbound = 1
	}
	for _, e := range edges {
		n1, n2 := e[0], e[1]
		bonus := 1.0
		if n1.fixed || n2.fixed {
			bonus = 100
		}
		bonus *= p.EdgeWeight
		c := bonus * p.Attraction / (1 + float64(n1.cardinality)*outbound)
		attract(n1, n2, c)
	}

	// Gravity toward the origin keeps disconnected components from drifting.
	for _, n := range nodes {
		if n.fixed {
			continue
		}
		d := 0.0001 + math.Hypot(n.x, n.y)
		gf := 0.0001 * p.Gravity * d
		n.dx -= gf * n.x / d
		n.dy -= gf * n.y / d
	}

	speed := p.Speed
	if p.FreezeBalance {
		speed *= 10
	}
	for _, n := range nodes {
		if n.fixed {
			continue
		}
		n.dx *= speed
		n.dy *= speed
	}

	var result float64
	for _, n := range nodes {
		if n.fixed {
			continue
		}
		d := 0.0001 + math.Hypot(n.dx, n.dy)
		var ratio float64
		if p.FreezeBalance {
			ddist := math.Hypot(n.dx0-n.dx, n.dy0-n.dy)
			n.freeze = p.FreezeInertia*n.freeze +
				(1-p.FreezeInertia)*0.1*p.FreezeStrength*math.Sqrt(ddist)
			ratio = math.Min(d/(d*(1+n.freeze)), p.MaxDisplace/d)
		} else {
			ratio = math.Min(1, p.MaxDisplace/d)
		}
		n.dx *= ratio / p.Cooling
		n.dy *= ratio / p.Cooling

		// Bounce back from the bounding rectangle instead of wrapping.
		x, y := n.x+n.dx, n.y+n.dy
		if x < float64(bounds.X) {
			n.dx = float64(bounds.X) - n.x
		} else if x+n.w > float64(bounds.Right()) {
			n.dx = float64(bounds.Width) - n.w - n.x + float64(bounds.X)
		}
		if y < float64(bounds.Y) {
			n.dy = float64(bounds.Y) - n.y
		} else if y+n.h > float64(bounds.Bottom()) {
			n.dy = float64(bounds.Height) - n.h - n.y + float64(bounds.Y)
		}

		n.x += n.dx
		n.y += n.dy
		result = math.Max(result, math.Max(math.Abs(n.dx), math.Abs(n.dy)))
	}
	return result
}

// repulse applies a pair force inversely proportional to the gap between the
// two boxes. Overlapping boxes are pushed apart a hundredfold; coincident
// nodes get a fixed nudge to break the degeneracy.
func (p Physics) repulse(n1, n2 *graphNode, c float64) {
	xdist, ydist := n1.x-n2.x, n1.y-n2.y
	dist := math.Hypot(xdist, ydist) - n1.span - n2.span

	if xdist == 0 && ydist == 0 {
		if !n1.fixed {
			n1.dx += 0.01 * c
			n1.dy += 0.01 * c
		}
		if !n2.fixed {
			n2.dx -= 0.01 * c
			n2.dy -= 0.01 * c
		}
		return
	}

	f := -c
	if dist > 0 {
		f = 0.001 * c / dist
	}
	if n1.intersects(n2) {
		f *= 100
	}
	if dist == 0 {
		return
	}
	if !n1.fixed {
		n1.dx += xdist / dist * f
		n1.dy += ydist / dist * f
	}
	if !n2.fixed {
		n2.dx -= xdist / dist * f
		n2.dy -= ydist / dist * f
	}
}

// attract applies a spring force linear in the gap between the two boxes.
func attract(n1, n2 *graphNode, c float64) {
	xdist, ydist := n1.x-n2.x, n1.y-n2.y
	dist := math.Hypot(xdist, ydist) - n1.span - n2.span
	if dist == 0 {
		return
	}
	f := 0.01 * -c * dist
	if !n1.fixed {
		n1.dx += xdist / dist * f
		n1.dy += ydist / dist * f
	}
	if !n2.fixed {
		n2.dx -= xdist / dist * f
		n2.dy -= ydist / dist * f
	}
}
