// Package route computes orthogonal connector geometry for foreign-key
// relations between placed entity boxes.
//
// Routing runs in five ordered passes, each feeding the next: vertical anchor
// selection, horizontal slot assignment on the target edge, start-side
// selection on the source, waypoint synthesis, and decoration (corner
// smoothing, crow's-foot cardinality marker, parent dash, label placement).
package route

import (
	"sort"

	"github.com/tablemap/tablemap/pkg/geometry"
	"github.com/tablemap/tablemap/pkg/schema"
)

// Extent is a measured text size: width/height plus the font's descent and
// external leading, which pad the label box.
type Extent struct {
	Width, Height, Descent, Leading int
}

// Measurer measures label text in the diagram font.
type Measurer func(text string) Extent

// Metrics holds the zoom-scaled size constants routing depends on.
type Metrics struct {
	HeaderH   int // entity header height
	HeaderP   int // margin between header and first column row
	LineH     int // column row height
	BRadius   int // entity corner radius, also the slot spacing unit
	CardinalW int // crow's foot width
	CardinalH int // crow's foot half-height
	DashSideW int // half-width of the parent dash
}

// Segment is one straight piece of a routed line.
type Segment struct {
	A, B geometry.Point
}

// Line is the routed geometry of one relation. Points holds the logical
// waypoints from source to target; Segments the nudged drawing strokes
// derived from them.
type Line struct {
	Key           schema.RelationKey
	Label         string
	Points        []geometry.Point
	Segments      []Segment
	CardinalLines []Segment // crow's foot at the source, dash at the target
	CornerPoints  []geometry.Point
	LabelRect     geometry.Rect
	Bounds        geometry.Rect
}

// Item is a placed entity as the router sees it.
type Item struct {
	Name    string
	Bounds  geometry.Rect
	Columns map[string]int // folded column name -> visible row index
}

// Router computes relation geometry against a fixed canvas.
type Router struct {
	Metrics    Metrics
	CanvasSize geometry.Size
	Measure    Measurer
	ShowLabels bool
	MaxLabel   int // label text length cap; 0 means no cap
}

// Calculate routes the given relations in place. Items are keyed by folded
// entity name. Relations whose endpoints are missing from items are skipped
// and their geometry cleared.
//
// With remake false and a non-empty selection, only relations touching a
// selected entity or a node adjacent to one are recomputed; all others keep
// their previous geometry.
func (r Router) Calculate(items map[string]Item, lines map[schema.RelationKey]*Line, selected map[string]bool, remake bool) {
	subset := lines
	if len(selected) > 0 && !remake {
		subset = r.selectionSubset(lines, selected)
	}

	type bucketKey struct {
		target string
		bottom bool
	}
	buckets := make(map[bucketKey][]schema.RelationKey)

	// Relations are visited in key order so that slot assignment on a shared
	// target edge does not depend on map iteration order.
	keys := make([]schema.RelationKey, 0, len(subset))
	for key := range subset {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	// First pass: starting and ending Y.
	for _, key := range keys {
		line := subset[key]
		src, okS := items[key.Source]
		dst, okT := items[key.Target]
		if !okS || !okT {
			line.Points = nil
			continue
		}
		b1, b2 := src.Bounds, dst.Bounds

		// Anchor on the referencing column's row when visible, else on the
		// header midline.
		idx := -1
		if cols := key.ColumnNames(); len(cols) > 0 {
			if i, ok := src.Columns[cols[0]]; ok {
				idx = i
			}
		}
		y1 := b1.Top() + r.Metrics.HeaderH/2 + 2
		if idx >= 0 {
			y1 = b1.Top() + r.Metrics.HeaderH + r.Metrics.HeaderP + (idx*2+1)*r.Metrics.LineH/2
		}
		y2 := b2.Bottom()
		if y1 < b2.Top() {
			y2 = b2.Top()
		}
		if b1.ContainsXY(b2.Left()+b2.Width/2, y2) {
			// That edge sits inside the source box: take the other one.
			if y1 >= b2.Top() {
				y2 = b2.Top()
			} else {
				y2 = b2.Bottom()
			}
		}

		line.Points = []geometry.Point{{X: -1, Y: y1}, {X: -1, Y: y2}}
		bk := bucketKey{target: key.Target, bottom: y2 == b2.Bottom()}
		buckets[bk] = append(buckets[bk], key)
	}

	// Second pass: ending X. Relations sharing a target edge get evenly
	// spaced slots around the edge center, packed tighter when the box is
	// narrow.
	for bk, slots := range buckets {
		sort.SliceStable(slots, func(i, j int) bool {
			return subset[slots[i]].Points[0].X > subset[slots[j]].Points[0].X
		})
		buckets[bk] = slots

		b2 := items[bk.target].Bounds
		xstep := 2 * r.Metrics.BRadius
		for xstep > 1 && len(slots)*xstep > b2.Width-2*r.Metrics.BRadius {
			xstep--
		}
		shift := 0.5
		if len(slots)%2 == 1 {
			shift = 0
		}
		for i, key := range slots {
			offset := (float64(len(slots)/2) - float64(i) - shift) * float64(xstep)
			subset[key].Points[1].X = b2.Left() + b2.Width/2 + int(offset)
		}
	}

	// Third pass: starting X, from whichever source side faces the slot,
	// unless that side sits too close to the canvas edge.
	for key, line := range subset {
		src, ok := items[key.Source]
		if !ok || len(line.Points) < 2 {
			continue
		}
		b1 := src.Bounds
		useLeft := b1.Left()+b1.Width/2 > line.Points[len(line.Points)-1].X
		x1 := b1.Right() + 1
		if useLeft {
			x1 = b1.Left() - 1
		}
		if !(2*r.Metrics.CardinalW < x1 && x1 < r.CanvasSize.Width-2*r.Metrics.CardinalW) {
			if useLeft {
				x1 = b1.Right() + 1
			} else {
				x1 = b1.Left() - 1
			}
		}
		line.Points[0].X = x1
	}

	// Fourth pass: waypoints between the endpoints. Selected relations are
	// routed last so their detours see the final slots of the others.
	sort.SliceStable(keys, func(i, j int) bool {
		ti := selected[keys[i].Source] || selected[keys[i].Target]
		tj := selected[keys[j].Source] || selected[keys[j].Target]
		if ti != tj {
			return !ti
		}
		return keys[i].String() < keys[j].String()
	})
	for _, key := range keys {
		line := subset[key]
		src, okS := items[key.Source]
		dst, okT := items[key.Target]
		if !okS || !okT || len(line.Points) < 2 {
			continue
		}
		b1, b2 := src.Bounds, dst.Bounds
		pt1 := line.Points[0]
		pt2 := line.Points[len(line.Points)-1]
		slots := buckets[bucketKey{target: key.Target, bottom: pt2.Y == b2.Bottom()}]
		idx := 0
		for i, k := range slots {
			if k == key {
				idx = i
				break
			}
		}

		var wpts []geometry.Point
		if b1.Left()-2*r.Metrics.CardinalW <= pt2.X && pt2.X <= b1.Right()+2*r.Metrics.CardinalW {
			// Target slot directly above or below the source: detour out of
			// the source side, then half-way vertically, then across.
			b1side := b1.Bottom()
			if pt1.Y > pt2.Y {
				b1side = b1.Top()
			}
			outward := 1
			if pt1.X <= b1.Left() {
				outward = -1
			}
			ptm1 := geometry.Pt(pt1.X+2*r.Metrics.CardinalW*outward, pt1.Y)
			ptm2 := geometry.Pt(ptm1.X, pt2.Y+(b1side-pt2.Y)/2)

			if b2.Left() < pt2.X && pt2.X < b2.Right() &&
				b2.Top()-2*r.Metrics.BRadius < ptm2.Y && ptm2.Y < b2.Bottom()+2*r.Metrics.BRadius {
				// Horizontal run would clip the target box: hop over it.
				if pt1.Y > b2.Top() {
					ptm2.Y = b2.Top() - 2*r.Metrics.BRadius
				} else {
					ptm2.Y = b2.Bottom() + 2*r.Metrics.BRadius
				}
			}
			ptm3 := geometry.Pt(pt2.X, ptm2.Y)
			wpts = []geometry.Point{ptm1, ptm2, ptm3}
		} else {
			ptm := geometry.Pt(pt2.X, pt1.Y)
			clearAbove := !b2.ContainsXY(ptm.X, ptm.Y-r.Metrics.CardinalW)
			clearBelow := !b2.ContainsXY(ptm.X, ptm.Y+r.Metrics.CardinalW)
			if clearAbove && clearBelow {
				// Plain elbow.
				wpts = []geometry.Point{ptm}
			} else {
				// Elbow would land inside the target: route around it.
				step := r.Metrics.CardinalW * (idx + 1)
				inB2 := b2.ContainsXY(pt2.X, pt2.Y+step)
				b2side := b2.Right()
				if pt1.X < pt2.X {
					b2side = b2.Left()
				}
				sign := 1
				if inB2 {
					sign = -1
				}
				ptm3 := geometry.Pt(pt2.X, pt2.Y+step*sign)
				if b2.Contains(ptm3) {
					ptm3.Y = pt2.Y - step*sign
				}
				ptm2 := geometry.Pt(pt1.X+(b2side-pt1.X)/2, ptm3.Y)
				ptm1 := geometry.Pt(ptm2.X, pt1.Y)
				wpts = []geometry.Point{ptm1, ptm2, ptm3}
			}
		}
		line.Points = append(append([]geometry.Point{pt1}, wpts...), pt2)
	}

	// Fifth pass: drawing segments with corner smoothing, the cardinality
	// crow's foot, the parent dash and the label box.
	for key, line := range subset {
		dst, ok := items[key.Target]
		if !ok || len(line.Points) < 2 {
			continue
		}
		r.decorate(line, dst.Bounds)
	}
}

// selectionSubset returns the relations that touch a selected entity or a
// node adjacent to one.
func (r Router) selectionSubset(lines map[schema.RelationKey]*Line, selected map[string]bool) map[schema.RelationKey]*Line {
	pairs := make(map[[2]string]bool)
	related := make(map[string]bool)
	for key := range lines {
		if selected[key.Source] || selected[key.Target] {
			pairs[[2]string{key.Source, key.Target}] = true
			if !selected[key.Target] {
				related[key.Target] = true
			}
		}
	}
	subset := make(map[schema.RelationKey]*Line)
	for key, line := range lines {
		if pairs[[2]string{key.Source, key.Target}] || related[key.Target] {
			subset[key] = line
		}
	}
	return subset
}

// decorate turns logical waypoints into nudged drawing segments, corner
// smoothing points, cardinality marker, parent dash and label rect, and
// refreshes the line's bounds.
func (r Router) decorate(line *Line, targetBounds geometry.Rect) {
	pts := line.Points
	m := r.Metrics

	line.Segments = line.Segments[:0]
	line.CornerPoints = line.CornerPoints[:0]
	line.CardinalLines = line.CardinalLines[:0]
	line.LabelRect = geometry.Rect{}

	for i := 0; i < len(pts)-1; i++ {
		wpt1, wpt2 := pts[i], pts[i+1]
		a, b := wpt1, wpt2
		horizontal := wpt1.X != wpt2.X
		forward := wpt1.Y < wpt2.Y
		if horizontal {
			forward = wpt1.X < wpt2.X
		}

		if i > 0 {
			// Not the first step: nudge the start a pixel further along.
			if forward {
				if horizontal {
					a.X++
				} else {
					a.Y++
				}
			}
		} else if !forward && horizontal {
			a.X++
		}
		if i < len(pts)-2 {
			// Not the last step: nudge the end a pixel closer.
			if !forward {
				if horizontal {
					b.X++
				} else {
					b.Y++
				}
			}
		} else if b.Y < a.Y {
			// Last step rising to the item bottom edge.
			b.Y++
		}
		if i > 0 {
			wpt0 := pts[i-1]
			cpt := a
			if horizontal {
				if wpt0.Y < wpt1.Y {
					cpt.Y--
				} else {
					cpt.Y++
				}
				if !forward {
					cpt.X--
				}
			} else {
				if wpt0.X < wpt1.X {
					cpt.X--
				} else {
					cpt.X++
				}
				if !forward {
					cpt.Y--
				}
			}
			line.CornerPoints = append(line.CornerPoints, cpt)
		}
		line.Segments = append(line.Segments, Segment{A: a, B: b})
	}

	// Crow's foot at the source endpoint: center stub plus two prongs.
	inward := 1
	if pts[0].X > pts[1].X {
		inward = -1
	}
	ptc0 := geometry.Pt(pts[0].X+m.CardinalW*inward, pts[0].Y)
	line.CardinalLines = append(line.CardinalLines,
		Segment{A: geometry.Pt(pts[0].X, ptc0.Y-m.CardinalH), B: ptc0},
		Segment{A: geometry.Pt(pts[0].X, ptc0.Y+m.CardinalH), B: ptc0},
		Segment{A: pts[0], B: ptc0},
	)

	// Parent dash just inside the target edge.
	last := pts[len(pts)-1]
	dashDir := -1
	if last.Y > targetBounds.Top() {
		dashDir = 1
	}
	line.CardinalLines = append(line.CardinalLines, Segment{
		A: geometry.Pt(last.X-m.DashSideW, last.Y+dashDir),
		B: geometry.Pt(last.X+m.DashSideW+1, last.Y+dashDir),
	})

	if r.ShowLabels && line.Label != "" && r.Measure != nil {
		text := line.Label
		if r.MaxLabel > 0 {
			text = Ellipsize(text, r.MaxLabel)
		}
		ext := r.Measure(text)
		tw, th := ext.Width+ext.Leading, ext.Height+ext.Descent
		// Center the label on the first vertical run.
		for i := 0; i < len(pts)-1; i++ {
			if pts[i].X != pts[i+1].X {
				continue
			}
			y1, y2 := pts[i].Y, pts[i+1].Y
			if y2 < y1 {
				y1, y2 = y2, y1
			}
			line.LabelRect = geometry.NewRect(pts[i].X-tw/2, y1-th/2+(y2-y1)/2, tw, th)
			break
		}
	}

	var bounds geometry.Rect
	for _, s := range line.Segments {
		bounds.Union(geometry.BoundsOf(s.A, s.B))
	}
	for _, s := range line.CardinalLines {
		bounds.Union(geometry.BoundsOf(s.A, s.B))
	}
	bounds.Union(line.LabelRect)
	line.Bounds = bounds
}

// Ellipsize caps text at limit runes, replacing the overflow with "..".
func Ellipsize(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	if limit <= 2 {
		return string(runes[:limit])
	}
	return string(runes[:limit-2]) + ".."
}
