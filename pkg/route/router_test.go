package route

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/tablemap/tablemap/pkg/geometry"
	"github.com/tablemap/tablemap/pkg/schema"
)

func testMetrics() Metrics {
	return Metrics{
		HeaderH:   20,
		HeaderP:   5,
		LineH:     15,
		BRadius:   5,
		CardinalW: 7,
		CardinalH: 3,
		DashSideW: 2,
	}
}

func testRouter() Router {
	return Router{
		Metrics:    testMetrics(),
		CanvasSize: geometry.Sz(1000, 800),
		Measure: func(text string) Extent {
			return Extent{Width: 7 * len(text), Height: 12, Descent: 2, Leading: 1}
		},
	}
}

// twoItems places source "a" on the left and target "b" to its upper right,
// the plain single-elbow case.
func twoItems() map[string]Item {
	return map[string]Item{
		"a": {
			Name:    "a",
			Bounds:  geometry.NewRect(50, 300, 140, 120),
			Columns: map[string]int{"id": 0, "b_id": 1, "note": 2},
		},
		"b": {
			Name:    "b",
			Bounds:  geometry.NewRect(400, 60, 120, 90),
			Columns: map[string]int{"id": 0, "name": 1},
		},
	}
}

func oneRelation() (schema.RelationKey, map[schema.RelationKey]*Line) {
	key := schema.NewRelationKey("a", "b", []string{"b_id"})
	return key, map[schema.RelationKey]*Line{key: {Key: key, Label: "b_id"}}
}

func TestCalculateEndpoints(t *testing.T) {
	items := twoItems()
	key, lines := oneRelation()

	testRouter().Calculate(items, lines, nil, true)

	line := lines[key]
	if len(line.Points) < 2 {
		t.Fatalf("got %d waypoints", len(line.Points))
	}
	start := line.Points[0]
	end := line.Points[len(line.Points)-1]
	src := items["a"].Bounds
	dst := items["b"].Bounds

	// Start sits one pixel off the source's left or right edge, anchored on
	// the referencing column's row.
	if start.X != src.Left()-1 && start.X != src.Right()+1 {
		t.Errorf("start X %d not adjacent to source edges %d/%d", start.X, src.Left(), src.Right())
	}
	m := testMetrics()
	wantY := src.Top() + m.HeaderH + m.HeaderP + (1*2+1)*m.LineH/2
	if start.Y != wantY {
		t.Errorf("start Y %d, want %d for column row 1", start.Y, wantY)
	}

	// End sits on the target's top or bottom edge, within the box width.
	if end.Y != dst.Top() && end.Y != dst.Bottom() {
		t.Errorf("end Y %d not on target edges %d/%d", end.Y, dst.Top(), dst.Bottom())
	}
	if end.X < dst.Left() || end.X > dst.Right() {
		t.Errorf("end X %d outside target span [%d,%d]", end.X, dst.Left(), dst.Right())
	}
	// Source below target, so the line attaches to the bottom edge.
	if end.Y != dst.Bottom() {
		t.Errorf("end Y %d, want bottom edge %d", end.Y, dst.Bottom())
	}
}

func TestCalculateHeaderAnchorWhenColumnHidden(t *testing.T) {
	items := twoItems()
	// No visible columns on the source: anchor on the header midline.
	items["a"] = Item{Name: "a", Bounds: items["a"].Bounds, Columns: map[string]int{}}
	key, lines := oneRelation()

	testRouter().Calculate(items, lines, nil, true)

	m := testMetrics()
	wantY := items["a"].Bounds.Top() + m.HeaderH/2 + 2
	if got := lines[key].Points[0].Y; got != wantY {
		t.Errorf("start Y %d, want header midline %d", got, wantY)
	}
}

func TestCalculateDecoration(t *testing.T) {
	items := twoItems()
	key, lines := oneRelation()
	r := testRouter()
	r.ShowLabels = true

	r.Calculate(items, lines, nil, true)
	line := lines[key]

	// Crow's foot at the source plus the parent dash at the target.
	if len(line.CardinalLines) != 4 {
		t.Fatalf("got %d cardinality segments, want 4", len(line.CardinalLines))
	}
	m := testMetrics()
	start := line.Points[0]
	foot := line.CardinalLines[0]
	if foot.B.Y != start.Y {
		t.Errorf("crow's foot apex Y %d, want %d", foot.B.Y, start.Y)
	}
	if d := foot.B.X - start.X; d != m.CardinalW && d != -m.CardinalW {
		t.Errorf("crow's foot apex offset %d, want +-%d", d, m.CardinalW)
	}
	if foot.A.Y != start.Y-m.CardinalH {
		t.Errorf("upper prong Y %d, want %d", foot.A.Y, start.Y-m.CardinalH)
	}

	dash := line.CardinalLines[3]
	if w := dash.B.X - dash.A.X; w != 2*m.DashSideW+1 {
		t.Errorf("dash width %d, want %d", w, 2*m.DashSideW+1)
	}
	end := line.Points[len(line.Points)-1]
	if dash.A.Y != end.Y+1 && dash.A.Y != end.Y-1 {
		t.Errorf("dash Y %d not one pixel inside endpoint Y %d", dash.A.Y, end.Y)
	}

	// Label centered on a vertical run.
	if line.LabelRect.IsZero() {
		t.Fatal("no label rect")
	}
	onVertical := false
	for i := 0; i < len(line.Points)-1; i++ {
		p1, p2 := line.Points[i], line.Points[i+1]
		if p1.X == p2.X && line.LabelRect.Center().X >= p1.X-1 && line.LabelRect.Center().X <= p1.X+1 {
			onVertical = true
		}
	}
	if !onVertical {
		t.Errorf("label rect %v not centered on any vertical run of %v", line.LabelRect, line.Points)
	}

	// Bounds cover everything drawn.
	for _, s := range line.Segments {
		if !line.Bounds.ContainsRect(geometry.BoundsOf(s.A, s.B)) {
			t.Errorf("segment %v outside bounds %v", s, line.Bounds)
		}
	}
	if !line.Bounds.ContainsRect(line.LabelRect) {
		t.Errorf("label %v outside bounds %v", line.LabelRect, line.Bounds)
	}
}

func TestCalculateSlotSpacing(t *testing.T) {
	// Three relations into the same target edge must land on distinct X.
	items := map[string]Item{
		"t": {Name: "t", Bounds: geometry.NewRect(300, 50, 150, 80), Columns: map[string]int{"id": 0}},
	}
	lines := make(map[schema.RelationKey]*Line)
	var keys []schema.RelationKey
	for i, src := range []string{"s1", "s2", "s3"} {
		items[src] = Item{
			Name:    src,
			Bounds:  geometry.NewRect(40, 250+i*160, 120, 100),
			Columns: map[string]int{"t_id": 0},
		}
		key := schema.NewRelationKey(src, "t", []string{"t_id"})
		keys = append(keys, key)
		lines[key] = &Line{Key: key}
	}

	testRouter().Calculate(items, lines, nil, true)

	seen := map[int]schema.RelationKey{}
	for _, key := range keys {
		end := lines[key].Points[len(lines[key].Points)-1]
		if other, dup := seen[end.X]; dup {
			t.Errorf("relations %v and %v share slot X %d", key, other, end.X)
		}
		seen[end.X] = key
		b := items["t"].Bounds
		if end.X < b.Left() || end.X > b.Right() {
			t.Errorf("slot X %d outside target span [%d,%d]", end.X, b.Left(), b.Right())
		}
	}
}

func TestCalculateSlotAssignmentStable(t *testing.T) {
	// Slot assignment on a shared target edge must not depend on map
	// iteration order: every run yields the same end X per relation.
	items := map[string]Item{
		"t": {Name: "t", Bounds: geometry.NewRect(400, 60, 150, 90), Columns: map[string]int{"id": 0}},
	}
	var keys []schema.RelationKey
	for i := 0; i < 3; i++ {
		src := fmt.Sprintf("s%d", i)
		items[src] = Item{
			Name:    src,
			Bounds:  geometry.NewRect(60+180*i, 400, 140, 100),
			Columns: map[string]int{"t_id": 0},
		}
		keys = append(keys, schema.NewRelationKey(src, "t", []string{"t_id"}))
	}

	routeOnce := func() map[schema.RelationKey]int {
		lines := make(map[schema.RelationKey]*Line, len(keys))
		for _, key := range keys {
			lines[key] = &Line{Key: key, Label: "t_id"}
		}
		testRouter().Calculate(items, lines, nil, true)
		ends := make(map[schema.RelationKey]int, len(keys))
		for key, line := range lines {
			ends[key] = line.Points[len(line.Points)-1].X
		}
		return ends
	}

	first := routeOnce()
	for run := 1; run < 50; run++ {
		if got := routeOnce(); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d assigned slots %v, first run %v", run, got, first)
		}
	}
}

func TestCalculateMissingItemSkipped(t *testing.T) {
	items := twoItems()
	delete(items, "b")
	key, lines := oneRelation()
	lines[key].Points = []geometry.Point{{X: 1, Y: 2}}

	testRouter().Calculate(items, lines, nil, true)

	if len(lines[key].Points) != 0 {
		t.Errorf("relation with missing target kept points %v", lines[key].Points)
	}
}

func TestCalculateSelectionScope(t *testing.T) {
	items := twoItems()
	items["c"] = Item{Name: "c", Bounds: geometry.NewRect(700, 500, 120, 90), Columns: map[string]int{"id": 0}}
	items["d"] = Item{Name: "d", Bounds: geometry.NewRect(700, 100, 120, 90), Columns: map[string]int{"c_id": 0}}

	keyAB, lines := oneRelation()
	keyDC := schema.NewRelationKey("d", "c", []string{"c_id"})
	lines[keyDC] = &Line{Key: keyDC}

	r := testRouter()
	r.Calculate(items, lines, nil, true)
	before := append([]geometry.Point(nil), lines[keyDC].Points...)

	// Move the selected source and recalculate only its neighborhood.
	moved := items["a"]
	moved.Bounds = moved.Bounds.Translated(30, -40)
	items["a"] = moved
	r.Calculate(items, lines, map[string]bool{"a": true}, false)

	if got := lines[keyDC].Points; len(got) != len(before) {
		t.Fatalf("unrelated relation recalculated: %v vs %v", got, before)
	}
	for i := range before {
		if lines[keyDC].Points[i] != before[i] {
			t.Errorf("unrelated relation moved at waypoint %d", i)
		}
	}
	src := items["a"].Bounds
	start := lines[keyAB].Points[0]
	if start.X != src.Left()-1 && start.X != src.Right()+1 {
		t.Errorf("selected relation start %v not adjacent to moved source %v", start, src)
	}
}

func TestEllipsize(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly_ten", 11, "exactly_ten"},
		{"customer_order_lines", 10, "customer.."},
		{"ab", 2, "ab"},
		{"abc", 2, "ab"},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := Ellipsize(tt.in, tt.limit); got != tt.want {
			t.Errorf("Ellipsize(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}
