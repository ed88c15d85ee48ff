package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tablemap/tablemap/pkg/fonts"
	"github.com/tablemap/tablemap/pkg/geometry"
	"github.com/tablemap/tablemap/pkg/route"
	"github.com/tablemap/tablemap/pkg/schema"
)

func testCatalog(t *testing.T) *fonts.Catalog {
	t.Helper()
	// Unresolvable candidate forces the embedded fonts, keeping the test
	// independent of installed system fonts.
	return fonts.Resolve([]string{"No Such Typeface"}, nil)
}

func testBox() Box {
	return Box{
		Name: "users",
		Columns: []ColumnLine{
			{Name: "id", Type: "INTEGER", Primary: true},
			{Name: "org_id", Type: "INTEGER", Foreign: true},
			{Name: "email", Type: "TEXT"},
		},
		StatsText: "50 rows",
	}
}

func TestMetricsScaled(t *testing.T) {
	base := BaseMetrics()
	half := base.Scaled(0.5)
	if half.LineH != 8 {
		t.Errorf("LineH at 0.5 = %d, want 8 (ceil of 7.5)", half.LineH)
	}
	if half.FMargin < 1 {
		t.Errorf("FMargin collapsed to %d", half.FMargin)
	}
	double := base.Scaled(2)
	if double.HeaderH != 2*base.HeaderH {
		t.Errorf("HeaderH at 2.0 = %d, want %d", double.HeaderH, 2*base.HeaderH)
	}
}

func TestEntitySizeMinimumWidth(t *testing.T) {
	m := BaseMetrics()
	size := m.EntitySize(10, 2, false)
	if size.Width != m.MinW {
		t.Errorf("narrow content width %d, want minimum %d", size.Width, m.MinW)
	}
	wantH := m.HeaderH + m.HeaderP + 2*m.LineH + m.FooterH
	if size.Height != wantH {
		t.Errorf("height %d, want %d", size.Height, wantH)
	}
	if with := m.EntitySize(10, 2, true); with.Height != wantH+m.StatsH {
		t.Errorf("stats height %d, want %d", with.Height, wantH+m.StatsH)
	}
}

func TestRasterEntity(t *testing.T) {
	r := NewRaster(testCatalog(t), BaseMetrics(), DefaultTheme())
	size := BaseMetrics().EntitySize(150, 3, true)

	img := r.Entity(testBox(), size, false)
	if img == nil {
		t.Fatal("nil bitmap")
	}
	if img.Bounds().Dx() != size.Width || img.Bounds().Dy() != size.Height {
		t.Errorf("bitmap %v, want %v", img.Bounds(), size)
	}

	sel := r.Entity(testBox(), size, true)
	if sel == nil {
		t.Fatal("nil selected bitmap")
	}
}

func TestHeadlessMeasuresWithoutDrawing(t *testing.T) {
	h := NewHeadless(testCatalog(t), BaseMetrics())
	ext := h.Measure("customer_orders", false)
	if ext.Width <= 0 || ext.Height <= 0 {
		t.Errorf("degenerate extent %+v", ext)
	}
	if bold := h.Measure("customer_orders", true); bold.Width <= ext.Width/2 {
		t.Errorf("bold extent %+v implausibly small vs %+v", bold, ext)
	}
	if img := h.Entity(testBox(), geometry.Sz(100, 80), false); img != nil {
		t.Error("headless surface must not produce bitmaps")
	}
}

func TestComposeCoversCanvas(t *testing.T) {
	r := NewRaster(testCatalog(t), BaseMetrics(), DefaultTheme())
	size := BaseMetrics().EntitySize(120, 2, false)
	bitmap := r.Entity(testBox(), size, false)

	line := &route.Line{
		Key:    schema.NewRelationKey("users", "orgs", []string{"org_id"}),
		Label:  "org_id",
		Points: []geometry.Point{{X: 160, Y: 80}, {X: 300, Y: 80}, {X: 300, Y: 40}},
		Segments: []route.Segment{
			{A: geometry.Pt(160, 80), B: geometry.Pt(300, 80)},
			{A: geometry.Pt(300, 80), B: geometry.Pt(300, 40)},
		},
	}

	img := r.Compose(geometry.Sz(600, 400), []Placed{
		{Bitmap: bitmap, Bounds: geometry.RectAt(geometry.Pt(20, 30), size)},
	}, []*route.Line{line}, nil)

	if img.Bounds().Dx() != 600 || img.Bounds().Dy() != 400 {
		t.Errorf("composed image %v, want 600x400", img.Bounds())
	}
}

func TestScale(t *testing.T) {
	r := NewRaster(testCatalog(t), BaseMetrics(), DefaultTheme())
	img := r.Compose(geometry.Sz(200, 100), nil, nil, nil)

	scaled := Scale(img, 0.5)
	if scaled.Bounds().Dx() != 100 || scaled.Bounds().Dy() != 50 {
		t.Errorf("scaled to %v, want 100x50", scaled.Bounds())
	}
	if Scale(img, 1) != img {
		t.Error("factor 1 should return the input unchanged")
	}
}

func TestRenderSVG(t *testing.T) {
	items := []SVGItem{{
		Box:    testBox(),
		Bounds: geometry.NewRect(20, 30, 160, 90),
	}}
	line := &route.Line{
		Label:  "org_id",
		Points: []geometry.Point{{X: 181, Y: 60}, {X: 300, Y: 60}, {X: 300, Y: 200}},
		CardinalLines: []route.Segment{
			{A: geometry.Pt(181, 57), B: geometry.Pt(188, 60)},
		},
		LabelRect: geometry.NewRect(280, 120, 40, 14),
	}

	out := RenderSVG(geometry.Sz(600, 400), items, []*route.Line{line},
		WithSVGTitle("app.db"))
	svg := string(out)

	for _, want := range []string{
		"<svg xmlns", "</svg>", "<title>app.db</title>",
		`id="entity-users"`, ">users<", ">email<", ">org_id<",
		"<polyline", "url(#header)",
	} {
		if !strings.Contains(svg, want) {
			t.Errorf("SVG missing %q", want)
		}
	}
	if !bytes.HasPrefix(out, []byte("<svg")) {
		t.Error("document must start with the svg element")
	}
}

func TestRenderSVGEscapesNames(t *testing.T) {
	items := []SVGItem{{
		Box:    Box{Name: "a<b&c"},
		Bounds: geometry.NewRect(0, 0, 120, 40),
	}}
	svg := string(RenderSVG(geometry.Sz(200, 100), items, nil))
	if strings.Contains(svg, ">a<b&c<") {
		t.Error("entity name not escaped")
	}
	if !strings.Contains(svg, "a&lt;b&amp;c") {
		t.Error("expected escaped entity name")
	}
}
