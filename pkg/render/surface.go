// Package render turns placed schema entities into pixels and vectors. A
// Surface abstracts the drawing backend: Raster draws with a real font
// catalog, Headless measures text without producing bitmaps so layout can run
// on machines with no display stack. Rendered entity bitmaps are memoized in
// a Cache keyed by zoom, identity and content variant.
package render

import (
	"image"

	xfont "golang.org/x/image/font"

	"github.com/tablemap/tablemap/pkg/fonts"
	"github.com/tablemap/tablemap/pkg/geometry"
)

// Extent is a measured text size, including the font's descent below the
// baseline and the external leading between lines.
type Extent struct {
	Width, Height, Descent, Leading int
}

// ColumnLine is one column row of an entity box.
type ColumnLine struct {
	Name    string
	Type    string
	Primary bool
	Foreign bool
}

// Box is the drawable content of one entity.
type Box struct {
	Name      string
	View      bool
	Columns   []ColumnLine
	StatsText string
	Dragged   bool
}

// BitmapPair holds the two rendered variants of one entity.
type BitmapPair struct {
	Normal   image.Image
	Selected image.Image
}

// Surface renders and measures diagram content.
type Surface interface {
	// Measure returns the extent of text in the body or header font.
	Measure(text string, bold bool) Extent

	// Entity draws one entity at the given size. A metrics-only surface
	// returns a nil image.
	Entity(box Box, size geometry.Size, selected bool) image.Image
}

// measurer implements text measuring over a font catalog. Both surface
// implementations embed it.
type measurer struct {
	catalog *fonts.Catalog
	metrics Metrics
}

func (m measurer) Measure(text string, bold bool) Extent {
	var face xfont.Face
	if bold {
		face = m.catalog.Bold(m.metrics.HeaderFontSize())
	} else {
		face = m.catalog.Regular(m.metrics.BodyFontSize())
	}
	adv := xfont.MeasureString(face, text)
	met := face.Metrics()
	leading := (met.Height - met.Ascent - met.Descent).Ceil()
	if leading < 0 {
		leading = 0
	}
	return Extent{
		Width:   adv.Ceil(),
		Height:  met.Ascent.Ceil() + met.Descent.Ceil(),
		Descent: met.Descent.Ceil(),
		Leading: leading,
	}
}

// Headless measures text but draws nothing. It backs layout-only operations
// such as exporting an options document without touching pixels.
type Headless struct {
	measurer
}

// NewHeadless creates a metrics-only surface.
func NewHeadless(catalog *fonts.Catalog, metrics Metrics) *Headless {
	return &Headless{measurer{catalog: catalog, metrics: metrics}}
}

// Entity returns nil; headless surfaces produce no bitmaps.
func (h *Headless) Entity(Box, geometry.Size, bool) image.Image { return nil }

var _ Surface = (*Headless)(nil)
