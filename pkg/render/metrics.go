package render

import (
	"math"

	"github.com/tablemap/tablemap/pkg/geometry"
)

// Metrics holds the pixel constants every drawing and routing computation
// shares. BaseMetrics returns the values at zoom 1; Scaled derives the set
// for any other zoom so all parts of a diagram stay proportional.
type Metrics struct {
	MinW      int // minimum entity box width
	LineH     int // column row height
	HeaderP   int // padding between header and first column row
	HeaderH   int // header height
	FooterH   int // padding below the last column row
	BRadius   int // box corner radius
	FMargin   int // inner margin between border and content
	CardinalW int // crow's foot width
	CardinalH int // crow's foot half-height
	DashSideW int // half-width of the parent dash
	LPad      int // text padding inside a box
	HPad      int // horizontal padding between grid columns
	GPad      int // padding around the whole diagram
	StatsH    int // statistics footer height
}

// BaseMetrics returns the drawing constants at zoom 1.
func BaseMetrics() Metrics {
	return Metrics{
		MinW:      100,
		LineH:     15,
		HeaderP:   5,
		HeaderH:   20,
		FooterH:   5,
		BRadius:   5,
		FMargin:   2,
		CardinalW: 7,
		CardinalH: 3,
		DashSideW: 2,
		LPad:      15,
		HPad:      20,
		GPad:      30,
		StatsH:    15,
	}
}

// Scaled returns the constants multiplied by zoom. Values round up so no
// dimension collapses to zero at small zoom levels.
func (m Metrics) Scaled(zoom float64) Metrics {
	s := func(v int) int { return int(math.Ceil(float64(v) * zoom)) }
	return Metrics{
		MinW:      s(m.MinW),
		LineH:     s(m.LineH),
		HeaderP:   s(m.HeaderP),
		HeaderH:   s(m.HeaderH),
		FooterH:   s(m.FooterH),
		BRadius:   s(m.BRadius),
		FMargin:   s(m.FMargin),
		CardinalW: s(m.CardinalW),
		CardinalH: s(m.CardinalH),
		DashSideW: s(m.DashSideW),
		LPad:      s(m.LPad),
		HPad:      s(m.HPad),
		GPad:      s(m.GPad),
		StatsH:    s(m.StatsH),
	}
}

// BodyFontSize returns the point size for column text.
func (m Metrics) BodyFontSize() float64 { return float64(m.LineH) * 0.6 }

// HeaderFontSize returns the point size for the entity name.
func (m Metrics) HeaderFontSize() float64 { return float64(m.HeaderH) * 0.5 }

// EntitySize computes the box size for an entity with the given content
// width (widest measured row or header line) and visible column count.
func (m Metrics) EntitySize(contentWidth, columns int, withStats bool) geometry.Size {
	w := contentWidth + 2*(m.FMargin+m.LPad/3)
	if w < m.MinW {
		w = m.MinW
	}
	h := m.HeaderH + m.HeaderP + columns*m.LineH + m.FooterH
	if withStats {
		h += m.StatsH
	}
	return geometry.Sz(w, h)
}
