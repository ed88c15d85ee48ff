package render

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/tablemap/tablemap/pkg/fonts"
	"github.com/tablemap/tablemap/pkg/geometry"
	"github.com/tablemap/tablemap/pkg/route"
)

// Raster draws diagram content into bitmaps.
type Raster struct {
	measurer
	theme Theme
}

// NewRaster creates a raster surface over the given font catalog.
func NewRaster(catalog *fonts.Catalog, metrics Metrics, theme Theme) *Raster {
	return &Raster{
		measurer: measurer{catalog: catalog, metrics: metrics},
		theme:    theme,
	}
}

// Entity draws one entity box. The bitmap has transparent corners so boxes
// can be composed over any background.
func (r *Raster) Entity(box Box, size geometry.Size, selected bool) image.Image {
	m := r.metrics
	w, h := float64(size.Width), float64(size.Height)
	dc := gg.NewContext(size.Width, size.Height)

	// Body.
	dc.DrawRoundedRectangle(0.5, 0.5, w-1, h-1, float64(m.BRadius))
	dc.SetColor(r.theme.Box)
	dc.FillPreserve()
	border := r.theme.Border
	lineWidth := 1.0
	if selected {
		border = r.theme.Selection
		lineWidth = 2
	}
	dc.SetColor(border)
	dc.SetLineWidth(lineWidth)
	dc.Stroke()

	// Header gradient, clipped to the rounded outline.
	headerH := float64(m.HeaderH)
	dc.DrawRoundedRectangle(0.5, 0.5, w-1, h-1, float64(m.BRadius))
	dc.Clip()
	grad := gg.NewLinearGradient(0, 0, 0, headerH)
	grad.AddColorStop(0, r.theme.HeaderStart)
	grad.AddColorStop(1, r.theme.HeaderEnd)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, headerH)
	dc.Fill()
	dc.ResetClip()

	dc.SetColor(border)
	dc.SetLineWidth(1)
	dc.DrawLine(0, headerH+0.5, w, headerH+0.5)
	dc.Stroke()

	// Views get a second inner outline to stand apart from tables.
	if box.View {
		dc.DrawRoundedRectangle(2.5, 2.5, w-5, h-5, float64(m.BRadius))
		dc.SetColor(border)
		dc.Stroke()
	}

	dc.SetFontFace(r.catalog.Bold(m.HeaderFontSize()))
	dc.SetColor(r.theme.HeaderText)
	dc.DrawStringAnchored(box.Name, w/2, headerH/2, 0.5, 0.35)

	// Column rows.
	dc.SetFontFace(r.catalog.Regular(m.BodyFontSize()))
	markW := float64(m.LineH) / 2
	left := float64(m.FMargin + m.LPad/3)
	right := w - float64(m.FMargin+m.LPad/3)
	for i, col := range box.Columns {
		y := headerH + float64(m.HeaderP) + (float64(i)+0.5)*float64(m.LineH)

		if col.Primary || col.Foreign {
			dc.SetColor(r.theme.KeyMark)
			radius := float64(m.LineH) * 0.15
			if col.Primary {
				dc.DrawCircle(left+markW/2, y, radius)
				dc.Fill()
			} else {
				dc.DrawCircle(left+markW/2, y, radius)
				dc.SetLineWidth(1)
				dc.Stroke()
			}
		}

		dc.SetColor(r.theme.Text)
		dc.DrawStringAnchored(col.Name, left+markW, y, 0, 0.35)
		if col.Type != "" {
			dc.SetColor(r.theme.TypeText)
			dc.DrawStringAnchored(col.Type, right, y, 1, 0.35)
		}
	}

	if box.StatsText != "" {
		dc.SetColor(r.theme.Stats)
		dc.DrawStringAnchored(box.StatsText, right, h-float64(m.StatsH)/2, 1, 0.35)
	}

	if box.Dragged {
		dc.SetDash(4, 2)
		dc.SetColor(r.theme.DragOutline)
		dc.SetLineWidth(1)
		dc.DrawRoundedRectangle(0.5, 0.5, w-1, h-1, float64(m.BRadius))
		dc.Stroke()
		dc.SetDash()
	}

	return dc.Image()
}

// Placed is one entity bitmap positioned on the canvas, in draw order.
type Placed struct {
	Bitmap   image.Image
	Bounds   geometry.Rect
	Selected bool
}

// Compose assembles the full diagram: relation lines underneath, entity
// bitmaps on top in the given order, and optionally a drag rectangle.
func (r *Raster) Compose(size geometry.Size, items []Placed, lines []*route.Line, drag *geometry.Rect) image.Image {
	dc := gg.NewContext(size.Width, size.Height)
	dc.SetColor(r.theme.Background)
	dc.Clear()

	dc.SetLineWidth(1)
	for _, line := range lines {
		if line == nil || len(line.Points) < 2 {
			continue
		}
		dc.SetColor(r.theme.Line)
		for _, s := range line.Segments {
			dc.DrawLine(float64(s.A.X)+0.5, float64(s.A.Y)+0.5, float64(s.B.X)+0.5, float64(s.B.Y)+0.5)
			dc.Stroke()
		}
		for _, s := range line.CardinalLines {
			dc.DrawLine(float64(s.A.X)+0.5, float64(s.A.Y)+0.5, float64(s.B.X)+0.5, float64(s.B.Y)+0.5)
			dc.Stroke()
		}
		for _, p := range line.CornerPoints {
			dc.SetPixel(p.X, p.Y)
		}
		if !line.LabelRect.IsZero() && line.Label != "" {
			lr := line.LabelRect
			dc.SetColor(r.theme.LabelFill)
			dc.DrawRectangle(float64(lr.X), float64(lr.Y), float64(lr.Width), float64(lr.Height))
			dc.Fill()
			dc.SetFontFace(r.catalog.Regular(r.metrics.BodyFontSize()))
			dc.SetColor(r.theme.Text)
			dc.DrawStringAnchored(line.Label, float64(lr.Center().X), float64(lr.Center().Y), 0.5, 0.35)
			dc.SetColor(r.theme.Line)
		}
	}

	for _, it := range items {
		if it.Bitmap == nil {
			continue
		}
		dc.DrawImage(it.Bitmap, it.Bounds.X, it.Bounds.Y)
	}

	if drag != nil && !drag.IsZero() {
		dc.SetDash(4, 2)
		dc.SetColor(r.theme.DragOutline)
		dc.DrawRectangle(float64(drag.X)+0.5, float64(drag.Y)+0.5, float64(drag.Width)-1, float64(drag.Height)-1)
		dc.Stroke()
		dc.SetDash()
	}

	return dc.Image()
}

// Scale resamples a composed diagram by factor using Lanczos filtering.
func Scale(img image.Image, factor float64) image.Image {
	if factor == 1 || img == nil {
		return img
	}
	w := int(math.Round(float64(img.Bounds().Dx()) * factor))
	h := int(math.Round(float64(img.Bounds().Dy()) * factor))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

var _ Surface = (*Raster)(nil)
