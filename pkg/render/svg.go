package render

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/tablemap/tablemap/pkg/geometry"
	"github.com/tablemap/tablemap/pkg/route"
)

// SVGItem is one entity to draw in the vector output.
type SVGItem struct {
	Box      Box
	Bounds   geometry.Rect
	Selected bool
}

// SVGOption customizes vector output.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	theme   Theme
	metrics Metrics
	title   string
}

// WithSVGTheme overrides the default palette.
func WithSVGTheme(t Theme) SVGOption { return func(r *svgRenderer) { r.theme = t } }

// WithSVGMetrics overrides the default drawing constants.
func WithSVGMetrics(m Metrics) SVGOption { return func(r *svgRenderer) { r.metrics = m } }

// WithSVGTitle adds a document title element.
func WithSVGTitle(title string) SVGOption { return func(r *svgRenderer) { r.title = title } }

// RenderSVG produces a standalone SVG document of the diagram. Items are
// drawn in the given order so selected entities should come last.
func RenderSVG(size geometry.Size, items []SVGItem, lines []*route.Line, opts ...SVGOption) []byte {
	r := svgRenderer{theme: DefaultTheme(), metrics: BaseMetrics()}
	for _, opt := range opts {
		opt(&r)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n",
		size.Width, size.Height, size.Width, size.Height)
	if r.title != "" {
		fmt.Fprintf(&buf, "<title>%s</title>\n", escapeXML(r.title))
	}
	r.renderDefs(&buf)
	fmt.Fprintf(&buf, `<rect width="%d" height="%d" fill="%s"/>`+"\n",
		size.Width, size.Height, r.theme.Background.Hex())

	for _, line := range lines {
		r.renderLine(&buf, line)
	}
	for _, it := range items {
		r.renderItem(&buf, it)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r *svgRenderer) renderDefs(buf *bytes.Buffer) {
	fmt.Fprintf(buf, `<defs><linearGradient id="header" x1="0" y1="0" x2="0" y2="1">`+
		`<stop offset="0" stop-color="%s"/><stop offset="1" stop-color="%s"/>`+
		`</linearGradient></defs>`+"\n",
		r.theme.HeaderStart.Hex(), r.theme.HeaderEnd.Hex())
}

func (r *svgRenderer) renderLine(buf *bytes.Buffer, line *route.Line) {
	if line == nil || len(line.Points) < 2 {
		return
	}
	lineColor := r.theme.Line.Hex()

	fmt.Fprintf(buf, `<polyline fill="none" stroke="%s" points="`, lineColor)
	for i, p := range line.Points {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(buf, "%d,%d", p.X, p.Y)
	}
	buf.WriteString(`"/>` + "\n")

	for _, s := range line.CardinalLines {
		fmt.Fprintf(buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`+"\n",
			s.A.X, s.A.Y, s.B.X, s.B.Y, lineColor)
	}

	if line.Label != "" && !line.LabelRect.IsZero() {
		lr := line.LabelRect
		fmt.Fprintf(buf, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`+"\n",
			lr.X, lr.Y, lr.Width, lr.Height, r.theme.LabelFill.Hex())
		c := lr.Center()
		fmt.Fprintf(buf, `<text x="%d" y="%d" font-size="%.1f" fill="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
			c.X, c.Y, r.metrics.BodyFontSize(), r.theme.Text.Hex(), escapeXML(line.Label))
	}
}

func (r *svgRenderer) renderItem(buf *bytes.Buffer, it SVGItem) {
	m := r.metrics
	b := it.Bounds
	border := r.theme.Border.Hex()
	strokeWidth := 1
	if it.Selected {
		border = r.theme.Selection.Hex()
		strokeWidth = 2
	}

	fmt.Fprintf(buf, `<g id="entity-%s">`+"\n", escapeXML(it.Box.Name))
	fmt.Fprintf(buf, `<rect x="%d" y="%d" width="%d" height="%d" rx="%d" fill="%s" stroke="%s" stroke-width="%d"/>`+"\n",
		b.X, b.Y, b.Width, b.Height, m.BRadius, r.theme.Box.Hex(), border, strokeWidth)
	// Header band, clipped to the top corner radius by overlaying the body rect.
	fmt.Fprintf(buf, `<path d="M%d %d h%d v%d a%d %d 0 0 1 -%d %d h-%d a%d %d 0 0 1 -%d -%d z" fill="url(#header)"/>`+"\n",
		b.X, b.Y+m.HeaderH, b.Width, -(m.HeaderH-m.BRadius), m.BRadius, m.BRadius, m.BRadius, -m.BRadius,
		b.Width-2*m.BRadius, m.BRadius, m.BRadius, m.BRadius, m.BRadius)
	fmt.Fprintf(buf, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`+"\n",
		b.X, b.Y+m.HeaderH, b.Right(), b.Y+m.HeaderH, border)
	fmt.Fprintf(buf, `<text x="%d" y="%d" font-size="%.1f" font-weight="bold" fill="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
		b.X+b.Width/2, b.Y+m.HeaderH/2, m.HeaderFontSize(), r.theme.HeaderText.Hex(), escapeXML(it.Box.Name))

	markW := m.LineH / 2
	left := b.X + m.FMargin + m.LPad/3
	right := b.Right() - m.FMargin - m.LPad/3
	for i, col := range it.Box.Columns {
		y := b.Y + m.HeaderH + m.HeaderP + i*m.LineH + m.LineH/2
		if col.Primary {
			fmt.Fprintf(buf, `<circle cx="%d" cy="%d" r="2" fill="%s"/>`+"\n",
				left+markW/2, y, r.theme.KeyMark.Hex())
		} else if col.Foreign {
			fmt.Fprintf(buf, `<circle cx="%d" cy="%d" r="2" fill="none" stroke="%s"/>`+"\n",
				left+markW/2, y, r.theme.KeyMark.Hex())
		}
		fmt.Fprintf(buf, `<text x="%d" y="%d" font-size="%.1f" fill="%s" dominant-baseline="middle">%s</text>`+"\n",
			left+markW, y, m.BodyFontSize(), r.theme.Text.Hex(), escapeXML(col.Name))
		if col.Type != "" {
			fmt.Fprintf(buf, `<text x="%d" y="%d" font-size="%.1f" fill="%s" text-anchor="end" dominant-baseline="middle">%s</text>`+"\n",
				right, y, m.BodyFontSize(), r.theme.TypeText.Hex(), escapeXML(col.Type))
		}
	}

	if it.Box.StatsText != "" {
		fmt.Fprintf(buf, `<text x="%d" y="%d" font-size="%.1f" fill="%s" text-anchor="end" dominant-baseline="middle">%s</text>`+"\n",
			right, b.Bottom()-m.StatsH/2, m.BodyFontSize(), r.theme.Stats.Hex(), escapeXML(it.Box.StatsText))
	}
	buf.WriteString("</g>\n")
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
