package layout

import (
	"sort"
	"strings"

	"github.com/tablemap/tablemap/pkg/geometry"
	"github.com/tablemap/tablemap/pkg/schema"
)

// Sort orders for the grid layout.
const (
	OrderName    = "name"    // plain name order
	OrderColumns = "columns" // by column count
	OrderRows    = "rows"    // by row count statistic
	OrderBytes   = "bytes"   // by byte size statistic
)

// GridOptions configures the deterministic grid packing.
type GridOptions struct {
	Order    string `json:"order" toml:"order"`       // one of the Order* constants
	Reverse  bool   `json:"reverse" toml:"reverse"`   // reverse the sort direction
	Vertical bool   `json:"vertical" toml:"vertical"` // pack into columns instead of rows
}

// DefaultGridOptions returns the standard grid configuration.
func DefaultGridOptions() GridOptions {
	return GridOptions{Order: OrderName, Vertical: true}
}

// GridItem is one box to pack.
type GridItem struct {
	Name     string
	Category schema.Category
	Size     geometry.Size
	Columns  int   // column count, for OrderColumns
	RowCount int64 // row statistic, for OrderRows
	ByteSize int64 // byte statistic, for OrderBytes
}

// Grid packs items into columns (vertical) or rows (horizontal) and returns
// the top-left position per item name. Positions include the viewport offset.
//
// Packing is skyline-style: each item lands at the running offset of the
// current column; if it would overlap a wide item from the previous column it
// steps below that item, and when the column would exceed the maximum extent
// a new column is started. The maximum extent is max(500*zoom, viewport
// dimension), so small diagrams stay within the window while large ones grow.
func Grid(items []GridItem, viewport geometry.Rect, opts GridOptions, zoom float64, pad int) map[string]geometry.Point {
	maxW := maxInt(int(500*zoom), viewport.Width)
	maxH := maxInt(int(500*zoom), viewport.Height)

	sorted := append([]GridItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		less := gridLess(sorted[i], sorted[j], opts.Order)
		if opts.Reverse {
			return !less && !gridEqual(sorted[i], sorted[j], opts.Order)
		}
		return less
	})

	out := make(map[string]geometry.Point, len(sorted))
	if opts.Vertical {
		packColumns(sorted, out, viewport, maxH, pad)
	} else {
		packRows(sorted, out, viewport, maxW, pad)
	}
	return out
}

func gridLess(a, b GridItem, order string) bool {
	if a.Category != b.Category {
		// Views rank after tables.
		return a.Category == schema.CategoryTable
	}
	switch order {
	case OrderColumns:
		if a.Columns != b.Columns {
			return a.Columns < b.Columns
		}
	case OrderRows:
		if a.RowCount != b.RowCount {
			return a.RowCount < b.RowCount
		}
	case OrderBytes:
		if a.ByteSize != b.ByteSize {
			return a.ByteSize < b.ByteSize
		}
	}
	return foldName(a.Name) < foldName(b.Name)
}

func gridEqual(a, b GridItem, order string) bool {
	return !gridLess(a, b, order) && !gridLess(b, a, order)
}

// packColumns lays items out top to bottom, opening a new column on the right
// when the current one reaches maxH or a wide neighbor blocks the slot.
func packColumns(items []GridItem, out map[string]geometry.Point, viewport geometry.Rect, maxH, pad int) {
	cols := [][]geometry.Rect{{}}
	col := 0

	startX := func(idx int) int {
		// Column X accumulates the effective width of every earlier column:
		// the widest member that is not an outlier beyond 1.5x the median,
		// so one oversized item does not shove all later columns right.
		x := 0
		for _, rects := range cols[:idx] {
			if len(rects) == 0 {
				continue
			}
			widths := make([]int, len(rects))
			for i, r := range rects {
				widths[i] = r.Width
			}
			sort.Ints(widths)
			median := widths[len(widths)/2]
			widest := 0
			for _, w := range widths {
				if float64(w) < 1.5*float64(median) && w > widest {
					widest = w
				}
			}
			if widest == 0 {
				widest = median
			}
			x += widest
		}
		return pad + x + idx*pad
	}
	startY := func(idx int) int {
		y := 0
		for _, r := range cols[idx] {
			if r.Bottom() > y {
				y = r.Bottom()
			}
		}
		return pad + y
	}
	// blocker returns the lowest rect in the previous column overlapping
	// the candidate, if any.
	blocker := func(candidate geometry.Rect) (geometry.Rect, bool) {
		if col == 0 {
			return geometry.Rect{}, false
		}
		prev := cols[len(cols)-2]
		for i := len(prev) - 1; i >= 0; i-- {
			if prev[i].Intersects(candidate) {
				return prev[i], true
			}
		}
		return geometry.Rect{}, false
	}

	for _, it := range items {
		rect := geometry.RectAt(geometry.Pt(startX(col), startY(col)), it.Size)
		xrect, blocked := blocker(rect)

		for blocked || (len(cols[len(cols)-1]) > 0 && rect.Bottom() > maxH) {
			y := rect.Y
			if blocked && xrect.Bottom()+pad+rect.Height > maxH {
				// No vertical room below the blocker: open a new column.
				col, cols, y = col+1, append(cols, []geometry.Rect{}), pad
			} else if blocked {
				y = xrect.Bottom() + pad
			}
			if len(cols[len(cols)-1]) > 0 && y+rect.Height > maxH {
				col, cols, y = col+1, append(cols, []geometry.Rect{}), pad
			}
			rect = geometry.RectAt(geometry.Pt(startX(col), y), it.Size)
			xrect, blocked = blocker(rect)
		}

		out[it.Name] = geometry.Pt(viewport.X+rect.X, viewport.Y+rect.Y)
		cols[len(cols)-1] = append(cols[len(cols)-1], rect)
	}
}

// packRows lays items out left to right, wrapping to a new row at maxW.
func packRows(items []GridItem, out map[string]geometry.Point, viewport geometry.Rect, maxW, pad int) {
	rows := [][]geometry.Rect{{}}

	startX := func() int {
		cur := rows[len(rows)-1]
		if len(cur) == 0 {
			return pad
		}
		return pad + cur[len(cur)-1].Right()
	}
	startY := func() int {
		if len(rows) < 2 {
			return pad
		}
		y := 0
		for _, r := range rows[len(rows)-2] {
			if r.Bottom() > y {
				y = r.Bottom()
			}
		}
		return pad + y
	}

	for _, it := range items {
		rect := geometry.RectAt(geometry.Pt(startX(), startY()), it.Size)
		if len(rows[len(rows)-1]) > 0 && rect.Right() > maxW {
			rows = append(rows, []geometry.Rect{})
			rect = geometry.RectAt(geometry.Pt(pad, startY()), it.Size)
		}
		out[it.Name] = geometry.Pt(viewport.X+rect.X, viewport.Y+rect.Y)
		rows[len(rows)-1] = append(rows[len(rows)-1], rect)
	}
}

func foldName(s string) string { return strings.ToLower(s) }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
