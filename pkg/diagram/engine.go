// Package diagram orchestrates schema diagrams: it pulls entities from a
// schema.Provider, sizes and places their boxes, routes relation lines and
// renders the result to bitmaps, SVG or a persistable options document.
//
// The Engine is safe for concurrent use; every operation takes the engine
// lock, so callers compose operations without extra synchronization.
package diagram

import (
	"context"
	"image"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tablemap/tablemap/pkg/canvas"
	"github.com/tablemap/tablemap/pkg/errors"
	"github.com/tablemap/tablemap/pkg/geometry"
	"github.com/tablemap/tablemap/pkg/layout"
	"github.com/tablemap/tablemap/pkg/observability"
	"github.com/tablemap/tablemap/pkg/render"
	"github.com/tablemap/tablemap/pkg/route"
	"github.com/tablemap/tablemap/pkg/schema"
)

// ZoomStep is the zoom grid spacing. Every zoom level snaps to a multiple.
const ZoomStep = 0.125

// Zoom bounds.
const (
	MinZoom = 0.125
	MaxZoom = 3.0
)

// Config assembles an Engine. Provider and Surface are required; everything
// else has a sensible default.
type Config struct {
	Provider schema.Provider
	Surface  render.Surface
	Raster   *render.Raster // enables MakeImage when set
	Cache    *render.Cache
	Logger   *log.Logger
	Physics  layout.Physics
	Theme    render.Theme
	Viewport geometry.Rect
	Source   string // display name of the database, used in titles and hooks
}

// Engine holds the complete state of one schema diagram.
type Engine struct {
	mu sync.Mutex

	provider schema.Provider
	surface  render.Surface
	raster   *render.Raster
	cache    *render.Cache
	logger   *log.Logger
	physics  layout.Physics
	theme    render.Theme
	source   string

	base     render.Metrics
	metrics  render.Metrics
	opts     Options
	viewport geometry.Rect

	registry   *canvas.Registry
	canvasSize geometry.Size

	items     map[string]*item // keyed by folded name
	order     []string         // draw order, selected entities last
	selection []string
	lines     map[schema.RelationKey]*route.Line
	drag      *geometry.Rect
}

// item is the engine-side state of one entity.
type item struct {
	id       int
	name     string
	folded   string
	entity   schema.Entity
	primary  map[string]bool
	foreignC map[string]bool
	foreign  []schema.ForeignKey

	visible    []schema.Column
	colIndex   map[string]int
	statsText  string
	size       geometry.Size
	positioned bool
}

// New creates an engine. It does not touch the provider; call Populate to
// load the schema.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Cache == nil {
		cfg.Cache = render.NewCache()
	}
	if cfg.Physics == (layout.Physics{}) {
		cfg.Physics = layout.DefaultPhysics()
	}
	if cfg.Theme == (render.Theme{}) {
		cfg.Theme = render.DefaultTheme()
	}
	if cfg.Viewport.IsZero() {
		cfg.Viewport = geometry.NewRect(0, 0, 800, 600)
	}

	base := render.BaseMetrics()
	return &Engine{
		provider:   cfg.Provider,
		surface:    cfg.Surface,
		raster:     cfg.Raster,
		cache:      cfg.Cache,
		logger:     cfg.Logger,
		physics:    cfg.Physics,
		theme:      cfg.Theme,
		source:     cfg.Source,
		base:       base,
		metrics:    base.Scaled(1),
		opts:       DefaultOptions(),
		viewport:   cfg.Viewport,
		registry:   canvas.New(),
		canvasSize: cfg.Viewport.Size(),
		items:      make(map[string]*item),
		lines:      make(map[schema.RelationKey]*route.Line),
	}
}

// Options returns a copy of the current presentation state.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// Zoom returns the current zoom factor.
func (e *Engine) Zoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts.Zoom
}

// CanvasSize returns the current logical canvas size.
func (e *Engine) CanvasSize() geometry.Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canvasSize
}

// EntityNames returns the diagram's entity names in draw order.
func (e *Engine) EntityNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.order))
	for _, f := range e.order {
		out = append(out, e.items[f].name)
	}
	return out
}

// RelationCount returns the number of foreign key relations in the diagram.
func (e *Engine) RelationCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lines)
}

// =============================================================================
// Population
// =============================================================================

// Populate loads or reloads the schema from the provider. Entities whose
// identity and fingerprint are unchanged keep their position and cached
// bitmaps; changed or new entities are rebuilt. The names of entities that
// were added, rebuilt or removed are returned.
func (e *Engine) Populate(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	observability.Diagram().OnIntrospectStart(ctx, e.source)

	snap, err := e.provider.Snapshot()
	if err != nil {
		observability.Diagram().OnIntrospectComplete(ctx, e.source, 0, time.Since(start), err)
		return nil, errors.Wrap(errors.ErrCodeBackend, err, "failed to read schema")
	}

	var changed []string
	next := make(map[string]*item)
	nextOrder := make([]string, 0, len(e.order))

	for _, category := range schema.Categories {
		for _, ent := range snap.Entities[category] {
			folded := schema.Fold(ent.Name)
			old, ok := e.items[folded]

			it := &item{name: ent.Name, folded: folded, entity: ent}
			if ok && old.entity.Identity == ent.Identity &&
				old.entity.Fingerprint == ent.Fingerprint &&
				old.entity.HasMeta == ent.HasMeta {
				it.id = old.id
				it.positioned = old.positioned
				it.entity.Stats = old.entity.Stats
			} else {
				if ok {
					it.id = old.id
					it.positioned = old.positioned
					e.cache.Drop(ctx, old.entity.Identity)
				} else {
					it.id = e.registry.Allocate()
				}
				changed = append(changed, ent.Name)
			}

			if category == schema.CategoryTable {
				primary, foreign, err := e.provider.Keys(ent.Name)
				if err != nil {
					return nil, errors.Wrap(errors.ErrCodeBackend, err, "failed to read keys of %s", ent.Name)
				}
				it.primary = make(map[string]bool)
				for _, cols := range primary {
					for _, c := range cols {
						it.primary[schema.Fold(c)] = true
					}
				}
				it.foreignC = make(map[string]bool)
				for _, fk := range foreign {
					for _, c := range fk.Columns {
						it.foreignC[schema.Fold(c)] = true
					}
				}
				it.foreign = foreign
			}

			next[folded] = it
			nextOrder = append(nextOrder, folded)
		}
	}

	// Entities gone from the schema release their canvas slot and bitmaps.
	for folded, old := range e.items {
		if _, ok := next[folded]; !ok {
			e.registry.Remove(old.id)
			e.cache.Drop(ctx, old.entity.Identity)
			changed = append(changed, old.name)
		}
	}

	e.items = next
	e.order = nextOrder
	e.pruneSelection()
	e.refreshContent()
	e.rebuildLines()

	observability.Diagram().OnIntrospectComplete(ctx, e.source, len(next), time.Since(start), nil)
	e.logger.Debug("populated diagram", "entities", len(next), "changed", len(changed))

	if e.anyUnpositioned() {
		if err := e.position(ctx, nil); err != nil {
			return changed, err
		}
	} else if len(changed) > 0 {
		e.calcLines(true, nil)
	}
	return changed, nil
}

func (e *Engine) anyUnpositioned() bool {
	for _, it := range e.items {
		if !it.positioned {
			return true
		}
	}
	return false
}

func (e *Engine) pruneSelection() {
	kept := e.selection[:0]
	for _, f := range e.selection {
		if _, ok := e.items[f]; ok {
			kept = append(kept, f)
		}
	}
	e.selection = kept
}

// refreshContent recomputes visible columns, statistics text and box size for
// every item under the current options and metrics.
func (e *Engine) refreshContent() {
	for _, it := range e.items {
		it.visible = e.visibleColumns(it)
		it.colIndex = make(map[string]int, len(it.visible))
		for i, col := range it.visible {
			it.colIndex[schema.Fold(col.Name)] = i
		}
		it.statsText = ""
		if e.opts.ShowStatistics && it.entity.Category == schema.CategoryTable {
			it.statsText = StatsText(it.entity.Stats)
		}
		it.size = e.computeSize(it)
		if b := e.registry.GetBounds(it.id); !b.IsZero() {
			e.registry.SetBounds(it.id, geometry.RectAt(b.TopLeft(), it.size))
		}
	}
}

func (e *Engine) visibleColumns(it *item) []schema.Column {
	switch {
	case e.opts.ShowKeyColumnsOnly:
		var out []schema.Column
		for _, col := range it.entity.Columns {
			f := schema.Fold(col.Name)
			if it.primary[f] || it.foreignC[f] {
				out = append(out, col)
			}
		}
		return out
	case e.opts.ShowColumns:
		return it.entity.Columns
	}
	return nil
}

func (e *Engine) typeLabel(col schema.Column) string {
	if e.opts.ShowNulls && col.Nullable {
		if col.Type == "" {
			return "NULL"
		}
		return col.Type + " NULL"
	}
	return col.Type
}

func (e *Engine) computeSize(it *item) geometry.Size {
	m := e.metrics
	content := e.surface.Measure(it.name, true).Width
	markW := m.LineH / 2
	gap := m.LPad / 3
	for _, col := range it.visible {
		w := markW + e.surface.Measure(col.Name, false).Width
		if tl := e.typeLabel(col); tl != "" {
			w += gap + e.surface.Measure(tl, false).Width
		}
		if w > content {
			content = w
		}
	}
	if it.statsText != "" {
		if w := e.surface.Measure(it.statsText, false).Width; w > content {
			content = w
		}
	}
	return m.EntitySize(content, len(it.visible), it.statsText != "")
}

// rebuildLines derives the relation set from foreign keys, keeping routed
// geometry for relations that already existed.
func (e *Engine) rebuildLines() {
	next := make(map[schema.RelationKey]*route.Line)
	for _, it := range e.items {
		for _, fk := range it.foreign {
			target := schema.Fold(fk.Table)
			if _, ok := e.items[target]; !ok {
				continue
			}
			key := schema.NewRelationKey(it.folded, target, fk.Columns)
			if old, ok := e.lines[key]; ok {
				next[key] = old
				continue
			}
			next[key] = &route.Line{Key: key, Label: strings.Join(fk.Columns, ", ")}
		}
	}
	e.lines = next
}

// =============================================================================
// Zoom
// =============================================================================

// SetZoom snaps zoom down to the nearest step, clamps it to
// [MinZoom, MaxZoom] and rescales every placed entity proportionally. It
// reports whether the effective zoom changed.
func (e *Engine) SetZoom(zoom float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setZoom(zoom)
}

// ZoomIn increases zoom by one step.
func (e *Engine) ZoomIn() { e.SetZoom(e.Zoom() + ZoomStep) }

// ZoomOut decreases zoom by one step.
func (e *Engine) ZoomOut() { e.SetZoom(e.Zoom() - ZoomStep) }

func (e *Engine) setZoom(zoom float64) bool {
	zoom = math.Floor(zoom/ZoomStep) * ZoomStep
	if zoom < MinZoom {
		zoom = MinZoom
	}
	if zoom > MaxZoom {
		zoom = MaxZoom
	}
	if zoom == e.opts.Zoom {
		return false
	}

	factor := zoom / e.opts.Zoom
	e.opts.Zoom = zoom
	e.metrics = e.base.Scaled(zoom)

	// Positions scale with the factor; sizes are recomputed from the new
	// metrics so rounding does not accumulate across zoom changes.
	positions := make(map[string]geometry.Point, len(e.items))
	for f, it := range e.items {
		b := e.registry.GetBounds(it.id)
		positions[f] = geometry.Pt(
			int(math.Round(float64(b.X)*factor)),
			int(math.Round(float64(b.Y)*factor)),
		)
	}
	e.refreshContent()
	for f, it := range e.items {
		e.registry.SetBounds(it.id, geometry.RectAt(positions[f], it.size))
	}

	e.canvasSize = geometry.Sz(
		int(math.Round(float64(e.canvasSize.Width)*factor)),
		int(math.Round(float64(e.canvasSize.Height)*factor)),
	)
	e.coverContent()
	e.calcLines(true, nil)
	return true
}

// =============================================================================
// Options
// =============================================================================

// SetOptions applies a new presentation state. Enabling one of ShowColumns
// and ShowKeyColumnsOnly disables the other. Changing the layout strategy
// replaces all positions.
func (e *Engine) SetOptions(ctx context.Context, o Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if o.ShowColumns && o.ShowKeyColumnsOnly {
		// The column mode that was already on yields to the newly
		// enabled one.
		if e.opts.ShowColumns {
			o.ShowColumns = false
		} else {
			o.ShowKeyColumnsOnly = false
		}
	}
	if err := errors.ValidateZoom(o.Zoom); err != nil {
		return err
	}
	if err := errors.ValidateLayout(string(o.Layout)); err != nil {
		return err
	}

	prev := e.opts
	contentChanged := o.ShowColumns != prev.ShowColumns ||
		o.ShowKeyColumnsOnly != prev.ShowKeyColumnsOnly ||
		o.ShowNulls != prev.ShowNulls ||
		o.ShowStatistics != prev.ShowStatistics
	layoutChanged := o.Layout != prev.Layout || o.Grid != prev.Grid
	linesChanged := o.ShowLines != prev.ShowLines || o.ShowLabels != prev.ShowLabels

	zoom := o.Zoom
	o.Zoom = prev.Zoom
	e.opts = o

	if contentChanged {
		e.refreshContent()
	}
	e.setZoom(zoom)

	switch {
	case layoutChanged:
		return e.position(ctx, nil)
	case contentChanged || linesChanged:
		e.coverContent()
		e.calcLines(true, nil)
	}
	return nil
}

// =============================================================================
// Selection and movement
// =============================================================================

// SetSelection replaces the selection. The comparison is order-insensitive;
// it returns false when the selection did not change. Selected entities move
// to the end of the draw order and their relation lines are rerouted last.
func (e *Engine) SetSelection(names ...string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	folded := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		f := schema.Fold(n)
		if _, ok := e.items[f]; ok && !seen[f] {
			folded = append(folded, f)
			seen[f] = true
		}
	}

	if sameSet(folded, e.selection) {
		return false
	}
	e.selection = folded

	unselected := make([]string, 0, len(e.order))
	for _, f := range e.order {
		if !seen[f] {
			unselected = append(unselected, f)
		}
	}
	e.order = append(unselected, folded...)

	e.calcLines(false, seen)
	return true
}

// Selection returns the selected entity names.
func (e *Engine) Selection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.selection))
	for _, f := range e.selection {
		out = append(out, e.items[f].name)
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// MoveItem places an entity's top-left corner at pos and reroutes the lines
// touching it.
func (e *Engine) MoveItem(name string, pos geometry.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.items[schema.Fold(name)]
	if !ok {
		return errors.New(errors.ErrCodeEntityNotFound, "no such entity: %s", name)
	}
	e.registry.SetBounds(it.id, geometry.RectAt(pos, it.size))
	it.positioned = true
	e.coverContent()
	e.calcLines(false, map[string]bool{it.folded: true})
	return nil
}

// ChangeOrder moves an entity to the top or bottom of the draw order.
// Selected entities always stay at the tail, so an unselected entity moved to
// the top lands just below the selection block.
func (e *Engine) ChangeOrder(name string, top bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	folded := schema.Fold(name)
	if _, ok := e.items[folded]; !ok {
		return errors.New(errors.ErrCodeEntityNotFound, "no such entity: %s", name)
	}

	selected := make(map[string]bool, len(e.selection))
	for _, s := range e.selection {
		selected[schema.Fold(s)] = true
	}
	var unsel, sel []string
	for _, f := range e.order {
		if f == folded {
			continue
		}
		if selected[f] {
			sel = append(sel, f)
		} else {
			unsel = append(unsel, f)
		}
	}
	group := &unsel
	if selected[folded] {
		group = &sel
	}
	if top {
		*group = append(*group, folded)
	} else {
		*group = append([]string{folded}, *group...)
	}
	e.order = append(unsel, sel...)
	return nil
}

// ObjectBounds returns the canvas bounds of an entity.
func (e *Engine) ObjectBounds(name string) (geometry.Rect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	it, ok := e.items[schema.Fold(name)]
	if !ok {
		return geometry.Rect{}, errors.New(errors.ErrCodeEntityNotFound, "no such entity: %s", name)
	}
	return e.registry.GetBounds(it.id), nil
}

// =============================================================================
// Layout
// =============================================================================

// Relayout recomputes all positions with the current layout strategy.
// Progress, if non-nil, is invoked per force simulation iteration; returning
// false aborts the simulation with the positions reached so far.
func (e *Engine) Relayout(ctx context.Context, progress func(int) bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position(ctx, progress)
}

// SortItems re-packs the grid with a new sort order.
func (e *Engine) SortItems(ctx context.Context, order string, reverse bool) error {
	switch order {
	case layout.OrderName, layout.OrderColumns, layout.OrderRows, layout.OrderBytes:
	default:
		return errors.New(errors.ErrCodeInvalidOptions, "unknown sort order: %q", order)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Grid.Order = order
	e.opts.Grid.Reverse = reverse
	e.opts.Layout = LayoutGrid
	return e.position(ctx, nil)
}

// SetGridOrientation toggles column-wise or row-wise grid packing.
func (e *Engine) SetGridOrientation(ctx context.Context, vertical bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Grid.Vertical = vertical
	e.opts.Layout = LayoutGrid
	return e.position(ctx, nil)
}

func (e *Engine) position(ctx context.Context, progress func(int) bool) error {
	start := time.Now()
	observability.Diagram().OnLayoutStart(ctx, string(e.opts.Layout), len(e.items))

	var err error
	switch e.opts.Layout {
	case LayoutGraph:
		err = e.positionGraph(ctx, progress)
	default:
		e.positionGrid()
	}

	observability.Diagram().OnLayoutComplete(ctx, string(e.opts.Layout), time.Since(start), err)
	if err != nil {
		return err
	}

	e.coverContent()
	e.calcLines(true, nil)
	return nil
}

func (e *Engine) positionGrid() {
	gridItems := make([]layout.GridItem, 0, len(e.items))
	for _, f := range e.order {
		it := e.items[f]
		gridItems = append(gridItems, layout.GridItem{
			Name:     it.folded,
			Category: it.entity.Category,
			Size:     it.size,
			Columns:  len(it.entity.Columns),
			RowCount: it.entity.Stats.RowCount,
			ByteSize: it.entity.Stats.ByteSize,
		})
	}
	positions := layout.Grid(gridItems, e.viewport, e.opts.Grid, e.opts.Zoom, e.metrics.GPad)
	for f, pos := range positions {
		it := e.items[f]
		e.registry.SetBounds(it.id, geometry.RectAt(pos, it.size))
		it.positioned = true
	}
}

func (e *Engine) positionGraph(ctx context.Context, progress func(int) bool) error {
	nodes := make([]layout.Node, 0, len(e.items))
	for _, f := range e.order {
		it := e.items[f]
		nodes = append(nodes, layout.Node{Name: it.folded, Size: it.size})
	}
	links := make([]layout.Link, 0, len(e.lines))
	for key := range e.lines {
		links = append(links, layout.Link{From: key.Source, To: key.Target})
	}

	bounds := geometry.NewRect(0, 0,
		maxInt(e.canvasSize.Width, 2*e.viewport.Width),
		maxInt(e.canvasSize.Height, 2*e.viewport.Height))

	e.opts.LayoutActive = true
	defer func() { e.opts.LayoutActive = false }()

	positions := e.physics.Layout(nodes, links, bounds, e.viewport, func(i int) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if progress != nil {
			return progress(i)
		}
		return true
	})
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "layout interrupted")
	}

	for f, pos := range positions {
		it := e.items[f]
		e.registry.SetBounds(it.id, geometry.RectAt(pos, it.size))
		it.positioned = true
	}
	return nil
}

// =============================================================================
// Lines
// =============================================================================

// CalculateLines reroutes relation lines. With remake true every line is
// recomputed; otherwise only lines touching the current selection.
func (e *Engine) CalculateLines(remake bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	selected := make(map[string]bool, len(e.selection))
	for _, f := range e.selection {
		selected[f] = true
	}
	e.calcLines(remake, selected)
}

func (e *Engine) calcLines(remake bool, selected map[string]bool) {
	if !e.opts.ShowLines {
		return
	}
	start := time.Now()

	routeItems := make(map[string]route.Item, len(e.items))
	for f, it := range e.items {
		routeItems[f] = route.Item{
			Name:    it.name,
			Bounds:  e.registry.GetBounds(it.id),
			Columns: it.colIndex,
		}
	}
	r := route.Router{
		Metrics: route.Metrics{
			HeaderH:   e.metrics.HeaderH,
			HeaderP:   e.metrics.HeaderP,
			LineH:     e.metrics.LineH,
			BRadius:   e.metrics.BRadius,
			CardinalW: e.metrics.CardinalW,
			CardinalH: e.metrics.CardinalH,
			DashSideW: e.metrics.DashSideW,
		},
		CanvasSize: e.canvasSize,
		Measure: func(text string) route.Extent {
			ext := e.surface.Measure(text, false)
			return route.Extent{Width: ext.Width, Height: ext.Height, Descent: ext.Descent, Leading: ext.Leading}
		},
		ShowLabels: e.opts.ShowLabels,
	}
	r.Calculate(routeItems, e.lines, selected, remake)

	observability.Diagram().OnRouteComplete(context.Background(), len(e.lines), time.Since(start))
}

// =============================================================================
// Statistics
// =============================================================================

// UpdateStatistics refreshes row and size statistics from the provider and
// resizes boxes whose footer changed.
func (e *Engine) UpdateStatistics(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.provider.Snapshot()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBackend, err, "failed to read statistics")
	}
	for _, category := range schema.Categories {
		for _, ent := range snap.Entities[category] {
			if it, ok := e.items[schema.Fold(ent.Name)]; ok {
				it.entity.Stats = ent.Stats
			}
		}
	}
	if e.opts.ShowStatistics {
		e.refreshContent()
		e.calcLines(true, nil)
	}
	return nil
}

// =============================================================================
// Canvas
// =============================================================================

// FullBounds returns the union of all entity and line bounds.
func (e *Engine) FullBounds() geometry.Rect {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fullBounds()
}

func (e *Engine) fullBounds() geometry.Rect {
	bounds := e.registry.Union()
	if e.opts.ShowLines {
		for _, line := range e.lines {
			bounds.Union(line.Bounds)
		}
	}
	return bounds
}

// EnsureSize grows the canvas to at least the given size. The canvas never
// shrinks implicitly.
func (e *Engine) EnsureSize(size geometry.Size) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureSize(size)
}

func (e *Engine) ensureSize(size geometry.Size) {
	e.canvasSize = geometry.Sz(
		maxInt(e.canvasSize.Width, size.Width),
		maxInt(e.canvasSize.Height, size.Height),
	)
}

// coverContent grows the canvas to fit all content plus the outer padding.
func (e *Engine) coverContent() {
	b := e.fullBounds()
	if b.IsZero() {
		return
	}
	e.ensureSize(geometry.Sz(b.Right()+e.metrics.GPad, b.Bottom()+e.metrics.GPad))
}

// SetDragRect stores the rubber-band rectangle spanned by two corners,
// clamped to the canvas.
func (e *Engine) SetDragRect(a, b geometry.Point) geometry.Rect {
	e.mu.Lock()
	defer e.mu.Unlock()

	rect := geometry.BoundsOf(a, b)
	canvasRect := geometry.NewRect(0, 0, e.canvasSize.Width, e.canvasSize.Height)
	rect = rect.Intersected(canvasRect)
	if rect.IsZero() {
		e.drag = nil
		return geometry.Rect{}
	}
	e.drag = &rect
	return rect
}

// ClearDragRect removes the rubber-band rectangle.
func (e *Engine) ClearDragRect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drag = nil
}

// ClearCache drops all cached entity bitmaps.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// =============================================================================
// Output
// =============================================================================

func (e *Engine) variant(it *item, dragged bool) render.Variant {
	return render.Variant{
		Fingerprint:        it.entity.Fingerprint,
		HasMeta:            it.entity.HasMeta,
		ShowColumns:        e.opts.ShowColumns,
		ShowKeyColumnsOnly: e.opts.ShowKeyColumnsOnly,
		ShowNulls:          e.opts.ShowNulls,
		StatsHash:          it.statsText,
		Dragged:            dragged,
	}
}

func (e *Engine) buildBox(it *item, dragged bool) render.Box {
	box := render.Box{
		Name:      it.name,
		View:      it.entity.Category == schema.CategoryView,
		StatsText: it.statsText,
		Dragged:   dragged,
	}
	for _, col := range it.visible {
		f := schema.Fold(col.Name)
		box.Columns = append(box.Columns, render.ColumnLine{
			Name:    col.Name,
			Type:    e.typeLabel(col),
			Primary: it.primary[f],
			Foreign: it.foreignC[f],
		})
	}
	return box
}

func (e *Engine) lineSlice() []*route.Line {
	if !e.opts.ShowLines {
		return nil
	}
	out := make([]*route.Line, 0, len(e.lines))
	for _, line := range e.lines {
		out = append(out, line)
	}
	return out
}

// MakeImage renders the full diagram to a bitmap, scaled by the given
// factor. Requires a raster surface.
func (e *Engine) MakeImage(ctx context.Context, scale float64) (image.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.raster == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "bitmap output needs a raster surface")
	}
	start := time.Now()
	observability.Diagram().OnRenderStart(ctx, "png")

	selected := make(map[string]bool, len(e.selection))
	for _, f := range e.selection {
		selected[f] = true
	}
	e.coverContent()

	placed := make([]render.Placed, 0, len(e.order))
	for _, f := range e.order {
		it := e.items[f]
		v := e.variant(it, false)
		pair, ok := e.cache.Get(ctx, e.opts.Zoom, it.entity.Identity, v)
		if !ok {
			box := e.buildBox(it, false)
			pair = render.BitmapPair{
				Normal:   e.raster.Entity(box, it.size, false),
				Selected: e.raster.Entity(box, it.size, true),
			}
			e.cache.Put(ctx, e.opts.Zoom, it.entity.Identity, v, pair)
		}
		bitmap := pair.Normal
		if selected[f] {
			bitmap = pair.Selected
		}
		placed = append(placed, render.Placed{
			Bitmap:   bitmap,
			Bounds:   e.registry.GetBounds(it.id),
			Selected: selected[f],
		})
	}

	img := e.raster.Compose(e.canvasSize, placed, e.lineSlice(), e.drag)
	if scale != 1 {
		img = render.Scale(img, scale)
	}
	observability.Diagram().OnRenderComplete(ctx, "png", time.Since(start), nil)
	return img, nil
}

// MakeSVG renders the full diagram as a vector document.
func (e *Engine) MakeSVG(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	observability.Diagram().OnRenderStart(ctx, "svg")
	e.coverContent()

	selected := make(map[string]bool, len(e.selection))
	for _, f := range e.selection {
		selected[f] = true
	}
	items := make([]render.SVGItem, 0, len(e.order))
	for _, f := range e.order {
		it := e.items[f]
		items = append(items, render.SVGItem{
			Box:      e.buildBox(it, false),
			Bounds:   e.registry.GetBounds(it.id),
			Selected: selected[f],
		})
	}

	out := render.RenderSVG(e.canvasSize, items, e.lineSlice(),
		render.WithSVGTheme(e.theme),
		render.WithSVGMetrics(e.metrics),
		render.WithSVGTitle(e.source),
	)
	observability.Diagram().OnRenderComplete(ctx, "svg", time.Since(start), nil)
	return out, nil
}

// =============================================================================
// Options document
// =============================================================================

// ExportOptions serializes the presentation state and entity positions.
func (e *Engine) ExportOptions() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := optionsDoc{
		Zoom:       e.opts.Zoom,
		Columns:    e.opts.ShowColumns,
		KeyColumns: e.opts.ShowKeyColumnsOnly,
		Nulls:      e.opts.ShowNulls,
		Lines:      e.opts.ShowLines,
		Labels:     e.opts.ShowLabels,
		Statistics: e.opts.ShowStatistics,
		Items:      make(map[string][2]int, len(e.items)),
		Layout: layoutDoc{
			Layout: string(e.opts.Layout),
			Active: e.opts.LayoutActive,
			Grid:   e.opts.Grid,
		},
	}
	for _, it := range e.items {
		b := e.registry.GetBounds(it.id)
		doc.Items[it.name] = [2]int{b.X, b.Y}
	}
	return marshalIndent(doc)
}

// ImportOptions restores a previously exported state. Positions referring to
// entities that no longer exist, or entities missing from the document,
// trigger a fresh layout instead of a partial restore.
func (e *Engine) ImportOptions(ctx context.Context, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := parseOptionsDoc(data)
	if err != nil {
		return err
	}
	if doc.Columns && doc.KeyColumns {
		return errors.New(errors.ErrCodeInvalidOptions, "columns and keycolumns are mutually exclusive")
	}

	e.opts.ShowColumns = doc.Columns
	e.opts.ShowKeyColumnsOnly = doc.KeyColumns
	e.opts.ShowNulls = doc.Nulls
	e.opts.ShowLines = doc.Lines
	e.opts.ShowLabels = doc.Labels
	e.opts.ShowStatistics = doc.Statistics
	if doc.Layout.Layout != "" {
		e.opts.Layout = LayoutKind(doc.Layout.Layout)
	}
	e.opts.LayoutActive = doc.Layout.Active
	if doc.Layout.Grid != (layout.GridOptions{}) {
		e.opts.Grid = doc.Layout.Grid
	}
	e.refreshContent()
	if doc.Zoom != 0 {
		e.setZoom(doc.Zoom)
	}

	known := true
	positioned := make(map[string]bool, len(doc.Items))
	for name, pos := range doc.Items {
		it, ok := e.items[schema.Fold(name)]
		if !ok {
			known = false
			continue
		}
		e.registry.SetBounds(it.id, geometry.RectAt(geometry.Pt(pos[0], pos[1]), it.size))
		it.positioned = true
		positioned[it.folded] = true
	}
	for f := range e.items {
		if !positioned[f] {
			known = false
		}
	}

	if !known {
		return e.position(ctx, nil)
	}
	e.coverContent()
	e.calcLines(true, nil)
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
