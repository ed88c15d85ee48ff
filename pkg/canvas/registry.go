// Package canvas provides the bounds registry: a minimal retained-mode store
// mapping an opaque integer identity to a bounding rectangle.
//
// The registry is the single source of truth for where every entity and
// relation currently sits. It is deliberately not a drawing surface: layout
// and routing reason about placement through it without depending on any
// rendering backend.
package canvas

import (
	"slices"

	"github.com/tablemap/tablemap/pkg/geometry"
)

// Registry maps integer ids to bounding rectangles. The zero value is not
// usable; use New. Registry is not safe for concurrent use, matching the
// single-owner model of the diagram engine.
type Registry struct {
	bounds map[int]geometry.Rect
	nextID int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{bounds: make(map[int]geometry.Rect), nextID: 1}
}

// Allocate reserves and returns a fresh id, never previously handed out by
// this registry.
func (r *Registry) Allocate() int {
	id := r.nextID
	r.nextID++
	return id
}

// SetBounds records the bounding rectangle for id, registering the id if it
// is unknown. Ids allocated elsewhere are accepted; Allocate is advanced past
// them so future allocations stay unique.
func (r *Registry) SetBounds(id int, rect geometry.Rect) {
	r.bounds[id] = rect
	if id >= r.nextID {
		r.nextID = id + 1
	}
}

// GetBounds returns the bounds recorded for id, or a zero rect if the id is
// unknown or cleared. It never fails.
func (r *Registry) GetBounds(id int) geometry.Rect {
	return r.bounds[id]
}

// Has reports whether id is registered with non-zero bounds.
func (r *Registry) Has(id int) bool {
	return !r.bounds[id].IsZero()
}

// Clear resets the bounds of id to the zero rect but keeps the id
// registered.
func (r *Registry) Clear(id int) {
	if _, ok := r.bounds[id]; ok {
		r.bounds[id] = geometry.Rect{}
	}
}

// Remove deletes id from the registry entirely.
func (r *Registry) Remove(id int) {
	delete(r.bounds, id)
}

// RemoveAll empties the registry. Allocated ids are not reused.
func (r *Registry) RemoveAll() {
	clear(r.bounds)
}

// Translate shifts the bounds of id by (dx, dy). Unknown ids are ignored.
func (r *Registry) Translate(id, dx, dy int) {
	if b, ok := r.bounds[id]; ok && !b.IsZero() {
		r.bounds[id] = b.Translated(dx, dy)
	}
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.bounds))
	for id := range r.bounds {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Union returns the bounding box of the given ids, skipping unknown ids and
// zero bounds. With no ids it unions everything registered.
func (r *Registry) Union(ids ...int) geometry.Rect {
	var out geometry.Rect
	if len(ids) == 0 {
		ids = r.IDs()
	}
	for _, id := range ids {
		out.Union(r.bounds[id])
	}
	return out
}
