// Package pkg provides the core libraries for Tablemap schema diagrams.
//
// # Overview
//
// Tablemap turns a relational database schema into an entity-relationship
// diagram: tables and views become boxes, foreign keys become routed lines
// with crow's-foot cardinality markers. The pkg directory is organized around
// the stages of that pipeline:
//
//  1. [source] - Schema providers (SQLite introspection)
//  2. [schema] - Provider-neutral schema snapshot types
//  3. [layout] - Entity placement (grid packing, force-directed simulation)
//  4. [route] - Relation line routing between placed entities
//  5. [render] - Rasterization, SVG export and the bitmap cache
//  6. [diagram] - The engine orchestrating all of the above
//
// Supporting packages: [geometry] (points, rects, colors), [canvas] (bounds
// registry), [fonts] (font resolution), [cache] (artifact byte cache),
// [errors] (structured errors), [observability] (instrumentation hooks) and
// [buildinfo] (version stamping).
//
// # Architecture
//
// The typical data flow through Tablemap:
//
//	SQLite database file
//	         |
//	    [source/sqlite] (introspect tables, views, keys)
//	         |
//	    [diagram] engine (diff, size, place, route)
//	         |
//	    [render] (bitmaps, SVG, options document)
//	         |
//	    PNG/SVG/JSON output
//
// # Quick Start
//
//	provider, err := sqlite.Open("inventory.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	eng := diagram.New(diagram.Config{
//	    Provider: provider,
//	    Surface:  render.NewHeadless(fonts.Resolve(nil, nil), render.BaseMetrics()),
//	})
//	if _, err := eng.Populate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	svg, err := eng.MakeSVG(ctx)
package pkg
