// Package schema defines the data model for relational schema objects as the
// diagram engine sees them, and the Provider interface that supplies them.
//
// Names of entities and columns compare case-insensitively everywhere in this
// module; Fold is the canonical folding used for map keys.
package schema

import (
	"fmt"
	"strings"
)

// Category distinguishes the kinds of schema objects drawn as boxes.
type Category string

const (
	// CategoryTable is a regular table.
	CategoryTable Category = "table"
	// CategoryView is a view; views sort after tables in grid layouts.
	CategoryView Category = "view"
)

// Categories lists all categories in diagram draw precedence order.
var Categories = []Category{CategoryTable, CategoryView}

// Fold returns the case-insensitive canonical form of a name, used as the key
// in every name-indexed map in this module.
func Fold(name string) string { return strings.ToLower(name) }

// EqualFold reports whether two names are equal case-insensitively.
func EqualFold(a, b string) bool { return strings.EqualFold(a, b) }

// Column describes one column of an entity.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// ForeignKey is one foreign-key column group with its referenced table.
type ForeignKey struct {
	Columns []string // referencing columns, in declaration order
	Table   string   // referenced table name
}

// Statistics carries optional size information for an entity. Values may be
// estimates; Estimated marks them as such.
type Statistics struct {
	RowCount  int64
	ByteSize  int64
	HasRows   bool // RowCount is meaningful
	HasBytes  bool // ByteSize is meaningful
	Estimated bool
}

// Entity is one schema object as supplied by a Provider.
//
// Identity is an opaque token that survives renames: the engine matches
// entities across successive snapshots by it, never by name. Fingerprint is a
// hash or version of the entity's defining SQL and decides whether cached
// bitmaps remain valid.
type Entity struct {
	Identity    string
	Name        string
	Category    Category
	Columns     []Column
	SQL         string
	Fingerprint string
	Stats       Statistics
	HasMeta     bool // full parsed metadata available (enables key decorations)
}

// Snapshot is one complete view of a schema, the unit consumed by
// diagram.Engine.Populate. Entities keeps provider order per category.
type Snapshot struct {
	Entities map[Category][]Entity
}

// Entity returns the entity with the given name in any category, or nil.
func (s Snapshot) Entity(name string) *Entity {
	for _, cat := range Categories {
		for i := range s.Entities[cat] {
			if EqualFold(s.Entities[cat][i].Name, name) {
				return &s.Entities[cat][i]
			}
		}
	}
	return nil
}

// Provider supplies schema snapshots and key/relation queries. Implementations
// sit at the boundary of the diagram engine; pkg/source/sqlite reads a live
// SQLite database, tests use in-memory fixtures.
type Provider interface {
	// Snapshot returns the current schema state. Entity order within a
	// category is preserved by the engine for stable layouts.
	Snapshot() (Snapshot, error)

	// Keys returns the primary-key column groups and foreign keys of the
	// named table. Unknown names yield empty results, not an error.
	Keys(table string) (primary [][]string, foreign []ForeignKey, err error)

	// Related returns the names of entities related to the named one,
	// used for per-entity relation summaries.
	Related(category Category, name string) ([]string, error)
}

// RelationKey identifies one foreign-key relation between two entities. The
// key is composite and case-insensitive on names: source entity, target
// entity, and the ordered referencing column names.
type RelationKey struct {
	Source  string
	Target  string
	Columns string // folded column names joined with "\x00"
}

// NewRelationKey builds a normalized relation key.
func NewRelationKey(source, target string, columns []string) RelationKey {
	folded := make([]string, len(columns))
	for i, c := range columns {
		folded[i] = Fold(c)
	}
	return RelationKey{
		Source:  Fold(source),
		Target:  Fold(target),
		Columns: strings.Join(folded, "\x00"),
	}
}

// ColumnNames returns the folded referencing column names.
func (k RelationKey) ColumnNames() []string {
	if k.Columns == "" {
		return nil
	}
	return strings.Split(k.Columns, "\x00")
}

// String renders the key for logs and errors.
func (k RelationKey) String() string {
	return fmt.Sprintf("%s->%s(%s)", k.Source, k.Target, strings.Join(k.ColumnNames(), ","))
}

// IsKeyColumn reports whether the named column participates in any of the
// given primary or foreign key groups.
func IsKeyColumn(name string, primary [][]string, foreign []ForeignKey) bool {
	for _, group := range primary {
		for _, c := range group {
			if EqualFold(c, name) {
				return true
			}
		}
	}
	for _, fk := range foreign {
		for _, c := range fk.Columns {
			if EqualFold(c, name) {
				return true
			}
		}
	}
	return false
}
