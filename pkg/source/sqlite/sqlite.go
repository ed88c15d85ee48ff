// Package sqlite implements schema.Provider over a SQLite database file.
//
// Introspection uses sqlite_master plus the table_info and foreign_key_list
// pragmas. Statistics come from COUNT(*) and, when the driver exposes it,
// the dbstat virtual table; both are best effort and never fail a snapshot.
package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tablemap/tablemap/pkg/errors"
	"github.com/tablemap/tablemap/pkg/schema"
)

// Provider reads schema metadata from one SQLite database.
//
// Entity identities are UUIDs stable for the lifetime of the provider: an
// entity keeps its identity across snapshots as long as its name exists, so
// renders cached under that identity survive unrelated schema changes.
type Provider struct {
	db   *sql.DB
	path string

	// CollectStats enables row and size statistics during Snapshot. Off by
	// default since counting rows can be expensive on large databases.
	CollectStats bool

	mu         sync.Mutex
	identities map[string]string // folded name -> uuid
}

// Open opens a database file read-only.
func Open(path string) (*Provider, error) {
	if err := errors.ValidateDatabasePath(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackend, err, "failed to open %s", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeBackend, err, "failed to open %s", path)
	}
	return &Provider{
		db:         db,
		path:       path,
		identities: make(map[string]string),
	}, nil
}

// Path returns the database file path.
func (p *Provider) Path() string { return p.path }

// Close releases the database handle.
func (p *Provider) Close() error { return p.db.Close() }

// Snapshot implements schema.Provider.
func (p *Provider) Snapshot() (schema.Snapshot, error) {
	snap := schema.Snapshot{Entities: make(map[schema.Category][]schema.Entity, 2)}

	rows, err := p.db.Query(
		`SELECT name, type, COALESCE(sql, '') FROM sqlite_master
		 WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`)
	if err != nil {
		return snap, errors.Wrap(errors.ErrCodeBackend, err, "failed to read sqlite_master")
	}
	defer rows.Close()

	type master struct {
		name, typ, sql string
	}
	var masters []master
	for rows.Next() {
		var m master
		if err := rows.Scan(&m.name, &m.typ, &m.sql); err != nil {
			return snap, errors.Wrap(errors.ErrCodeBackend, err, "failed to scan sqlite_master")
		}
		masters = append(masters, m)
	}
	if err := rows.Err(); err != nil {
		return snap, errors.Wrap(errors.ErrCodeBackend, err, "failed to read sqlite_master")
	}

	for _, m := range masters {
		category := schema.CategoryTable
		if m.typ == "view" {
			category = schema.CategoryView
		}
		ent := schema.Entity{
			Name:        m.name,
			Category:    category,
			Identity:    p.identity(m.name),
			SQL:         m.sql,
			Fingerprint: fingerprint(m.sql),
		}
		cols, err := p.columns(m.name)
		if err == nil && len(cols) > 0 {
			ent.Columns = cols
			ent.HasMeta = true
		}
		if p.CollectStats && category == schema.CategoryTable {
			ent.Stats = p.stats(m.name)
		}
		snap.Entities[category] = append(snap.Entities[category], ent)
	}
	return snap, nil
}

// Keys implements schema.Provider. Primary key groups cover the table's
// declared primary key plus unique indexes.
func (p *Provider) Keys(table string) ([][]string, []schema.ForeignKey, error) {
	cols, err := p.db.Query(`SELECT name, pk FROM pragma_table_info(?) ORDER BY pk`, table)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeBackend, err, "failed to read columns of %s", table)
	}
	var pk []string
	for cols.Next() {
		var name string
		var pkOrd int
		if err := cols.Scan(&name, &pkOrd); err != nil {
			cols.Close()
			return nil, nil, errors.Wrap(errors.ErrCodeBackend, err, "failed to scan columns of %s", table)
		}
		if pkOrd > 0 {
			pk = append(pk, name)
		}
	}
	cols.Close()
	if err := cols.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeBackend, err, "failed to read columns of %s", table)
	}

	var primary [][]string
	if len(pk) > 0 {
		primary = append(primary, pk)
	}
	primary = append(primary, p.uniqueIndexes(table)...)

	foreign, err := p.foreignKeys(table)
	if err != nil {
		return nil, nil, err
	}
	return primary, foreign, nil
}

// Related implements schema.Provider. Tables are related when a foreign key
// points in either direction; views are related to nothing.
func (p *Provider) Related(category schema.Category, name string) ([]string, error) {
	if category != schema.CategoryTable {
		return nil, nil
	}
	snap, err := p.Snapshot()
	if err != nil {
		return nil, err
	}

	var out []string
	seen := map[string]bool{}
	add := func(n string) {
		if f := schema.Fold(n); !seen[f] && !schema.EqualFold(n, name) {
			seen[f] = true
			out = append(out, n)
		}
	}
	for _, ent := range snap.Entities[schema.CategoryTable] {
		fks, err := p.foreignKeys(ent.Name)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			if schema.EqualFold(ent.Name, name) {
				add(fk.Table)
			}
			if schema.EqualFold(fk.Table, name) {
				add(ent.Name)
			}
		}
	}
	return out, nil
}

func (p *Provider) identity(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	folded := schema.Fold(name)
	if id, ok := p.identities[folded]; ok {
		return id
	}
	id := uuid.NewString()
	p.identities[folded] = id
	return id
}

func (p *Provider) columns(table string) ([]schema.Column, error) {
	rows, err := p.db.Query(`SELECT name, COALESCE(type, ''), "notnull" FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.Column
	for rows.Next() {
		var col schema.Column
		var notNull int
		if err := rows.Scan(&col.Name, &col.Type, &notNull); err != nil {
			return nil, err
		}
		col.Nullable = notNull == 0
		out = append(out, col)
	}
	return out, rows.Err()
}

func (p *Provider) uniqueIndexes(table string) [][]string {
	rows, err := p.db.Query(
		`SELECT name FROM pragma_index_list(?) WHERE "unique" = 1 AND origin != 'pk'`, table)
	if err != nil {
		return nil
	}
	var names []string
	for rows.Next() {
		var name string
		if rows.Scan(&name) == nil {
			names = append(names, name)
		}
	}
	rows.Close()

	var out [][]string
	for _, idx := range names {
		cols, err := p.db.Query(`SELECT name FROM pragma_index_info(?) ORDER BY seqno`, idx)
		if err != nil {
			continue
		}
		var group []string
		for cols.Next() {
			var name sql.NullString
			if cols.Scan(&name) == nil && name.Valid {
				group = append(group, name.String)
			}
		}
		cols.Close()
		if len(group) > 0 {
			out = append(out, group)
		}
	}
	return out
}

func (p *Provider) foreignKeys(table string) ([]schema.ForeignKey, error) {
	rows, err := p.db.Query(
		`SELECT id, "table", "from" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, table)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackend, err, "failed to read foreign keys of %s", table)
	}
	defer rows.Close()

	var out []schema.ForeignKey
	lastID := -1
	for rows.Next() {
		var id int
		var target, from string
		if err := rows.Scan(&id, &target, &from); err != nil {
			return nil, errors.Wrap(errors.ErrCodeBackend, err, "failed to scan foreign keys of %s", table)
		}
		if id != lastID {
			out = append(out, schema.ForeignKey{Table: target})
			lastID = id
		}
		out[len(out)-1].Columns = append(out[len(out)-1].Columns, from)
	}
	return out, rows.Err()
}

// stats collects best-effort size statistics. Row counts are exact; byte
// sizes need the dbstat virtual table and are skipped when it is missing.
func (p *Provider) stats(table string) schema.Statistics {
	var s schema.Statistics
	var count int64
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM ` + quoteIdent(table)).Scan(&count); err == nil {
		s.RowCount = count
		s.HasRows = true
	}
	var size sql.NullInt64
	err := p.db.QueryRow(`SELECT SUM(pgsize) FROM dbstat WHERE name = ?`, table).Scan(&size)
	if err == nil && size.Valid {
		s.ByteSize = size.Int64
		s.HasBytes = true
	}
	return s
}

func fingerprint(sqlText string) string {
	normalized := strings.Join(strings.Fields(sqlText), " ")
	sum := sha256.Sum256([]byte(strings.ToLower(normalized)))
	return hex.EncodeToString(sum[:])
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ schema.Provider = (*Provider)(nil)
