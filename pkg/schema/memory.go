package schema

// MemoryProvider is an in-memory Provider, used by tests and by callers that
// already hold schema metadata from elsewhere.
type MemoryProvider struct {
	Tables  []Entity
	Views   []Entity
	Primary map[string][][]string   // folded table name -> pk column groups
	Foreign map[string][]ForeignKey // folded table name -> fks
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		Primary: make(map[string][][]string),
		Foreign: make(map[string][]ForeignKey),
	}
}

// AddTable registers a table with its keys. Identity defaults to the folded
// name when empty.
func (p *MemoryProvider) AddTable(e Entity, primary [][]string, foreign []ForeignKey) *MemoryProvider {
	e.Category = CategoryTable
	if e.Identity == "" {
		e.Identity = Fold(e.Name)
	}
	p.Tables = append(p.Tables, e)
	p.Primary[Fold(e.Name)] = primary
	p.Foreign[Fold(e.Name)] = foreign
	return p
}

// AddView registers a view.
func (p *MemoryProvider) AddView(e Entity) *MemoryProvider {
	e.Category = CategoryView
	if e.Identity == "" {
		e.Identity = Fold(e.Name)
	}
	p.Views = append(p.Views, e)
	return p
}

// Snapshot implements Provider.
func (p *MemoryProvider) Snapshot() (Snapshot, error) {
	s := Snapshot{Entities: make(map[Category][]Entity, 2)}
	s.Entities[CategoryTable] = append([]Entity(nil), p.Tables...)
	s.Entities[CategoryView] = append([]Entity(nil), p.Views...)
	return s, nil
}

// Keys implements Provider.
func (p *MemoryProvider) Keys(table string) ([][]string, []ForeignKey, error) {
	return p.Primary[Fold(table)], p.Foreign[Fold(table)], nil
}

// Related implements Provider. Tables are related through foreign keys in
// either direction.
func (p *MemoryProvider) Related(category Category, name string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	add := func(n string) {
		if f := Fold(n); !seen[f] && !EqualFold(n, name) {
			seen[f] = true
			out = append(out, n)
		}
	}
	for table, fks := range p.Foreign {
		for _, fk := range fks {
			if EqualFold(table, name) {
				add(fk.Table)
			}
			if EqualFold(fk.Table, name) {
				add(table)
			}
		}
	}
	return out, nil
}

var _ Provider = (*MemoryProvider)(nil)
