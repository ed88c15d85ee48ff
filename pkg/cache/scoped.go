package cache

// ScopedKeyer wraps a Keyer with a prefix so multiple databases can share one
// cache directory without key collisions.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "db:inventory:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SchemaKey generates a prefixed key for schema snapshot caching.
func (k *ScopedKeyer) SchemaKey(source string, opts SchemaKeyOpts) string {
	return k.prefix + k.inner.SchemaKey(source, opts)
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(schemaHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(schemaHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(schemaHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(schemaHash, opts)
}
