// Package cache provides byte-level caching for exported diagram artifacts.
//
// Keys are derived from the schema fingerprint and the presentation options
// that went into a render, so a cached PNG or SVG stays valid exactly as long
// as neither the schema nor the requested look changed.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte blobs under string keys.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// SchemaKeyOpts are the inputs that change an introspection result.
type SchemaKeyOpts struct {
	WithStats bool
}

// LayoutKeyOpts are the inputs that change entity placement.
type LayoutKeyOpts struct {
	Layout   string // "grid" or "graph"
	Order    string
	Reverse  bool
	Vertical bool
	Zoom     float64
}

// ArtifactKeyOpts are the inputs that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format     string // "png", "svg" or "json"
	Zoom       float64
	Columns    bool
	KeyColumns bool
	Nulls      bool
	Lines      bool
	Labels     bool
	Statistics bool
}

// Keyer generates cache keys for the pipeline stages.
type Keyer interface {
	// SchemaKey generates a key for an introspected schema snapshot.
	SchemaKey(source string, opts SchemaKeyOpts) string

	// LayoutKey generates a key for computed entity positions.
	LayoutKey(schemaHash string, opts LayoutKeyOpts) string

	// ArtifactKey generates a key for a rendered diagram artifact.
	ArtifactKey(schemaHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SchemaKey generates a key for an introspected schema snapshot.
func (k *DefaultKeyer) SchemaKey(source string, opts SchemaKeyOpts) string {
	return hashKey("schema", source, opts)
}

// LayoutKey generates a key for computed entity positions.
func (k *DefaultKeyer) LayoutKey(schemaHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", schemaHash, opts)
}

// ArtifactKey generates a key for a rendered diagram artifact.
func (k *DefaultKeyer) ArtifactKey(schemaHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", schemaHash, opts)
}
