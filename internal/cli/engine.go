package cli

import (
	"context"
	"sort"
	"strings"

	"github.com/tablemap/tablemap/pkg/cache"
	"github.com/tablemap/tablemap/pkg/diagram"
	"github.com/tablemap/tablemap/pkg/fonts"
	"github.com/tablemap/tablemap/pkg/geometry"
	"github.com/tablemap/tablemap/pkg/render"
	"github.com/tablemap/tablemap/pkg/schema"
	"github.com/tablemap/tablemap/pkg/source/sqlite"
)

const (
	defaultWidth  = 800 // default viewport width
	defaultHeight = 600 // default viewport height
)

// openProvider opens the database read-only, retrying while another process
// holds the write lock.
func openProvider(ctx context.Context, path string, collectStats bool) (*sqlite.Provider, error) {
	var provider *sqlite.Provider
	err := cache.RetryWithBackoff(ctx, func() error {
		p, err := sqlite.Open(path)
		if err != nil {
			if msg := err.Error(); strings.Contains(msg, "locked") || strings.Contains(msg, "busy") {
				return cache.Retryable(err)
			}
			return err
		}
		provider = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	provider.CollectStats = collectStats
	return provider, nil
}

// buildEngine assembles a diagram engine over the provider. With headless,
// boxes are measured but never rasterized, which is enough for SVG and JSON
// output and avoids touching font rendering.
func buildEngine(ctx context.Context, provider *sqlite.Provider, cfg Config, headless bool) (*diagram.Engine, error) {
	logger := loggerFromContext(ctx)

	theme, err := cfg.theme()
	if err != nil {
		return nil, err
	}
	catalog := fonts.Resolve(cfg.Fonts, logger)
	metrics := render.BaseMetrics().Scaled(1)

	ecfg := diagram.Config{
		Provider: provider,
		Logger:   logger,
		Theme:    theme,
		Viewport: geometry.NewRect(0, 0, defaultWidth, defaultHeight),
		Source:   provider.Path(),
	}
	if headless {
		ecfg.Surface = render.NewHeadless(catalog, metrics)
	} else {
		raster := render.NewRaster(catalog, metrics, theme)
		ecfg.Surface = raster
		ecfg.Raster = raster
	}
	return diagram.New(ecfg), nil
}

// schemaHash fingerprints the whole schema for artifact cache keys. Any
// change to any entity's SQL changes the hash.
func schemaHash(snap schema.Snapshot) string {
	var prints []string
	for _, category := range schema.Categories {
		for _, ent := range snap.Entities[category] {
			prints = append(prints, schema.Fold(ent.Name)+"="+ent.Fingerprint)
		}
	}
	sort.Strings(prints)
	return cache.Hash([]byte(strings.Join(prints, "\n")))
}
