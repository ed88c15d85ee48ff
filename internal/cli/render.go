package cli

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tablemap/tablemap/pkg/cache"
	"github.com/tablemap/tablemap/pkg/diagram"
	"github.com/tablemap/tablemap/pkg/errors"
	"github.com/tablemap/tablemap/pkg/layout"
)

// artifactTTL bounds how long a rendered artifact may be reused. Keys carry
// the schema fingerprint, so this only caps growth of the cache directory.
const artifactTTL = 7 * 24 * time.Hour

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output      string  // output file path
	format      string  // output format: "png", "svg" or "json"
	zoom        float64 // zoom factor, snapped to 1/8 steps
	keyColumns  bool    // show only key columns
	headerOnly  bool    // show no columns at all
	nulls       bool    // mark nullable columns
	noLines     bool    // hide relation lines
	noLabels    bool    // hide relation labels
	stats       bool    // collect and show row/size statistics
	layoutKind  string  // placement strategy: "grid" or "graph"
	order       string  // grid sort key: name, columns, rows, bytes
	reverse     bool    // reverse the grid sort
	horizontal  bool    // pack grid rows instead of columns
	optionsFile string  // diagram options document to apply before rendering
	noCache     bool    // bypass the artifact cache
}

// newRenderCmd creates the render command for exporting diagrams.
//
// Default settings:
//   - format: png
//   - zoom: 1.0
//   - layout: grid, packed into columns, ordered by name
//   - all columns shown, relation lines and labels on
func newRenderCmd() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [database]",
		Short: "Render a database schema as a diagram",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateFormat(opts.format); err != nil {
				return err
			}
			return runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: database name with format extension)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "png", "output format: png (default), svg, json")
	cmd.Flags().Float64VarP(&opts.zoom, "zoom", "z", 0, "zoom factor in [0.125, 3], snapped to 1/8 steps")
	cmd.Flags().BoolVar(&opts.keyColumns, "key-columns", false, "show only primary and foreign key columns")
	cmd.Flags().BoolVar(&opts.headerOnly, "header-only", false, "show entity headers without columns")
	cmd.Flags().BoolVar(&opts.nulls, "nulls", false, "mark nullable columns")
	cmd.Flags().BoolVar(&opts.noLines, "no-lines", false, "hide relation lines")
	cmd.Flags().BoolVar(&opts.noLabels, "no-labels", false, "hide relation labels")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "collect and show row counts and sizes")
	cmd.Flags().StringVar(&opts.layoutKind, "layout", "", "placement strategy: grid (default), graph")
	cmd.Flags().StringVar(&opts.order, "order", "", "grid sort key: name (default), columns, rows, bytes")
	cmd.Flags().BoolVar(&opts.reverse, "reverse", false, "reverse the grid sort direction")
	cmd.Flags().BoolVar(&opts.horizontal, "horizontal", false, "pack the grid into rows instead of columns")
	cmd.Flags().StringVar(&opts.optionsFile, "options", "", "diagram options document to apply before rendering")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the artifact cache")

	return cmd
}

// outputPath derives the output file from the flags or the database name.
func outputPath(output, input, format string) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
}

// diagramOptions merges config defaults and command flags into engine options.
func diagramOptions(cfg Config, opts *renderOpts) (diagram.Options, error) {
	o := diagram.DefaultOptions()
	if cfg.Zoom != 0 {
		o.Zoom = cfg.Zoom
	}
	if cfg.Layout != "" {
		o.Layout = diagram.LayoutKind(cfg.Layout)
	}
	o.Grid = cfg.Grid
	o.ShowStatistics = cfg.Statistics

	if opts.zoom != 0 {
		if err := errors.ValidateZoom(opts.zoom); err != nil {
			return o, err
		}
		o.Zoom = opts.zoom
	}
	if opts.keyColumns && opts.headerOnly {
		return o, errors.New(errors.ErrCodeInvalidOptions, "--key-columns and --header-only are mutually exclusive")
	}
	if opts.keyColumns {
		o.ShowColumns = false
		o.ShowKeyColumnsOnly = true
	}
	if opts.headerOnly {
		o.ShowColumns = false
	}
	o.ShowNulls = opts.nulls
	if opts.noLines {
		o.ShowLines = false
	}
	if opts.noLabels {
		o.ShowLabels = false
	}
	if opts.stats {
		o.ShowStatistics = true
	}
	if opts.layoutKind != "" {
		if err := errors.ValidateLayout(opts.layoutKind); err != nil {
			return o, err
		}
		o.Layout = diagram.LayoutKind(opts.layoutKind)
	}
	if opts.order != "" {
		switch opts.order {
		case layout.OrderName, layout.OrderColumns, layout.OrderRows, layout.OrderBytes:
		default:
			return o, errors.New(errors.ErrCodeInvalidInput, "unknown order: %s", opts.order)
		}
		o.Grid.Order = opts.order
	}
	if opts.reverse {
		o.Grid.Reverse = true
	}
	if opts.horizontal {
		o.Grid.Vertical = false
	}
	return o, nil
}

// artifactKeyOpts maps engine options onto the cache key inputs.
func artifactKeyOpts(format string, o diagram.Options) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     format,
		Zoom:       o.Zoom,
		Columns:    o.ShowColumns,
		KeyColumns: o.ShowKeyColumnsOnly,
		Nulls:      o.ShowNulls,
		Lines:      o.ShowLines,
		Labels:     o.ShowLabels,
		Statistics: o.ShowStatistics,
	}
}

func runRender(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	o, err := diagramOptions(cfg, opts)
	if err != nil {
		return err
	}

	provider, err := openProvider(ctx, input, o.ShowStatistics)
	if err != nil {
		return err
	}
	defer provider.Close()

	outPath := outputPath(opts.output, input, opts.format)

	// A custom options document changes positions in ways the key does not
	// capture, so those renders always go through the engine.
	useCache := opts.optionsFile == ""
	artifacts, err := newArtifactCache(opts.noCache || !useCache)
	if err != nil {
		return err
	}
	defer artifacts.Close()

	snap, err := provider.Snapshot()
	if err != nil {
		return err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "db:"+filepath.Base(input)+":")
	key := keyer.ArtifactKey(schemaHash(snap), artifactKeyOpts(opts.format, o))

	entityCount := 0
	for _, ents := range snap.Entities {
		entityCount += len(ents)
	}

	if data, hit, err := artifacts.Get(ctx, key); err == nil && hit {
		logger.Debugf("Artifact cache hit: %d bytes", len(data))
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return err
		}
		printSuccess("Generated %s", outPath)
		printStats(entityCount, 0, true)
		return nil
	}

	headless := opts.format != "png"
	eng, err := buildEngine(ctx, provider, cfg, headless)
	if err != nil {
		return err
	}

	spin := newSpinnerWithContext(ctx, "Laying out "+filepath.Base(input))
	spin.Start()
	data, err := produceArtifact(ctx, eng, o, opts)
	if err != nil {
		spin.StopWithError(err.Error())
		return err
	}
	spin.Stop()

	if err := artifacts.Set(ctx, key, data, artifactTTL); err != nil {
		logger.Debugf("Artifact cache write failed: %v", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return err
	}
	printSuccess("Generated %s", outPath)
	printStats(len(eng.EntityNames()), eng.RelationCount(), false)
	return nil
}

// produceArtifact populates the engine, applies the presentation options and
// exports the requested format.
func produceArtifact(ctx context.Context, eng *diagram.Engine, o diagram.Options, opts *renderOpts) ([]byte, error) {
	if _, err := eng.Populate(ctx); err != nil {
		return nil, err
	}
	if err := eng.SetOptions(ctx, o); err != nil {
		return nil, err
	}
	if opts.optionsFile != "" {
		doc, err := os.ReadFile(opts.optionsFile)
		if err != nil {
			return nil, err
		}
		if err := eng.ImportOptions(ctx, doc); err != nil {
			return nil, err
		}
	}

	switch opts.format {
	case "png":
		img, err := eng.MakeImage(ctx, 1.0)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, errors.Wrap(errors.ErrCodeRender, err, "failed to encode png")
		}
		return buf.Bytes(), nil
	case "svg":
		return eng.MakeSVG(ctx)
	case "json":
		return eng.ExportOptions()
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format: %s", opts.format)
	}
}
