package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablemap/tablemap/pkg/diagram"
	"github.com/tablemap/tablemap/pkg/errors"
)

// layoutOpts holds the command-line flags for the layout command.
type layoutOpts struct {
	output     string
	layoutKind string
	order      string
	reverse    bool
	horizontal bool
	stats      bool
	zoom       float64
}

// newLayoutCmd creates the layout command. It computes entity positions and
// writes the diagram options document, which the render command can apply via
// --options.
func newLayoutCmd() *cobra.Command {
	var opts layoutOpts

	cmd := &cobra.Command{
		Use:   "layout [database]",
		Short: "Compute entity positions and export the options document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.layoutKind, "layout", "", "placement strategy: grid (default), graph")
	cmd.Flags().StringVar(&opts.order, "order", "", "grid sort key: name (default), columns, rows, bytes")
	cmd.Flags().BoolVar(&opts.reverse, "reverse", false, "reverse the grid sort direction")
	cmd.Flags().BoolVar(&opts.horizontal, "horizontal", false, "pack the grid into rows instead of columns")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "collect statistics (needed for rows/bytes ordering)")
	cmd.Flags().Float64VarP(&opts.zoom, "zoom", "z", 0, "zoom factor in [0.125, 3]")

	return cmd
}

func runLayout(ctx context.Context, input string, opts *layoutOpts) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	o, err := diagramOptions(cfg, &renderOpts{
		zoom:       opts.zoom,
		stats:      opts.stats,
		layoutKind: opts.layoutKind,
		order:      opts.order,
		reverse:    opts.reverse,
		horizontal: opts.horizontal,
	})
	if err != nil {
		return err
	}

	provider, err := openProvider(ctx, input, o.ShowStatistics)
	if err != nil {
		return err
	}
	defer provider.Close()

	eng, err := buildEngine(ctx, provider, cfg, true)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	if _, err := eng.Populate(ctx); err != nil {
		return err
	}
	if err := eng.SetOptions(ctx, o); err != nil {
		return err
	}
	if err := eng.Relayout(ctx, nil); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Positioned %d entities (%s layout)", len(eng.EntityNames()), o.Layout))

	doc, err := eng.ExportOptions()
	if err != nil {
		return err
	}
	if opts.output == "" {
		fmt.Println(string(doc))
		return nil
	}
	if err := os.WriteFile(opts.output, doc, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "failed to write %s", opts.output)
	}
	printSuccess("Wrote %s", opts.output)
	return nil
}

// newOptionsCmd creates the options command group for the persistable
// diagram options document.
func newOptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Inspect and export the diagram options document",
	}
	cmd.AddCommand(newOptionsExportCmd())
	cmd.AddCommand(newOptionsCheckCmd())
	return cmd
}

// newOptionsExportCmd creates the "options export" subcommand. It emits the
// default options document for a database, ready for hand editing.
func newOptionsExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [database]",
		Short: "Export the default options document for a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			provider, err := openProvider(ctx, args[0], false)
			if err != nil {
				return err
			}
			defer provider.Close()

			eng, err := buildEngine(ctx, provider, cfg, true)
			if err != nil {
				return err
			}
			if _, err := eng.Populate(ctx); err != nil {
				return err
			}
			doc, err := eng.ExportOptions()
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Println(string(doc))
				return nil
			}
			if err := os.WriteFile(output, doc, 0o644); err != nil {
				return err
			}
			printSuccess("Wrote %s", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// newOptionsCheckCmd creates the "options check" subcommand. It validates a
// document without needing a database.
func newOptionsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Validate an options document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := diagram.ValidateOptionsDocument(data); err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
			printSuccess("%s is a valid options document", args[0])
			return nil
		},
	}
}
