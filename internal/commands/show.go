package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pulsepc/internal/encoding"
	"pulsepc/internal/logger"
	"pulsepc/internal/providers"
	"pulsepc/internal/telemetry"
	"pulsepc/internal/ui"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var (
		output      string
		diagnostics bool
	)

	cmd := &cobra.Command{
		Use:   "show [category...]",
		Short: "Collect categories once and print them",
		Long: `Resolve the given categories (all of them when none are named) and print
the resulting snapshots.

Examples:
  pulsepc show                     # everything, as text
  pulsepc show cpu memory          # two categories
  pulsepc show storage -o json     # machine-readable
  pulsepc show -o cbor > snap.cbor # binary document stream`,
		ValidArgs: categoryNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := encoding.ParseFormat(output)
			if err != nil {
				return err
			}
			cats := telemetry.AllCategories()
			if len(args) > 0 {
				if cats, err = telemetry.ParseCategories(args); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if format.Binary() && isTerminal(out) {
				return fmt.Errorf("refusing to write %s to a terminal, redirect the output", format)
			}

			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			eng, err := newEngine(cfg, providers.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}

			var snaps []*telemetry.Snapshot
			collectFn := func() error {
				snaps = eng.collect(cmd.Context(), cats)
				return nil
			}
			if format == encoding.FormatText && isTerminal(cmd.ErrOrStderr()) {
				_ = ui.WithSpinner(cmd.ErrOrStderr(), "Collecting telemetry...", collectFn)
			} else {
				_ = collectFn()
			}

			if format != encoding.FormatText {
				return encoding.Encode(out, format, snaps)
			}

			now := time.Now()
			for _, s := range snaps {
				fmt.Fprint(out, ui.RenderSnapshot(s, now))
				fmt.Fprintln(out)
			}
			if diagnostics {
				fmt.Fprintln(out, ui.RenderSectionStart("Provider Diagnostics"))
				fmt.Fprint(out, ui.RenderDiagnostics(eng.diag.Snapshot()))
				fmt.Fprintln(out, ui.RenderSectionEnd())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json, yaml or cbor")
	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "print provider outcome counters after the snapshots")
	return cmd
}

// collect resolves cats concurrently and returns their snapshots in order.
// A category whose refresh fails keeps whatever the sink already holds.
func (e *engine) collect(ctx context.Context, cats []telemetry.Category) []*telemetry.Snapshot {
	var g errgroup.Group
	g.SetLimit(len(telemetry.DefaultDynamicCategories()))
	for _, c := range cats {
		c := c
		g.Go(func() error {
			if _, err := e.scheduler.Refresh(ctx, c); err != nil {
				logger.Warning("collect %s: %v", c, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	snaps := make([]*telemetry.Snapshot, len(cats))
	for i, c := range cats {
		snaps[i] = e.sink.Get(c)
	}
	return snaps
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func categoryNames() []string {
	cats := telemetry.AllCategories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	return names
}
