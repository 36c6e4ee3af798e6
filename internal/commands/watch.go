package commands

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pulsepc/internal/logger"
	"pulsepc/internal/providers"
	"pulsepc/internal/ui"
)

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of every category",
		Long: `Open a full-screen dashboard. The selected category is refreshed while
it is on screen; static categories are collected once when first opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			eng, err := newEngine(cfg, providers.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng.scheduler.Start(ctx)
			defer eng.scheduler.Stop()
			logger.Info("Dashboard started (refresh every %v)", cfg.RefreshInterval)

			dash := ui.NewDashboard(ctx, eng.scheduler, eng.sink, cfg.IdlePollInterval)
			_, err = tea.NewProgram(dash, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if err != nil && ctx.Err() != nil {
				// interrupted by a signal
				return nil
			}
			return err
		},
	}
}
