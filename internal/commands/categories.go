package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pulsepc/internal/providers"
	"pulsepc/internal/telemetry"
	"pulsepc/internal/ui"
)

// NewCategoriesCmd creates the categories command
func NewCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories and the providers behind them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			eng, err := newEngine(cfg, providers.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), describeRegistry(eng))
			return nil
		},
	}
}

func describeRegistry(eng *engine) string {
	var b strings.Builder
	for _, c := range telemetry.AllCategories() {
		refresh := "static, on demand"
		if eng.scheduler.IsDynamic(c) {
			refresh = "dynamic, every " + eng.cfg.RefreshInterval.String()
		}
		b.WriteString(ui.RenderSectionStart(fmt.Sprintf("%s (%s)", c.Title(), c)))
		b.WriteString("\n")
		b.WriteString(ui.RenderKeyValue(0, "Refresh", refresh))
		b.WriteString("\n")
		b.WriteString(ui.RenderKeyValue(0, "Merge", eng.registry.Mode(c).String()))
		b.WriteString("\n")
		for _, d := range eng.registry.Providers(c) {
			b.WriteString(ui.RenderKeyValue(1, fmt.Sprintf("%d. %s", d.Priority, d.Name()), "timeout "+d.Timeout.String()))
			b.WriteString("\n")
		}
		b.WriteString(ui.RenderSectionEnd())
		b.WriteString("\n")
	}
	return b.String()
}
