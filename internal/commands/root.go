package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	constants "pulsepc/config"
	"pulsepc/internal/config"
	"pulsepc/internal/logger"
	"pulsepc/internal/ui"
)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:                constants.APP_NAME,
		Short:              constants.APP_TITLE + " hardware telemetry",
		DisableSuggestions: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "v%s\n", GetCurrentVersion())
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.RenderBanner())
			fmt.Fprintln(out, ui.RenderSubtitle())
			fmt.Fprintln(out, ui.RenderSectionStart("Commands"))
			for _, c := range cmd.Commands() {
				if c.Hidden || !c.IsAvailableCommand() {
					continue
				}
				fmt.Fprintln(out, ui.RenderKeyValue(0, c.Name(), c.Short))
			}
			fmt.Fprintln(out, ui.RenderSectionEnd())
			fmt.Fprintln(out, ui.RenderStatus("info", fmt.Sprintf("Use '%s [command] --help' for detailed help", constants.APP_NAME)))
			return nil
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME"+constants.CONFIG_DIR_NAME+"/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override log_level (debug, info, warning, error)")

	rootCmd.AddCommand(
		NewShowCmd(),
		NewWatchCmd(),
		NewDaemonCmd(),
		NewCategoriesCmd(),
		NewConfigCmd(),
		NewVersionCmd(),
	)
	return rootCmd
}

// setup loads configuration and points the logger at the configured file
func setup(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		if _, err := logger.ParseLevel(lvl); err != nil {
			return nil, err
		}
		cfg.LogLevel = lvl
	}
	if err := logger.Configure(cfg.LogFile, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if cfg.Source != "" {
		logger.Debug("Loaded configuration from %s", cfg.Source)
	}
	return cfg, nil
}
