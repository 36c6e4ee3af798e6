package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"pulsepc/internal/config"
	"pulsepc/internal/ui"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration after the config file and PULSEPC_* environment
variables are applied.

Use 'pulsepc config init' to write a config file with the defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), describeConfig(cfg))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the per-user config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.SaveConfig(config.Defaults())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderStatus("success", "Wrote "+path))
			return nil
		},
	})
	return cmd
}

func describeConfig(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString(ui.RenderSectionStart("Configuration"))
	b.WriteString("\n")

	source := cfg.Source
	if source == "" {
		source = "defaults (no config file found)"
	}
	b.WriteString(ui.RenderKeyValue(0, "source", source))
	b.WriteString("\n")

	values := cfg.Values()
	for _, k := range config.Keys {
		b.WriteString(ui.RenderKeyValue(0, k, formatSetting(values[k])))
		b.WriteString("\n")
	}
	b.WriteString(ui.RenderSectionEnd())
	b.WriteString("\n")
	return b.String()
}

func formatSetting(v interface{}) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ", ")
	case map[string]string:
		if len(val) == 0 {
			return ""
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		// header values may carry credentials
		for i, k := range keys {
			keys[i] = k + "=***"
		}
		return strings.Join(keys, ", ")
	default:
		return fmt.Sprint(val)
	}
}
