package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	constants "pulsepc/config"
)

// GetCurrentVersion is set by main from build flags
var GetCurrentVersion = func() string { return constants.VERSION }

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s (%s, %s/%s)\n",
				constants.APP_NAME, GetCurrentVersion(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
