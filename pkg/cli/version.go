package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ekaya-dbproxy %s (%s)\n", version, runtime.Version())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "engines: %v\n", engineNames())
		},
	}
}
