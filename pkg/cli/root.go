// Package cli provides the ekaya-dbproxy command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/config"
)

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates the root command. version is reported by the version
// command and the /ping endpoint.
func NewRootCmd(version string) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "ekaya-dbproxy",
		Short: "Database query proxy for PostgreSQL, MySQL and MongoDB",
		Long: `ekaya-dbproxy forwards queries to PostgreSQL, MySQL and MongoDB databases
named by a connection URL, keeps saved connection profiles, and relays
messages to the Telegram Bot API.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadFrom(cfgFile, version)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigPath, "config file")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newTestCommand())
	rootCmd.AddCommand(newTypesCommand())
	rootCmd.AddCommand(newProfilesCommand())
	rootCmd.AddCommand(newVersionCommand(version))

	return rootCmd
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd := NewRootCmd(version)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// getConfig retrieves the config loaded by the root command.
func getConfig(ctx context.Context) (*config.Config, error) {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c, nil
	}
	return nil, fmt.Errorf("configuration not loaded")
}
