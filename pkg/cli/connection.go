package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

func newTestCommand() *cobra.Command {
	var (
		databaseURL string
		profileID   string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test connectivity to a database",
		Long: `Connect to a database and report the server version and latency.

When the database comes from a profile, the outcome is saved on that profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			cfg, err := getConfig(cmd.Context())
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			target, fromProfile, err := resolveTarget(a.profiles, databaseURL, profileID)
			if err != nil {
				return err
			}

			result, err := a.databaseService.TestConnection(cmd.Context(), target)
			if err != nil {
				return err
			}

			if fromProfile != "" {
				if _, err := a.profiles.RecordTestResult(cmd.Context(), fromProfile, result.Success, time.Now().UTC()); err != nil {
					a.logger.Warn("Failed to record connection test result", zap.String("id", fromProfile), zap.Error(err))
				}
			}

			if format != formatTable {
				return renderStructured(cmd.OutOrStdout(), format, result)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, result.Message)
			if result.Details != nil {
				if result.Details.ServerVersion != "" {
					_, _ = fmt.Fprintf(out, "  server:   %s\n", result.Details.ServerVersion)
				}
				if result.Details.Database != "" {
					_, _ = fmt.Fprintf(out, "  database: %s\n", result.Details.Database)
				}
				_, _ = fmt.Fprintf(out, "  latency:  %dms\n", result.Details.LatencyMs)
			}
			if !result.Success {
				if result.Error != "" {
					_, _ = fmt.Fprintf(out, "  error:    %s\n", result.Error)
				}
				return fmt.Errorf("connection test failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "url", "", "connection URL")
	cmd.Flags().StringVarP(&profileID, "profile", "p", "", "saved profile id")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format (table|json|yaml)")
	cmd.MarkFlagsMutuallyExclusive("url", "profile")

	return cmd
}

func newTypesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the database engines built into this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			infos := datasource.RegisteredAdapters()
			if format != formatTable {
				return renderStructured(cmd.OutOrStdout(), format, infos)
			}

			records := make([]datasource.Record, len(infos))
			for i, info := range infos {
				records[i] = datasource.Record{
					"id":          string(info.Type),
					"name":        info.DisplayName,
					"schemes":     fmt.Sprintf("%v", info.Schemes),
					"description": info.Description,
				}
			}
			return renderRecords(cmd.OutOrStdout(), format, records)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format (table|json|yaml)")
	return cmd
}
