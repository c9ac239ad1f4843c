package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/models"
)

func newQueryCommand() *cobra.Command {
	var (
		databaseURL string
		profileID   string
		demo        bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "query [flags] QUERY",
		Short: "Run a query against a database",
		Long: `Run a SQL statement against PostgreSQL or MySQL, or a JSON filter against
the first collection of a MongoDB database.

The database is taken from --url, then --profile, then the active profile.`,
		Example: `  ekaya-dbproxy query --url postgres://localhost/app "SELECT * FROM users LIMIT 5"
  ekaya-dbproxy query --url mongodb://localhost/bot '{"status":"active"}'
  ekaya-dbproxy query --demo -o json "SELECT 1"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			target, _, err := resolveTarget(a.profiles, databaseURL, profileID)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := a.databaseService.ExecuteQuery(cmd.Context(), &models.QueryRequest{
				DatabaseURL: target,
				Query:       args[0],
				DemoMode:    jsonutil.FlexibleBool(demo),
			})
			if err != nil {
				return err
			}

			if format != formatTable {
				return renderStructured(cmd.OutOrStdout(), format, result)
			}
			if result.Message != "" {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), result.Message)
			}
			if err := renderRecords(cmd.OutOrStdout(), format, result.Data); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Time: %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "url", "", "connection URL")
	cmd.Flags().StringVarP(&profileID, "profile", "p", "", "saved profile id")
	cmd.Flags().BoolVar(&demo, "demo", false, "return sample data without connecting")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format (table|json|yaml)")
	cmd.MarkFlagsMutuallyExclusive("url", "profile")
	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
