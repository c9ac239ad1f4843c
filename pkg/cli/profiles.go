package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/models"
)

func newProfilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage saved connection profiles",
	}

	cmd.AddCommand(newProfilesListCommand())
	cmd.AddCommand(newProfilesAddCommand())
	cmd.AddCommand(newProfilesUpdateCommand())
	cmd.AddCommand(newProfilesDeleteCommand())
	cmd.AddCommand(newProfilesUseCommand())
	return cmd
}

// withApp loads config, opens state and runs fn.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newProfilesListCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved profiles; the active one is marked with *",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app) error {
				return renderProfiles(cmd.OutOrStdout(), format, a.profiles.Profiles(), a.profiles.ActiveProfileID())
			})
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format (table|json|yaml)")
	return cmd
}

func newProfilesAddCommand() *cobra.Command {
	var profileType string

	cmd := &cobra.Command{
		Use:   "add NAME URL",
		Short: "Save a connection profile",
		Long: `Save a connection profile. The type is inferred from the URL scheme
unless --type is given. The first profile saved becomes active.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				p, err := a.profiles.AddProfile(cmd.Context(), models.NewProfile{
					Name:        args[0],
					DatabaseURL: args[1],
					Type:        profileType,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added profile %s (%s, %s)\n", p.ID, p.Name, p.Type)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&profileType, "type", "", "profile type (postgresql|mysql|mongodb|other)")
	return cmd
}

func newProfilesUpdateCommand() *cobra.Command {
	var name, databaseURL, profileType string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a profile's name, URL or type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update models.ProfileUpdate
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("url") {
				update.DatabaseURL = &databaseURL
			}
			if cmd.Flags().Changed("type") {
				update.Type = &profileType
			}
			if update.Name == nil && update.DatabaseURL == nil && update.Type == nil {
				return fmt.Errorf("nothing to update: pass --name, --url or --type")
			}

			return withApp(cmd.Context(), func(a *app) error {
				p, err := a.profiles.UpdateProfile(cmd.Context(), args[0], update)
				if err != nil {
					return fmt.Errorf("profile %q: %w", args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated profile %s (%s, %s)\n", p.ID, p.Name, p.Type)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&databaseURL, "url", "", "new connection URL")
	cmd.Flags().StringVar(&profileType, "type", "", "new profile type")
	return cmd
}

func newProfilesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.profiles.DeleteProfile(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("profile %q: %w", args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", args[0])
				if active := a.profiles.ActiveProfile(); active != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active profile is now %s (%s)\n", active.ID, active.Name)
				}
				return nil
			})
		},
	}
}

func newProfilesUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use ID",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.profiles.SetActiveProfile(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("profile %q: %w", args[0], err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active profile is now %s\n", args[0])
				return nil
			})
		},
	}
}
