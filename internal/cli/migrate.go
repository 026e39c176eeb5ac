package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rickylandino/val-builder-sub000/internal/store"
)

// NewMigrateCommand creates the migrate command and its status subcommand.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply pending database migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.ApplyMigrations(cmd.Context(), db, rootOpts.MigrationsDir); err != nil {
				return err
			}
			states, err := store.MigrationStatus(cmd.Context(), db, rootOpts.MigrationsDir)
			if err != nil {
				return err
			}
			writeMigrationStatus(cmd.OutOrStdout(), states)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "status",
		Short:        "List migrations and when they were applied",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			states, err := store.MigrationStatus(cmd.Context(), db, rootOpts.MigrationsDir)
			if err != nil {
				return err
			}
			writeMigrationStatus(cmd.OutOrStdout(), states)
			return nil
		},
	})

	return cmd
}

func writeMigrationStatus(w io.Writer, states []store.MigrationState) {
	if len(states) == 0 {
		fmt.Fprintln(w, "no migrations found")
		return
	}
	for _, state := range states {
		if state.Applied() {
			fmt.Fprintf(w, "%-32s applied %s\n", state.Version, state.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
			continue
		}
		fmt.Fprintf(w, "%-32s pending\n", state.Version)
	}
}
