// Package cli implements valctl, the operator command line for VAL Builder.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickylandino/val-builder-sub000/internal/config"
	"github.com/rickylandino/val-builder-sub000/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DatabaseURL   string
	MigrationsDir string
}

// NewRootCommand creates the root command for valctl.
func NewRootCommand() *cobra.Command {
	cfg := config.Load()
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "valctl",
		Short: "Operate a VAL Builder deployment",
		Long:  "Administrative tasks for VAL Builder: schema migrations, bracket mapping seeds, search reindexing and offline previews.",

		// main reports the error once
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres connection string")
	cmd.PersistentFlags().StringVar(&opts.MigrationsDir, "migrations", cfg.MigrationsDir, "directory holding *.up.sql files")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedBracketsCommand(opts))
	cmd.AddCommand(NewReindexCommand(opts, cfg))
	cmd.AddCommand(NewPreviewCommand(opts))

	return cmd
}

func openDB(ctx context.Context, opts *RootOptions) (*sql.DB, error) {
	if opts.DatabaseURL == "" {
		return nil, fmt.Errorf("--database-url is required")
	}
	return store.Open(ctx, opts.DatabaseURL)
}
