package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rickylandino/val-builder-sub000/internal/config"
	"github.com/rickylandino/val-builder-sub000/internal/search"
)

// NewReindexCommand creates the reindex command.
func NewReindexCommand(rootOpts *RootOptions, cfg config.Config) *cobra.Command {
	var meiliURL, meiliKey string
	cmd := &cobra.Command{
		Use:          "reindex",
		Short:        "Rebuild the Meilisearch indexes from PostgreSQL",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(meiliURL) == "" {
				return fmt.Errorf("--meili-url is required")
			}
			db, err := openDB(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			meili := search.NewMeili(meiliURL, meiliKey)
			defer meili.Close()
			svc := search.NewService(meili, search.NewPgFTS(db))

			count, err := svc.ReindexAllFromPG(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d documents\n", count)
			return nil
		},
	}
	cmd.Flags().StringVar(&meiliURL, "meili-url", cfg.MeiliURL, "Meilisearch endpoint")
	cmd.Flags().StringVar(&meiliKey, "meili-key", cfg.MeiliMasterKey, "Meilisearch API key")
	return cmd
}
