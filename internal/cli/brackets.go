package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rickylandino/val-builder-sub000/internal/bracket"
	"github.com/rickylandino/val-builder-sub000/internal/store"
)

type mappingUpserter interface {
	UpsertBracketMapping(context.Context, bracket.Mapping) error
}

// NewSeedBracketsCommand creates the seed-brackets command.
func NewSeedBracketsCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed-brackets <mappings.yaml>",
		Short: "Load bracket tag mappings from a YAML file",
		Long: `Reads a bracket mapping file and upserts every mapping by tag name.

System tags (PYE, PYB, ...) need only "system: true"; custom tags need a
dotted "path" into the VAL's plan attributes.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open mappings: %w", err)
			}
			defer f.Close()

			if dryRun {
				return seedBrackets(cmd.Context(), nil, f, cmd.OutOrStdout())
			}
			db, err := openDB(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()
			return seedBrackets(cmd.Context(), store.NewPostgresStore(db), f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}

// seedBrackets validates every mapping before writing any. A nil target only
// validates.
func seedBrackets(ctx context.Context, target mappingUpserter, r io.Reader, out io.Writer) error {
	mappings, err := bracket.LoadMappings(r)
	if err != nil {
		return err
	}
	known := make(map[string]struct{})
	for _, tag := range bracket.SystemTags() {
		known[tag] = struct{}{}
	}
	for _, m := range mappings {
		if _, ok := known[m.TagName]; m.IsSystemTag && !ok {
			return fmt.Errorf("tag %q is marked system but no system handler exists", m.TagName)
		}
	}
	if target == nil {
		fmt.Fprintf(out, "%d mappings valid\n", len(mappings))
		return nil
	}
	for _, m := range mappings {
		if err := target.UpsertBracketMapping(ctx, m); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "seeded %d mappings\n", len(mappings))
	return nil
}
