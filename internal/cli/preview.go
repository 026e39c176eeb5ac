package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rickylandino/val-builder-sub000/internal/export"
	"github.com/rickylandino/val-builder-sub000/internal/store"
)

type exporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		format   string
		outDir   string
		comments bool
	)
	cmd := &cobra.Command{
		Use:          "preview <val-id>",
		Short:        "Render a VAL to a file",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, ok := export.ParseFormat(format)
			if !ok {
				return fmt.Errorf("invalid format %q: must be one of pdf, html, docx", format)
			}
			db, err := openDB(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := export.NewService(store.NewPostgresStore(db), nil)
			req := export.Request{ValID: args[0], Format: parsed, IncludeComments: comments}
			return writePreview(cmd.Context(), svc, req, outDir, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&format, "format", "pdf", "output format (pdf|html|docx)")
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "directory to write the file into")
	cmd.Flags().BoolVar(&comments, "comments", false, "append review comments")
	return cmd
}

func writePreview(ctx context.Context, svc exporter, req export.Request, outDir string, out io.Writer) error {
	result, err := svc.Export(ctx, req)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outDir, result.Filename)
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	fmt.Fprintf(out, "wrote %s (%d bytes)\n", path, len(result.Data))
	return nil
}
