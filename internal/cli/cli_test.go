package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickylandino/val-builder-sub000/internal/bracket"
	"github.com/rickylandino/val-builder-sub000/internal/export"
	"github.com/rickylandino/val-builder-sub000/internal/store"
)

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"migrate"}, {"migrate", "status"}, {"seed-brackets"}, {"reindex"}, {"preview"}} {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd.PersistentFlags().Lookup("database-url"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("migrations"))

	preview, _, err := cmd.Find([]string{"preview"})
	require.NoError(t, err)
	output := preview.Flags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "pdf", preview.Flags().Lookup("format").DefValue)
}

type recordingUpserter struct {
	items []bracket.Mapping
}

func (r *recordingUpserter) UpsertBracketMapping(_ context.Context, m bracket.Mapping) error {
	r.items = append(r.items, m)
	return nil
}

func TestSeedBrackets(t *testing.T) {
	file := `
mappings:
  - tag: PYE
    system: true
  - tag: PlanName
    path: val.planName
`
	target := &recordingUpserter{}
	var out bytes.Buffer
	require.NoError(t, seedBrackets(context.Background(), target, strings.NewReader(file), &out))

	require.Len(t, target.items, 2)
	assert.Equal(t, "PYE", target.items[0].TagName)
	assert.True(t, target.items[0].IsSystemTag)
	assert.Equal(t, "val.planName", target.items[1].ObjectPath)
	assert.Contains(t, out.String(), "seeded 2 mappings")
}

func TestSeedBracketsRejectsUnknownSystemTag(t *testing.T) {
	file := `
mappings:
  - tag: PlanName
    path: val.planName
  - tag: FiscalEnd
    system: true
`
	target := &recordingUpserter{}
	err := seedBrackets(context.Background(), target, strings.NewReader(file), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FiscalEnd")
	assert.Empty(t, target.items, "nothing is written when any mapping is invalid")
}

func TestSeedBracketsDryRun(t *testing.T) {
	var out bytes.Buffer
	err := seedBrackets(context.Background(), nil, strings.NewReader("mappings:\n  - tag: PYB\n    system: true\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "1 mappings valid\n", out.String())
}

type stubExporter struct {
	err error
}

func (s stubExporter) Export(_ context.Context, req export.Request) (*export.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &export.Result{Data: []byte("<html></html>"), Filename: req.ValID + ".html", MimeType: "text/html"}, nil
}

func TestWritePreview(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var out bytes.Buffer

	err := writePreview(context.Background(), stubExporter{}, export.Request{ValID: "val-1", Format: export.FormatHTML}, dir, &out)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "val-1.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
	assert.Contains(t, out.String(), "13 bytes")

	err = writePreview(context.Background(), stubExporter{err: store.ErrNotFound}, export.Request{ValID: "val-2"}, dir, &out)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestWriteMigrationStatus(t *testing.T) {
	applied := time.Date(2026, 10, 18, 8, 30, 0, 0, time.UTC)
	var out bytes.Buffer
	writeMigrationStatus(&out, []store.MigrationState{
		{Version: "0001_init", AppliedAt: &applied},
		{Version: "0002_templates"},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "applied 2026-10-18 08:30:00")
	assert.Contains(t, lines[1], "pending")

	out.Reset()
	writeMigrationStatus(&out, nil)
	assert.Equal(t, "no migrations found\n", out.String())
}
