package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vova111/skyrga/internal/storage"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	dbPath, verbose = "", false
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func writeReport(t *testing.T, dir string, pages ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(strings.Repeat("col,", 21) + "col\n")
	for _, page := range pages {
		fields := make([]string, 22)
		fields[2] = "30"
		fields[5] = page
		fields[9] = "https://client.com/"
		b.WriteString(strings.Join(fields, ",") + "\n")
	}
	path := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestImportReviewAndMatrixCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	db := filepath.Join(dir, "cli.db")
	report := writeReport(t, dir, "https://alpha.com/a", "https://alpha.com/b", "https://beta.com/")

	require.NoError(t, run(t, "import", report, "--site", "https://client.com", "--db", db))

	store, err := storage.NewStorage(db)
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	n, err := store.CountHrefs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	next, err := store.NextForReview(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)

	require.NoError(t, run(t, "review", "apply", "1", "--status", "2", "--user", "5", "--db", db))
	assert.Error(t, run(t, "review", "apply", "1", "--status", "1", "--user", "5", "--db", db))

	h, err := store.GetHref(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusSuccessful, h.StatusID)
	assert.NotEmpty(t, h.AnalizedDate)
	require.NotNil(t, h.UserID)
	assert.Equal(t, int64(5), *h.UserID)

	require.NoError(t, run(t, "profiles", "add", "first", "--db", db))
	require.NoError(t, run(t, "targets", "add", "--profile", "1", "--date", "2024-05-03", "--db", db))
	require.NoError(t, run(t, "matrix", "--start", "2024-05-01", "--db", db))
	assert.Error(t, run(t, "matrix", "--start", "May 1", "--db", db))

	_, err = os.Stat(filepath.Join(dir, "metrics.log"))
	assert.NoError(t, err)
}

func TestImportRejectsWrongWidth(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	db := filepath.Join(dir, "cli.db")

	path := filepath.Join(dir, "short.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644))

	err := run(t, "import", path, "--site", "https://client.com", "--db", db)
	assert.ErrorContains(t, err, "expected 22")
}
