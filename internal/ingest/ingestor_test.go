package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vova111/skyrga/internal/normalize"
	"github.com/vova111/skyrga/internal/rating"
	"github.com/vova111/skyrga/internal/storage"
)

const siteURL = "https://client-shop.com"

func newTestIngestor(t *testing.T) (*Ingestor, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewIngestor(store, rating.NewAggregator(rating.Max)), store
}

func header() []string {
	return make([]string, normalize.Columns)
}

// row builds a 22-field data record with the positions the importer reads
func row(ratingField, pageURL string) []string {
	rec := make([]string, normalize.Columns)
	rec[2] = ratingField
	rec[5] = pageURL
	rec[6] = "Title of " + pageURL
	rec[8] = "3"
	rec[9] = siteURL + "/landing"
	rec[11] = "best shop"
	rec[13] = "dofollow"
	return rec
}

func batch(rows ...[]string) Batch {
	return Batch{SiteURL: siteURL, Source: "test.csv", Records: append([][]string{header()}, rows...)}
}

func countRows(t *testing.T, store *storage.Storage) (domains, hrefs int) {
	t.Helper()
	ctx := context.Background()
	domains, err := store.CountDomains(ctx)
	require.NoError(t, err)
	hrefs, err = store.CountHrefs(ctx)
	require.NoError(t, err)
	return domains, hrefs
}

func TestImportRejectsWrongSchemaWidth(t *testing.T) {
	for _, width := range []int{21, 23} {
		in, store := newTestIngestor(t)
		b := batch(row("30", "https://a.com/1"))
		b.Records[0] = make([]string, width)

		summary, err := in.Import(context.Background(), b)
		require.ErrorIs(t, err, normalize.ErrColumnCount)
		assert.Nil(t, summary)

		domains, hrefs := countRows(t, store)
		assert.Zero(t, domains)
		assert.Zero(t, hrefs)
	}
}

func TestImportRejectsEmptyBatchAndBadSite(t *testing.T) {
	in, store := newTestIngestor(t)
	ctx := context.Background()

	_, err := in.Import(ctx, Batch{SiteURL: siteURL})
	assert.ErrorIs(t, err, normalize.ErrColumnCount)

	b := batch(row("30", "https://a.com/1"))
	b.SiteURL = "not a url"
	_, err = in.Import(ctx, b)
	assert.ErrorContains(t, err, "invalid batch")

	domains, _ := countRows(t, store)
	assert.Zero(t, domains)
}

func TestImportFirstRowPerDomainIsEligible(t *testing.T) {
	in, store := newTestIngestor(t)
	ctx := context.Background()

	summary, err := in.Import(ctx, batch(
		row("30", "https://alpha.com/first"),
		row("20", "https://beta.com/x"),
		row("10", "https://gamma.com/y"),
		row("50", "https://www.alpha.com/second"),
	))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Accepted)
	assert.Equal(t, 1, summary.Duplicate)
	assert.Equal(t, 3, summary.DomainsCreated)
	require.Len(t, summary.Rows, 4)
	assert.True(t, summary.Rows[0].Eligible)
	assert.Equal(t, 2, summary.Rows[0].Line)
	assert.False(t, summary.Rows[3].Eligible)
	assert.Equal(t, "alpha.com", summary.Rows[3].Domain)

	alpha, err := store.GetDomainByName(ctx, "alpha.com")
	require.NoError(t, err)
	n, err := store.CountAnalyzedHrefs(ctx, alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Max policy over 30 and 50
	assert.Equal(t, 50, alpha.Rating)
}

func TestImportLaterBatchNeverAddsSecondEligible(t *testing.T) {
	in, store := newTestIngestor(t)
	ctx := context.Background()

	_, err := in.Import(ctx, batch(row("30", "https://alpha.com/1")))
	require.NoError(t, err)

	summary, err := in.Import(ctx, batch(
		row("30", "https://alpha.com/2"),
		row("30", "https://delta.com/1"),
	))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Duplicate)
	assert.Equal(t, 1, summary.DomainsCreated)

	alpha, err := store.GetDomainByName(ctx, "alpha.com")
	require.NoError(t, err)
	n, err := store.CountAnalyzedHrefs(ctx, alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportReportsSkippedRows(t *testing.T) {
	in, store := newTestIngestor(t)

	summary, err := in.Import(context.Background(), batch(
		row("0", "https://zero.com/"),
		row("n/a", "https://text.com/"),
		row("", "https://empty.com/"),
		row("15", "/relative/only"),
		row("15", "https://kept.com/"),
	))
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Skipped)
	assert.Equal(t, 1, summary.Accepted)

	problems := summary.Problems()
	require.Len(t, problems, 4)
	assert.Equal(t, normalize.ReasonRatingNotPositive, problems[0].Reason)
	assert.Equal(t, normalize.ReasonRatingNotPositive, problems[1].Reason)
	assert.Equal(t, normalize.ReasonRatingMissing, problems[2].Reason)
	assert.Equal(t, ReasonDomainMissing, problems[3].Reason)

	// client-shop.com and kept.com only
	domains, hrefs := countRows(t, store)
	assert.Equal(t, 2, domains)
	assert.Equal(t, 1, hrefs)
}

func TestImportRowFailureIsRecordedAndRolledBack(t *testing.T) {
	in, store := newTestIngestor(t)
	ctx := context.Background()

	_, err := store.DB().Exec(`
		CREATE TRIGGER fail_boom BEFORE INSERT ON hrefs
		WHEN NEW.url = '/boom'
		BEGIN SELECT RAISE(ABORT, 'boom rejected'); END;
	`)
	require.NoError(t, err)

	summary, err := in.Import(ctx, batch(
		row("40", "https://fresh.com/boom"),
		row("40", "https://fresh.com/ok"),
	))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.DomainsCreated)
	assert.Equal(t, OutcomeFailed, summary.Rows[0].Outcome)
	assert.Contains(t, summary.Rows[0].Reason, "boom rejected")
	assert.True(t, summary.Rows[1].Eligible)

	_, hrefs := countRows(t, store)
	assert.Equal(t, 1, hrefs)
}

func TestImportDryRunLeavesNoTrace(t *testing.T) {
	in, store := newTestIngestor(t)

	b := batch(row("30", "https://alpha.com/1"), row("30", "https://beta.com/1"))
	b.DryRun = true

	summary, err := in.Import(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.Accepted)

	domains, hrefs := countRows(t, store)
	assert.Zero(t, domains)
	assert.Zero(t, hrefs)
}

func TestImportCancelledContextRollsBack(t *testing.T) {
	in, store := newTestIngestor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := in.Import(ctx, batch(row("30", "https://alpha.com/1")))
	require.Error(t, err)

	domains, hrefs := countRows(t, store)
	assert.Zero(t, domains)
	assert.Zero(t, hrefs)
}

func TestImportNotifiesObserver(t *testing.T) {
	in, _ := newTestIngestor(t)

	var seen []RowResult
	created := 0
	in.WithObserver(func(res RowResult, domainCreated bool) {
		seen = append(seen, res)
		if domainCreated {
			created++
		}
	})

	_, err := in.Import(context.Background(), batch(
		row("30", "https://alpha.com/1"),
		row("0", "https://skip.com/1"),
		row("30", "https://alpha.com/2"),
	))
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, OutcomeSkipped, seen[1].Outcome)
	assert.Equal(t, 4, seen[2].Line)
	assert.Equal(t, 1, created)
}

func TestConcurrentBatchesKeepOneEligiblePerDomain(t *testing.T) {
	in, store := newTestIngestor(t)
	ctx := context.Background()

	const workers = 4
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := in.Import(ctx, batch(row("25", "https://contested.com/page")))
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errs)
	}

	d, err := store.GetDomainByName(ctx, "contested.com")
	require.NoError(t, err)
	require.NotNil(t, d)

	n, err := store.CountAnalyzedHrefs(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	domains, hrefs := countRows(t, store)
	assert.Equal(t, 2, domains)
	assert.Equal(t, workers, hrefs)
}

func TestImportKeepsRowsWithMalformedEscapes(t *testing.T) {
	in, store := newTestIngestor(t)
	ctx := context.Background()

	summary, err := in.Import(ctx, batch(
		row("30", "https://blog.com/100%-free-seo"),
		row("30", "https://other.com/a%zzb?x=1"),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Accepted)
	assert.Zero(t, summary.Skipped)

	blog, err := store.GetDomainByName(ctx, "blog.com")
	require.NoError(t, err)
	require.NotNil(t, blog)
	hrefs, err := store.ListHrefsByDomain(ctx, blog.ID, 0)
	require.NoError(t, err)
	require.Len(t, hrefs, 1)
	assert.Equal(t, "/100%-free-seo", hrefs[0].URL)
}

func TestImportAbortsWhenRatingRecomputeFails(t *testing.T) {
	in, store := newTestIngestor(t)

	_, err := store.DB().Exec(`
		CREATE TRIGGER fail_rating BEFORE UPDATE OF rating ON domains
		BEGIN SELECT RAISE(ABORT, 'rating store unavailable'); END;
	`)
	require.NoError(t, err)

	summary, err := in.Import(context.Background(), batch(
		row("30", "https://alpha.com/1"),
		row("50", "https://alpha.com/2"),
	))
	require.Error(t, err)
	assert.ErrorContains(t, err, "rating store unavailable")
	assert.Nil(t, summary)

	domains, hrefs := countRows(t, store)
	assert.Zero(t, domains)
	assert.Zero(t, hrefs)
}
