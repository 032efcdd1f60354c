package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedSite(t *testing.T, store *Storage) int64 {
	t.Helper()
	ctx := context.Background()
	domainID, err := store.InsertDomain(ctx, &Domain{Domain: "client.com", Scheme: "https"})
	require.NoError(t, err)
	siteID, err := store.UpsertSite(ctx, domainID, nil, nil)
	require.NoError(t, err)
	return siteID
}

func TestInsertDomainDuplicate(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	id, err := store.InsertDomain(ctx, &Domain{Domain: "example.com", Scheme: "http", Rating: 10})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = store.InsertDomain(ctx, &Domain{Domain: "example.com", Scheme: "https", Rating: 20})
	assert.ErrorIs(t, err, ErrDuplicate)

	d, err := store.GetDomainByName(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 10, d.Rating)
	assert.Nil(t, d.RootDomainID)

	missing, err := store.GetDomainByName(ctx, "nope.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListDomainsByRoot(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	rootID, err := store.InsertDomain(ctx, &Domain{Domain: "example.com", Scheme: "http"})
	require.NoError(t, err)
	for _, name := range []string{"a.example.com", "b.example.com"} {
		_, err := store.InsertDomain(ctx, &Domain{Domain: name, Scheme: "http", RootDomainID: &rootID})
		require.NoError(t, err)
	}

	subs, err := store.ListDomainsByRoot(ctx, rootID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "a.example.com", subs[0].Domain)
	assert.Equal(t, rootID, *subs[1].RootDomainID)
}

func TestInsertHrefSingleEligiblePerDomain(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	siteID := seedSite(t, store)

	domainID, err := store.InsertDomain(ctx, &Domain{Domain: "blog.net", Scheme: "http"})
	require.NoError(t, err)

	has, err := store.HasAnalyzedHref(ctx, domainID)
	require.NoError(t, err)
	assert.False(t, has)

	href := &Href{BatchID: "b1", DomainID: domainID, SiteID: siteID, URL: "/a", StatusID: StatusPending, IsAnalized: true}
	_, err = store.InsertHref(ctx, href)
	require.NoError(t, err)

	has, err = store.HasAnalyzedHref(ctx, domainID)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = store.InsertHref(ctx, href)
	assert.ErrorIs(t, err, ErrDuplicate)

	href.IsAnalized = false
	_, err = store.InsertHref(ctx, href)
	require.NoError(t, err)

	n, err := store.CountAnalyzedHrefs(ctx, domainID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInTxRollsBackOnError(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTx(ctx, func(q *Queries) error {
		if _, err := q.InsertDomain(ctx, &Domain{Domain: "gone.com", Scheme: "http"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := store.CountDomains(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSavepointUndoesOnlyItsOwnWork(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	err := store.InTx(ctx, func(q *Queries) error {
		if _, err := q.InsertDomain(ctx, &Domain{Domain: "kept.com", Scheme: "http"}); err != nil {
			return err
		}
		spErr := q.Savepoint(ctx, "row", func() error {
			if _, err := q.InsertDomain(ctx, &Domain{Domain: "dropped.com", Scheme: "http"}); err != nil {
				return err
			}
			return errors.New("row failed")
		})
		assert.Error(t, spErr)
		return nil
	})
	require.NoError(t, err)

	kept, err := store.GetDomainByName(ctx, "kept.com")
	require.NoError(t, err)
	assert.NotNil(t, kept)

	dropped, err := store.GetDomainByName(ctx, "dropped.com")
	require.NoError(t, err)
	assert.Nil(t, dropped)
}

func TestSavepointRequiresTransaction(t *testing.T) {
	store := newTestStorage(t)
	err := store.Savepoint(context.Background(), "row", func() error { return nil })
	assert.Error(t, err)
}

func TestReferenceData(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	all, err := store.ListStatuses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "Pending", all[0].Name)

	selectable, err := store.ListStatuses(ctx, ReservedStatusThreshold)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccessful, selectable[0].ID)

	_, err = store.GetStatus(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	id1, err := store.ResolveHrefType(ctx, "dofollow")
	require.NoError(t, err)
	id2, err := store.ResolveHrefType(ctx, "dofollow")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	none, err := store.ResolveHrefType(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestUpsertSiteKeepsIdentity(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	domainID, err := store.InsertDomain(ctx, &Domain{Domain: "client.com", Scheme: "https"})
	require.NoError(t, err)

	city := int64(7)
	first, err := store.UpsertSite(ctx, domainID, &city, nil)
	require.NoError(t, err)
	second, err := store.UpsertSite(ctx, domainID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListReviewed(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	siteID := seedSite(t, store)
	user := int64(3)

	insert := func(domain string, status int64, date string) {
		domainID, err := store.InsertDomain(ctx, &Domain{Domain: domain, Scheme: "http"})
		require.NoError(t, err)
		id, err := store.InsertHref(ctx, &Href{BatchID: "b", DomainID: domainID, SiteID: siteID, URL: "/", StatusID: StatusPending, IsAnalized: true})
		require.NoError(t, err)
		if status != StatusPending {
			require.NoError(t, store.UpdateHrefReview(ctx, &Href{ID: id, StatusID: status, AnalizedDate: date, UserID: &user}))
		}
	}

	insert("ok-one.com", StatusSuccessful, "2024-01-02")
	insert("ok-two.com", StatusSuccessful, "2024-01-05")
	insert("bad.com", 4, "2024-01-03")
	insert("waiting.com", StatusPending, "")

	ok, err := store.ListReviewed(ctx, ReviewFilter{Successful: true})
	require.NoError(t, err)
	require.Len(t, ok, 2)
	assert.Equal(t, "ok-two.com", ok[0].DomainName)

	failed, err := store.ListReviewed(ctx, ReviewFilter{})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad.com", failed[0].DomainName)
	assert.Equal(t, user, *failed[0].UserID)

	filtered, err := store.ListReviewed(ctx, ReviewFilter{Successful: true, Domain: "one", Date: "2024-01-02"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	paged, err := store.ListReviewed(ctx, ReviewFilter{Successful: true, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "ok-one.com", paged[0].DomainName)

	next, err := store.NextForReview(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "waiting.com", next.DomainName)
}

func TestListRegistrations(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	p1, err := store.InsertProfile(ctx, "one")
	require.NoError(t, err)
	p2, err := store.InsertProfile(ctx, "two")
	require.NoError(t, err)

	_, err = store.InsertTarget(ctx, p2, "2024-03-01")
	require.NoError(t, err)
	_, err = store.InsertTarget(ctx, p1, "2024-03-01")
	require.NoError(t, err)
	_, err = store.InsertTarget(ctx, p1, "2023-12-31")
	require.NoError(t, err)

	ids, err := store.ListProfileIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{p1, p2}, ids)

	regs, err := store.ListRegistrations(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []Registration{
		{ProfileID: p1, RegisterDate: "2024-03-01"},
		{ProfileID: p2, RegisterDate: "2024-03-01"},
	}, regs)
}
