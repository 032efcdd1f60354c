package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vova111/skyrga/internal/memory"
	"github.com/vova111/skyrga/internal/normalize"
	"github.com/vova111/skyrga/internal/rating"
	"github.com/vova111/skyrga/internal/registry"
	"github.com/vova111/skyrga/internal/storage"
)

// errDryRun aborts the batch transaction after all work has been done
var errDryRun = errors.New("dry run")

// Store runs a batch inside one transaction
type Store interface {
	InTx(ctx context.Context, fn func(q *storage.Queries) error) error
}

// Batch is one uploaded backlink report for a campaign site
type Batch struct {
	SiteURL string `validate:"required,url,max=191"`
	CityID  *int64
	TypeID  *int64
	Source  string     // file name, for logs
	Records [][]string // header first, data rows after
	DryRun  bool
}

// RowObserver is notified after each data row
type RowObserver func(res RowResult, domainCreated bool)

// Ingestor applies backlink reports to the registry
type Ingestor struct {
	store      Store
	aggregator *rating.Aggregator
	validate   *validator.Validate
	observer   RowObserver
}

// NewIngestor creates an ingestor that recomputes ratings with agg after every batch
func NewIngestor(store Store, agg *rating.Aggregator) *Ingestor {
	if agg == nil {
		agg = rating.NewAggregator(nil)
	}
	return &Ingestor{
		store:      store,
		aggregator: agg,
		validate:   validator.New(),
	}
}

// WithObserver registers a per-row callback
func (in *Ingestor) WithObserver(obs RowObserver) *Ingestor {
	in.observer = obs
	return in
}

// Import applies a batch. Rows are processed in file order inside one transaction;
// a structural error or a failed rating recompute leaves the database untouched.
func (in *Ingestor) Import(ctx context.Context, b Batch) (*Summary, error) {
	if err := in.validate.Struct(b); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}

	var header []string
	if len(b.Records) > 0 {
		header = b.Records[0]
	}
	if err := normalize.CheckHeader(header); err != nil {
		return nil, err
	}

	summary := &Summary{BatchID: uuid.NewString(), DryRun: b.DryRun}
	startTime := time.Now()
	logrus.Infof("Import %s started: source=%s site=%s rows=%d", summary.BatchID, b.Source, b.SiteURL, len(b.Records)-1)

	err := in.store.InTx(ctx, func(q *storage.Queries) error {
		cache := memory.NewDomainCache()
		reg := registry.New(q, cache)

		site, _, err := reg.ResolveSite(ctx, b.SiteURL)
		if err != nil {
			return fmt.Errorf("failed to resolve site: %w", err)
		}
		siteID, err := q.UpsertSite(ctx, site.ID, b.CityID, b.TypeID)
		if err != nil {
			return err
		}

		for i, record := range b.Records[1:] {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, created := in.importRow(ctx, q, reg, summary.BatchID, siteID, record)
			res.Line = i + 2
			if created {
				summary.DomainsCreated++
			}
			summary.add(res)

			if res.Outcome != OutcomeImported {
				logrus.Warnf("Import %s line %d %s: %s", summary.BatchID, res.Line, res.Outcome, res.Reason)
			}
			if in.observer != nil {
				in.observer(res, created)
			}
		}

		size, hits := cache.GetStats()
		logrus.Debugf("Import %s domain cache: %d domains, %d hits", summary.BatchID, size, hits)

		changed, err := in.aggregator.RecomputeAll(ctx, q)
		if err != nil {
			return fmt.Errorf("rating recompute failed: %w", err)
		}
		summary.RatingsChanged = changed

		if b.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		logrus.Errorf("Import %s aborted: %v", summary.BatchID, err)
		return nil, err
	}

	logrus.Infof("Import %s finished in %v: accepted=%d duplicate=%d skipped=%d failed=%d dry_run=%t",
		summary.BatchID, time.Since(startTime), summary.Accepted, summary.Duplicate, summary.Skipped, summary.Failed, b.DryRun)
	return summary, nil
}

// importRow normalizes and persists one data row. The bool reports whether a
// domain was created and kept.
func (in *Ingestor) importRow(ctx context.Context, q *storage.Queries, reg *registry.Registry, batchID string, siteID int64, record []string) (RowResult, bool) {
	row, err := normalize.ParseRow(record)
	if err != nil {
		reason := err.Error()
		var se *normalize.SkipError
		if errors.As(err, &se) {
			reason = se.Reason
		}
		return RowResult{Outcome: OutcomeSkipped, Reason: reason}, false
	}

	host, _, err := registry.CanonicalDomain(row.SourceURL)
	if err != nil {
		return RowResult{Outcome: OutcomeSkipped, Reason: ReasonDomainMissing}, false
	}

	res := RowResult{Domain: host}
	var created bool

	err = q.Savepoint(ctx, "href_row", func() error {
		domain, isNew, err := reg.Resolve(ctx, row.SourceURL, row.Rating)
		if err != nil {
			return fmt.Errorf("resolve domain: %w", err)
		}
		created = isNew

		typeID, err := q.ResolveHrefType(ctx, row.TypeLabel)
		if err != nil {
			return err
		}

		inUse, err := q.HasAnalyzedHref(ctx, domain.ID)
		if err != nil {
			return err
		}

		href := &storage.Href{
			BatchID:            batchID,
			DomainID:           domain.ID,
			SiteID:             siteID,
			URL:                row.URL,
			PageTitle:          row.PageTitle,
			LinkURL:            row.LinkURL,
			LinkAnchor:         row.Anchor,
			ExternalLinksCount: row.ExternalLinksCount,
			Rating:             row.Rating,
			StatusID:           storage.StatusPending,
			TypeID:             typeID,
			IsAnalized:         !inUse,
		}

		_, err = q.InsertHref(ctx, href)
		if errors.Is(err, storage.ErrDuplicate) && href.IsAnalized {
			// Lost the eligibility race to another writer
			href.IsAnalized = false
			_, err = q.InsertHref(ctx, href)
		}
		if err != nil {
			return err
		}

		res.Eligible = href.IsAnalized
		return nil
	})
	if err != nil {
		if created {
			reg.Forget(host)
		}
		res.Outcome = OutcomeFailed
		res.Reason = err.Error()
		return res, false
	}

	res.Outcome = OutcomeImported
	return res, created
}
