package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/vova111/skyrga/internal/registry"
	"github.com/vova111/skyrga/internal/storage"
)

// DefaultPageSize is the number of hrefs per page in the reviewed listings
const DefaultPageSize = 20

// dateLayout is the calendar date format of analized_date
const dateLayout = "2006-01-02"

var (
	// ErrUnknownStatus is returned when a transition names a status that does not exist
	ErrUnknownStatus = errors.New("unknown status")
	// ErrPendingStatus is returned when a transition tries to move an href back to pending
	ErrPendingStatus = errors.New("status is not selectable")
)

// Store is the persistence contract of the workflow
type Store interface {
	registry.Store
	InTx(ctx context.Context, fn func(q *storage.Queries) error) error
	ListStatuses(ctx context.Context, minID int64) ([]storage.HrefsStatus, error)
	GetHref(ctx context.Context, id int64) (*storage.Href, error)
	NextForReview(ctx context.Context) (*storage.Href, error)
	ListHrefsByDomain(ctx context.Context, domainID, excludeID int64) ([]*storage.Href, error)
	ListHrefsByDomains(ctx context.Context, domainIDs []int64) ([]*storage.Href, error)
	ListReviewed(ctx context.Context, f storage.ReviewFilter) ([]*storage.Href, error)
}

// Transition is a reviewer's verdict on one href
type Transition struct {
	HrefID   int64  `validate:"required,gt=0"`
	StatusID int64  `validate:"required,gt=0"`
	Comment  string `validate:"max=1000"`
	UserID   int64  `validate:"required,gt=0"` // acting reviewer
}

// Review bundles an href with the context a reviewer needs to judge it
type Review struct {
	Href *storage.Href
	// SameDomain are the other recorded pages on the href's domain
	SameDomain []*storage.Href
	// Siblings are hrefs on sub-domains sharing the href's root domain
	Siblings []*storage.Href
}

// Filter selects one page of the reviewed listings
type Filter struct {
	Successful bool
	Domain     string
	Date       string
	Page       int // 1-based
}

// Service applies review outcomes to hrefs
type Service struct {
	store    Store
	registry *registry.Registry
	validate *validator.Validate
	now      func() time.Time
	pageSize int
}

// NewService creates a workflow service over store
func NewService(store Store) *Service {
	return &Service{
		store:    store,
		registry: registry.New(store, nil),
		validate: validator.New(),
		now:      time.Now,
		pageSize: DefaultPageSize,
	}
}

// WithClock replaces the clock used to stamp analysis dates
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithPageSize sets the page size of Reviewed. Non-positive values keep the default.
func (s *Service) WithPageSize(n int) *Service {
	if n > 0 {
		s.pageSize = n
	}
	return s
}

// Apply records a review outcome. Status and comment are overwritten on every
// call; the analysis date is set by the first transition and kept afterwards.
func (s *Service) Apply(ctx context.Context, t Transition) (*storage.Href, error) {
	if err := s.validate.Struct(t); err != nil {
		return nil, fmt.Errorf("invalid transition: %w", err)
	}

	var updated *storage.Href
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		status, err := q.GetStatus(ctx, t.StatusID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("status %d: %w", t.StatusID, ErrUnknownStatus)
		}
		if err != nil {
			return err
		}
		if status.ID <= storage.ReservedStatusThreshold {
			return fmt.Errorf("status %q: %w", status.Name, ErrPendingStatus)
		}

		href, err := q.GetHref(ctx, t.HrefID)
		if err != nil {
			return err
		}

		href.StatusID = status.ID
		href.Comment = t.Comment
		reviewer := t.UserID
		href.UserID = &reviewer
		if href.AnalizedDate == "" {
			href.AnalizedDate = s.now().Format(dateLayout)
		}

		if err := q.UpdateHrefReview(ctx, href); err != nil {
			return err
		}
		updated = href
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.Infof("Href %d reviewed: status=%d date=%s", updated.ID, updated.StatusID, updated.AnalizedDate)
	return updated, nil
}

// Selectable returns the statuses a reviewer may pick
func (s *Service) Selectable(ctx context.Context) ([]storage.HrefsStatus, error) {
	return s.store.ListStatuses(ctx, storage.ReservedStatusThreshold)
}

// Next returns the pending eligible href on the highest rated domain, nil when the queue is empty
func (s *Service) Next(ctx context.Context) (*storage.Href, error) {
	return s.store.NextForReview(ctx)
}

// Review loads an href together with its domain's other pages and sibling sub-domain hrefs
func (s *Service) Review(ctx context.Context, hrefID int64) (*Review, error) {
	href, err := s.store.GetHref(ctx, hrefID)
	if err != nil {
		return nil, err
	}

	same, err := s.store.ListHrefsByDomain(ctx, href.DomainID, href.ID)
	if err != nil {
		return nil, err
	}

	siblings, err := s.registry.Siblings(ctx, href.DomainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sibling domains: %w", err)
	}
	ids := make([]int64, 0, len(siblings))
	for _, d := range siblings {
		ids = append(ids, d.ID)
	}
	siblingHrefs, err := s.store.ListHrefsByDomains(ctx, ids)
	if err != nil {
		return nil, err
	}

	return &Review{Href: href, SameDomain: same, Siblings: siblingHrefs}, nil
}

// Reviewed lists one page of successful or failed hrefs, newest review first
func (s *Service) Reviewed(ctx context.Context, f Filter) ([]*storage.Href, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return s.store.ListReviewed(ctx, storage.ReviewFilter{
		Successful: f.Successful,
		Domain:     f.Domain,
		Date:       f.Date,
		Limit:      s.pageSize,
		Offset:     (page - 1) * s.pageSize,
	})
}
