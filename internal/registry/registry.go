package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vova111/skyrga/internal/memory"
	"github.com/vova111/skyrga/internal/storage"
)

// maxConflictRetries bounds how often a resolve re-reads after losing an insert race
const maxConflictRetries = 3

// Store is the persistence contract of the registry
type Store interface {
	GetDomainByName(ctx context.Context, name string) (*storage.Domain, error)
	GetDomain(ctx context.Context, id int64) (*storage.Domain, error)
	InsertDomain(ctx context.Context, d *storage.Domain) (int64, error)
	ListDomainsByRoot(ctx context.Context, rootID int64) ([]*storage.Domain, error)
}

// Registry resolves URLs to canonical domain records, creating them on first sighting
type Registry struct {
	store Store
	cache *memory.DomainCache
}

// New creates a registry over store. cache may be nil.
func New(store Store, cache *memory.DomainCache) *Registry {
	return &Registry{store: store, cache: cache}
}

// ResolveSite returns the domain of a campaign site, creating it with rating 0
func (r *Registry) ResolveSite(ctx context.Context, siteURL string) (*storage.Domain, bool, error) {
	return r.Resolve(ctx, siteURL, 0)
}

// Resolve returns the registry entry for the host of rawURL, creating it with
// the given initial rating if it does not exist yet. The bool reports creation.
func (r *Registry) Resolve(ctx context.Context, rawURL string, rating int) (*storage.Domain, bool, error) {
	host, scheme, err := CanonicalDomain(rawURL)
	if err != nil {
		return nil, false, err
	}

	if r.cache != nil {
		if d := r.cache.Get(host); d != nil {
			return d, false, nil
		}
	}

	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		existing, err := r.store.GetDomainByName(ctx, host)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			r.remember(existing)
			return existing, false, nil
		}

		rootID, err := r.findRoot(ctx, host)
		if err != nil {
			return nil, false, err
		}

		d := &storage.Domain{Domain: host, Scheme: scheme, Rating: rating, RootDomainID: rootID}
		id, err := r.store.InsertDomain(ctx, d)
		if errors.Is(err, storage.ErrDuplicate) {
			// Another writer created it first, re-read
			logrus.Debugf("Domain %s created concurrently, retrying lookup (attempt %d)", host, attempt+1)
			continue
		}
		if err != nil {
			return nil, false, err
		}

		d.ID = id
		r.remember(d)
		logrus.Debugf("Registered domain %s (id=%d, rating=%d)", host, id, rating)
		return d, true, nil
	}

	return nil, false, fmt.Errorf("domain %s: still conflicting after %d attempts", host, maxConflictRetries+1)
}

// Lookup returns the registry entry for rawURL without creating it
func (r *Registry) Lookup(ctx context.Context, rawURL string) (*storage.Domain, error) {
	host, _, err := CanonicalDomain(rawURL)
	if err != nil {
		return nil, err
	}

	d, err := r.store.GetDomainByName(ctx, host)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("domain %s: %w", host, storage.ErrNotFound)
	}
	return d, nil
}

// Siblings lists the domains sharing the root of domainID, excluding itself.
// A domain without a root has no siblings.
func (r *Registry) Siblings(ctx context.Context, domainID int64) ([]*storage.Domain, error) {
	d, err := r.store.GetDomain(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if d.RootDomainID == nil {
		return nil, nil
	}

	group, err := r.store.ListDomainsByRoot(ctx, *d.RootDomainID)
	if err != nil {
		return nil, err
	}

	siblings := make([]*storage.Domain, 0, len(group))
	for _, other := range group {
		if other.ID != d.ID {
			siblings = append(siblings, other)
		}
	}
	return siblings, nil
}

// Forget drops host from the batch cache after the row that created it was undone
func (r *Registry) Forget(host string) {
	if r.cache != nil {
		r.cache.Forget(host)
	}
}

// findRoot returns the id of the shortest registered ancestor of host.
// Links stay one level deep: an ancestor that has a root itself yields that root.
func (r *Registry) findRoot(ctx context.Context, host string) (*int64, error) {
	for _, candidate := range ParentCandidates(host) {
		parent, err := r.store.GetDomainByName(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			continue
		}
		if parent.RootDomainID != nil {
			return parent.RootDomainID, nil
		}
		id := parent.ID
		return &id, nil
	}
	return nil, nil
}

func (r *Registry) remember(d *storage.Domain) {
	if r.cache != nil {
		r.cache.Put(d)
	}
}
