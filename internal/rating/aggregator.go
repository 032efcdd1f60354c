package rating

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Policy derives a domain rating from the ratings declared by its hrefs.
// Implementations must be pure: same input, same output.
type Policy func(ratings []int) int

// Max rates a domain by its best reported rating
func Max(ratings []int) int {
	best := 0
	for i, r := range ratings {
		if i == 0 || r > best {
			best = r
		}
	}
	return best
}

// Mean rates a domain by the floored average of its reported ratings
func Mean(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return sum / len(ratings)
}

// Latest rates a domain by the rating of its most recently inserted href
func Latest(ratings []int) int {
	if len(ratings) == 0 {
		return 0
	}
	return ratings[len(ratings)-1]
}

var policies = map[string]Policy{
	"max":    Max,
	"mean":   Mean,
	"latest": Latest,
}

// PolicyNames returns the names accepted by PolicyByName, sorted
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for name := range policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PolicyByName looks up a built-in policy
func PolicyByName(name string) (Policy, error) {
	p, ok := policies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown rating policy %q (want one of %s)", name, strings.Join(PolicyNames(), ", "))
	}
	return p, nil
}

// Store is the persistence contract of the aggregator
type Store interface {
	HrefRatings(ctx context.Context) (map[int64][]int, error)
	DomainRatings(ctx context.Context) (map[int64]int, error)
	SetDomainRating(ctx context.Context, id int64, rating int) error
}

// Aggregator recomputes domain ratings from their hrefs
type Aggregator struct {
	policy Policy
}

// NewAggregator creates an aggregator, defaulting to Max when policy is nil
func NewAggregator(policy Policy) *Aggregator {
	if policy == nil {
		policy = Max
	}
	return &Aggregator{policy: policy}
}

// RecomputeAll rewrites the rating of every domain that has hrefs.
// Domains without hrefs keep their current rating. Returns the number of domains changed.
func (a *Aggregator) RecomputeAll(ctx context.Context, store Store) (int, error) {
	byDomain, err := store.HrefRatings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load href ratings: %w", err)
	}

	current, err := store.DomainRatings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load domain ratings: %w", err)
	}

	// Stable order keeps write sequence deterministic
	ids := make([]int64, 0, len(byDomain))
	for id := range byDomain {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	changed := 0
	for _, id := range ids {
		next := a.policy(byDomain[id])
		if prev, ok := current[id]; ok && prev == next {
			continue
		}
		if err := store.SetDomainRating(ctx, id, next); err != nil {
			return changed, fmt.Errorf("failed to update rating of domain %d: %w", id, err)
		}
		changed++
	}

	logrus.Debugf("Rating recompute: %d domains with hrefs, %d changed", len(ids), changed)
	return changed, nil
}
