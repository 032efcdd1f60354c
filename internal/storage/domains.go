package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const domainColumns = `id, domain, scheme, rating, root_domain_id, created_at`

// InsertDomain creates a domain row and returns its id.
// Returns ErrDuplicate if the domain string is already registered.
func (q *Queries) InsertDomain(ctx context.Context, d *Domain) (int64, error) {
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO domains (domain, scheme, rating, root_domain_id)
		VALUES (?, ?, ?, ?)
	`, d.Domain, d.Scheme, d.Rating, nullableInt64(d.RootDomainID))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("domain %s: %w", d.Domain, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert domain: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve domain id: %w", err)
	}
	return id, nil
}

// GetDomainByName retrieves a domain by its canonical name, returns nil if not found
func (q *Queries) GetDomainByName(ctx context.Context, name string) (*Domain, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+domainColumns+` FROM domains WHERE domain = ?`, name)
	d, err := scanDomain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	return d, nil
}

// GetDomain retrieves a domain by id
func (q *Queries) GetDomain(ctx context.Context, id int64) (*Domain, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+domainColumns+` FROM domains WHERE id = ?`, id)
	d, err := scanDomain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("domain %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain: %w", err)
	}
	return d, nil
}

// ListDomainsByRoot returns all domains linked to the given root, ordered by id
func (q *Queries) ListDomainsByRoot(ctx context.Context, rootID int64) ([]*Domain, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+domainColumns+`
		FROM domains
		WHERE root_domain_id = ?
		ORDER BY id ASC
	`, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-domains: %w", err)
	}
	defer rows.Close()

	var domains []*Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating domains: %w", err)
	}
	return domains, nil
}

// SetDomainRating overwrites the rating of a domain
func (q *Queries) SetDomainRating(ctx context.Context, id int64, rating int) error {
	_, err := q.q.ExecContext(ctx, "UPDATE domains SET rating = ? WHERE id = ?", rating, id)
	if err != nil {
		return fmt.Errorf("failed to set domain rating: %w", err)
	}
	return nil
}

// DomainRatings returns the current rating of every domain keyed by id
func (q *Queries) DomainRatings(ctx context.Context) (map[int64]int, error) {
	rows, err := q.q.QueryContext(ctx, "SELECT id, rating FROM domains")
	if err != nil {
		return nil, fmt.Errorf("failed to load domain ratings: %w", err)
	}
	defer rows.Close()

	ratings := make(map[int64]int)
	for rows.Next() {
		var id int64
		var rating int
		if err := rows.Scan(&id, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan domain rating: %w", err)
		}
		ratings[id] = rating
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating domain ratings: %w", err)
	}
	return ratings, nil
}

// CountDomains returns the number of registered domains
func (q *Queries) CountDomains(ctx context.Context) (int, error) {
	var n int
	if err := q.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM domains").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count domains: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDomain(row rowScanner) (*Domain, error) {
	var d Domain
	var root sql.NullInt64
	if err := row.Scan(&d.ID, &d.Domain, &d.Scheme, &d.Rating, &root, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.RootDomainID = int64Ptr(root)
	return &d, nil
}
