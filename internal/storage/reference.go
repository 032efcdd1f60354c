package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ListStatuses returns the workflow states with id greater than minID, ordered by id
func (q *Queries) ListStatuses(ctx context.Context, minID int64) ([]HrefsStatus, error) {
	rows, err := q.q.QueryContext(ctx, "SELECT id, name FROM hrefs_statuses WHERE id > ? ORDER BY id", minID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []HrefsStatus
	for rows.Next() {
		var s HrefsStatus
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statuses: %w", err)
	}
	return statuses, nil
}

// GetStatus retrieves one workflow state by id
func (q *Queries) GetStatus(ctx context.Context, id int64) (*HrefsStatus, error) {
	var s HrefsStatus
	err := q.q.QueryRowContext(ctx, "SELECT id, name FROM hrefs_statuses WHERE id = ?", id).Scan(&s.ID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("status %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &s, nil
}

// ResolveHrefType returns the id of a link type label, creating it on first sight.
// An empty label has no type and yields 0.
func (q *Queries) ResolveHrefType(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, nil
	}

	_, err := q.q.ExecContext(ctx, "INSERT INTO hrefs_types (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert href type: %w", err)
	}

	var id int64
	if err := q.q.QueryRowContext(ctx, "SELECT id FROM hrefs_types WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to retrieve href type id: %w", err)
	}
	return id, nil
}

// UpsertSite inserts the campaign site for a domain or updates its city/type when given.
// Returns the site id.
func (q *Queries) UpsertSite(ctx context.Context, domainID int64, cityID, typeID *int64) (int64, error) {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO sites (domain_id, sites_city_id, sites_type_id)
		VALUES (?, ?, ?)
		ON CONFLICT(domain_id) DO UPDATE SET
			sites_city_id = COALESCE(EXCLUDED.sites_city_id, sites.sites_city_id),
			sites_type_id = COALESCE(EXCLUDED.sites_type_id, sites.sites_type_id)
	`, domainID, nullableInt64(cityID), nullableInt64(typeID))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert site: %w", err)
	}

	var siteID int64
	if err := q.q.QueryRowContext(ctx, "SELECT id FROM sites WHERE domain_id = ?", domainID).Scan(&siteID); err != nil {
		return 0, fmt.Errorf("failed to retrieve site id: %w", err)
	}
	return siteID, nil
}
