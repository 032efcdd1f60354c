package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const hrefColumns = `
	h.id, h.batch_id, h.domain_id, h.site_id, h.url, h.page_title, h.link_url, h.link_anchor,
	h.external_links_count, h.rating, h.hrefs_status_id, COALESCE(h.hrefs_type_id, 0), h.is_analized,
	h.analized_date, h.comment, h.user_id, h.created_at, d.domain, d.scheme`

const hrefFrom = ` FROM hrefs h JOIN domains d ON d.id = h.domain_id `

// InsertHref persists a new href and returns its id.
// Returns ErrDuplicate if the row would make a second eligible href for its domain.
func (q *Queries) InsertHref(ctx context.Context, h *Href) (int64, error) {
	var typeID sql.NullInt64
	if h.TypeID != 0 {
		typeID = sql.NullInt64{Int64: h.TypeID, Valid: true}
	}

	res, err := q.q.ExecContext(ctx, `
		INSERT INTO hrefs (
			batch_id, domain_id, site_id, url, page_title, link_url, link_anchor,
			external_links_count, rating, hrefs_status_id, hrefs_type_id, is_analized
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.BatchID, h.DomainID, h.SiteID, h.URL, h.PageTitle, h.LinkURL, h.LinkAnchor,
		h.ExternalLinksCount, h.Rating, h.StatusID, typeID, h.IsAnalized)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("eligible href for domain %d: %w", h.DomainID, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert href: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve href id: %w", err)
	}
	return id, nil
}

// HasAnalyzedHref reports whether the domain already has its eligible href
func (q *Queries) HasAnalyzedHref(ctx context.Context, domainID int64) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM hrefs WHERE domain_id = ? AND is_analized = 1)", domainID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check eligible href: %w", err)
	}
	return exists, nil
}

// CountAnalyzedHrefs returns how many eligible hrefs the domain has
func (q *Queries) CountAnalyzedHrefs(ctx context.Context, domainID int64) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM hrefs WHERE domain_id = ? AND is_analized = 1", domainID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count eligible hrefs: %w", err)
	}
	return n, nil
}

// CountHrefs returns the total number of hrefs
func (q *Queries) CountHrefs(ctx context.Context) (int, error) {
	var n int
	if err := q.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM hrefs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count hrefs: %w", err)
	}
	return n, nil
}

// GetHref retrieves an href by id
func (q *Queries) GetHref(ctx context.Context, id int64) (*Href, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+hrefColumns+hrefFrom+`WHERE h.id = ?`, id)
	h, err := scanHref(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("href %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get href: %w", err)
	}
	return h, nil
}

// UpdateHrefReview stores the review fields of an href
func (q *Queries) UpdateHrefReview(ctx context.Context, h *Href) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE hrefs
		SET hrefs_status_id = ?, comment = ?, analized_date = ?, user_id = ?
		WHERE id = ?
	`, h.StatusID, nullableString(h.Comment), nullableString(h.AnalizedDate), nullableInt64(h.UserID), h.ID)
	if err != nil {
		return fmt.Errorf("failed to update href review: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("href %d: %w", h.ID, ErrNotFound)
	}
	return nil
}

// HrefRatings returns the declared ratings of all hrefs grouped by domain, in insertion order
func (q *Queries) HrefRatings(ctx context.Context) (map[int64][]int, error) {
	rows, err := q.q.QueryContext(ctx, "SELECT domain_id, rating FROM hrefs ORDER BY domain_id, id")
	if err != nil {
		return nil, fmt.Errorf("failed to load href ratings: %w", err)
	}
	defer rows.Close()

	ratings := make(map[int64][]int)
	for rows.Next() {
		var domainID int64
		var rating int
		if err := rows.Scan(&domainID, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan href rating: %w", err)
		}
		ratings[domainID] = append(ratings[domainID], rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating href ratings: %w", err)
	}
	return ratings, nil
}

// NextForReview returns the pending eligible href on the highest rated domain, nil if none
func (q *Queries) NextForReview(ctx context.Context) (*Href, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+hrefColumns+hrefFrom+`
		WHERE h.is_analized = 1 AND h.hrefs_status_id = ?
		ORDER BY d.rating DESC, h.id ASC
		LIMIT 1
	`, StatusPending)
	h, err := scanHref(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next href: %w", err)
	}
	return h, nil
}

// ListHrefsByDomain returns the hrefs of a domain except excludeID, ordered by id
func (q *Queries) ListHrefsByDomain(ctx context.Context, domainID, excludeID int64) ([]*Href, error) {
	return q.listHrefs(ctx, `WHERE h.domain_id = ? AND h.id <> ? ORDER BY h.id ASC`, domainID, excludeID)
}

// ListHrefsByDomains returns the hrefs of all given domains, ordered by id
func (q *Queries) ListHrefsByDomains(ctx context.Context, domainIDs []int64) ([]*Href, error) {
	if len(domainIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(domainIDs)), ",")
	args := make([]any, len(domainIDs))
	for i, id := range domainIDs {
		args[i] = id
	}
	return q.listHrefs(ctx, `WHERE h.domain_id IN (`+placeholders+`) ORDER BY h.id ASC`, args...)
}

// ListReviewed returns analysed hrefs that ended successful or failed, newest review first
func (q *Queries) ListReviewed(ctx context.Context, f ReviewFilter) ([]*Href, error) {
	where := []string{"h.is_analized = 1"}
	var args []any

	if f.Successful {
		where = append(where, "h.hrefs_status_id = ?")
		args = append(args, StatusSuccessful)
	} else {
		where = append(where, "h.hrefs_status_id NOT IN (?, ?)")
		args = append(args, StatusPending, StatusSuccessful)
	}
	if f.Domain != "" {
		where = append(where, "d.domain LIKE ?")
		args = append(args, "%"+f.Domain+"%")
	}
	if f.Date != "" {
		where = append(where, "h.analized_date = ?")
		args = append(args, f.Date)
	}

	clause := "WHERE " + strings.Join(where, " AND ") + " ORDER BY h.analized_date DESC, h.id DESC"
	if f.Limit > 0 {
		clause += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	return q.listHrefs(ctx, clause, args...)
}

func (q *Queries) listHrefs(ctx context.Context, clause string, args ...any) ([]*Href, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+hrefColumns+hrefFrom+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list hrefs: %w", err)
	}
	defer rows.Close()

	var hrefs []*Href
	for rows.Next() {
		h, err := scanHref(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan href: %w", err)
		}
		hrefs = append(hrefs, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hrefs: %w", err)
	}
	return hrefs, nil
}

func scanHref(row rowScanner) (*Href, error) {
	var h Href
	var date, comment sql.NullString
	var user sql.NullInt64
	err := row.Scan(&h.ID, &h.BatchID, &h.DomainID, &h.SiteID, &h.URL, &h.PageTitle, &h.LinkURL,
		&h.LinkAnchor, &h.ExternalLinksCount, &h.Rating, &h.StatusID, &h.TypeID, &h.IsAnalized,
		&date, &comment, &user, &h.CreatedAt, &h.DomainName, &h.Scheme)
	if err != nil {
		return nil, err
	}
	h.AnalizedDate = date.String
	h.Comment = comment.String
	h.UserID = int64Ptr(user)
	return &h, nil
}
