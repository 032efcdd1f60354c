package storage

import (
	"context"
	"fmt"
)

// InsertProfile creates a profile and returns its id
func (q *Queries) InsertProfile(ctx context.Context, name string) (int64, error) {
	res, err := q.q.ExecContext(ctx, "INSERT INTO profiles (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert profile: %w", err)
	}
	return res.LastInsertId()
}

// InsertTarget records that a profile registered a target on date (YYYY-MM-DD)
func (q *Queries) InsertTarget(ctx context.Context, profileID int64, date string) (int64, error) {
	res, err := q.q.ExecContext(ctx, "INSERT INTO targets (profile_id, register_date) VALUES (?, ?)", profileID, date)
	if err != nil {
		return 0, fmt.Errorf("failed to insert target: %w", err)
	}
	return res.LastInsertId()
}

// ListProfileIDs returns the ids of all profiles in ascending order
func (q *Queries) ListProfileIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.q.QueryContext(ctx, "SELECT id FROM profiles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return ids, nil
}

// ListRegistrations returns target registrations on or after since, ordered by date then profile
func (q *Queries) ListRegistrations(ctx context.Context, since string) ([]Registration, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT profile_id, register_date
		FROM targets
		WHERE register_date >= ?
		ORDER BY register_date ASC, profile_id ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		var r Registration
		if err := rows.Scan(&r.ProfileID, &r.RegisterDate); err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registrations: %w", err)
	}
	return regs, nil
}
