package transits

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/astrostocks/internal/contracts"
)

// Store persists the transits of a date
type Store interface {
	ByDate(ctx context.Context, date time.Time) ([]contracts.Transit, time.Time, error)
	DeleteByDate(ctx context.Context, date time.Time) (int, error)
	Replace(ctx context.Context, date time.Time, transits []contracts.Transit) error
}

// Repository handles transit persistence
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new transit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ByDate returns the stored transits of date and the newest row timestamp
func (r *Repository) ByDate(ctx context.Context, date time.Time) ([]contracts.Transit, time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT planet, sign, motion, dignity,
		       COALESCE(longitude, 0), COALESCE(degree_in_sign, 0), COALESCE(speed, 0),
		       COALESCE(nakshatra, ''), COALESCE(transit_start, ''), COALESCE(transit_end, ''),
		       updated_at
		FROM transits
		WHERE date = $1
		ORDER BY id
	`, date)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query transits: %w", err)
	}
	defer rows.Close()

	var (
		out    []contracts.Transit
		latest time.Time
	)
	for rows.Next() {
		var (
			t       contracts.Transit
			updated time.Time
		)
		if err := rows.Scan(
			&t.Planet, &t.Sign, &t.Motion, &t.Dignity,
			&t.Longitude, &t.DegreeInSign, &t.Speed,
			&t.Nakshatra, &t.TransitStart, &t.TransitEnd,
			&updated,
		); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan transit: %w", err)
		}
		if updated.After(latest) {
			latest = updated
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read transits: %w", err)
	}

	return out, latest, nil
}

// DeleteByDate removes every transit of date
func (r *Repository) DeleteByDate(ctx context.Context, date time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transits WHERE date = $1`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transits: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Replace swaps the rows of date for transits in one transaction
func (r *Repository) Replace(ctx context.Context, date time.Time, transits []contracts.Transit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM transits WHERE date = $1`, date); err != nil {
		return fmt.Errorf("failed to clear partial transits: %w", err)
	}

	for _, t := range transits {
		_, err := tx.Exec(ctx, `
			INSERT INTO transits (
				date, planet, sign, motion, dignity,
				longitude, degree_in_sign, speed, nakshatra, transit_start, transit_end
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (date, planet) DO UPDATE SET
				sign = EXCLUDED.sign,
				motion = EXCLUDED.motion,
				dignity = EXCLUDED.dignity,
				longitude = EXCLUDED.longitude,
				degree_in_sign = EXCLUDED.degree_in_sign,
				speed = EXCLUDED.speed,
				nakshatra = EXCLUDED.nakshatra,
				transit_start = EXCLUDED.transit_start,
				transit_end = EXCLUDED.transit_end,
				updated_at = NOW()
		`,
			date, t.Planet, t.Sign, string(t.Motion), string(t.Dignity),
			t.Longitude, t.DegreeInSign, t.Speed, t.Nakshatra, t.TransitStart, t.TransitEnd,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transit %s: %w", t.Planet, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transits: %w", err)
	}
	return nil
}
