package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/astrostocks/internal/contracts"
)

// Store is the durable TTL cache of stock snapshots
type Store interface {
	Fresh(ctx context.Context, symbol string, now time.Time) (*contracts.StockRecord, error)
	Upsert(ctx context.Context, rec contracts.StockRecord, expiresAt time.Time) error
	ClearExpired(ctx context.Context, now time.Time) (int, error)
}

// Repository handles market_data_cache persistence
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new market data repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Fresh returns the unexpired snapshot of symbol, or nil
func (r *Repository) Fresh(ctx context.Context, symbol string, now time.Time) (*contracts.StockRecord, error) {
	var (
		rec      contracts.StockRecord
		cachedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT symbol, COALESCE(sector, 'Unknown'),
		       COALESCE(current_price, 0), COALESCE(open_price, 0), COALESCE(high, 0), COALESCE(low, 0),
		       COALESCE(volume, 0), COALESCE(change_percent, 0), COALESCE(pe_ratio, 0), COALESCE(market_cap, 0),
		       COALESCE(week_52_high, 0), COALESCE(week_52_low, 0), COALESCE(past_6m_return, 0),
		       COALESCE(volatility, 'Medium'), cached_at
		FROM market_data_cache
		WHERE symbol = $1 AND expires_at > $2
	`, symbol, now).Scan(
		&rec.Symbol, &rec.Sector,
		&rec.CurrentPrice, &rec.OpenPrice, &rec.High, &rec.Low,
		&rec.Volume, &rec.ChangePercent, &rec.PERatio, &rec.MarketCap,
		&rec.Week52High, &rec.Week52Low, &rec.Past6MReturn,
		&rec.Volatility, &cachedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market data %s: %w", symbol, err)
	}
	rec.CachedAt = &cachedAt
	return &rec, nil
}

// Upsert stores a snapshot valid until expiresAt
func (r *Repository) Upsert(ctx context.Context, rec contracts.StockRecord, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO market_data_cache (
			symbol, sector, current_price, open_price, high, low, volume, change_percent,
			pe_ratio, market_cap, week_52_high, week_52_low, past_6m_return, volatility,
			cached_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), $15)
		ON CONFLICT (symbol) DO UPDATE SET
			sector = EXCLUDED.sector,
			current_price = EXCLUDED.current_price,
			open_price = EXCLUDED.open_price,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			volume = EXCLUDED.volume,
			change_percent = EXCLUDED.change_percent,
			pe_ratio = EXCLUDED.pe_ratio,
			market_cap = EXCLUDED.market_cap,
			week_52_high = EXCLUDED.week_52_high,
			week_52_low = EXCLUDED.week_52_low,
			past_6m_return = EXCLUDED.past_6m_return,
			volatility = EXCLUDED.volatility,
			cached_at = NOW(),
			expires_at = EXCLUDED.expires_at
	`,
		rec.Symbol, rec.Sector, rec.CurrentPrice, rec.OpenPrice, rec.High, rec.Low, rec.Volume, rec.ChangePercent,
		rec.PERatio, rec.MarketCap, rec.Week52High, rec.Week52Low, rec.Past6MReturn, rec.VolatilityOrDefault(),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert market data %s: %w", rec.Symbol, err)
	}
	return nil
}

// ClearExpired deletes snapshots whose TTL has passed
func (r *Repository) ClearExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM market_data_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired market data: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
