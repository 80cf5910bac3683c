package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/astrostocks/internal/contracts"
)

// PostgresStore is the production Store
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over the shared pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get returns the payload stored for key
func (s *PostgresStore) Get(ctx context.Context, key Key) (json.RawMessage, bool, error) {
	var (
		query string
		args  []interface{}
	)
	if key.Kind == contracts.KindPredict {
		query = `SELECT response_data FROM prediction_cache WHERE prediction_date = $1`
		args = []interface{}{key.Date}
	} else {
		query = `SELECT response_data FROM analyze_cache WHERE analysis_date = $1 AND endpoint_type = $2`
		args = []interface{}{key.Date, string(key.Kind)}
	}

	var payload []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}
	return json.RawMessage(payload), true, nil
}

// Save upserts the payload and bumps updated_at
func (s *PostgresStore) Save(ctx context.Context, key Key, payload json.RawMessage) error {
	var err error
	if key.Kind == contracts.KindPredict {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO prediction_cache (prediction_date, response_data)
			VALUES ($1, $2)
			ON CONFLICT (prediction_date) DO UPDATE SET
				response_data = EXCLUDED.response_data,
				updated_at = NOW()
		`, key.Date, []byte(payload))
	} else {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO analyze_cache (analysis_date, endpoint_type, response_data)
			VALUES ($1, $2, $3)
			ON CONFLICT (analysis_date, endpoint_type) DO UPDATE SET
				response_data = EXCLUDED.response_data,
				updated_at = NOW()
		`, key.Date, string(key.Kind), []byte(payload))
	}
	if err != nil {
		return fmt.Errorf("failed to save cache entry %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key
func (s *PostgresStore) Delete(ctx context.Context, key Key) error {
	var err error
	if key.Kind == contracts.KindPredict {
		_, err = s.pool.Exec(ctx, `DELETE FROM prediction_cache WHERE prediction_date = $1`, key.Date)
	} else {
		_, err = s.pool.Exec(ctx, `DELETE FROM analyze_cache WHERE analysis_date = $1 AND endpoint_type = $2`,
			key.Date, string(key.Kind))
	}
	if err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// ArchiveAndDeleteLive moves live rows in one statement. The DELETE
// only sees rows visible at statement start, so rows committed by a
// concurrent InsertLive are neither deleted nor archived.
func (s *PostgresStore) ArchiveAndDeleteLive(ctx context.Context, archiveDate time.Time) (int, error) {
	query := `
		WITH moved AS (
			DELETE FROM sector_predictions
			RETURNING id, prediction_date, sector, planetary_influence, trend, confidence,
			          reason, ai_insights, top_stocks, accuracy_estimate, created_at
		), archived AS (
			INSERT INTO sector_archive (
				original_id, batch_id, prediction_date, sector, planetary_influence,
				trend, confidence, reason, ai_insights, top_stocks, accuracy_estimate,
				original_created_at, archive_date
			)
			SELECT
				m.id, $1::uuid, m.prediction_date, m.sector, m.planetary_influence,
				m.trend, m.confidence, m.reason, m.ai_insights, m.top_stocks, m.accuracy_estimate,
				m.created_at, $2::date
			FROM moved m
			RETURNING 1
		)
		SELECT COUNT(*) FROM archived
	`

	var n int
	if err := s.pool.QueryRow(ctx, query, uuid.NewString(), archiveDate).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to archive live predictions: %w", err)
	}
	return n, nil
}

// InsertLive writes live predictions in one transaction
func (s *PostgresStore) InsertLive(ctx context.Context, preds []contracts.LivePrediction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO sector_predictions (
			prediction_date, sector, planetary_influence, trend, confidence,
			reason, ai_insights, top_stocks, accuracy_estimate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, p := range preds {
		topStocks, err := json.Marshal(nonNil(p.TopStocks))
		if err != nil {
			return fmt.Errorf("failed to marshal top stocks: %w", err)
		}

		_, err = tx.Exec(ctx, query,
			p.PredictionDate, p.Sector, p.PlanetaryInfluence, string(p.Trend), p.Confidence,
			p.Reason, nullableJSON(p.AIInsights), topStocks, p.AccuracyEstimate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert live prediction %s: %w", p.Sector, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListLive returns live predictions by date then sector
func (s *PostgresStore) ListLive(ctx context.Context, date *time.Time) ([]contracts.LivePrediction, error) {
	query := `
		SELECT id, prediction_date, sector, COALESCE(planetary_influence, ''), COALESCE(trend, ''),
		       COALESCE(confidence, ''), COALESCE(reason, ''), ai_insights, top_stocks,
		       COALESCE(accuracy_estimate, 0), created_at
		FROM sector_predictions
		WHERE ($1::date IS NULL OR prediction_date = $1)
		ORDER BY prediction_date DESC, sector
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query live predictions: %w", err)
	}
	defer rows.Close()

	var out []contracts.LivePrediction
	for rows.Next() {
		var (
			p         contracts.LivePrediction
			trend     string
			ai        []byte
			topStocks []byte
		)
		if err := rows.Scan(
			&p.ID, &p.PredictionDate, &p.Sector, &p.PlanetaryInfluence, &trend,
			&p.Confidence, &p.Reason, &ai, &topStocks, &p.AccuracyEstimate, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan live prediction: %w", err)
		}
		p.Trend = contracts.Trend(trend)
		p.AIInsights = ai
		if len(topStocks) > 0 {
			_ = json.Unmarshal(topStocks, &p.TopStocks)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListArchive returns archived predictions, most recently archived first
func (s *PostgresStore) ListArchive(ctx context.Context, f ArchiveFilter) ([]contracts.ArchivedPrediction, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, original_id, batch_id::text, prediction_date, sector,
		       COALESCE(planetary_influence, ''), COALESCE(trend, ''), COALESCE(confidence, ''),
		       COALESCE(reason, ''), ai_insights, top_stocks, COALESCE(accuracy_estimate, 0),
		       COALESCE(original_created_at, archived_at), archived_at, archive_date
		FROM sector_archive
		WHERE ($1::date IS NULL OR archive_date = $1)
		  AND ($2 = '' OR sector = $2)
		ORDER BY archived_at DESC, id
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, f.ArchiveDate, f.Sector, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	var out []contracts.ArchivedPrediction
	for rows.Next() {
		var (
			a              contracts.ArchivedPrediction
			predictionDate *time.Time
			trend          string
			ai             []byte
			topStocks      []byte
		)
		if err := rows.Scan(
			&a.ID, &a.OriginalID, &a.BatchID, &predictionDate, &a.Sector,
			&a.PlanetaryInfluence, &trend, &a.Confidence,
			&a.Reason, &ai, &topStocks, &a.AccuracyEstimate,
			&a.OriginalCreatedAt, &a.ArchivedAt, &a.ArchiveDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan archived prediction: %w", err)
		}
		if predictionDate != nil {
			a.PredictionDate = *predictionDate
		}
		a.Trend = contracts.Trend(trend)
		a.AIInsights = ai
		a.CreatedAt = a.OriginalCreatedAt
		if len(topStocks) > 0 {
			_ = json.Unmarshal(topStocks, &a.TopStocks)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Cleanup deletes cache entries keyed to a date before the cutoff day
func (s *PostgresStore) Cleanup(ctx context.Context, before time.Time) (CleanupResult, error) {
	var res CleanupResult
	cutoff := Day(before)

	tag, err := s.pool.Exec(ctx, `DELETE FROM analyze_cache WHERE analysis_date < $1`, cutoff)
	if err != nil {
		return res, fmt.Errorf("failed to clean analyze_cache: %w", err)
	}
	res.AnalysisDeleted = int(tag.RowsAffected())

	tag, err = s.pool.Exec(ctx, `DELETE FROM prediction_cache WHERE prediction_date < $1`, cutoff)
	if err != nil {
		return res, fmt.Errorf("failed to clean prediction_cache: %w", err)
	}
	res.PredictionDeleted = int(tag.RowsAffected())

	return res, nil
}

// Stats counts entries per table
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{AnalysisEntries: make(map[contracts.Kind]int)}

	rows, err := s.pool.Query(ctx, `SELECT endpoint_type, COUNT(*) FROM analyze_cache GROUP BY endpoint_type`)
	if err != nil {
		return st, fmt.Errorf("failed to count analyze_cache: %w", err)
	}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			rows.Close()
			return st, fmt.Errorf("failed to scan analyze_cache count: %w", err)
		}
		st.AnalysisEntries[contracts.Kind(kind)] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("failed to count analyze_cache: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM prediction_cache),
			(SELECT COUNT(*) FROM sector_predictions),
			(SELECT COUNT(*) FROM sector_archive),
			(SELECT MIN(created_at) FROM (
				SELECT created_at FROM analyze_cache UNION ALL SELECT created_at FROM prediction_cache
			) c),
			(SELECT MAX(created_at) FROM (
				SELECT created_at FROM analyze_cache UNION ALL SELECT created_at FROM prediction_cache
			) c)
	`).Scan(&st.PredictionEntries, &st.LivePredictions, &st.ArchivedPredictions, &st.OldestEntry, &st.NewestEntry)
	if err != nil {
		return st, fmt.Errorf("failed to read cache stats: %w", err)
	}

	return st, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
