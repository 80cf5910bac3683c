package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/astrostocks/internal/contracts"
)

const dateLayout = "2006-01-02"

// Key identifies one cached response: an analysis date and the kind
// of run. Predict keys live in prediction_cache, the rest in
// analyze_cache.
type Key struct {
	Date time.Time
	Kind contracts.Kind
}

// NewKey truncates the date to its calendar day
func NewKey(date time.Time, kind contracts.Kind) Key {
	return Key{Date: Day(date), Kind: kind}
}

// Day returns midnight UTC of t's calendar date in t's location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateString formats the key date as YYYY-MM-DD
func (k Key) DateString() string {
	return k.Date.Format(dateLayout)
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.DateString(), k.Kind)
}

// ArchiveFilter narrows archive listings
type ArchiveFilter struct {
	ArchiveDate *time.Time
	Sector      string
	Limit       int
}

// Stats summarizes stored entries
type Stats struct {
	AnalysisEntries     map[contracts.Kind]int `json:"analysis_entries"`
	PredictionEntries   int                    `json:"prediction_entries"`
	LivePredictions     int                    `json:"live_predictions"`
	ArchivedPredictions int                    `json:"archived_predictions"`
	OldestEntry         *time.Time             `json:"oldest_entry,omitempty"`
	NewestEntry         *time.Time             `json:"newest_entry,omitempty"`
}

// CleanupResult counts removed cache entries
type CleanupResult struct {
	AnalysisDeleted   int `json:"analysis_deleted"`
	PredictionDeleted int `json:"prediction_deleted"`
}

// Store persists cached responses and live/archived sector predictions
// ⭐ SSOT: every cache table is touched only through a Store
type Store interface {
	// Get returns the stored payload verbatim; ok is false on a miss
	Get(ctx context.Context, key Key) (payload json.RawMessage, ok bool, err error)
	// Save upserts the payload for key
	Save(ctx context.Context, key Key, payload json.RawMessage) error
	// Delete removes the entry for key, if any
	Delete(ctx context.Context, key Key) error

	// ArchiveAndDeleteLive moves every live prediction into the archive
	// under archiveDate and returns the number moved. Copy and delete are
	// atomic: a row is either still live or archived, never lost. Rows
	// inserted concurrently stay live.
	ArchiveAndDeleteLive(ctx context.Context, archiveDate time.Time) (int, error)
	// InsertLive appends live predictions
	InsertLive(ctx context.Context, preds []contracts.LivePrediction) error
	// ListLive returns live predictions, optionally for one date
	ListLive(ctx context.Context, date *time.Time) ([]contracts.LivePrediction, error)
	// ListArchive returns archived predictions, newest first
	ListArchive(ctx context.Context, f ArchiveFilter) ([]contracts.ArchivedPrediction, error)

	// Cleanup removes cache entries whose key date is before the cutoff day
	Cleanup(ctx context.Context, before time.Time) (CleanupResult, error)
	Stats(ctx context.Context) (Stats, error)
}
