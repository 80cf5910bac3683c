// Package memstore is an in-memory cache.Store for tests and for
// running without Postgres.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/astrostocks/internal/cache"
	"github.com/wonny/astrostocks/internal/contracts"
)

// Operation names accepted by FailOn
const (
	OpGet         = "get"
	OpSave        = "save"
	OpDelete      = "delete"
	OpArchiveLive = "archive_live"
	OpInsertLive  = "insert_live"
)

type entry struct {
	payload   json.RawMessage
	createdAt time.Time
	updatedAt time.Time
}

// Store keeps everything in maps guarded by one mutex
type Store struct {
	mu      sync.Mutex
	entries map[cache.Key]*entry
	live    []contracts.LivePrediction
	archive []contracts.ArchivedPrediction
	nextID  int64
	fail    map[string]error
	calls   map[string]int
	now     func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		entries: make(map[cache.Key]*entry),
		fail:    make(map[string]error),
		calls:   make(map[string]int),
		now:     time.Now,
	}
}

// FailOn makes every later call of op return err; nil clears it
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns how often op was invoked
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// SetClock replaces the clock used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) enter(op string) error {
	s.calls[op]++
	return s.fail[op]
}

// Get implements cache.Store
func (s *Store) Get(_ context.Context, key cache.Key) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGet); err != nil {
		return nil, false, err
	}
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), e.payload...), true, nil
}

// Save implements cache.Store
func (s *Store) Save(_ context.Context, key cache.Key, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSave); err != nil {
		return err
	}
	now := s.now()
	if e, ok := s.entries[key]; ok {
		e.payload = append(json.RawMessage(nil), payload...)
		e.updatedAt = now
		return nil
	}
	s.entries[key] = &entry{
		payload:   append(json.RawMessage(nil), payload...),
		createdAt: now,
		updatedAt: now,
	}
	return nil
}

// Delete implements cache.Store
func (s *Store) Delete(_ context.Context, key cache.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDelete); err != nil {
		return err
	}
	delete(s.entries, key)
	return nil
}

// ArchiveAndDeleteLive implements cache.Store. Copy and delete happen
// under one lock hold.
func (s *Store) ArchiveAndDeleteLive(_ context.Context, archiveDate time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpArchiveLive); err != nil {
		return 0, err
	}

	batch := uuid.NewString()
	now := s.now()
	for _, p := range s.live {
		s.nextID++
		row := contracts.ArchivedPrediction{
			LivePrediction:    p,
			OriginalID:        p.ID,
			BatchID:           batch,
			OriginalCreatedAt: p.CreatedAt,
			ArchivedAt:        now,
			ArchiveDate:       archiveDate,
		}
		row.ID = s.nextID
		s.archive = append(s.archive, row)
	}
	n := len(s.live)
	s.live = nil
	return n, nil
}

// InsertLive implements cache.Store
func (s *Store) InsertLive(_ context.Context, preds []contracts.LivePrediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpInsertLive); err != nil {
		return err
	}
	now := s.now()
	for _, p := range preds {
		s.nextID++
		p.ID = s.nextID
		p.CreatedAt = now
		s.live = append(s.live, p)
	}
	return nil
}

// ListLive implements cache.Store
func (s *Store) ListLive(_ context.Context, date *time.Time) ([]contracts.LivePrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []contracts.LivePrediction
	for _, p := range s.live {
		if date != nil && !p.PredictionDate.Equal(*date) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PredictionDate.Equal(out[j].PredictionDate) {
			return out[i].PredictionDate.After(out[j].PredictionDate)
		}
		return out[i].Sector < out[j].Sector
	})
	return out, nil
}

// ListArchive implements cache.Store
func (s *Store) ListArchive(_ context.Context, f cache.ArchiveFilter) ([]contracts.ArchivedPrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	var out []contracts.ArchivedPrediction
	for i := len(s.archive) - 1; i >= 0 && len(out) < limit; i-- {
		a := s.archive[i]
		if f.ArchiveDate != nil && !a.ArchiveDate.Equal(*f.ArchiveDate) {
			continue
		}
		if f.Sector != "" && a.Sector != f.Sector {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Cleanup implements cache.Store
func (s *Store) Cleanup(_ context.Context, before time.Time) (cache.CleanupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := cache.Day(before)
	var res cache.CleanupResult
	for k := range s.entries {
		if !k.Date.Before(cutoff) {
			continue
		}
		delete(s.entries, k)
		if k.Kind == contracts.KindPredict {
			res.PredictionDeleted++
		} else {
			res.AnalysisDeleted++
		}
	}
	return res, nil
}

// Stats implements cache.Store
func (s *Store) Stats(context.Context) (cache.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := cache.Stats{
		AnalysisEntries:     make(map[contracts.Kind]int),
		LivePredictions:     len(s.live),
		ArchivedPredictions: len(s.archive),
	}
	for k, e := range s.entries {
		if k.Kind == contracts.KindPredict {
			st.PredictionEntries++
		} else {
			st.AnalysisEntries[k.Kind]++
		}
		created := e.createdAt
		if st.OldestEntry == nil || created.Before(*st.OldestEntry) {
			st.OldestEntry = &created
		}
		if st.NewestEntry == nil || created.After(*st.NewestEntry) {
			st.NewestEntry = &created
		}
	}
	return st, nil
}

// Live returns a copy of the live rows
func (s *Store) Live() []contracts.LivePrediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contracts.LivePrediction(nil), s.live...)
}

// Archive returns a copy of the archive rows in insertion order
func (s *Store) Archive() []contracts.ArchivedPrediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contracts.ArchivedPrediction(nil), s.archive...)
}

var _ cache.Store = (*Store)(nil)
