// Package local implements domain.PositionStore as a single JSON file on
// disk, used when no database is configured.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

// PositionStore persists positions to a JSON file. All operations take a
// write lock; contention is not a concern at the position counts this store
// is meant for.
type PositionStore struct {
	mu   sync.Mutex
	path string
}

type positionRecord struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	AssetID       string    `json:"asset_id"`
	EntryPrice    float64   `json:"entry_price"`
	RangeLow      float64   `json:"range_low"`
	RangeHigh     float64   `json:"range_high"`
	Capital       float64   `json:"capital"`
	EstimatedAPR  float64   `json:"estimated_apr"`
	ShortLeverage float64   `json:"short_leverage"`
	StartTime     time.Time `json:"start_time"`
}

func toRecord(p domain.Position) positionRecord {
	return positionRecord(p)
}

func fromRecord(r positionRecord) domain.Position {
	return domain.Position(r)
}

// NewPositionStore creates a store backed by the JSON file at path. The file
// is created on first write; its parent directory must exist or be creatable.
func NewPositionStore(path string) (*PositionStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("local: create store dir %s: %w", dir, err)
		}
	}
	return &PositionStore{path: path}, nil
}

func (s *PositionStore) load() ([]positionRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("local: read %s: %w", s.path, err)
	}
	var records []positionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("local: decode %s: %w", s.path, err)
	}
	return records, nil
}

// save writes atomically via a temp file rename so a crash mid-write never
// leaves a truncated store.
func (s *PositionStore) save(records []positionRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("local: encode positions: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("local: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("local: rename %s: %w", tmp, err)
	}
	return nil
}

// Create appends a new position.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == p.ID {
			return fmt.Errorf("local: create position %s: duplicate id", p.ID)
		}
	}
	records = append(records, toRecord(p))
	return s.save(records)
}

// GetByID retrieves a single position by its ID.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return domain.Position{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return fromRecord(r), nil
		}
	}
	return domain.Position{}, domain.ErrNotFound
}

// ListByOwner returns the owner's positions, newest first.
func (s *PositionStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	var out []domain.Position
	for _, r := range records {
		if r.Owner != owner {
			continue
		}
		if opts.Since != nil && r.StartTime.Before(*opts.Since) {
			continue
		}
		out = append(out, fromRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ListAll returns every stored position, oldest first.
func (s *PositionStore) ListAll(ctx context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Position, 0, len(records))
	for _, r := range records {
		out = append(out, fromRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// Delete removes a position by ID.
func (s *PositionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	kept := records[:0]
	found := false
	for _, r := range records {
		if r.ID == id {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return domain.ErrNotFound
	}
	return s.save(kept)
}
