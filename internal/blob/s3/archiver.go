package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

// multipartThreshold switches Flush to a multipart upload for large payloads.
const multipartThreshold = 8 * 1024 * 1024

// SnapshotArchiver implements domain.SnapshotArchiver: it buffers valuation
// snapshots in memory and writes them to object storage as day-partitioned
// JSONL files. Append is cheap and called from the tracker's poll cycle;
// Flush is called periodically and on shutdown.
type SnapshotArchiver struct {
	writer domain.BlobWriter
	mu     sync.Mutex
	buf    []domain.Snapshot
}

// NewSnapshotArchiver creates a SnapshotArchiver backed by the given writer.
func NewSnapshotArchiver(writer domain.BlobWriter) *SnapshotArchiver {
	return &SnapshotArchiver{writer: writer}
}

// snapshotRecord is the archived wire shape of a snapshot.
type snapshotRecord struct {
	PositionID   string    `json:"position_id"`
	AssetID      string    `json:"asset_id"`
	CurrentPrice float64   `json:"current_price"`
	ComputedAt   time.Time `json:"computed_at"`

	LPValue     float64 `json:"lp_value"`
	ShortSize   float64 `json:"short_size"`
	ShortPnL    float64 `json:"short_pnl"`
	AccruedFees float64 `json:"accrued_fees"`
	TotalPnL    float64 `json:"total_pnl"`
	EquityValue float64 `json:"equity_value"`

	LiquidationPrice         float64 `json:"liquidation_price"`
	DistanceToLiquidationPct float64 `json:"distance_to_liquidation_pct"`
	IsOutOfRange             bool    `json:"is_out_of_range"`
}

func toRecord(s domain.Snapshot) snapshotRecord {
	return snapshotRecord{
		PositionID:               s.PositionID,
		AssetID:                  s.AssetID,
		CurrentPrice:             s.CurrentPrice,
		ComputedAt:               s.ComputedAt,
		LPValue:                  s.LPValue,
		ShortSize:                s.ShortSize,
		ShortPnL:                 s.ShortPnL,
		AccruedFees:              s.AccruedFees,
		TotalPnL:                 s.TotalPnL,
		EquityValue:              s.EquityValue,
		LiquidationPrice:         s.LiquidationPrice,
		DistanceToLiquidationPct: s.DistanceToLiquidationPct,
		IsOutOfRange:             s.IsOutOfRange,
	}
}

// Append buffers a batch of snapshots for the next Flush. Safe to call
// concurrently with Flush.
func (a *SnapshotArchiver) Append(snapshots []domain.Snapshot) {
	if len(snapshots) == 0 {
		return
	}
	a.mu.Lock()
	a.buf = append(a.buf, snapshots...)
	a.mu.Unlock()
}

// Flush serialises the buffered snapshots to JSONL and uploads them as one
// object under snapshots/YYYY-MM-DD/. It returns the number of snapshots
// written. On upload failure the buffer is restored so no snapshot is lost.
func (a *SnapshotArchiver) Flush(ctx context.Context) (int, error) {
	a.mu.Lock()
	batch := a.buf
	a.buf = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	records := make([]snapshotRecord, 0, len(batch))
	for _, s := range batch {
		records = append(records, toRecord(s))
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		a.restore(batch)
		return 0, fmt.Errorf("s3blob: archive snapshots marshal: %w", err)
	}

	now := time.Now().UTC()
	path := archivePath(now)

	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		a.restore(batch)
		return 0, fmt.Errorf("s3blob: archive snapshots upload: %w", err)
	}

	return len(batch), nil
}

func (a *SnapshotArchiver) restore(batch []domain.Snapshot) {
	a.mu.Lock()
	a.buf = append(batch, a.buf...)
	a.mu.Unlock()
}

// archivePath builds the object key for a flush, partitioned by day with a
// time-of-day suffix so multiple flushes per day do not collide.
//
//	snapshots/2026-08-31/143005.jsonl
func archivePath(now time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s.jsonl", now.Format("2006-01-02"), now.Format("150405"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.SnapshotArchiver = (*SnapshotArchiver)(nil)
