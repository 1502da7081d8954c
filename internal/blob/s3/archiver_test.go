package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

type memWriter struct {
	objects map[string][]byte
	err     error
}

func newMemWriter() *memWriter {
	return &memWriter{objects: map[string][]byte{}}
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects[path] = b
	return nil
}

func (w *memWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	return w.Put(context.Background(), path, data, "")
}

func sampleSnapshot(id string) domain.Snapshot {
	return domain.Snapshot{
		PositionID:   id,
		AssetID:      "ethereum",
		CurrentPrice: 2400,
		ComputedAt:   time.Date(2026, 8, 31, 14, 30, 5, 0, time.UTC),
		LPValue:      980,
		TotalPnL:     -5.2,
	}
}

func TestFlushWritesJSONL(t *testing.T) {
	w := newMemWriter()
	a := NewSnapshotArchiver(w)

	a.Append([]domain.Snapshot{sampleSnapshot("p1"), sampleSnapshot("p2")})
	a.Append([]domain.Snapshot{sampleSnapshot("p3")})

	n, err := a.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, w.objects, 1)
	var path string
	for k := range w.objects {
		path = k
	}
	assert.True(t, strings.HasPrefix(path, "snapshots/"))
	assert.True(t, strings.HasSuffix(path, ".jsonl"))

	// One JSON object per line.
	sc := bufio.NewScanner(bytes.NewReader(w.objects[path]))
	lines := 0
	for sc.Scan() {
		var rec snapshotRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		lines++
	}
	assert.Equal(t, 3, lines)
}

func TestFlushEmptyBufferIsNoop(t *testing.T) {
	w := newMemWriter()
	a := NewSnapshotArchiver(w)

	n, err := a.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.objects)
}

func TestFlushRestoresBufferOnUploadFailure(t *testing.T) {
	w := newMemWriter()
	w.err = errors.New("bucket gone")
	a := NewSnapshotArchiver(w)

	a.Append([]domain.Snapshot{sampleSnapshot("p1")})

	_, err := a.Flush(context.Background())
	require.Error(t, err)

	// The snapshot survives for the next flush.
	w.err = nil
	n, err := a.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
