package transfer

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(total int64) (*Tracker, *time.Time) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t := NewTracker(total)
	t.now = func() time.Time { return clock }
	t.lastAt = clock
	return t, &clock
}

func TestTracker_PercentAndThroughput(t *testing.T) {
	tr, clock := newTestTracker(1000)

	tr.Add(250)
	*clock = clock.Add(500 * time.Millisecond)
	p := tr.Sample()
	assert.Equal(t, int64(250), p.BytesDone)
	assert.InDelta(t, 25.0, p.Percent, 0.001)
	assert.InDelta(t, 500.0, p.BytesPerSecond, 0.001)

	// No bytes in the window: no reading.
	*clock = clock.Add(time.Second)
	p = tr.Sample()
	assert.Zero(t, p.BytesPerSecond)
	assert.InDelta(t, 25.0, p.Percent, 0.001)
}

func TestTracker_PercentNeverDecreases(t *testing.T) {
	tr, _ := newTestTracker(100)
	tr.Set(80, 100)
	assert.InDelta(t, 80.0, tr.Sample().Percent, 0.001)

	tr.Set(40, 100)
	assert.InDelta(t, 80.0, tr.Sample().Percent, 0.001)

	tr.Set(500, 100)
	assert.InDelta(t, 100.0, tr.Sample().Percent, 0.001)
}

func TestTracker_UnknownTotal(t *testing.T) {
	tr, _ := newTestTracker(-1)
	tr.Add(10)
	p := tr.Sample()
	assert.Zero(t, p.Percent)
	assert.Equal(t, int64(-1), p.BytesTotal)

	tr.Set(20, -1)
	assert.Equal(t, int64(-1), tr.Sample().BytesTotal)

	tr.SetTotal(0)
	assert.InDelta(t, 100.0, tr.Sample().Percent, 0.001)
}

func TestTracker_ReaderCountsAndRewinds(t *testing.T) {
	tr := NewTracker(5)
	r := tr.Reader(bytes.NewReader([]byte("hello")))

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
	assert.Equal(t, int64(5), tr.Done())

	seeker, ok := r.(io.Seeker)
	require.True(t, ok)
	_, err = seeker.Seek(0, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tr.Done())

	_, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, int64(5), tr.Done())
}

func TestTracker_ReaderNotSeekable(t *testing.T) {
	tr := NewTracker(-1)
	r := tr.Reader(io.LimitReader(strings.NewReader("abc"), 3))
	_, err := r.(io.Seeker).Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, errNotSeekable)
}
