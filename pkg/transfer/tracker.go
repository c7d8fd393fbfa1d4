package transfer

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Progress is one sample of a job's progress.
type Progress struct {
	BytesDone  int64
	BytesTotal int64 // -1 when unknown

	// Percent is in [0, 100] and never decreases between samples.
	Percent float64

	// BytesPerSecond covers the window since the previous sample. Zero means
	// no bytes moved in the window and carries no reading.
	BytesPerSecond float64
}

// Tracker is the progress handle of one job. Byte counters are updated by
// the job and read by the poller.
type Tracker struct {
	done  atomic.Int64
	total atomic.Int64

	mu          sync.Mutex
	lastPercent float64
	lastBytes   int64
	lastAt      time.Time
	now         func() time.Time
}

// NewTracker returns a tracker for a job of total bytes (-1 when unknown).
func NewTracker(total int64) *Tracker {
	t := &Tracker{now: time.Now}
	t.total.Store(total)
	t.lastAt = t.now()
	return t
}

// Add records n more bytes moved.
func (t *Tracker) Add(n int64) {
	t.done.Add(n)
}

// SetTotal sets the expected size.
func (t *Tracker) SetTotal(total int64) {
	t.total.Store(total)
}

// Set records absolute progress as reported by a server-side copy.
// A negative total leaves the expected size unchanged.
func (t *Tracker) Set(done, total int64) {
	if total >= 0 {
		t.total.Store(total)
	}
	t.done.Store(done)
}

// Done returns the bytes moved so far.
func (t *Tracker) Done() int64 {
	return t.done.Load()
}

// Sample returns the current progress and starts a new throughput window.
func (t *Tracker) Sample() Progress {
	done := t.done.Load()
	total := t.total.Load()

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	p := Progress{BytesDone: done, BytesTotal: total}

	if total > 0 {
		p.Percent = float64(done) * 100 / float64(total)
		if p.Percent > 100 {
			p.Percent = 100
		}
	} else if total == 0 {
		p.Percent = 100
	}
	if p.Percent < t.lastPercent {
		p.Percent = t.lastPercent
	}
	t.lastPercent = p.Percent

	if elapsed := now.Sub(t.lastAt).Seconds(); elapsed > 0 && done > t.lastBytes {
		p.BytesPerSecond = float64(done-t.lastBytes) / elapsed
	}
	t.lastBytes = done
	t.lastAt = now
	return p
}

// Reader wraps r so that bytes read through it are counted.
func (t *Tracker) Reader(r io.Reader) io.Reader {
	return &countingReader{r: r, t: t}
}

// countingReader reports reads to its tracker. It stays seekable when the
// underlying reader is, so SDK request retries can rewind the body.
type countingReader struct {
	r   io.Reader
	t   *Tracker
	pos int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.pos += int64(n)
		c.t.Add(int64(n))
	}
	return n, err
}

func (c *countingReader) Seek(offset int64, whence int) (int64, error) {
	s, ok := c.r.(io.Seeker)
	if !ok {
		return 0, errNotSeekable
	}
	pos, err := s.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	c.t.Add(pos - c.pos)
	c.pos = pos
	return pos, nil
}
