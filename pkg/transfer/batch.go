package transfer

import (
	"errors"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/3leaps/skybrowse/pkg/output"
)

// State is a job's position in its lifecycle.
type State int

const (
	StatePending State = iota
	StateInFlight
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether s is a settled state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// BatchResult holds one Result per job, in submission order.
type BatchResult struct {
	Results  []Result
	Duration time.Duration
}

// Succeeded returns the number of successful jobs.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.State == StateSucceeded {
			n++
		}
	}
	return n
}

// Failed returns the number of failed jobs.
func (b *BatchResult) Failed() int {
	return len(b.Results) - b.Succeeded()
}

// Bytes returns the bytes moved by successful jobs.
func (b *BatchResult) Bytes() int64 {
	var n int64
	for _, r := range b.Results {
		if r.State == StateSucceeded {
			n += r.Bytes
		}
	}
	return n
}

// Err joins the failures of the batch, or returns nil.
func (b *BatchResult) Err() error {
	var errs []error
	for _, r := range b.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

// Summary converts the batch to its JSONL summary payload.
func (b *BatchResult) Summary(operation string) *output.SummaryRecord {
	return &output.SummaryRecord{
		Operation:     operation,
		Total:         len(b.Results),
		Succeeded:     b.Succeeded(),
		Failed:        b.Failed(),
		BytesTotal:    b.Bytes(),
		Duration:      b.Duration,
		DurationHuman: b.Duration.Round(time.Millisecond).String(),
	}
}

// SummaryText renders a one-line human summary of the batch.
func (b *BatchResult) SummaryText() string {
	text := humanize.Comma(int64(b.Succeeded())) + " succeeded"
	if failed := b.Failed(); failed > 0 {
		text += ", " + humanize.Comma(int64(failed)) + " failed"
	}
	if bytes := b.Bytes(); bytes > 0 {
		text += ", " + humanize.Bytes(uint64(bytes))
	}
	return text
}

// ToOutput converts r to its JSONL transfer payload.
func (r Result) ToOutput() *output.TransferRecord {
	rec := &output.TransferRecord{
		TransferID: r.TransferID,
		Kind:       string(r.Job.Kind()),
		Source:     r.Job.Source(),
		Target:     r.Job.Target(),
		Bytes:      r.Bytes,
		Succeeded:  r.State == StateSucceeded,
		Duration:   r.Duration,
		Message:    r.Message,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
		rec.Code = classifyErrCode(r.Err)
	}
	return rec
}
