package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

var testJob = transfer.Upload{LocalPath: "/in/cat.png", Container: "media", Key: "cat.png"}

func decodeLines(t *testing.T, buf *bytes.Buffer) []output.Record {
	t.Helper()
	var recs []output.Record
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec output.Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		recs = append(recs, rec)
	}
	return recs
}

func TestJSONLSink(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewJSONLWriter(&buf, "job-1", "file")
	sink := NewJSONLSink(context.Background(), w)

	h := sink.Begin("t-1", testJob)
	h.Progress(transfer.Update{
		TransferID: "t-1",
		Job:        testJob,
		Progress:   transfer.Progress{BytesDone: 5, BytesTotal: 10, Percent: 50},
		Message:    "Uploading cat.png to media/cat.png (50%)",
	})
	h.Done(transfer.Result{TransferID: "t-1", Job: testJob, State: transfer.StateSucceeded, Bytes: 10})

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, output.TypeProgress, recs[0].Type)
	assert.Equal(t, output.TypeTransfer, recs[1].Type)

	var prog output.ProgressRecord
	require.NoError(t, json.Unmarshal(recs[0].Data, &prog))
	assert.Equal(t, "upload", prog.Kind)
	assert.Equal(t, "cat.png", prog.Name)
	assert.InDelta(t, 50.0, prog.Percent, 0.001)

	var xfer output.TransferRecord
	require.NoError(t, json.Unmarshal(recs[1].Data, &xfer))
	assert.True(t, xfer.Succeeded)
	assert.Equal(t, "media/cat.png", xfer.Target)
}

func TestBarSink_NonTerminalPrintsSettlement(t *testing.T) {
	var buf bytes.Buffer
	sink := newBarSink(&buf, false)
	assert.False(t, sink.IsTerminal())

	h := sink.Begin("t-1", testJob)
	h.Progress(transfer.Update{Job: testJob, Message: "Uploading"})
	h.Done(transfer.Result{Job: testJob, State: transfer.StateSucceeded, Message: "Uploaded cat.png to media/cat.png"})
	h2 := sink.Begin("t-2", testJob)
	h2.Done(transfer.Result{Job: testJob, State: transfer.StateFailed, Err: errors.New("boom"), Message: "Failed to upload cat.png: boom"})
	sink.Wait()

	assert.Equal(t, "✓ Uploaded cat.png to media/cat.png\n✗ Failed to upload cat.png: boom\n", buf.String())
}

func TestBarSink_NonTerminalConcurrentSettlement(t *testing.T) {
	var buf bytes.Buffer
	sink := newBarSink(&buf, false)

	const jobs = 32
	var wg sync.WaitGroup
	for i := range jobs {
		h := sink.Begin(fmt.Sprintf("t-%d", i), testJob)
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Done(transfer.Result{Job: testJob, State: transfer.StateSucceeded, Message: fmt.Sprintf("Uploaded part %02d", i)})
		}()
	}
	wg.Wait()
	sink.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, jobs)
	seen := make(map[string]bool)
	for _, line := range lines {
		assert.Regexp(t, `^✓ Uploaded part \d{2}$`, line)
		seen[line] = true
	}
	assert.Len(t, seen, jobs)
}

func TestBarSink_TerminalSettlesBars(t *testing.T) {
	var buf bytes.Buffer
	sink := newBarSink(&buf, true)

	ok := sink.Begin("t-1", testJob)
	ok.Progress(transfer.Update{Job: testJob, Progress: transfer.Progress{BytesDone: 3, BytesTotal: 10}, Message: "Uploading"})
	ok.Done(transfer.Result{Job: testJob, State: transfer.StateSucceeded, Message: "Uploaded"})

	failed := sink.Begin("t-2", testJob)
	failed.Done(transfer.Result{Job: testJob, State: transfer.StateFailed, Err: errors.New("boom"), Message: "Failed"})

	done := make(chan struct{})
	go func() {
		sink.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bars did not settle")
	}
}

type countingSink struct {
	begins, updates, dones int
}

func (c *countingSink) Begin(string, transfer.Job) Handle { c.begins++; return c }
func (c *countingSink) Progress(transfer.Update)          { c.updates++ }
func (c *countingSink) Done(transfer.Result)              { c.dones++ }

func TestMulti(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	h := Multi(a, Nop, b).Begin("t", testJob)
	h.Progress(transfer.Update{})
	h.Progress(transfer.Update{})
	h.Done(transfer.Result{})

	for _, c := range []*countingSink{a, b} {
		assert.Equal(t, 1, c.begins)
		assert.Equal(t, 2, c.updates)
		assert.Equal(t, 1, c.dones)
	}
}
