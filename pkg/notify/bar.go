package notify

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/3leaps/skybrowse/pkg/transfer"
)

// BarSink draws one progress bar per job on a terminal. When the output is
// not a terminal it prints one line per settled job instead.
type BarSink struct {
	progress *mpb.Progress
	tty      bool

	mu  sync.Mutex // guards out
	out io.Writer
}

// NewBarSink creates a bar sink on f, detecting whether f is a terminal.
func NewBarSink(f *os.File) *BarSink {
	return newBarSink(f, term.IsTerminal(int(f.Fd())))
}

func newBarSink(out io.Writer, tty bool) *BarSink {
	s := &BarSink{out: out, tty: tty}
	if tty {
		s.progress = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(150*time.Millisecond),
			mpb.WithWidth(64),
		)
	}
	return s
}

// IsTerminal reports whether bars are drawn.
func (s *BarSink) IsTerminal() bool { return s.tty }

// Begin implements Sink.
func (s *BarSink) Begin(id string, job transfer.Job) Handle {
	h := &barHandle{sink: s, job: job}
	h.label.Store(transfer.ProgressMessage(job, transfer.Progress{}))
	if s.tty {
		h.bar = s.progress.New(0,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Any(func(decor.Statistics) string { return h.label.Load().(string) }, decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(decor.Percentage(decor.WCSyncSpace)),
			mpb.BarRemoveOnComplete(),
		)
	}
	return h
}

// Wait blocks until every bar has finished rendering.
func (s *BarSink) Wait() {
	if s.progress != nil {
		s.progress.Wait()
	}
}

type barHandle struct {
	sink  *BarSink
	job   transfer.Job
	bar   *mpb.Bar
	label atomic.Value // string
	total int64
}

func (h *barHandle) Progress(u transfer.Update) {
	h.label.Store(u.Message)
	if h.bar == nil {
		return
	}
	if t := u.Progress.BytesTotal; t > 0 && t != h.total {
		h.total = t
		h.bar.SetTotal(t, false)
	}
	h.bar.SetCurrent(u.Progress.BytesDone)
}

func (h *barHandle) Done(r transfer.Result) {
	mark := "✓"
	if r.Err != nil {
		mark = "✗"
	}
	line := fmt.Sprintf("%s %s\n", mark, r.Message)

	if h.bar == nil {
		h.sink.writeLine(line)
		return
	}
	if r.Err != nil {
		h.bar.Abort(true)
	} else {
		h.bar.SetTotal(-1, true)
	}
	_, _ = h.sink.progress.Write([]byte(line))
}

func (s *BarSink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, line)
}
