package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

// JSONLSink writes progress and transfer records to an output.Writer.
type JSONLSink struct {
	ctx    context.Context
	w      output.Writer
	logger *zap.Logger
}

// NewJSONLSink creates a sink writing to w. Writes use ctx.
func NewJSONLSink(ctx context.Context, w output.Writer) *JSONLSink {
	return &JSONLSink{ctx: ctx, w: w, logger: zap.NewNop()}
}

// WithLogger sets the logger write failures are reported to.
func (s *JSONLSink) WithLogger(l *zap.Logger) *JSONLSink {
	if l != nil {
		s.logger = l
	}
	return s
}

// Begin implements Sink.
func (s *JSONLSink) Begin(id string, job transfer.Job) Handle {
	return &jsonlHandle{sink: s}
}

type jsonlHandle struct {
	sink *JSONLSink
}

func (h *jsonlHandle) Progress(u transfer.Update) {
	err := h.sink.w.WriteProgress(h.sink.ctx, &output.ProgressRecord{
		TransferID:     u.TransferID,
		Kind:           string(u.Job.Kind()),
		Name:           u.Job.Name(),
		Percent:        u.Progress.Percent,
		BytesDone:      u.Progress.BytesDone,
		BytesTotal:     u.Progress.BytesTotal,
		BytesPerSecond: u.Progress.BytesPerSecond,
		Message:        u.Message,
	})
	if err != nil {
		h.sink.logger.Debug("Failed to write progress record", zap.Error(err))
	}
}

func (h *jsonlHandle) Done(r transfer.Result) {
	if err := h.sink.w.WriteTransfer(h.sink.ctx, r.ToOutput()); err != nil {
		h.sink.logger.Warn("Failed to write transfer record",
			zap.String("transfer_id", r.TransferID),
			zap.Error(err),
		)
	}
}
