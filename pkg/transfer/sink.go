package transfer

import "time"

// Update is one progress notification for an in-flight job.
type Update struct {
	TransferID string
	Job        Job
	Progress   Progress
	Message    string
}

// Result is the settlement of one job.
type Result struct {
	TransferID string
	Job        Job
	State      State
	Bytes      int64
	Err        error
	Duration   time.Duration
	Message    string
}

// Sink renders job progress. Begin is called once when a job enters
// InFlight.
type Sink interface {
	Begin(transferID string, job Job) Handle
}

// Handle receives the progress stream of one job.
//
// Done is the teardown hook: it is called exactly once, after the last
// Progress call for the job has returned.
type Handle interface {
	Progress(Update)
	Done(Result)
}

type nopSink struct{}

func (nopSink) Begin(string, Job) Handle { return nopHandle{} }

type nopHandle struct{}

func (nopHandle) Progress(Update) {}
func (nopHandle) Done(Result)     {}
