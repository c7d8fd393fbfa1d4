// Package notify renders transfer progress: as JSONL records, as terminal
// progress bars, or not at all.
package notify

import "github.com/3leaps/skybrowse/pkg/transfer"

// Sink receives one Handle per job entering InFlight.
type Sink = transfer.Sink

// Handle receives a job's progress updates and, once, its settlement.
type Handle = transfer.Handle

// Nop discards everything.
var Nop Sink = nopSink{}

type nopSink struct{}

func (nopSink) Begin(string, transfer.Job) Handle { return nopHandle{} }

type nopHandle struct{}

func (nopHandle) Progress(transfer.Update) {}
func (nopHandle) Done(transfer.Result)     {}

// Multi fans every call out to each of sinks, in order.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) Begin(id string, job transfer.Job) Handle {
	handles := make(multiHandle, 0, len(m))
	for _, s := range m {
		handles = append(handles, s.Begin(id, job))
	}
	return handles
}

type multiHandle []Handle

func (m multiHandle) Progress(u transfer.Update) {
	for _, h := range m {
		h.Progress(u)
	}
}

func (m multiHandle) Done(r transfer.Result) {
	for _, h := range m {
		h.Done(r)
	}
}
