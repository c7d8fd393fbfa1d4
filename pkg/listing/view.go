package listing

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Snapshot is the listing for one (container, prefix) view key.
type Snapshot struct {
	Container   string
	Prefix      string
	Directories []Directory
	Objects     []ObjectRecord

	// Err is the object listing failure, if any. Objects is empty when set.
	Err error

	// Seq is the request sequence number that produced the snapshot.
	Seq uint64
}

// View owns the listing state for the current view key.
//
// Refresh may be called concurrently; only the most recently issued request
// may overwrite the state. A slower, older response is discarded.
type View struct {
	dirs *DirectoryIndex
	objs *ObjectIndex

	mu      sync.Mutex
	issued  uint64
	current Snapshot
}

// NewView creates a view over the two indexes.
func NewView(dirs *DirectoryIndex, objs *ObjectIndex) *View {
	return &View{dirs: dirs, objs: objs}
}

// Refresh lists container at prefix, querying both indexes in parallel.
//
// It returns the snapshot produced by this request and whether it was
// applied. A snapshot is not applied when a newer Refresh was issued while
// this one was in flight.
func (v *View) Refresh(ctx context.Context, container, prefix string) (Snapshot, bool) {
	v.mu.Lock()
	v.issued++
	seq := v.issued
	v.mu.Unlock()

	snap := Snapshot{Container: container, Prefix: prefix, Seq: seq}

	var g errgroup.Group
	g.Go(func() error {
		snap.Directories = v.dirs.List(ctx, container, prefix)
		return nil
	})
	g.Go(func() error {
		objs, err := v.objs.List(ctx, container, prefix)
		if err != nil {
			v.objs.report(ctx, "ListObjects", container, prefix, err)
			snap.Objects = []ObjectRecord{}
			return err
		}
		snap.Objects = objs
		return nil
	})
	snap.Err = g.Wait()

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.issued {
		return snap, false
	}
	v.current = snap
	return snap, true
}

// Current returns the last applied snapshot.
func (v *View) Current() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Reset discards the current snapshot and invalidates in-flight refreshes.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.issued++
	v.current = Snapshot{}
}
