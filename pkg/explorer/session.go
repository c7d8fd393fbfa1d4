// Package explorer composes listing, selection and transfers into a
// browsing session over one storage account.
//
// A Session holds the active container and virtual path. Navigation clears
// the selection; Refresh re-lists the current view; batch actions read the
// selection, expand selected directories into their objects and hand the
// result to the transfer orchestrator.
package explorer

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/3leaps/skybrowse/pkg/listing"
	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/selection"
	"github.com/3leaps/skybrowse/pkg/transfer"
	"github.com/3leaps/skybrowse/pkg/vpath"
)

// ErrNoContainer is returned by operations that need an active container.
var ErrNoContainer = errors.New("no active container")

// Config configures a Session.
type Config struct {
	Listing  listing.Config
	Transfer transfer.Config
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Listing:  listing.DefaultConfig(),
		Transfer: transfer.DefaultConfig(),
	}
}

// Session is one user's view of a storage account.
type Session struct {
	store  provider.Provider
	cfg    Config
	dirs   *listing.DirectoryIndex
	objs   *listing.ObjectIndex
	view   *listing.View
	sel    *selection.Set
	xfer   *transfer.Orchestrator
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	container string
	path      vpath.Path
}

// NewSession creates a session over store with no active container.
func NewSession(store provider.Provider, cfg Config) *Session {
	dirs := listing.NewDirectoryIndex(store, cfg.Listing)
	objs := listing.NewObjectIndex(store, cfg.Listing)
	return &Session{
		store:  store,
		cfg:    cfg,
		dirs:   dirs,
		objs:   objs,
		view:   listing.NewView(dirs, objs),
		sel:    selection.New(),
		xfer:   transfer.New(store, cfg.Transfer),
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

// WithLogger sets the logger for the session and its components.
func (s *Session) WithLogger(l *zap.Logger) *Session {
	if l != nil {
		s.logger = l
		s.dirs.WithLogger(l)
		s.objs.WithLogger(l)
		s.xfer.WithLogger(l)
	}
	return s
}

// WithWriter sets the writer listing failures are reported to.
func (s *Session) WithWriter(w output.Writer) *Session {
	s.dirs.WithWriter(w)
	s.objs.WithWriter(w)
	return s
}

// WithSink sets the transfer progress sink.
func (s *Session) WithSink(sink transfer.Sink) *Session {
	s.xfer.WithSink(sink)
	return s
}

// WithFs sets the local filesystem for uploads and downloads.
func (s *Session) WithFs(fs afero.Fs) *Session {
	s.xfer.WithFs(fs)
	return s
}

// Container returns the active container, or "".
func (s *Session) Container() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.container
}

// Path returns the current virtual path.
func (s *Session) Path() vpath.Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Selection returns the session's selection.
func (s *Session) Selection() *selection.Set {
	return s.sel
}

func (s *Session) key() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.container == "" {
		return "", "", ErrNoContainer
	}
	return s.container, s.path.Prefix(), nil
}

func (s *Session) containerManager() (provider.ContainerManager, error) {
	cm, ok := s.store.(provider.ContainerManager)
	if !ok {
		return nil, provider.ErrUnsupported
	}
	return cm, nil
}

// Containers lists the account's containers whose name contains filter
// (case-insensitive), sorted by name.
func (s *Session) Containers(ctx context.Context, filter string) ([]provider.ContainerInfo, error) {
	cm, err := s.containerManager()
	if err != nil {
		return nil, err
	}
	all, err := cm.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	filter = strings.ToLower(filter)
	out := make([]provider.ContainerInfo, 0, len(all))
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), filter) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateContainer creates a container.
func (s *Session) CreateContainer(ctx context.Context, name string) error {
	if err := transfer.ValidateContainer(name); err != nil {
		return err
	}
	cm, err := s.containerManager()
	if err != nil {
		return err
	}
	return cm.CreateContainer(ctx, name)
}

// DeleteContainer deletes a container. Deleting the active container
// leaves the session with none.
func (s *Session) DeleteContainer(ctx context.Context, name string) error {
	cm, err := s.containerManager()
	if err != nil {
		return err
	}
	if err := cm.DeleteContainer(ctx, name); err != nil {
		return err
	}
	if s.Container() == name {
		s.SwitchContainer("")
	}
	return nil
}

// SwitchContainer makes name the active container at its root.
func (s *Session) SwitchContainer(name string) {
	s.mu.Lock()
	s.container = name
	s.path = vpath.Root()
	s.mu.Unlock()
	s.sel.Clear()
	s.view.Reset()
}

func (s *Session) navigate(next func(vpath.Path) vpath.Path) vpath.Path {
	s.mu.Lock()
	s.path = next(s.path)
	p := s.path
	s.mu.Unlock()
	s.sel.Clear()
	s.view.Reset()
	return p
}

// ChangeTo navigates to the breadcrumb at index. Index 0 is the root.
func (s *Session) ChangeTo(index int) vpath.Path {
	return s.navigate(func(p vpath.Path) vpath.Path { return p.ChangeTo(index) })
}

// DescendInto navigates to the absolute virtual path literal.
func (s *Session) DescendInto(literal string) vpath.Path {
	return s.navigate(func(vpath.Path) vpath.Path { return vpath.DescendInto(literal) })
}

// Enter navigates into a child directory, given by its full prefix or
// its name relative to the current path.
func (s *Session) Enter(dir string) vpath.Path {
	return s.navigate(func(p vpath.Path) vpath.Path {
		if prefix := p.Prefix(); prefix != "" && strings.HasPrefix(dir, prefix) {
			return vpath.DescendInto(dir)
		}
		return p.Child(dir)
	})
}

// Up navigates to the parent directory.
func (s *Session) Up() vpath.Path {
	return s.navigate(func(p vpath.Path) vpath.Path { return p.Parent() })
}

// Refresh lists the current view. Selection marks whose records are no
// longer listed are dropped. The returned error is the object listing
// failure, if any; directory failures only yield an empty list.
func (s *Session) Refresh(ctx context.Context) (listing.Snapshot, error) {
	container, prefix, err := s.key()
	if err != nil {
		return listing.Snapshot{}, err
	}
	snap, applied := s.view.Refresh(ctx, container, prefix)
	if applied {
		s.sel.Retain(snap.Objects, snap.Directories)
	}
	return snap, snap.Err
}

// Entries returns the last applied listing.
func (s *Session) Entries() listing.Snapshot {
	return s.view.Current()
}

// ToggleObject flips the selection of one object.
func (s *Session) ToggleObject(key string) bool { return s.sel.ToggleObject(key) }

// ToggleDirectory flips the selection of one directory.
func (s *Session) ToggleDirectory(prefix string) bool { return s.sel.ToggleDirectory(prefix) }

// visible returns the objects of the last applied listing, or nothing when
// that listing is not of the current container and path.
func (s *Session) visible() []listing.ObjectRecord {
	container, prefix, err := s.key()
	if err != nil {
		return nil
	}
	snap := s.view.Current()
	if snap.Container != container || snap.Prefix != prefix {
		return nil
	}
	return snap.Objects
}

// ToggleAll toggles every listed object at the current path. With nothing
// listed it changes nothing.
func (s *Session) ToggleAll() bool {
	objs := s.visible()
	if len(objs) == 0 {
		return s.sel.AllSelected()
	}
	return s.sel.ToggleAll(objs)
}

// SelectMatching selects the objects listed at the current path that
// match a glob pattern.
func (s *Session) SelectMatching(pattern string) (int, error) {
	return s.sel.SelectMatching(s.visible(), pattern)
}

// ClearSelection drops every selection mark.
func (s *Session) ClearSelection() { s.sel.Clear() }

// SelectionSummary returns the per-kind counts of the selection.
func (s *Session) SelectionSummary() selection.Counts { return s.sel.Count() }
