// Package selection tracks which listing entries are marked for a batch action.
//
// Selection is kept apart from the listing records so that navigation can
// drop it in one call instead of touching every record.
package selection

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/3leaps/skybrowse/pkg/listing"
)

// ErrInvalidPattern is returned by SelectMatching for a malformed glob.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// Counts holds independent per-kind selection counts.
type Counts struct {
	Objects     int
	Directories int
}

// IsZero reports whether nothing is selected. A batch action over an empty
// selection is a no-op.
func (c Counts) IsZero() bool {
	return c.Objects == 0 && c.Directories == 0
}

// String composes the human-readable batch summary, for example
// "3 objects and 1 directory".
func (c Counts) String() string {
	objs := plural(c.Objects, "object", "objects")
	dirs := plural(c.Directories, "directory", "directories")
	switch {
	case c.Objects > 0 && c.Directories > 0:
		return objs + " and " + dirs
	case c.Directories > 0:
		return dirs
	default:
		return objs
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

// Set is a per-session selection keyed by record identifier: object keys
// for objects and full prefixes for directories.
//
// Set is safe for concurrent use.
type Set struct {
	mu          sync.Mutex
	objects     map[string]struct{}
	dirs        map[string]struct{}
	allSelected bool
}

// New returns an empty selection.
func New() *Set {
	return &Set{
		objects: make(map[string]struct{}),
		dirs:    make(map[string]struct{}),
	}
}

// SelectObject marks the object with the given key.
func (s *Set) SelectObject(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = struct{}{}
}

// DeselectObject unmarks the object with the given key.
func (s *Set) DeselectObject(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, id)
}

// ToggleObject flips the object's mark and returns the new state.
func (s *Set) ToggleObject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toggle(s.objects, id)
}

// SelectDirectory marks the directory with the given prefix.
func (s *Set) SelectDirectory(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[prefix] = struct{}{}
}

// DeselectDirectory unmarks the directory with the given prefix.
func (s *Set) DeselectDirectory(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dirs, prefix)
}

// ToggleDirectory flips the directory's mark and returns the new state.
func (s *Set) ToggleDirectory(prefix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toggle(s.dirs, prefix)
}

func toggle(m map[string]struct{}, id string) bool {
	if _, ok := m[id]; ok {
		delete(m, id)
		return false
	}
	m[id] = struct{}{}
	return true
}

// IsObjectSelected reports whether the object is marked.
func (s *Set) IsObjectSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[id]
	return ok
}

// IsDirectorySelected reports whether the directory is marked.
func (s *Set) IsDirectorySelected(prefix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirs[prefix]
	return ok
}

// ToggleAll marks every given object when the all-selected flag is clear,
// and unmarks them when it is set. The flag is then flipped and returned.
//
// This is a toggle, not an idempotent "select all": a second call undoes
// the first.
func (s *Set) ToggleAll(objects []listing.ObjectRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range objects {
		if s.allSelected {
			delete(s.objects, o.ID)
		} else {
			s.objects[o.ID] = struct{}{}
		}
	}
	s.allSelected = !s.allSelected
	return s.allSelected
}

// AllSelected returns the all-selected summary flag.
func (s *Set) AllSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allSelected
}

// SelectMatching marks every object whose key matches the doublestar
// pattern and returns how many matched.
func (s *Set) SelectMatching(objects []listing.ObjectRecord, pattern string) (int, error) {
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, o := range objects {
		if ok, _ := doublestar.Match(pattern, o.ID); ok {
			s.objects[o.ID] = struct{}{}
			n++
		}
	}
	return n, nil
}

// Count returns the per-kind selection counts.
func (s *Set) Count() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{Objects: len(s.objects), Directories: len(s.dirs)}
}

// Summary returns the human-readable batch summary.
func (s *Set) Summary() string {
	return s.Count().String()
}

// Objects returns the selected object keys, sorted.
func (s *Set) Objects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.objects)
}

// Directories returns the selected directory prefixes, sorted.
func (s *Set) Directories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.dirs)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Retain drops every mark whose record is no longer visible. When no
// object remains marked the all-selected flag is cleared.
func (s *Set) Retain(objects []listing.ObjectRecord, dirs []listing.Directory) {
	visibleObjs := make(map[string]struct{}, len(objects))
	for _, o := range objects {
		visibleObjs[o.ID] = struct{}{}
	}
	visibleDirs := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		visibleDirs[d.ID()] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.objects {
		if _, ok := visibleObjs[id]; !ok {
			delete(s.objects, id)
		}
	}
	for id := range s.dirs {
		if _, ok := visibleDirs[id]; !ok {
			delete(s.dirs, id)
		}
	}
	if len(s.objects) == 0 {
		s.allSelected = false
	}
}

// Clear drops every mark and the all-selected flag.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.objects)
	clear(s.dirs)
	s.allSelected = false
}
