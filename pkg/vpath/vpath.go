// Package vpath maps between virtual directory paths and flat key prefixes.
//
// A Path is an ordered list of segments. Index 0 is always the root marker
// "/", which contributes nothing to the prefix. Every other segment is one
// directory level including its trailing separator, e.g. "mydir1/".
//
//	DescendInto("mydir1/mydir2/") → [/ mydir1/ mydir2/], Prefix() "mydir1/mydir2/"
//	ChangeTo(1)                   → [/ mydir1/],          Prefix() "mydir1/"
//
// Path values are immutable; navigation methods return a new Path.
package vpath

import "strings"

// Separator is the virtual directory separator.
const Separator = "/"

// RootName is the name of the root segment.
const RootName = "/"

// Segment is one level of a virtual path.
type Segment struct {
	Name string
}

// Crumb is a breadcrumb entry: the segment's display name and the prefix
// that navigating to it would list.
type Crumb struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}

// Path is a virtual directory path. The zero value is the root.
type Path struct {
	// segs excludes the root marker.
	segs []Segment
}

// Root returns the root path.
func Root() Path {
	return Path{}
}

// DescendInto resets to the root and appends one segment per non-empty
// component of literal, each with its trailing separator restored.
//
// "", "/" and "//" all yield the root.
func DescendInto(literal string) Path {
	var segs []Segment
	for _, part := range strings.Split(literal, Separator) {
		if part == "" {
			continue
		}
		segs = append(segs, Segment{Name: part + Separator})
	}
	return Path{segs: segs}
}

// FromPrefix builds the path whose Prefix is prefix.
func FromPrefix(prefix string) Path {
	return DescendInto(prefix)
}

// Segments returns the full segment list, starting with the root marker.
func (p Path) Segments() []Segment {
	out := make([]Segment, 0, len(p.segs)+1)
	out = append(out, Segment{Name: RootName})
	return append(out, p.segs...)
}

// Len returns the number of segments including the root marker.
func (p Path) Len() int {
	return len(p.segs) + 1
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return len(p.segs) == 0
}

// Prefix concatenates every segment after the root, without adding separators.
func (p Path) Prefix() string {
	var b strings.Builder
	for _, s := range p.segs {
		b.WriteString(s.Name)
	}
	return b.String()
}

// String returns the path in display form, e.g. "/mydir1/mydir2/".
func (p Path) String() string {
	return RootName + p.Prefix()
}

// ChangeTo truncates the path after index (inclusive breadcrumb navigation).
// An index outside the segment list returns p unchanged.
func (p Path) ChangeTo(index int) Path {
	if index < 0 || index >= p.Len() {
		return p
	}
	return Path{segs: append([]Segment(nil), p.segs[:index]...)}
}

// ChangeToName truncates the path after the last segment named name.
// A name not present returns p unchanged.
func (p Path) ChangeToName(name string) Path {
	segs := p.Segments()
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i].Name == name {
			return p.ChangeTo(i)
		}
	}
	return p
}

// Child appends the components of rel below p.
func (p Path) Child(rel string) Path {
	next := DescendInto(rel)
	return Path{segs: append(append([]Segment(nil), p.segs...), next.segs...)}
}

// Parent returns the path one level up. The root is its own parent.
func (p Path) Parent() Path {
	if p.IsRoot() {
		return p
	}
	return p.ChangeTo(len(p.segs) - 1)
}

// Breadcrumbs returns one crumb per segment, root first.
func (p Path) Breadcrumbs() []Crumb {
	crumbs := make([]Crumb, 0, p.Len())
	crumbs = append(crumbs, Crumb{Index: 0, Name: RootName})
	prefix := ""
	for i, s := range p.segs {
		prefix += s.Name
		crumbs = append(crumbs, Crumb{Index: i + 1, Name: strings.TrimSuffix(s.Name, Separator), Prefix: prefix})
	}
	return crumbs
}

// DirName returns the display name of a directory prefix: its last segment
// without the trailing separator ("a/b/" → "b").
func DirName(prefix string) string {
	trimmed := strings.TrimSuffix(prefix, Separator)
	if i := strings.LastIndex(trimmed, Separator); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// BaseName returns the last component of an object key or local path,
// accepting both "/" and "\" as separators.
func BaseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
