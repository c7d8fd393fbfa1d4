package listing

import (
	"sort"
	"strings"
	"time"

	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/vpath"
)

// Directory is a virtual directory: a prefix shared by one or more keys.
// It has no stored identity; every listing derives it afresh.
type Directory struct {
	// Container is the owning container.
	Container string

	// Prefix is the full prefix including the trailing separator. It is the
	// directory's identifier.
	Prefix string
}

// ID returns the directory's identifier.
func (d Directory) ID() string { return d.Prefix }

// Name returns the display name ("mydir1/mydir2/" → "mydir2").
func (d Directory) Name() string { return vpath.DirName(d.Prefix) }

// ObjectRecord is a read-through projection of one stored object.
type ObjectRecord struct {
	// ID is the full object key.
	ID string

	// Name is the full object key, as displayed in a listing.
	Name string

	Container    string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// BaseName returns the last component of the key.
func (r ObjectRecord) BaseName() string { return vpath.BaseName(r.Name) }

// PreviewKind classifies how an object can be previewed.
type PreviewKind string

const (
	PreviewNone  PreviewKind = ""
	PreviewImage PreviewKind = "image"
	PreviewAudio PreviewKind = "audio"
	PreviewVideo PreviewKind = "video"
)

// Preview returns the preview kind derived from the content type.
func (r ObjectRecord) Preview() PreviewKind {
	major, _, _ := strings.Cut(strings.ToLower(r.ContentType), "/")
	switch major {
	case "image":
		return PreviewImage
	case "audio":
		return PreviewAudio
	case "video":
		return PreviewVideo
	}
	return PreviewNone
}

// ToOutput converts the record to its JSONL payload.
func (r ObjectRecord) ToOutput() *output.ObjectRecord {
	return &output.ObjectRecord{
		Container:    r.Container,
		Key:          r.ID,
		Size:         r.Size,
		ETag:         r.ETag,
		LastModified: r.LastModified,
		ContentType:  r.ContentType,
	}
}

// ToOutput converts the directory to its JSONL payload.
func (d Directory) ToOutput() *output.DirectoryRecord {
	return &output.DirectoryRecord{Container: d.Container, Prefix: d.Prefix, Name: d.Name()}
}

func newRecord(container string, obj provider.ObjectSummary) ObjectRecord {
	return ObjectRecord{
		ID:           obj.Key,
		Name:         obj.Key,
		Container:    container,
		Size:         obj.Size,
		ContentType:  obj.ContentType,
		LastModified: obj.LastModified,
		ETag:         obj.ETag,
	}
}

// SortBy selects the ordering applied by Sort.
type SortBy string

const (
	SortByName     SortBy = "name"
	SortBySize     SortBy = "size"
	SortByModified SortBy = "modified"
)

// Sort orders records in place. Ties fall back to name order.
func Sort(records []ObjectRecord, by SortBy, descending bool) {
	less := func(a, b ObjectRecord) bool {
		switch by {
		case SortBySize:
			if a.Size != b.Size {
				return a.Size < b.Size
			}
		case SortByModified:
			if !a.LastModified.Equal(b.LastModified) {
				return a.LastModified.Before(b.LastModified)
			}
		}
		return a.Name < b.Name
	}
	sort.SliceStable(records, func(i, j int) bool {
		if descending {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}
