// Package transfer runs batches of upload, download, copy and delete jobs
// against an object storage account and reports their progress.
package transfer

import (
	"path/filepath"

	"github.com/3leaps/skybrowse/pkg/vpath"
)

// Kind identifies a job variant.
type Kind string

const (
	KindUpload   Kind = "upload"
	KindDownload Kind = "download"
	KindCopy     Kind = "copy"
	KindDelete   Kind = "delete"
)

// Job is one unit of work on a single object.
//
// The set of variants is closed: Upload, Download, Copy and Delete.
type Job interface {
	// Kind returns the job variant.
	Kind() Kind

	// Name is the display name used in messages.
	Name() string

	// Source describes where the bytes come from.
	Source() string

	// Target describes where the bytes go.
	Target() string

	isJob()
}

// Upload sends a local file to Container/Key.
type Upload struct {
	LocalPath string
	Container string
	Key       string
}

func (Upload) Kind() Kind       { return KindUpload }
func (u Upload) Name() string   { return filepath.Base(u.LocalPath) }
func (u Upload) Source() string { return u.LocalPath }
func (u Upload) Target() string { return objectRef(u.Container, u.Key) }
func (Upload) isJob()           {}

// Download writes Container/Key to LocalPath.
type Download struct {
	Container string
	Key       string
	LocalPath string
}

func (Download) Kind() Kind       { return KindDownload }
func (d Download) Name() string   { return vpath.BaseName(d.Key) }
func (d Download) Source() string { return objectRef(d.Container, d.Key) }
func (d Download) Target() string { return d.LocalPath }
func (Download) isJob()           {}

// Copy duplicates SourceContainer/SourceKey as TargetContainer/TargetKey
// within one storage account.
type Copy struct {
	SourceContainer string
	SourceKey       string
	TargetContainer string
	TargetKey       string
}

func (Copy) Kind() Kind       { return KindCopy }
func (c Copy) Name() string   { return vpath.BaseName(c.SourceKey) }
func (c Copy) Source() string { return objectRef(c.SourceContainer, c.SourceKey) }
func (c Copy) Target() string { return objectRef(c.TargetContainer, c.TargetKey) }
func (Copy) isJob()           {}

// Delete removes Container/Key. A missing object counts as deleted.
type Delete struct {
	Container string
	Key       string
}

func (Delete) Kind() Kind       { return KindDelete }
func (d Delete) Name() string   { return d.Key }
func (d Delete) Source() string { return objectRef(d.Container, d.Key) }
func (Delete) Target() string   { return "" }
func (Delete) isJob()           {}

func objectRef(container, key string) string {
	return container + "/" + key
}
