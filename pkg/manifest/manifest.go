// Package manifest loads batch manifests: YAML or JSON files describing a
// set of uploads, downloads, copies and deletes against one container.
package manifest

import (
	"github.com/3leaps/skybrowse/pkg/transfer"
)

// Manifest is a validated batch manifest.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Container is the container every step acts on.
	Container string `json:"container" yaml:"container"`

	Uploads   []UploadStep   `json:"uploads,omitempty" yaml:"uploads,omitempty"`
	Downloads []DownloadStep `json:"downloads,omitempty" yaml:"downloads,omitempty"`
	Copies    []CopyStep     `json:"copies,omitempty" yaml:"copies,omitempty"`
	Deletes   *DeleteStep    `json:"deletes,omitempty" yaml:"deletes,omitempty"`

	// Output configures output destination and format.
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`
}

// UploadStep uploads local files under one prefix. Each entry of Paths may
// itself hold several ';'-separated paths.
type UploadStep struct {
	Paths  []string `json:"paths" yaml:"paths"`
	Prefix string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// DownloadStep downloads objects, and everything under directories, into
// a local target directory.
type DownloadStep struct {
	Keys   []string `json:"keys,omitempty" yaml:"keys,omitempty"`
	Dirs   []string `json:"dirs,omitempty" yaml:"dirs,omitempty"`
	Target string   `json:"target" yaml:"target"`
}

// CopyStep copies one object into another container.
type CopyStep struct {
	Key             string `json:"key" yaml:"key"`
	TargetContainer string `json:"target_container" yaml:"target_container"`

	// TargetPrefix places the copy under a prefix, keeping the base name.
	// Empty keeps the source key.
	TargetPrefix string `json:"target_prefix,omitempty" yaml:"target_prefix,omitempty"`
}

// DeleteStep deletes objects and everything under directories.
type DeleteStep struct {
	Keys []string `json:"keys,omitempty" yaml:"keys,omitempty"`
	Dirs []string `json:"dirs,omitempty" yaml:"dirs,omitempty"`
}

// OutputConfig configures output destination and format.
type OutputConfig struct {
	// Destination is "stdout" or "file:/path/to/output.jsonl".
	// Default: "stdout".
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`

	// Progress enables progress record emission.
	// Default: true.
	Progress *bool `json:"progress,omitempty" yaml:"progress,omitempty"`
}

const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultDestination is the default output destination.
	DefaultDestination = "stdout"

	// DefaultProgress is the default value for progress emission.
	DefaultProgress = true
)

// ApplyDefaults fills in default values for optional fields.
func (m *Manifest) ApplyDefaults() {
	if m.Output.Destination == "" {
		m.Output.Destination = DefaultDestination
	}
	if m.Output.Progress == nil {
		p := DefaultProgress
		m.Output.Progress = &p
	}
}

// ProgressEnabled returns whether progress records should be emitted.
func (o *OutputConfig) ProgressEnabled() bool {
	if o.Progress == nil {
		return DefaultProgress
	}
	return *o.Progress
}

// UploadJobs returns the upload jobs of every upload step.
func (m *Manifest) UploadJobs() ([]transfer.Job, error) {
	var jobs []transfer.Job
	for _, step := range m.Uploads {
		var paths []string
		for _, p := range step.Paths {
			paths = append(paths, transfer.SplitPaths(p)...)
		}
		stepJobs, err := transfer.UploadJobs(paths, m.Container, step.Prefix)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, stepJobs...)
	}
	return jobs, nil
}

// CopyJobs returns the copy jobs of every copy step.
func (m *Manifest) CopyJobs() ([]transfer.Job, error) {
	jobs := make([]transfer.Job, 0, len(m.Copies))
	for _, step := range m.Copies {
		job, err := transfer.CopyJob(m.Container, step.Key, step.TargetContainer, step.TargetPrefix)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
