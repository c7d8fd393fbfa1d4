package transfer

import (
	"path/filepath"
	"strings"

	"github.com/3leaps/skybrowse/pkg/vpath"
)

// PathListSeparator separates local paths in a multi-file selection.
const PathListSeparator = ";"

// SplitPaths decomposes a separator-joined list of local paths. Empty
// entries are dropped.
func SplitPaths(list string) []string {
	var paths []string
	for _, p := range strings.Split(list, PathListSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// UploadJobs builds one Upload per local path, all sharing destPrefix.
// The key is destPrefix followed by the file's base name. Every key is
// validated before any job is returned.
func UploadJobs(paths []string, container, destPrefix string) ([]Job, error) {
	if err := ValidateContainer(container); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &ValidationError{Field: "paths", Reason: "no local paths given"}
	}
	jobs := make([]Job, 0, len(paths))
	for _, p := range paths {
		key := destPrefix + vpath.BaseName(p)
		if err := ValidateKey(key); err != nil {
			return nil, err
		}
		jobs = append(jobs, Upload{LocalPath: p, Container: container, Key: key})
	}
	return jobs, nil
}

// DownloadJob builds a Download of key into dir, recreating the key's
// directory structure. In save-as mode dir is taken as the exact target
// path instead.
func DownloadJob(container, key, dir string, saveAs bool) (Job, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if saveAs {
		return Download{Container: container, Key: key, LocalPath: filepath.Clean(dir)}, nil
	}
	target, err := localTarget(dir, key)
	if err != nil {
		return nil, err
	}
	return Download{Container: container, Key: key, LocalPath: target}, nil
}

// CopyJob builds a Copy of key into targetContainer under targetPrefix.
func CopyJob(sourceContainer, key, targetContainer, targetPrefix string) (Job, error) {
	if err := ValidateContainer(targetContainer); err != nil {
		return nil, err
	}
	targetKey := targetPrefix + vpath.BaseName(key)
	if targetPrefix == "" {
		targetKey = key
	}
	if err := ValidateKey(targetKey); err != nil {
		return nil, err
	}
	return Copy{SourceContainer: sourceContainer, SourceKey: key, TargetContainer: targetContainer, TargetKey: targetKey}, nil
}

// DeleteJobs builds one Delete per key.
func DeleteJobs(container string, keys []string) []Job {
	jobs := make([]Job, 0, len(keys))
	for _, k := range keys {
		jobs = append(jobs, Delete{Container: container, Key: k})
	}
	return jobs
}
