package transfer

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxKeyLength is the longest object key accepted by S3 and Azure.
const maxKeyLength = 1024

// ValidationError rejects malformed input before any store call is made.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ValidateKey checks that key can name an object.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return &ValidationError{Field: "key", Value: key, Reason: "must not be empty"}
	case len(key) > maxKeyLength:
		return &ValidationError{Field: "key", Value: key[:32] + "...", Reason: fmt.Sprintf("longer than %d bytes", maxKeyLength)}
	case !utf8.ValidString(key):
		return &ValidationError{Field: "key", Value: key, Reason: "must be valid UTF-8"}
	case strings.ContainsRune(key, 0):
		return &ValidationError{Field: "key", Value: key, Reason: "must not contain NUL"}
	}
	return nil
}

// ValidateContainer checks that name can name a container.
func ValidateContainer(name string) error {
	if name == "" {
		return &ValidationError{Field: "container", Value: name, Reason: "must not be empty"}
	}
	if strings.Contains(name, "/") {
		return &ValidationError{Field: "container", Value: name, Reason: "must not contain '/'"}
	}
	return nil
}

// localTarget joins an object key below dir and rejects keys that would
// escape it.
func localTarget(dir, key string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &ValidationError{Field: "key", Value: key, Reason: "resolves outside the target directory"}
	}
	return target, nil
}

// SizeMismatchError indicates fewer or more bytes arrived than the store
// announced for the object.
type SizeMismatchError struct {
	Key      string
	Expected int64
	Got      int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch for %s: expected=%d got=%d", e.Key, e.Expected, e.Got)
}
