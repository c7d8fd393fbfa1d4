package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/3leaps/skybrowse/pkg/match"
	"github.com/3leaps/skybrowse/pkg/vpath"
)

// Location parsing errors.
var (
	// ErrInvalidLocation indicates the location could not be parsed.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrMissingContainer indicates the location has no container name.
	ErrMissingContainer = errors.New("missing container name")
)

// Location is a parsed container location.
//
// Example locations:
//   - media
//   - media/photos/
//   - media/photos/cat.png
//   - media:/photos/cat.png
//   - media/photos/*.png
type Location struct {
	Container string

	// Key is the object key or directory prefix. Empty for the container root.
	Key string

	// Pattern is set when the key contains glob characters. Key is then the
	// directory prefix before the first glob character.
	Pattern string
}

// String returns the location in canonical container/key form.
func (l Location) String() string {
	if l.Pattern != "" {
		return l.Container + "/" + l.Pattern
	}
	return l.Container + "/" + l.Key
}

// IsDir reports whether the location names a virtual directory.
func (l Location) IsDir() bool {
	return l.Pattern == "" && (l.Key == "" || strings.HasSuffix(l.Key, vpath.Separator))
}

// IsPattern reports whether the location is a glob.
func (l Location) IsPattern() bool {
	return l.Pattern != ""
}

// ParseLocation parses container/key or container:/key.
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Location{}, fmt.Errorf("%w: empty location", ErrInvalidLocation)
	}
	if strings.Contains(s, "://") {
		return Location{}, fmt.Errorf("%w: %q (expected container/key, not a URL)", ErrInvalidLocation, s)
	}

	var container, key string
	if i := strings.IndexAny(s, ":/"); i >= 0 {
		container = s[:i]
		key = s[i+1:]
		if s[i] == ':' {
			key = strings.TrimPrefix(key, vpath.Separator)
		}
	} else {
		container = s
	}
	if container == "" {
		return Location{}, fmt.Errorf("%w: in %q", ErrMissingContainer, s)
	}

	loc := Location{Container: container, Key: key}
	if match.IsGlob(key) {
		if !doublestar.ValidatePattern(key) {
			return Location{}, fmt.Errorf("%w: bad pattern %q", ErrInvalidLocation, key)
		}
		loc.Pattern = key
		loc.Key = match.ListPrefix(key)
	}
	return loc, nil
}
