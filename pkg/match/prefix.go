// Package match filters object records by glob patterns, size and
// modification time.
package match

import "strings"

// IsGlob reports whether pattern contains an unescaped glob metacharacter
// (* ? [ {). Escaped metacharacters (\*, \?, \[, \{) are literals.
//
//	"photos/**/*.png" → true
//	"photos/cat\*.png" → false
func IsGlob(pattern string) bool {
	return firstMeta(pattern) != -1
}

// ListPrefix returns the directory prefix a listing must cover to see every
// key pattern can match: the static part before the first metacharacter,
// truncated to its last separator, with escapes removed.
//
//	"photos/2024/**/*.png" → "photos/2024/"
//	"*.png"                → ""
//	"photos/cat-*.png"     → "photos/"
//	"a\*/*.txt"            → "a*/"
//	"photos/cat.png"       → "photos/"
func ListPrefix(pattern string) string {
	head := pattern
	if i := firstMeta(pattern); i >= 0 {
		head = pattern[:i]
	}
	j := strings.LastIndex(head, "/")
	if j < 0 {
		return ""
	}
	return unescape(head[:j+1])
}

func firstMeta(pattern string) int {
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; {
		case c == '\\' && i+1 < len(pattern):
			i++
		case c == '*' || c == '?' || c == '[' || c == '{':
			return i
		}
	}
	return -1
}

// unescape drops the backslash from escaped glob characters, turning a
// pattern prefix into the literal key prefix.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && strings.IndexByte(`*?[]{}\`, s[i+1]) >= 0 {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
