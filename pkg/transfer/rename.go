package transfer

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// KeyTemplate maps a source key to a target key. Placeholders:
//
//	{key}     the whole key
//	{name}    the base name, e.g. "cat.png"
//	{stem}    the base name without extension, e.g. "cat"
//	{ext}     the extension including the dot, e.g. ".png"
//	{dir[n]}  the nth directory segment, 0-based
//
// Everything else is copied literally.
type KeyTemplate struct {
	raw   string
	parts []func(dirs []string, name string) (string, error)
}

// ParseKeyTemplate compiles tpl. An empty template maps every key to
// itself.
func ParseKeyTemplate(tpl string) (*KeyTemplate, error) {
	t := &KeyTemplate{raw: tpl}
	if tpl == "" {
		tpl = "{key}"
	}
	for rest := tpl; rest != ""; {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			t.parts = append(t.parts, literal(rest))
			break
		}
		if open > 0 {
			t.parts = append(t.parts, literal(rest[:open]))
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, &ValidationError{Field: "rename", Value: tpl, Reason: "unclosed placeholder"}
		}
		part, err := placeholder(rest[open+1 : open+end])
		if err != nil {
			return nil, &ValidationError{Field: "rename", Value: tpl, Reason: err.Error()}
		}
		t.parts = append(t.parts, part)
		rest = rest[open+end+1:]
	}
	return t, nil
}

func literal(s string) func([]string, string) (string, error) {
	return func([]string, string) (string, error) { return s, nil }
}

func placeholder(name string) (func([]string, string) (string, error), error) {
	switch name {
	case "key":
		return func(dirs []string, base string) (string, error) {
			return strings.Join(append(append([]string(nil), dirs...), base), "/"), nil
		}, nil
	case "name":
		return func(_ []string, base string) (string, error) { return base, nil }, nil
	case "ext":
		return func(_ []string, base string) (string, error) { return path.Ext(base), nil }, nil
	case "stem":
		return func(_ []string, base string) (string, error) {
			return strings.TrimSuffix(base, path.Ext(base)), nil
		}, nil
	}

	idx, ok := strings.CutPrefix(name, "dir[")
	if !ok || !strings.HasSuffix(idx, "]") {
		return nil, fmt.Errorf("unknown placeholder {%s}", name)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(idx, "]"))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("bad directory index in {%s}", name)
	}
	return func(dirs []string, _ string) (string, error) {
		if n >= len(dirs) {
			return "", fmt.Errorf("no directory %d in key", n)
		}
		return dirs[n], nil
	}, nil
}

// String returns the template as written.
func (t *KeyTemplate) String() string { return t.raw }

// Apply renders the target key for key. Doubled separators collapse and a
// leading separator is dropped.
func (t *KeyTemplate) Apply(key string) (string, error) {
	segs := strings.Split(key, "/")
	dirs, base := segs[:len(segs)-1], segs[len(segs)-1]

	var b strings.Builder
	for _, part := range t.parts {
		s, err := part(dirs, base)
		if err != nil {
			return "", &ValidationError{Field: "rename", Value: key, Reason: err.Error()}
		}
		b.WriteString(s)
	}
	out := b.String()
	for strings.Contains(out, "//") {
		out = strings.ReplaceAll(out, "//", "/")
	}
	out = strings.TrimPrefix(out, "/")
	if err := ValidateKey(out); err != nil {
		return "", err
	}
	return out, nil
}

// RenamedCopyJob builds a Copy of key into targetContainer at
// targetPrefix followed by tpl applied to rel, the key relative to the
// source directory.
func RenamedCopyJob(sourceContainer, key, rel, targetContainer, targetPrefix string, tpl *KeyTemplate) (Job, error) {
	if err := ValidateContainer(targetContainer); err != nil {
		return nil, err
	}
	renamed, err := tpl.Apply(rel)
	if err != nil {
		return nil, err
	}
	targetKey := targetPrefix + renamed
	if err := ValidateKey(targetKey); err != nil {
		return nil, err
	}
	return Copy{SourceContainer: sourceContainer, SourceKey: key, TargetContainer: targetContainer, TargetKey: targetKey}, nil
}
