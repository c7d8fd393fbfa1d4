package match

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/skybrowse/pkg/listing"
)

func rec(key string, size int64, modified string) listing.ObjectRecord {
	t, _ := time.Parse(time.DateOnly, modified)
	return listing.ObjectRecord{ID: key, Name: key, Container: "media", Size: size, LastModified: t}
}

func TestIsGlob(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"photos/**/*.png", true},
		{"photos/cat?.png", true},
		{"photos/[ab].png", true},
		{"photos/{a,b}.png", true},
		{"photos/cat.png", false},
		{`photos/cat\*.png`, false},
		{`photos/\[draft\].png`, false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGlob(tt.pattern))
		})
	}
}

func TestListPrefix(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"photos/2024/**/*.png", "photos/2024/"},
		{"*.png", ""},
		{"**", ""},
		{"photos/cat-*.png", "photos/"},
		{"photos/{a,b}/x.png", "photos/"},
		{`a\*/*.txt`, "a*/"},
		{`data/\[backup\]/*.log`, "data/[backup]/"},
		{"photos/cat.png", "photos/"},
		{"photos/", "photos/"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, ListPrefix(tt.pattern))
		})
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "bad include", cfg: Config{Includes: []string{"photos/[a"}}, want: ErrInvalidPattern},
		{name: "bad exclude", cfg: Config{Excludes: []string{"{a"}}, want: ErrInvalidPattern},
		{name: "bad min size", cfg: Config{MinSize: "lots"}, want: ErrInvalidSize},
		{name: "min above max", cfg: Config{MinSize: "2KB", MaxSize: "1KB"}, want: ErrInvalidSize},
		{name: "bad date", cfg: Config{After: "yesterday"}, want: ErrInvalidDate},
		{name: "empty range", cfg: Config{After: "2024-02-01", Before: "2024-01-01"}, want: ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	recs := []listing.ObjectRecord{
		rec("photos/cat.png", 4_000, "2024-01-10"),
		rec("photos/dog.png", 40_000, "2024-02-10"),
		rec("photos/2024/ox.png", 400_000, "2024-03-10"),
		rec("photos/.thumbs/cat.png", 100, "2024-01-10"),
		rec("readme.txt", 10, "2023-12-31"),
	}
	keys := func(rs []listing.ObjectRecord) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "no constraints skips hidden",
			cfg:  Config{},
			want: []string{"photos/cat.png", "photos/dog.png", "photos/2024/ox.png", "readme.txt"},
		},
		{
			name: "include hidden",
			cfg:  Config{Includes: []string{"photos/**/cat.png"}, IncludeHidden: true},
			want: []string{"photos/cat.png", "photos/.thumbs/cat.png"},
		},
		{
			name: "include and exclude",
			cfg:  Config{Includes: []string{"**/*.png"}, Excludes: []string{"photos/2024/**"}},
			want: []string{"photos/cat.png", "photos/dog.png"},
		},
		{
			name: "size range",
			cfg:  Config{MinSize: "10KB", MaxSize: "100KB"},
			want: []string{"photos/dog.png"},
		},
		{
			name: "date range",
			cfg:  Config{After: "2024-01-01", Before: "2024-03-01"},
			want: []string{"photos/cat.png", "photos/dog.png"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys(m.Filter(recs)))
		})
	}
}

func TestMatcher_FilterDropsFolderMarkers(t *testing.T) {
	m, err := New(Config{})
	require.NoError(t, err)
	out := m.Filter([]listing.ObjectRecord{rec("photos/", 0, "2024-01-01"), rec("photos/a.png", 1, "2024-01-01")})
	require.Len(t, out, 1)
	assert.Equal(t, "photos/a.png", out[0].ID)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden(".env"))
	assert.True(t, IsHidden("a/.git/config"))
	assert.False(t, IsHidden("a/b.txt"))
	assert.False(t, IsHidden("a/./b.txt"))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-01-15T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), d)

	_, err = ParseDate("15/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
