package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/skybrowse/pkg/listing"
)

func records(ids ...string) []listing.ObjectRecord {
	out := make([]listing.ObjectRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, listing.ObjectRecord{ID: id, Name: id})
	}
	return out
}

func TestToggleAll_SelectAllBlobs(t *testing.T) {
	objs := records("a.mp4", "b.png", "c.mp3")
	s := New()

	assert.True(t, s.ToggleAll(objs))
	for _, o := range objs {
		assert.True(t, s.IsObjectSelected(o.ID), o.ID)
	}
	assert.Equal(t, 3, s.Count().Objects)

	assert.False(t, s.ToggleAll(objs))
	for _, o := range objs {
		assert.False(t, s.IsObjectSelected(o.ID), o.ID)
	}
	assert.True(t, s.Count().IsZero())
}

func TestToggleAll_Involution(t *testing.T) {
	objs := records("a", "b", "c", "d")

	s := New()
	s.ToggleAll(objs)
	before := s.Objects()
	s.ToggleAll(objs)
	s.ToggleAll(objs)
	assert.Equal(t, before, s.Objects())

	empty := New()
	empty.ToggleAll(objs)
	empty.ToggleAll(objs)
	assert.Empty(t, empty.Objects())
	assert.False(t, empty.AllSelected())
}

func TestToggleAll_PartialSelectionSelectsRest(t *testing.T) {
	objs := records("a", "b", "c")
	s := New()
	s.SelectObject("b")

	s.ToggleAll(objs)
	assert.Equal(t, []string{"a", "b", "c"}, s.Objects())
}

func TestToggleObject(t *testing.T) {
	s := New()
	assert.True(t, s.ToggleObject("a"))
	assert.False(t, s.ToggleObject("a"))
	assert.True(t, s.ToggleDirectory("dir/"))
	assert.True(t, s.IsDirectorySelected("dir/"))
	s.DeselectDirectory("dir/")
	assert.False(t, s.IsDirectorySelected("dir/"))
}

func TestCounts_String(t *testing.T) {
	tests := []struct {
		counts Counts
		want   string
	}{
		{Counts{Objects: 3}, "3 objects"},
		{Counts{Objects: 1}, "1 object"},
		{Counts{Directories: 2}, "2 directories"},
		{Counts{Objects: 3, Directories: 1}, "3 objects and 1 directory"},
		{Counts{}, "0 objects"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.counts.String())
	}
}

func TestSummary_MixedKinds(t *testing.T) {
	s := New()
	s.SelectObject("a")
	s.SelectObject("b")
	s.SelectDirectory("mydir1/")
	assert.Equal(t, Counts{Objects: 2, Directories: 1}, s.Count())
	assert.Equal(t, "2 objects and 1 directory", s.Summary())
	assert.False(t, s.Count().IsZero())
}

func TestRetain(t *testing.T) {
	s := New()
	s.ToggleAll(records("a", "b"))
	s.SelectDirectory("d1/")
	s.SelectDirectory("d2/")

	s.Retain(records("b", "x"), []listing.Directory{{Prefix: "d2/"}})
	assert.Equal(t, []string{"b"}, s.Objects())
	assert.Equal(t, []string{"d2/"}, s.Directories())
	assert.True(t, s.AllSelected())

	s.Retain(nil, nil)
	assert.True(t, s.Count().IsZero())
	assert.False(t, s.AllSelected())
}

func TestClear(t *testing.T) {
	s := New()
	s.ToggleAll(records("a"))
	s.SelectDirectory("d/")
	s.Clear()
	assert.True(t, s.Count().IsZero())
	assert.False(t, s.AllSelected())
}

func TestSelectMatching(t *testing.T) {
	objs := records("photos/a.png", "photos/2024/b.png", "photos/c.jpg", "notes.txt")
	s := New()

	n, err := s.SelectMatching(objs, "photos/**/*.png")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"photos/2024/b.png", "photos/a.png"}, s.Objects())

	n, err = s.SelectMatching(objs, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.SelectMatching(objs, "photos/[")
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
