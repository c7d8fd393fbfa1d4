package explorer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/skybrowse/pkg/listing"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/provider/file"
)

type fixture struct {
	session *Session
	store   *file.Provider
	local   afero.Fs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := afero.NewMemMapFs()
	files := map[string]string{
		"testcontainer/a.mp4":      "video",
		"testcontainer/b.png":      "image",
		"testcontainer/dir1/c.mp3": "audio",
		"testcontainer/dir1/d.txt": "text",
		"archive/old.txt":          "old",
	}
	for name, content := range files {
		require.NoError(t, afero.WriteFile(mem, "/store/"+name, []byte(content), 0o644))
	}
	store, err := file.New(file.Config{BaseDir: "/store", Fs: mem})
	require.NoError(t, err)

	local := afero.NewMemMapFs()
	s := NewSession(store, DefaultConfig()).WithFs(local)
	return &fixture{session: s, store: store, local: local}
}

func keys(recs []listing.ObjectRecord) []string {
	out := []string{}
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func prefixes(dirs []listing.Directory) []string {
	out := []string{}
	for _, d := range dirs {
		out = append(out, d.Prefix)
	}
	return out
}

func TestSession_RequiresContainer(t *testing.T) {
	f := newFixture(t)
	_, err := f.session.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoContainer)
	_, err = f.session.Link(context.Background(), "a.mp4")
	assert.ErrorIs(t, err, ErrNoContainer)
}

func TestSession_Containers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.session.Containers(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "archive", all[0].Name)

	filtered, err := f.session.Containers(ctx, "TEST")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "testcontainer", filtered[0].Name)

	require.NoError(t, f.session.CreateContainer(ctx, "fresh"))
	all, err = f.session.Containers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	f.session.SwitchContainer("fresh")
	require.NoError(t, f.session.DeleteContainer(ctx, "fresh"))
	assert.Equal(t, "", f.session.Container())

	assert.Error(t, f.session.CreateContainer(ctx, "bad/name"))
}

func TestSession_NavigateAndRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.session.SwitchContainer("testcontainer")

	snap, err := f.session.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4", "b.png"}, keys(snap.Objects))
	assert.Equal(t, []string{"dir1/"}, prefixes(snap.Directories))

	f.session.ToggleObject("a.mp4")
	p := f.session.Enter("dir1/")
	assert.Equal(t, "dir1/", p.Prefix())
	assert.True(t, f.session.SelectionSummary().IsZero(), "navigation clears selection")

	snap, err = f.session.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dir1/c.mp3", "dir1/d.txt"}, keys(snap.Objects))
	assert.Empty(t, snap.Directories)
	assert.Equal(t, snap.Objects, f.session.Entries().Objects)

	assert.True(t, f.session.Up().IsRoot())
	f.session.DescendInto("/dir1/")
	assert.Equal(t, "dir1/", f.session.Path().Prefix())
	assert.True(t, f.session.ChangeTo(0).IsRoot())
}

func TestSession_RefreshRetainsVisibleSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.session.SwitchContainer("testcontainer")
	_, err := f.session.Refresh(ctx)
	require.NoError(t, err)

	f.session.ToggleObject("a.mp4")
	f.session.ToggleObject("gone.bin")
	f.session.ToggleDirectory("dir1/")

	_, err = f.session.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp4"}, f.session.Selection().Objects())
	assert.Equal(t, []string{"dir1/"}, f.session.Selection().Directories())
}

func TestSession_ToggleAllAndMatching(t *testing.T) {
	f := newFixture(t)
	f.session.SwitchContainer("testcontainer")
	_, err := f.session.Refresh(context.Background())
	require.NoError(t, err)

	assert.True(t, f.session.ToggleAll())
	assert.Equal(t, 2, f.session.SelectionSummary().Objects)
	assert.False(t, f.session.ToggleAll())
	assert.Equal(t, 0, f.session.SelectionSummary().Objects)

	n, err := f.session.SelectMatching("*.png")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	f.session.ClearSelection()
	assert.True(t, f.session.SelectionSummary().IsZero())
}

func TestSession_NavigateDropsPreviousListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.session.SwitchContainer("testcontainer")
	_, err := f.session.Refresh(ctx)
	require.NoError(t, err)

	f.session.Enter("dir1/")
	assert.Empty(t, f.session.Entries().Objects)

	assert.False(t, f.session.ToggleAll())
	assert.Empty(t, f.session.Selection().Objects(), "root objects are not visible in dir1/")
	n, err := f.session.SelectMatching("*")
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := f.session.DeleteSelected(ctx)
	require.NoError(t, err)
	assert.Nil(t, res)
	_, err = f.store.Head(ctx, "testcontainer", "a.mp4")
	require.NoError(t, err)

	_, err = f.session.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, f.session.ToggleAll())
	assert.Equal(t, []string{"dir1/c.mp3", "dir1/d.txt"}, f.session.Selection().Objects())
}

func TestSession_DeleteSelected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.session.SwitchContainer("testcontainer")

	res, err := f.session.DeleteSelected(ctx)
	require.NoError(t, err)
	assert.Nil(t, res, "empty selection is a no-op")

	f.session.ToggleObject("a.mp4")
	f.session.ToggleObject("dir1/c.mp3")
	f.session.ToggleDirectory("dir1/")

	res, err = f.session.DeleteSelected(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Results, 3, "directory contents are deduplicated against direct picks")
	assert.Equal(t, 3, res.Succeeded())
	assert.True(t, f.session.SelectionSummary().IsZero())

	list, err := f.store.List(ctx, provider.ListOptions{Container: "testcontainer"})
	require.NoError(t, err)
	require.Len(t, list.Objects, 1)
	assert.Equal(t, "b.png", list.Objects[0].Key)
}

func TestSession_DownloadSelected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.session.SwitchContainer("testcontainer")
	f.session.ToggleObject("a.mp4")
	f.session.ToggleDirectory("dir1/")

	res, err := f.session.DownloadSelected(ctx, "/out")
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, 3, res.Succeeded())

	for path, want := range map[string]string{
		"/out/a.mp4":      "video",
		"/out/dir1/c.mp3": "audio",
		"/out/dir1/d.txt": "text",
	} {
		data, err := afero.ReadFile(f.local, path)
		require.NoError(t, err, path)
		assert.Equal(t, want, string(data))
	}
}

func TestSession_Download_SaveAs(t *testing.T) {
	f := newFixture(t)
	f.session.SwitchContainer("testcontainer")

	res, err := f.session.Download(context.Background(), "dir1/c.mp3", "/tmp/song.mp3", true)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	data, err := afero.ReadFile(f.local, "/tmp/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
}

func TestSession_UploadIntoCurrentDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(f.local, "/in/x.txt", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(f.local, "/in/y.txt", []byte("yy"), 0o644))

	f.session.SwitchContainer("testcontainer")
	f.session.Enter("dir1/")
	res, err := f.session.Upload(ctx, "/in/x.txt;/in/y.txt", "")
	require.NoError(t, err)
	require.NoError(t, res.Err())

	snap, err := f.session.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dir1/c.mp3", "dir1/d.txt", "dir1/x.txt", "dir1/y.txt"}, keys(snap.Objects))

	_, err = f.session.Upload(ctx, "", "")
	assert.Error(t, err)
}

func TestSession_CopyAndLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.session.SwitchContainer("testcontainer")
	f.session.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	res, err := f.session.Copy(ctx, "dir1/c.mp3", "archive")
	require.NoError(t, err)
	require.NoError(t, res.Err())
	_, err = f.store.Head(ctx, "archive", "dir1/c.mp3")
	assert.NoError(t, err)

	res, err = f.session.CopyTo(ctx, "dir1/c.mp3", "archive", "music/")
	require.NoError(t, err)
	require.NoError(t, res.Err())
	_, err = f.store.Head(ctx, "archive", "music/c.mp3")
	assert.NoError(t, err)

	link, err := f.session.Link(ctx, "b.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "file://testcontainer/b.png"))
	assert.Equal(t, time.Date(2024, 5, 1, 12, 15, 0, 0, time.UTC), link.ExpiresAt)
}
