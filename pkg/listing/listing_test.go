package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/provider/file"
)

func newFileProvider(t *testing.T, files map[string]string) *file.Provider {
	t.Helper()
	mem := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(mem, "/store/"+name, []byte(content), 0o644))
	}
	p, err := file.New(file.Config{BaseDir: "/store", Fs: mem})
	require.NoError(t, err)
	return p
}

func dirPrefixes(dirs []Directory) []string {
	out := []string{}
	for _, d := range dirs {
		out = append(out, d.Prefix)
	}
	return out
}

func objectNames(objs []ObjectRecord) []string {
	out := []string{}
	for _, o := range objs {
		out = append(out, o.Name)
	}
	return out
}

// scriptedProvider answers delimiter listings from fixed pages.
type scriptedProvider struct {
	pages [][]string // common prefixes per page
	objs  []provider.ObjectSummary
	err   error
	calls int
}

func (s *scriptedProvider) List(context.Context, provider.ListOptions) (*provider.ListResult, error) {
	return nil, errors.New("unexpected flat listing")
}

func (s *scriptedProvider) Head(context.Context, string, string) (*provider.ObjectMeta, error) {
	return nil, provider.ErrNotFound
}

func (s *scriptedProvider) Close() error { return nil }

func (s *scriptedProvider) ListWithDelimiter(_ context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	idx := 0
	if opts.ContinuationToken != "" {
		idx = int(opts.ContinuationToken[0] - '0')
	}
	res := &provider.ListWithDelimiterResult{}
	if idx < len(s.pages) {
		res.CommonPrefixes = s.pages[idx]
	}
	if idx == 0 {
		res.Objects = s.objs
	}
	if idx+1 < len(s.pages) {
		res.IsTruncated = true
		res.ContinuationToken = string(rune('0' + idx + 1))
	}
	return res, nil
}

// flatOnly hides every capability except flat listing.
type flatOnly struct {
	provider.Provider
}

func TestScenario_TestContainer(t *testing.T) {
	p := newFileProvider(t, map[string]string{
		"testcontainer/a.mp4":      "video",
		"testcontainer/b.png":      "image",
		"testcontainer/dir1/c.mp3": "audio",
	})
	ctx := context.Background()
	dirs := NewDirectoryIndex(p, DefaultConfig())
	objs := NewObjectIndex(p, DefaultConfig())

	rootObjs, err := objs.List(ctx, "testcontainer", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.mp4", "b.png"}, objectNames(rootObjs))
	assert.Equal(t, []string{"dir1/"}, dirPrefixes(dirs.List(ctx, "testcontainer", "")))

	dirObjs, err := objs.List(ctx, "testcontainer", "dir1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir1/c.mp3"}, objectNames(dirObjs))
	assert.Empty(t, dirs.List(ctx, "testcontainer", "dir1/"))
}

func TestScenario_TestContainer_FlatFallback(t *testing.T) {
	p := flatOnly{newFileProvider(t, map[string]string{
		"testcontainer/a.mp4":      "video",
		"testcontainer/b.png":      "image",
		"testcontainer/dir1/c.mp3": "audio",
		"testcontainer/dir1/d/e":   "deep",
	})}
	ctx := context.Background()
	dirs := NewDirectoryIndex(p, DefaultConfig())
	objs := NewObjectIndex(p, DefaultConfig())

	rootObjs, err := objs.List(ctx, "testcontainer", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.mp4", "b.png"}, objectNames(rootObjs))
	assert.Equal(t, []string{"dir1/"}, dirPrefixes(dirs.List(ctx, "testcontainer", "")))
	assert.Equal(t, []string{"dir1/d/"}, dirPrefixes(dirs.List(ctx, "testcontainer", "dir1/")))
}

func TestDirectoryIndex_SelfFilter(t *testing.T) {
	prefixes := []string{"", "mydir1/", "mydir1/mydir2/"}
	for _, prefix := range prefixes {
		sp := &scriptedProvider{pages: [][]string{
			{prefix, prefix + "a/", prefix + "b/"},
			{prefix, prefix + "c/"},
		}}
		got := NewDirectoryIndex(sp, DefaultConfig()).List(context.Background(), "media", prefix)
		for _, d := range got {
			assert.NotEqual(t, prefix, d.Prefix, "prefix %q listed itself", prefix)
		}
		assert.Equal(t, []string{prefix + "a/", prefix + "b/", prefix + "c/"}, dirPrefixes(got))
		assert.Equal(t, 2, sp.calls, "pages through continuation tokens")
	}
}

func TestDirectoryIndex_ImmediateChildrenOnly(t *testing.T) {
	sp := &scriptedProvider{pages: [][]string{{"a/", "a/b/", "c/", "c/d/e/", "other/"}}}
	got := NewDirectoryIndex(sp, DefaultConfig()).List(context.Background(), "media", "")
	assert.Equal(t, []string{"a/", "c/", "other/"}, dirPrefixes(got))

	got = NewDirectoryIndex(sp, DefaultConfig()).List(context.Background(), "media", "c/")
	assert.Empty(t, got)
}

func TestDirectoryIndex_DedupsAcrossPages(t *testing.T) {
	sp := &scriptedProvider{pages: [][]string{{"a/", "b/"}, {"b/", "c/"}}}
	got := NewDirectoryIndex(sp, DefaultConfig()).List(context.Background(), "media", "")
	assert.Equal(t, []string{"a/", "b/", "c/"}, dirPrefixes(got))
	assert.Equal(t, "b", got[1].Name())
}

func TestDirectoryIndex_ErrorReported(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var buf bytes.Buffer
	w := output.NewJSONLWriter(&buf, "job", "azure")

	sp := &scriptedProvider{err: &provider.ProviderError{Op: "ListWithDelimiter", Provider: provider.ProviderAzure, Container: "media", Err: provider.ErrAccessDenied}}
	idx := NewDirectoryIndex(sp, DefaultConfig()).WithLogger(zap.New(core)).WithWriter(w)

	got := idx.List(context.Background(), "media", "mydir1/")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.Equal(t, 1, logs.FilterMessage("Listing failed").Len())

	var rec output.Record
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, output.TypeError, rec.Type)
	var errRec output.ErrorRecord
	require.NoError(t, json.Unmarshal(rec.Data, &errRec))
	assert.Equal(t, output.ErrCodeAccessDenied, errRec.Code)
	assert.Equal(t, "media", errRec.Container)
	assert.Equal(t, "mydir1/", errRec.Prefix)
}

func TestDirectoryIndex_MaxPages(t *testing.T) {
	sp := &scriptedProvider{pages: [][]string{{"a/"}, {"b/"}, {"c/"}}}
	got := NewDirectoryIndex(sp, Config{MaxPages: 2}).List(context.Background(), "media", "")
	assert.Equal(t, []string{"a/", "b/"}, dirPrefixes(got))
}

func TestObjectIndex_SkipsFolderMarker(t *testing.T) {
	sp := &scriptedProvider{objs: []provider.ObjectSummary{
		{Key: "mydir1/", Size: 0},
		{Key: "mydir1/file.mp3", Size: 10, ContentType: "audio/mpeg"},
	}}
	got, err := NewObjectIndex(sp, DefaultConfig()).List(context.Background(), "media", "mydir1/")
	require.NoError(t, err)
	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, "mydir1/file.mp3", rec.ID)
	assert.Equal(t, rec.ID, rec.Name)
	assert.Equal(t, "media", rec.Container)
	assert.Equal(t, "file.mp3", rec.BaseName())
	assert.Equal(t, PreviewAudio, rec.Preview())
}

func TestObjectIndex_ErrorSurfaces(t *testing.T) {
	sp := &scriptedProvider{err: &provider.ProviderError{Op: "ListWithDelimiter", Provider: provider.ProviderS3, Err: provider.ErrContainerNotFound}}
	got, err := NewObjectIndex(sp, DefaultConfig()).List(context.Background(), "gone", "")
	assert.Nil(t, got)
	assert.True(t, provider.IsContainerNotFound(err))
}

func TestObjectIndex_Expand(t *testing.T) {
	p := newFileProvider(t, map[string]string{
		"media/dir1/a.txt":     "a",
		"media/dir1/sub/b.txt": "b",
		"media/dir10/c.txt":    "c",
		"media/top.txt":        "t",
	})
	got, err := NewObjectIndex(p, DefaultConfig()).Expand(context.Background(), "media", "dir1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir1/a.txt", "dir1/sub/b.txt"}, objectNames(got))
}

func TestObjectRecord_Preview(t *testing.T) {
	assert.Equal(t, PreviewImage, ObjectRecord{ContentType: "image/png"}.Preview())
	assert.Equal(t, PreviewVideo, ObjectRecord{ContentType: "Video/MP4"}.Preview())
	assert.Equal(t, PreviewNone, ObjectRecord{ContentType: "application/pdf"}.Preview())
	assert.Equal(t, PreviewNone, ObjectRecord{}.Preview())
	assert.True(t, ObjectRecord{ID: "dir/"}.IsFolderMarker())
	assert.False(t, ObjectRecord{ID: "dir/a"}.IsFolderMarker())
}

func TestSort(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []ObjectRecord{
		{Name: "b", Size: 3, LastModified: t0.Add(time.Hour)},
		{Name: "a", Size: 3, LastModified: t0},
		{Name: "c", Size: 1, LastModified: t0.Add(2 * time.Hour)},
	}
	Sort(recs, SortBySize, false)
	assert.Equal(t, []string{"c", "a", "b"}, objectNames(recs))
	Sort(recs, SortByModified, true)
	assert.Equal(t, []string{"c", "b", "a"}, objectNames(recs))
	Sort(recs, SortByName, false)
	assert.Equal(t, []string{"a", "b", "c"}, objectNames(recs))
}

// gatedProvider blocks listings of one prefix until released.
type gatedProvider struct {
	*file.Provider
	slowPrefix string
	entered    chan struct{}
	release    chan struct{}
	once       sync.Once
}

func (g *gatedProvider) ListWithDelimiter(ctx context.Context, opts provider.ListWithDelimiterOptions) (*provider.ListWithDelimiterResult, error) {
	if opts.Prefix == g.slowPrefix {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.Provider.ListWithDelimiter(ctx, opts)
}

func TestView_LastRequestWins(t *testing.T) {
	fp := newFileProvider(t, map[string]string{
		"media/slow/old.txt": "old",
		"media/fast/new.txt": "new",
	})
	gp := &gatedProvider{Provider: fp, slowPrefix: "slow/", entered: make(chan struct{}), release: make(chan struct{})}
	view := NewView(NewDirectoryIndex(gp, DefaultConfig()), NewObjectIndex(gp, DefaultConfig()))
	ctx := context.Background()

	type result struct {
		snap    Snapshot
		applied bool
	}
	slowDone := make(chan result, 1)
	go func() {
		snap, applied := view.Refresh(ctx, "media", "slow/")
		slowDone <- result{snap, applied}
	}()
	<-gp.entered

	fast, applied := view.Refresh(ctx, "media", "fast/")
	require.True(t, applied)
	assert.Equal(t, []string{"fast/new.txt"}, objectNames(fast.Objects))

	close(gp.release)
	slow := <-slowDone
	assert.False(t, slow.applied, "stale response must be discarded")
	assert.Equal(t, []string{"slow/old.txt"}, objectNames(slow.snap.Objects))

	current := view.Current()
	assert.Equal(t, "fast/", current.Prefix)
	assert.Equal(t, []string{"fast/new.txt"}, objectNames(current.Objects))
}

func TestView_ObjectErrorYieldsEmptySnapshot(t *testing.T) {
	sp := &scriptedProvider{err: provider.ErrAccessDenied}
	view := NewView(NewDirectoryIndex(sp, DefaultConfig()), NewObjectIndex(sp, DefaultConfig()))

	snap, applied := view.Refresh(context.Background(), "media", "")
	require.True(t, applied)
	assert.Error(t, snap.Err)
	assert.Empty(t, snap.Objects)
	assert.Empty(t, snap.Directories)

	view.Reset()
	assert.Equal(t, "", view.Current().Container)
	assert.True(t, strings.HasPrefix(snap.Err.Error(), "access denied"))
}
