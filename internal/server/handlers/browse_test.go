package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/3leaps/skybrowse/internal/errors"
	"github.com/3leaps/skybrowse/pkg/explorer"
	"github.com/3leaps/skybrowse/pkg/provider/file"
)

func newBrowseRouter(t *testing.T, files map[string]string) http.Handler {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/store/archive", 0o755))
	for name, content := range files {
		require.NoError(t, afero.WriteFile(mem, "/store/"+name, []byte(content), 0o644))
	}
	store, err := file.New(file.Config{BaseDir: "/store", Fs: mem})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/v1", NewBrowse(store, explorer.DefaultConfig()).Routes)
	return r
}

func get(t *testing.T, h http.Handler, target string, v any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
	return rec.Code
}

func TestBrowse_Containers(t *testing.T) {
	h := newBrowseRouter(t, map[string]string{"testcontainer/a.txt": "a"})

	var resp ContainersResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/containers", &resp))
	require.Len(t, resp.Containers, 2)
	assert.Equal(t, "archive", resp.Containers[0].Name)
	assert.Equal(t, "testcontainer", resp.Containers[1].Name)

	require.Equal(t, http.StatusOK, get(t, h, "/v1/containers?filter=TEST", &resp))
	require.Len(t, resp.Containers, 1)
	assert.Equal(t, "testcontainer", resp.Containers[0].Name)
}

func TestBrowse_Entries(t *testing.T) {
	h := newBrowseRouter(t, map[string]string{
		"testcontainer/file1":               "1",
		"testcontainer/mydir1/file2":        "22",
		"testcontainer/mydir1/mydir2/file3": "333",
		"testcontainer/mydir1/mydir2/file4": "4444",
	})

	var root EntriesResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/containers/testcontainer/entries", &root))
	assert.Equal(t, "", root.Prefix)
	require.Len(t, root.Directories, 1)
	assert.Equal(t, "mydir1/", root.Directories[0].Prefix)
	require.Len(t, root.Objects, 1)
	assert.Equal(t, "file1", root.Objects[0].Key)
	assert.Empty(t, root.Errors)

	var nested EntriesResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/containers/testcontainer/entries?prefix=mydir1/mydir2", &nested))
	assert.Equal(t, "mydir1/mydir2/", nested.Prefix)
	assert.Empty(t, nested.Directories)
	require.Len(t, nested.Objects, 2)
	require.Len(t, nested.Breadcrumbs, 3)
	assert.Equal(t, "mydir2", nested.Breadcrumbs[2].Name)
	assert.Equal(t, "mydir1/mydir2/", nested.Breadcrumbs[2].Prefix)
}

func TestBrowse_EntriesReportsListingFailure(t *testing.T) {
	h := newBrowseRouter(t, nil)

	var resp EntriesResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/containers/missing/entries", &resp))
	assert.Empty(t, resp.Directories)
	assert.Empty(t, resp.Objects)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "missing", resp.Errors[0].Container)
}

func TestBrowse_Link(t *testing.T) {
	h := newBrowseRouter(t, map[string]string{"testcontainer/a.txt": "a"})

	var link struct {
		Container string `json:"container"`
		Key       string `json:"key"`
		URL       string `json:"url"`
	}
	require.Equal(t, http.StatusOK, get(t, h, "/v1/containers/testcontainer/link?key=a.txt", &link))
	assert.Equal(t, "testcontainer", link.Container)
	assert.Equal(t, "a.txt", link.Key)
	assert.Contains(t, link.URL, "testcontainer/a.txt")

	var errResp apperrors.HTTPErrorResponse
	require.Equal(t, http.StatusBadRequest, get(t, h, "/v1/containers/testcontainer/link", &errResp))
	assert.Equal(t, apperrors.CodeBadRequest, errResp.Error.Code)
}
