package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/skybrowse/internal/errors"
	"github.com/3leaps/skybrowse/pkg/explorer"
	"github.com/3leaps/skybrowse/pkg/output"
	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/vpath"
)

// ContainersResponse is the body of GET /v1/containers.
type ContainersResponse struct {
	Containers []output.ContainerRecord `json:"containers"`
}

// EntriesResponse is one directory view of a container.
type EntriesResponse struct {
	Container   string                   `json:"container"`
	Prefix      string                   `json:"prefix"`
	Breadcrumbs []vpath.Crumb            `json:"breadcrumbs"`
	Directories []output.DirectoryRecord `json:"directories"`
	Objects     []output.ObjectRecord    `json:"objects"`

	// Errors reports listing failures. The lists above are then empty
	// or partial rather than the request failing.
	Errors []output.ErrorRecord `json:"errors,omitempty"`
}

// Browse serves read-only views of one storage account. Every request gets
// its own explorer session so no listing or selection state is shared
// between callers.
type Browse struct {
	store  provider.Provider
	cfg    explorer.Config
	logger *zap.Logger
}

// NewBrowse creates the browse handlers for store.
func NewBrowse(store provider.Provider, cfg explorer.Config) *Browse {
	return &Browse{store: store, cfg: cfg, logger: zap.NewNop()}
}

// WithLogger sets the logger passed to per-request sessions.
func (b *Browse) WithLogger(l *zap.Logger) *Browse {
	if l != nil {
		b.logger = l
	}
	return b
}

// Routes mounts the browse endpoints on r.
func (b *Browse) Routes(r chi.Router) {
	r.Get("/containers", b.Containers)
	r.Get("/containers/{container}/entries", b.Entries)
	r.Get("/containers/{container}/link", b.Link)
}

func (b *Browse) session() *explorer.Session {
	return explorer.NewSession(b.store, b.cfg).WithLogger(b.logger)
}

// Containers lists containers, optionally filtered by ?filter=.
func (b *Browse) Containers(w http.ResponseWriter, r *http.Request) {
	infos, err := b.session().Containers(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	resp := ContainersResponse{Containers: make([]output.ContainerRecord, 0, len(infos))}
	for _, c := range infos {
		resp.Containers = append(resp.Containers, output.ContainerRecord{Name: c.Name, LastModified: c.LastModified})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Entries lists the directories and objects directly under ?prefix=.
func (b *Browse) Entries(w http.ResponseWriter, r *http.Request) {
	container := chi.URLParam(r, "container")
	prefix := r.URL.Query().Get("prefix")
	if prefix != "" && !strings.HasSuffix(prefix, vpath.Separator) {
		prefix += vpath.Separator
	}

	s := b.session()
	s.SwitchContainer(container)
	path := s.DescendInto(prefix)
	snap, err := s.Refresh(r.Context())

	resp := EntriesResponse{
		Container:   container,
		Prefix:      path.Prefix(),
		Breadcrumbs: path.Breadcrumbs(),
		Directories: make([]output.DirectoryRecord, 0, len(snap.Directories)),
		Objects:     make([]output.ObjectRecord, 0, len(snap.Objects)),
	}
	for _, d := range snap.Directories {
		resp.Directories = append(resp.Directories, *d.ToOutput())
	}
	for _, o := range snap.Objects {
		resp.Objects = append(resp.Objects, *o.ToOutput())
	}
	if err != nil {
		resp.Errors = append(resp.Errors, output.ErrorRecord{
			Code:      output.CodeFor(err),
			Message:   err.Error(),
			Container: container,
			Prefix:    path.Prefix(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Link resolves a temporary read link for ?key=.
func (b *Browse) Link(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		apperrors.WriteError(w, r, http.StatusBadRequest, apperrors.CodeBadRequest, "key query parameter is required", map[string]any{"param": "key"})
		return
	}

	s := b.session()
	s.SwitchContainer(chi.URLParam(r, "container"))
	link, err := s.Link(r.Context(), key)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
