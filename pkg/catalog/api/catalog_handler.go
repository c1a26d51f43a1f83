package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/auth"
	"github.com/tendant/simple-catalog/pkg/catalog"
	"github.com/tendant/simple-catalog/pkg/catalog/urlstrategy"
)

// DefaultMaxUploadBytes caps a multipart body when no limit is configured
const DefaultMaxUploadBytes int64 = 100 << 20

// in-memory share of a multipart body; the rest spills to temp files
const multipartMemory = 32 << 20

// CatalogHandler handles upload and query requests for catalog entries
type CatalogHandler struct {
	service        catalog.Service
	ja             *jwtauth.JWTAuth
	requireAuth    bool
	maxUploadBytes int64
	urls           urlstrategy.URLStrategy
}

// HandlerOption configures a CatalogHandler
type HandlerOption func(*CatalogHandler)

// WithTokenAuth verifies bearer tokens with ja. When required is true,
// mutating routes reject requests without a valid token.
func WithTokenAuth(ja *jwtauth.JWTAuth, required bool) HandlerOption {
	return func(h *CatalogHandler) {
		h.ja = ja
		h.requireAuth = required
	}
}

// WithMaxUploadBytes caps the size of an upload body
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *CatalogHandler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithURLStrategy sets how asset URLs in responses are built
func WithURLStrategy(urls urlstrategy.URLStrategy) HandlerOption {
	return func(h *CatalogHandler) {
		if urls != nil {
			h.urls = urls
		}
	}
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service catalog.Service, opts ...HandlerOption) *CatalogHandler {
	h := &CatalogHandler{
		service:        service,
		maxUploadBytes: DefaultMaxUploadBytes,
		urls:           urlstrategy.NewServerStrategy(""),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the routes for catalog entries
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	if h.ja != nil {
		r.Use(jwtauth.Verifier(h.ja))
	}

	r.Get("/videos", h.ListEntries)
	r.Get("/videos/{id}", h.GetEntry)

	r.Group(func(r chi.Router) {
		if h.ja != nil && h.requireAuth {
			r.Use(jwtauth.Authenticator)
		}
		r.Post("/upload", h.CreateUpload)
		r.Put("/videos/{id}", h.UpdateUpload)
		r.Delete("/videos/{id}", h.DeleteEntry)
	})

	return r
}

// CreateUpload handles a multipart submission of thumbnails, videos and text
func (h *CatalogHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseForm(w, r)
	if err != nil {
		h.writeFormError(w, r, err)
		return
	}
	defer form.close()

	entry, err := h.service.CreateUpload(r.Context(), catalog.CreateUploadRequest{
		OwnerID:     ownerFromRequest(r, form.value("ownerId", "owner_id")),
		Title:       valueOrEmpty(form.optional("title")),
		Description: valueOrEmpty(form.optional("description")),
		Parts:       form.parts,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		Status:  "created",
		Message: "Upload successful",
		Data:    toEntryResponse(entry, h.urls),
	})
}

// UpdateUpload replaces whichever assets and text fields the request carries
func (h *CatalogHandler) UpdateUpload(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseForm(w, r)
	if err != nil {
		h.writeFormError(w, r, err)
		return
	}
	defer form.close()

	entry, err := h.service.UpdateUpload(r.Context(), catalog.UpdateUploadRequest{
		ID:          chi.URLParam(r, "id"),
		Title:       form.optional("title"),
		Description: form.optional("description"),
		Parts:       form.parts,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, Response{
		Status:  "updated",
		Message: "Entry updated",
		Data:    toEntryResponse(entry, h.urls),
	})
}

// GetEntry returns one entry
func (h *CatalogHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, Response{Status: "ok", Data: toEntryResponse(entry, h.urls)})
}

// ListEntries returns every entry, or those whose title contains ?title=
func (h *CatalogHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	var (
		entries []*catalog.Entry
		err     error
	)
	if r.URL.Query().Has("title") {
		entries, err = h.service.SearchEntries(r.Context(), r.URL.Query().Get("title"))
	} else {
		entries, err = h.service.ListEntries(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := "ok"
	if len(entries) == 0 {
		status = "no entries"
	}
	render.JSON(w, r, Response{Status: status, Data: toEntryResponses(entries, h.urls)})
}

// DeleteEntry removes an entry and returns its prior state
func (h *CatalogHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.DeleteEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, Response{
		Status:  "deleted",
		Message: "Entry deleted",
		Data:    toEntryResponse(entry, h.urls),
	})
}

// uploadForm is a parsed request body: text values plus file parts in
// submission order
type uploadForm struct {
	values map[string][]string
	parts  []catalog.FilePart
	temps  []*os.File
}

var errPayloadTooLarge = errors.New("request body too large")

// parseForm streams the body part by part so file parts keep their
// submission order across field names. Parts are held in memory until
// multipartMemory is used up; later parts spill to temp files.
func (h *CatalogHandler) parseForm(w http.ResponseWriter, r *http.Request) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mr, err := r.MultipartReader()
	switch {
	case err == nil:
	case errors.Is(err, http.ErrNotMultipart):
		// urlencoded bodies carry text only
		if perr := r.ParseForm(); perr != nil {
			return nil, classifyBodyError(perr)
		}
		return &uploadForm{values: r.PostForm}, nil
	default:
		return nil, classifyBodyError(err)
	}

	f := &uploadForm{values: make(map[string][]string)}
	budget := int64(multipartMemory)
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		if err != nil {
			f.close()
			return nil, classifyBodyError(err)
		}

		name := p.FormName()
		if name == "" {
			p.Close()
			continue
		}

		if p.FileName() == "" {
			var buf bytes.Buffer
			n, err := io.CopyN(&buf, p, budget+1)
			p.Close()
			if err != nil && !errors.Is(err, io.EOF) {
				f.close()
				return nil, classifyBodyError(err)
			}
			if n > budget {
				f.close()
				return nil, errPayloadTooLarge
			}
			budget -= n
			f.values[name] = append(f.values[name], buf.String())
			continue
		}

		part, err := f.readFile(p, &budget)
		p.Close()
		if err != nil {
			f.close()
			return nil, err
		}
		f.parts = append(f.parts, part)
	}
}

// readFile buffers one file part, moving it to a temp file once it no longer
// fits in the remaining memory budget
func (f *uploadForm) readFile(p *multipart.Part, budget *int64) (catalog.FilePart, error) {
	part := catalog.FilePart{
		Field:       p.FormName(),
		FileName:    p.FileName(),
		ContentType: p.Header.Get("Content-Type"),
	}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, p, *budget+1)
	if err != nil && !errors.Is(err, io.EOF) {
		return part, classifyBodyError(err)
	}
	if n <= *budget {
		*budget -= n
		part.Size = n
		part.Content = bytes.NewReader(buf.Bytes())
		return part, nil
	}

	tmp, err := os.CreateTemp("", "catalog-upload-*")
	if err != nil {
		return part, fmt.Errorf("spool %q: %w", part.FileName, err)
	}
	f.temps = append(f.temps, tmp)

	size, err := io.Copy(tmp, io.MultiReader(&buf, p))
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return part, fmt.Errorf("spool %q: %w", part.FileName, err)
		}
		return part, classifyBodyError(err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return part, fmt.Errorf("spool %q: %w", part.FileName, err)
	}
	part.Size = size
	part.Content = tmp
	return part, nil
}

func classifyBodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
		return errPayloadTooLarge
	}
	return fmt.Errorf("%w: malformed request body: %v", catalog.ErrInvalidFilePart, err)
}

func (h *CatalogHandler) writeFormError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errPayloadTooLarge) {
		writeErrorKind(w, r, KindPayloadTooLarge, fmt.Errorf("upload exceeds %d bytes", h.maxUploadBytes))
		return
	}
	writeError(w, r, err)
}

func (f *uploadForm) close() {
	for _, tmp := range f.temps {
		if err := tmp.Close(); err != nil {
			slog.Warn("failed to close upload temp file", "error", err)
		}
		if err := os.Remove(tmp.Name()); err != nil {
			slog.Warn("failed to remove upload temp file", "file", tmp.Name(), "error", err)
		}
	}
}

// optional returns nil when the field was not submitted at all
func (f *uploadForm) optional(name string) *string {
	vs, ok := f.values[name]
	if !ok || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}

func (f *uploadForm) value(names ...string) string {
	for _, name := range names {
		if v := f.optional(name); v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ownerFromRequest prefers the verified token's subject over the form value
func ownerFromRequest(r *http.Request, formOwner string) string {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err == nil && token != nil {
		if c, cerr := auth.ClaimsFromMap(claims); cerr == nil {
			return c.UserID
		}
	}
	return formOwner
}
