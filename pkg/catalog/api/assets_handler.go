package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-catalog/pkg/catalog"
)

// AssetsHandler serves stored thumbnails and videos by reference
type AssetsHandler struct {
	service catalog.Service
}

// NewAssetsHandler creates a new assets handler
func NewAssetsHandler(service catalog.Service) *AssetsHandler {
	return &AssetsHandler{service: service}
}

// Routes returns the routes for stored assets
func (h *AssetsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/*", h.ServeAsset)
	r.Head("/*", h.ServeAsset)
	return r
}

// ServeAsset streams one stored blob. Seekable backends get range and
// conditional request support.
func (h *AssetsHandler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	ref, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || ref == "" {
		writeError(w, r, catalog.ErrAssetNotFound)
		return
	}

	meta, err := h.service.StatAsset(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rc, err := h.service.OpenAsset(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	if meta.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(meta.ETag))
	}

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(ref), meta.UpdatedAt, rs)
		return
	}

	if meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("asset stream interrupted", "ref", ref, "error", err)
	}
}
