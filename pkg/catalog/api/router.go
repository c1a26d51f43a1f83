package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/tendant/simple-catalog/pkg/auth"
	"github.com/tendant/simple-catalog/pkg/catalog"
	"github.com/tendant/simple-catalog/pkg/catalog/urlstrategy"
)

// RouterConfig wires the services behind the HTTP surface
type RouterConfig struct {
	Catalog        catalog.Service
	Auth           *auth.Service
	RequireAuth    bool
	MaxUploadBytes int64
	CORSOrigins    []string
	Timeout        time.Duration

	// URLs builds asset URLs in responses; nil serves them from /uploads
	URLs urlstrategy.URLStrategy

	// Middlewares run after request id and before recovery, e.g. a request logger
	Middlewares []func(http.Handler) http.Handler
}

// NewRouter mounts the catalog, asset and auth routes
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	for _, mw := range cfg.Middlewares {
		r.Use(mw)
	}
	r.Use(middleware.Recoverer)
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"ETag", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", Health)

	opts := []HandlerOption{WithMaxUploadBytes(cfg.MaxUploadBytes), WithURLStrategy(cfg.URLs)}
	if cfg.Auth != nil {
		opts = append(opts, WithTokenAuth(cfg.Auth.Tokens().JWTAuth(), cfg.RequireAuth))
	}

	if cfg.Auth != nil {
		r.Mount("/api/auth", NewAuthHandler(cfg.Auth).Routes())
	}
	r.Mount("/api", NewCatalogHandler(cfg.Catalog, opts...).Routes())
	r.Mount(urlstrategy.DefaultAssetPath, NewAssetsHandler(cfg.Catalog).Routes())

	return r
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}
