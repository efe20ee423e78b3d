// Package server exposes the HTTP API: REST over chi, the picker
// WebSocket session, and the embedded browser UI.
package server

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/auth"
	"github.com/warepick/warepick/internal/catalog"
	"github.com/warepick/warepick/internal/coordinator"
	"github.com/warepick/warepick/internal/reaper"
	"github.com/warepick/warepick/internal/storage"
)

// Options tunes the HTTP surface.
type Options struct {
	// CORSOrigins is the allowed origin list; empty means "*".
	CORSOrigins []string
	// AutoModeThreshold is the scan-to-count boundary shown to picker
	// sessions; zero means the coordinator default.
	AutoModeThreshold int
	// UI is the embedded static asset tree, nil disables the UI.
	UI fs.FS
}

// Server wires the service components to routes.
type Server struct {
	store     storage.Storage
	coord     *coordinator.Coordinator
	auth      *auth.Manager
	catalog   *catalog.Catalog
	reaper    *reaper.Reaper
	log       *zap.Logger
	ui        fs.FS
	origins   []string
	threshold int
}

// New creates a server over the given components
func New(store storage.Storage, coord *coordinator.Coordinator, authMgr *auth.Manager,
	cat *catalog.Catalog, rp *reaper.Reaper, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	threshold := opts.AutoModeThreshold
	if threshold <= 0 {
		threshold = coordinator.DefaultAutoModeThreshold
	}
	return &Server{
		store:     store,
		coord:     coord,
		auth:      authMgr,
		catalog:   cat,
		reaper:    rp,
		log:       logger,
		ui:        opts.UI,
		origins:   origins,
		threshold: threshold,
	}
}

// Handler builds the route tree
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.With(s.requireUser).Get("/me", s.handleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Route("/users", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/", s.handleCreateUser)
				r.Get("/", s.handleListUsers)
				r.Delete("/{id}", s.handleDeactivateUser)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", s.handleListProducts)
				r.Get("/categories", s.handleCategories)
				r.Get("/search", s.handleSearchProducts)
				r.Get("/lookup/{code}", s.handleLookupProduct)
				r.Get("/stats", s.handleProductStats)
			})

			r.Route("/picks", func(r chi.Router) {
				r.Get("/validate-name/{name}", s.handleValidateName)
				r.Post("/", s.handleCreatePick)
				r.Get("/", s.handleListPicks)
				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", s.handleGetPick)
					r.Delete("/", s.handleDeletePick)
					r.Post("/start", s.handleStart)
					r.Post("/pause", s.handlePause)
					r.Post("/resume", s.handleResume)
					r.Post("/release", s.handleRelease)
					r.Post("/cancel", s.handleCancel)
					r.Post("/approve", s.handleApprove)
					r.Post("/submit", s.handleSubmit)
					r.Get("/shortages", s.handleShortages)
					r.Put("/items/{upc}", s.handleUpdateItem)
					r.Put("/items/{upc}/shortage", s.handleSetShortage)
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Post("/cleanup/run", s.handleCleanupRun)
				r.Get("/cleanup/status", s.handleCleanupStatus)
			})
		})
	})

	r.Get("/ws/picker/{name}", s.handlePickerWS)

	if s.ui != nil {
		r.Handle("/*", http.FileServer(http.FS(s.ui)))
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// handleReadyz verifies the database answers before reporting ready
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := s.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable,
				map[string]interface{}{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}
