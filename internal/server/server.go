package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/floorvault/apiserver/config"
	"github.com/floorvault/apiserver/internal/db"
	"github.com/floorvault/apiserver/internal/handlers"
	"github.com/floorvault/apiserver/internal/logger"
	"github.com/floorvault/apiserver/internal/mq"
	"github.com/floorvault/apiserver/internal/services"
	"github.com/floorvault/apiserver/internal/storage"
	"github.com/floorvault/apiserver/internal/store"
	"github.com/floorvault/apiserver/internal/thumbnail"
	"github.com/floorvault/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sqlx.DB
	broker     *mq.MQ
}

// Deps are the services the router dispatches to.
type Deps struct {
	Auth       *services.AuthService
	Categories *services.CategoryService
	Images     *services.ImageService
	Ingest     *services.IngestService
	Users      *services.UserService
	Roles      *services.RoleService
	Search     *services.SearchService
	Catalog    *services.CatalogService
	Blobs      handlers.BlobReader
}

// New connects the database, blob storage and broker, then builds the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket %q: %w", blobs.Bucket(), err)
	}

	broker, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	roleRepo := store.NewRoleRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)
	categoryRepo := store.NewCategoryRepository(dbConn)
	imageRepo := store.NewImageRepository(dbConn)
	searchRepo := store.NewSearchRepository(dbConn)

	events := services.NewEvents(broker, cfg.MQ.Topic)
	deps := Deps{
		Auth:       services.NewAuthService(userRepo),
		Categories: services.NewCategoryService(categoryRepo, events),
		Images:     services.NewImageService(imageRepo, categoryRepo, blobs, events),
		Ingest: services.NewIngestService(
			categoryRepo,
			imageRepo,
			blobs,
			thumbnail.NewGenerator(types.ThumbnailSize),
			events,
			cfg.Upload.MaxFileBytes,
		),
		Users:   services.NewUserService(userRepo, roleRepo),
		Roles:   services.NewRoleService(roleRepo),
		Search:  services.NewSearchService(searchRepo),
		Catalog: services.NewCatalogService(categoryRepo, imageRepo),
		Blobs:   blobs,
	}

	router := NewRouter(cfg, deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// NewRouter mounts every route on a fresh chi router.
func NewRouter(cfg config.Config, deps Deps) *chi.Mux {
	authMiddleware := handlers.RequireAuth(deps.Auth, cfg.JWTSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logger.RequestLogging,
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)

	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, deps.Auth, cfg.JWTSecret, cfg.TokenTTL)
	})
	router.Route("/categories", func(r chi.Router) {
		handlers.CategoryRouter(r, deps.Categories, deps.Images, deps.Ingest, handlers.UploadLimits{
			MaxFileBytes:    cfg.Upload.MaxFileBytes,
			MaxRequestBytes: cfg.Upload.MaxRequestBytes,
		}, authMiddleware)
	})
	router.Route("/images", func(r chi.Router) {
		handlers.ImageRouter(r, deps.Images, authMiddleware)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, deps.Users, authMiddleware)
	})
	router.Route("/roles", func(r chi.Router) {
		handlers.RoleRouter(r, deps.Roles, authMiddleware)
	})
	router.With(authMiddleware).Get("/search", handlers.NewSearchHandler(deps.Search).Search)
	router.Route("/public", func(r chi.Router) {
		handlers.PublicRouter(r, deps.Catalog, cfg.PublicBaseURL)
	})
	router.Get(storage.URLPrefix+"*", handlers.NewUploadsHandler(deps.Blobs).Serve)

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		if closeErr := s.broker.Close(); closeErr != nil {
			slog.Warn("close broker failed", "error", closeErr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
