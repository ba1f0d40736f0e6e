package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/prodcat/internal/api"
	"github.com/timmy/prodcat/internal/api/middleware"
	"github.com/timmy/prodcat/internal/config"
	"github.com/timmy/prodcat/internal/logger"
	"github.com/timmy/prodcat/internal/repository"
	"github.com/timmy/prodcat/internal/service"
	"github.com/timmy/prodcat/internal/storage"
	"gorm.io/gorm"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH overrides the ./configs lookup in deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	ctx := context.Background()

	// The audit trail is optional; the catalog stays the source of truth.
	var (
		db           *gorm.DB
		observations service.ObservationStore
		assignments  service.ImageAssignmentStore
	)
	if db, err = repository.InitDB(&cfg.Database); err != nil {
		appLogger.WithError(err).Warn("Audit database unavailable, history disabled")
		db = nil
	} else {
		observations = repository.NewObservationRevisionRepository(db)
		assignments = repository.NewImageAssignmentRepository(db)
	}

	var objects storage.ObjectStorage
	switch objects, err = storage.NewStorage(&cfg.Storage); {
	case errors.Is(err, storage.ErrDisabled):
		appLogger.Info("Image archive disabled")
	case err != nil:
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	default:
		if s3, ok := objects.(*storage.S3Storage); ok {
			if err := s3.EnsureBucket(ctx); err != nil {
				appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
			}
		}
	}

	catalog := service.NewCatalogClient(&service.CatalogConfig{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
	})
	hydrator := service.NewImageHydrator(&service.HydratorConfig{
		Concurrency:   cfg.Hydration.Concurrency,
		MaxImageBytes: cfg.Hydration.MaxImageBytes,
		Timeout:       cfg.Hydration.Timeout,
	})
	gemini := service.NewGeminiClient(&service.GeminiConfig{
		APIKey:     cfg.Gemini.APIKey,
		BaseURL:    cfg.Gemini.BaseURL,
		TextModel:  cfg.Gemini.TextModel,
		ImageModel: cfg.Gemini.ImageModel,
		Timeout:    cfg.Gemini.Timeout,
	})
	vision := service.NewVisionClient(&service.VisionConfig{
		APIKey:  cfg.Vision.APIKey,
		BaseURL: cfg.Vision.BaseURL,
	})
	cse := service.NewImageSearchClient(&service.ImageSearchConfig{
		APIKeys: cfg.ImageSearch.APIKeys,
		CX:      cfg.ImageSearch.CX,
		BaseURL: cfg.ImageSearch.BaseURL,
	})
	serp := service.NewSerpAPIClient(&service.SerpAPIConfig{
		APIKey:  cfg.SerpAPI.APIKey,
		BaseURL: cfg.SerpAPI.BaseURL,
	})

	appLogger.WithFields(logger.Fields{
		"catalog":      catalog.BaseURL(),
		"gemini":       gemini.Enabled(),
		"vision":       vision.Enabled(),
		"google_cse":   cse.Enabled(),
		"serpapi":      serp.Enabled(),
		"archive":      objects != nil,
		"audit_db":     db != nil,
		"hydrate_pool": cfg.Hydration.Concurrency,
	}).Info("Providers configured")

	router := api.SetupRouter(api.Services{
		Products: service.NewProductService(catalog, hydrator, &service.ProductServiceConfig{
			DefaultPageSize: cfg.Paging.DefaultPageSize,
			MaxPageSize:     cfg.Paging.MaxPageSize,
			MaxBackendPages: cfg.Paging.MaxBackendPages,
		}),
		Observations: service.NewObservationService(catalog, observations, gemini, serp),
		Images: service.NewImageService(catalog, assignments, objects, service.ImageProviders{
			Gemini: gemini,
			Vision: vision,
			CSE:    cse,
			Serp:   serp,
		}, &service.ImageServiceConfig{
			MaxImageBytes:   cfg.Hydration.MaxImageBytes,
			FetchTimeout:    cfg.Hydration.Timeout,
			StoragePrefix:   cfg.Storage.Prefix,
			SearchCacheSize: cfg.ImageSearch.CacheSize,
			SearchCacheTTL:  cfg.ImageSearch.CacheTTL,
		}),
		DB: db,
	}, api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Log: appLogger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	appLogger.Info("Server exited")
}
