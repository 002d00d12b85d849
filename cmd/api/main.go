package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lichtbild/gallery/internal/config"
	"github.com/lichtbild/gallery/internal/handlers"
	"github.com/lichtbild/gallery/internal/middleware"
	"github.com/lichtbild/gallery/internal/models"
	"github.com/lichtbild/gallery/internal/services"
	"github.com/lichtbild/gallery/pkg/kv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg := config.New()

	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Redis backs the album blobs and the rate limiters
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	var albumStore kv.Store
	switch cfg.AlbumStoreBackend {
	case "memory":
		log.Warn().Msg("album store backend is memory; albums will not survive a restart")
		albumStore = kv.NewMemoryStore()
	default:
		albumStore = kv.NewRedisStore(redisClient)
	}

	// Initialize services
	photoStore := services.NewPhotoStore(cfg.DBPath, cfg.Env)
	thumbnailService := services.NewThumbnailService(cfg)
	albumIndex := services.NewAlbumIndex(albumStore)
	albumService := services.NewAlbumService(albumStore, albumIndex)
	galleryService := services.NewGalleryService(photoStore, thumbnailService, albumIndex, cfg)
	exportService := services.NewExportService(photoStore, albumService, albumIndex)

	// Open the store and load the first page window
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := galleryService.Init(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to initialize gallery")
	}
	cancel()
	defer photoStore.Close()

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))

	// Initialize handlers
	galleryHandler := handlers.NewGalleryHandler(galleryService, photoStore, cfg)
	albumHandler := handlers.NewAlbumHandler(albumService, albumIndex, exportService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		// Catch-all OPTIONS handler for CORS preflight requests
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		gallery := api.Group("/gallery")
		{
			gallery.GET("", galleryHandler.GetState)
			gallery.POST("/load-more", galleryHandler.LoadMore)
			gallery.GET("/photos", galleryHandler.ListPage)
			gallery.GET("/photos/:id", galleryHandler.GetPhoto)
			gallery.GET("/photos/:id/file", galleryHandler.ServePhotoFile)
			gallery.GET("/photos/:id/thumbnail", galleryHandler.ServeThumbnail)
			gallery.DELETE("/photos/:id", galleryHandler.DeletePhoto)
			gallery.DELETE("/photos", galleryHandler.ClearPhotos)
			gallery.POST("/hard-reset", galleryHandler.HardReset)

			// Upload routes with their own, stricter rate limit
			uploadGroup := gallery.Group("")
			uploadGroup.Use(middleware.UploadRateLimit(redisClient, cfg))
			{
				uploadGroup.POST("/photos", galleryHandler.UploadPhoto)
				uploadGroup.POST("/photos/batch", galleryHandler.UploadPhotos)
			}
		}

		albums := api.Group("/albums")
		{
			albums.POST("", albumHandler.CreateAlbum)
			albums.GET("", albumHandler.ListAlbums)
			albums.GET("/:id", albumHandler.GetAlbum)
			albums.PUT("/:id", albumHandler.RenameAlbum)
			albums.DELETE("/:id", albumHandler.DeleteAlbum)
			albums.PUT("/:id/photos", albumHandler.SetAlbumPhotos)
			albums.GET("/:id/photos", albumHandler.GetAlbumPhotos)
			albums.DELETE("/:id/photos/:photoId", albumHandler.RemovePhotoFromAlbum)
			albums.GET("/:id/export.pdf", albumHandler.ExportContactSheet)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  120 * time.Second, // large data-URI uploads
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
