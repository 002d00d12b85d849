package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Gallery database (embedded sqlite)
	DBPath string

	// Redis (album/association blobs + rate limiting)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Album storage backend: "redis" | "memory"
	AlbumStoreBackend string

	// Uploads
	UploadMaxFileSize int64
	UploadMaxBatch    int

	// Thumbnails
	ThumbnailSize    int
	ThumbnailQuality int

	// Pagination
	PageSize int

	// Security
	RateLimitRequests  int
	RateLimitDuration  time.Duration
	UploadsPerDayPerIP int

	// CORS
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

func New() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBPath: getEnv("DB_PATH", "./PhotoGalleryDB.sqlite"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		AlbumStoreBackend: getEnv("ALBUM_STORE_BACKEND", "redis"),

		// Uploads: 500 MiB per file, 10 files per batch
		UploadMaxFileSize: getEnvAsInt64("UPLOAD_MAX_FILE_SIZE", 500*1024*1024),
		UploadMaxBatch:    getEnvAsInt("UPLOAD_MAX_BATCH", 10),

		// Thumbnails
		ThumbnailSize:    getEnvAsInt("THUMBNAIL_SIZE", 200),
		ThumbnailQuality: getEnvAsInt("THUMBNAIL_QUALITY", 70),

		// Pagination
		PageSize: getEnvAsInt("PAGE_SIZE", 50),

		// Security
		RateLimitRequests:  getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration:  getEnvAsDuration("RATE_LIMIT_DURATION", "1m"),
		UploadsPerDayPerIP: getEnvAsInt("UPLOADS_PER_DAY_PER_IP", 500),

		// CORS
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods: getEnvAsSlice("ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders: getEnvAsSlice("ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	value, _ := time.ParseDuration(defaultValue)
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
