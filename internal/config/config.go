// Package config loads application configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/radif/imagegw/internal/storage"
)

const (
	// ProviderImagesAPI selects the Cloudflare Images remote.
	ProviderImagesAPI = "cloudflare"
	// ProviderS3 selects an S3-compatible bucket as the remote.
	ProviderS3 = "s3"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port      string
	AppEnv    string
	LogLevel  string
	LogFormat string
	JWTSecret string // empty leaves upload/delete routes open

	StaticRoot        string
	MaxUploadSize     int64
	AllowedExtensions []string
	IndexPath         string // badger directory for the local id index; empty disables it

	RemoteProvider string
	RemoteTimeout  time.Duration

	// Cloudflare Images
	Remote        storage.BackendConfig
	ImagesAPIBase string

	// Object storage (S3-compatible: MinIO locally, ArvanCloud in production)
	ObjectStore storage.ObjectStoreConfig

	// Default asset filenames
	DefaultAvatar       string
	DefaultProductImage string
	DefaultNoImage      string
	DefaultLogo         string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, reading from environment")
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		JWTSecret: getEnv("JWT_SECRET", ""),

		StaticRoot:        getEnv("STATIC_ROOT", "./static"),
		MaxUploadSize:     getEnvInt64("MAX_UPLOAD_SIZE", 16<<20),
		AllowedExtensions: getEnvList("ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif", "webp"}),
		IndexPath:         getEnv("IMAGE_INDEX_PATH", ""),

		RemoteProvider: strings.ToLower(getEnv("REMOTE_PROVIDER", ProviderImagesAPI)),
		RemoteTimeout:  getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),

		Remote: storage.BackendConfig{
			AccountID:   getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
			APIToken:    getEnv("CLOUDFLARE_API_TOKEN", ""),
			DeliveryURL: getEnv("CLOUDFLARE_IMAGE_DELIVERY_URL", ""),
		},
		ImagesAPIBase: getEnv("CLOUDFLARE_API_BASE", storage.DefaultImagesAPIBase),

		ObjectStore: storage.ObjectStoreConfig{
			Endpoint:   getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:  getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:  getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:     getEnv("STORAGE_BUCKET", "images"),
			PublicBase: getEnv("STORAGE_PUBLIC_BASE", ""),
			Region:     getEnv("STORAGE_REGION", ""),
			UseSSL:     getEnv("STORAGE_USE_SSL", "false") == "true",
		},

		DefaultAvatar:       getEnv("DEFAULT_AVATAR", "default-avatar.png"),
		DefaultProductImage: getEnv("DEFAULT_PRODUCT_IMAGE", "product-placeholder.jpg"),
		DefaultNoImage:      getEnv("DEFAULT_NO_IMAGE", "no-image.png"),
		DefaultLogo:         getEnv("DEFAULT_LOGO", "logo.png"),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ImagesRoot is the directory holding every namespace: {StaticRoot}/images.
func (c *Config) ImagesRoot() string {
	return filepath.Join(c.StaticRoot, "images")
}

// DefaultAssets lists the placeholders to provision at startup.
func (c *Config) DefaultAssets() []storage.DefaultAsset {
	return []storage.DefaultAsset{
		{Namespace: storage.Users, Filename: c.DefaultAvatar},
		{Namespace: storage.Products, Filename: c.DefaultProductImage},
		{Namespace: storage.Placeholders, Filename: c.DefaultNoImage},
		{Namespace: storage.RootNamespace, Filename: c.DefaultLogo},
	}
}

// DefaultURL returns the fallback URL used when an image in ns cannot be resolved.
func (c *Config) DefaultURL(ns storage.Namespace) string {
	switch ns {
	case storage.Users:
		return storage.DefaultAsset{Namespace: storage.Users, Filename: c.DefaultAvatar}.URL()
	case storage.Products:
		return storage.DefaultAsset{Namespace: storage.Products, Filename: c.DefaultProductImage}.URL()
	default:
		return storage.DefaultAsset{Namespace: storage.Placeholders, Filename: c.DefaultNoImage}.URL()
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(item), "."))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
