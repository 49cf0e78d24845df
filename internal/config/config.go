package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"catalog/internal/storage"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the API.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"postgres"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	// Role given to self-registered accounts.
	RegistrationRole string `envconfig:"REGISTRATION_ROLE" default:"Admin"`
	SeedOnStart      bool   `envconfig:"SEED_ON_START" default:"true"`

	// Bootstrap Super Admin, created on start when both are set.
	AdminName     string `envconfig:"ADMIN_NAME" default:"Super Admin"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	StorageDriver    string `envconfig:"STORAGE_DRIVER" default:"local"`
	StorageLocalRoot string `envconfig:"STORAGE_LOCAL_ROOT" default:"storage"`
	StoragePublicURL string `envconfig:"STORAGE_PUBLIC_URL" default:"http://localhost:8080/storage"`
	S3Bucket         string `envconfig:"S3_BUCKET"`
	S3Region         string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey      string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey      string `envconfig:"S3_SECRET_KEY"`
	S3Endpoint       string `envconfig:"S3_ENDPOINT"`

	// Empty disables the permission cache.
	RedisAddr          string        `envconfig:"REDIS_ADDR"`
	PermissionCacheTTL time.Duration `envconfig:"PERMISSION_CACHE_TTL" default:"5m"`

	CORSOrigins    []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`
	MaxUploadBytes int64    `envconfig:"MAX_UPLOAD_BYTES" default:"2097152"`

	// Whole request, all files included.
	MaxRequestBytes int64 `envconfig:"MAX_REQUEST_BYTES" default:"33554432"`
	SwaggerEnabled  bool  `envconfig:"SWAGGER_ENABLED" default:"true"`
}

// Load reads configs/.env when present, then the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "default_super_secret_key"
	}
	if strings.EqualFold(cfg.StorageDriver, "s3") && cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET must be set when STORAGE_DRIVER=s3")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && (c.AppEnv == "production" || os.Getenv("GIN_MODE") == "release")
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func (c *Config) Storage() storage.Config {
	return storage.Config{
		Driver:    strings.ToLower(c.StorageDriver),
		LocalRoot: c.StorageLocalRoot,
		PublicURL: c.StoragePublicURL,
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Endpoint:  c.S3Endpoint,
	}
}

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
