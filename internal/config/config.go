package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the FileVault API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Blob     BlobConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Files    FilesConfig
	Events   EventsConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Migrate  bool
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Blob backends.
const (
	BlobBackendFS    = "fs"
	BlobBackendMinIO = "minio"
)

// BlobConfig selects and configures the blob store.
type BlobConfig struct {
	Backend string
	Root    string
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenTTL    time.Duration
	BcryptCost        int
}

// FilesConfig tunes the storage coordinator.
type FilesConfig struct {
	MaxUploadBytes     int64
	BatchDeleteAtomic  bool
	CleanupConcurrency int
}

// EventsConfig configures lifecycle event publishing. An empty URL disables it.
type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("FILEVAULT_API_HOST", "0.0.0.0"),
			Port:         getInt("FILEVAULT_API_PORT", 8080),
			ReadTimeout:  getDuration("FILEVAULT_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("FILEVAULT_API_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDuration("FILEVAULT_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "filevault_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "filevault"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			Migrate:  getBool("FILEVAULT_MIGRATE", true),
		},
		Blob: BlobConfig{
			Backend: strings.ToLower(getString("FILEVAULT_BLOB_BACKEND", BlobBackendFS)),
			Root:    getString("FILEVAULT_STORAGE_ROOT", "./data/blobs"),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "filevault"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "filevault"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Auth: loadAuthConfig(),
		Files: FilesConfig{
			MaxUploadBytes:     int64(getInt("FILEVAULT_MAX_UPLOAD_BYTES", 100*1024*1024)),
			BatchDeleteAtomic:  getBool("FILEVAULT_BATCH_DELETE_ATOMIC", true),
			CleanupConcurrency: getInt("FILEVAULT_CLEANUP_CONCURRENCY", 4),
		},
		Events: EventsConfig{
			AMQPURL:  getString("FILEVAULT_AMQP_URL", ""),
			Exchange: getString("FILEVAULT_AMQP_EXCHANGE", "filevault.events"),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("FILEVAULT_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Blob.Backend {
	case BlobBackendFS:
		if strings.TrimSpace(c.Blob.Root) == "" {
			return fmt.Errorf("FILEVAULT_STORAGE_ROOT is required for the fs backend")
		}
	case BlobBackendMinIO:
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("MINIO_BUCKET is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown blob backend %q", c.Blob.Backend)
	}
	if c.Files.MaxUploadBytes <= 0 {
		return fmt.Errorf("FILEVAULT_MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("FILEVAULT_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret: getString("FILEVAULT_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		AccessTokenTTL:    getDuration("FILEVAULT_AUTH_ACCESS_TOKEN_TTL", 60*time.Minute),
		BcryptCost:        cost,
	}
}
