// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends for generated receipts.
const (
	StorageLocal   = "local"
	StorageS3      = "s3"
	StorageGateway = "gateway"
)

// Auth providers.
const (
	AuthJWT = "jwt"
	// AuthDev accepts unsigned tokens. Local development only.
	AuthDev = "dev"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// DatabaseURL is the Postgres connection string. When set, the server
	// serves the query gateway. At least one of DatabaseURL and
	// QueryEndpoint is required.
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrateOnStart applies the development schema at startup. The
	// production tables belong to the deployment, so it stays off unless a
	// local database is being bootstrapped.
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"false"`

	// QueryEndpoint points the console at a remote query gateway instead of
	// the local pool.
	QueryEndpoint string `env:"QUERY_ENDPOINT"`

	// LogLevel controls the minimum log level.
	// Valid values: debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFile, when set, also writes JSON logs to a rotated file.
	LogFile string `env:"LOG_FILE"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	AuthProvider string `env:"AUTH_PROVIDER" envDefault:"jwt"`
	JWTSecret    string `env:"JWT_SECRET"`

	StorageBackend  string `env:"STORAGE_BACKEND" envDefault:"local"`
	StorageLocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/receipts"`
	// StoragePublicURL is where StorageLocalDir is served.
	StoragePublicURL string `env:"STORAGE_PUBLIC_URL" envDefault:"http://localhost:8080/files"`
	UploadEndpoint   string `env:"UPLOAD_ENDPOINT"`

	S3Bucket          string `env:"S3_BUCKET"`
	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"S3_ENDPOINT"`

	// MaxBodyBytes caps request bodies. Uploads arrive as JSON byte arrays
	// and photos as data URLs, so the default is generous.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"33554432"`

	// Timezone is used for validity comparisons and receipt dates.
	Timezone string `env:"TZ_NAME" envDefault:"America/Mexico_City"`

	ReceiptLogoPath     string `env:"RECEIPT_LOGO_PATH"`
	ReceiptPlace        string `env:"RECEIPT_PLACE"`
	ReceiptOrganization string `env:"RECEIPT_ORGANIZATION"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	location *time.Location
}

// Location returns the loaded Timezone.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Load reads an optional .env file, then configuration from the process
// environment. Variables already set in the environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom reads configuration from vars only.
func LoadFrom(vars map[string]string) (Config, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.CORSOrigins = compact(cfg.CORSOrigins)
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:5173"}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("config: TZ_NAME: %w", err)
	}
	cfg.location = loc
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if c.DatabaseURL == "" && c.QueryEndpoint == "" {
		missing = append(missing, "DATABASE_URL or QUERY_ENDPOINT")
	}
	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" {
			missing = append(missing, "JWT_SECRET")
		}
	case AuthDev:
	default:
		return fmt.Errorf("config: AUTH_PROVIDER must be %q or %q, got %q", AuthJWT, AuthDev, c.AuthProvider)
	}
	switch c.StorageBackend {
	case StorageS3:
		if c.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
	case StorageGateway:
		if c.UploadEndpoint == "" {
			missing = append(missing, "UPLOAD_ENDPOINT")
		}
	case StorageLocal:
	default:
		return fmt.Errorf("config: STORAGE_BACKEND must be local, s3 or gateway, got %q", c.StorageBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if c.MigrateOnStart && c.DatabaseURL == "" {
		return fmt.Errorf("config: MIGRATE_ON_START requires DATABASE_URL")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("config: MAX_BODY_BYTES must be positive")
	}
	return nil
}

// compact trims entries and drops empty ones.
func compact(in []string) []string {
	var out []string
	for _, part := range in {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
