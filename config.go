package codegrabber

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/logger"
)

// SiteConfig holds all configuration for a Code Grabber site.
type SiteConfig struct {
	Name        string `env:"SITE_NAME" envDefault:"Code Grabber"`
	URL         string `env:"SITE_URL" envDefault:"http://localhost:3000"`
	Description string `env:"SITE_DESCRIPTION" envDefault:"A blogging platform for developers: write markdown posts with code snippets and share them."`

	Addr     string `env:"ADDR" envDefault:":3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	SessionSecret string `env:"SESSION_SECRET"` // required
	CookieSecure  bool   `env:"COOKIE_SECURE"`  // set true behind HTTPS

	PostCacheTTL time.Duration `env:"POST_CACHE_TTL" envDefault:"1m"` // 0 disables the cache

	AnalyticsEnabled      bool   `env:"ANALYTICS_ENABLED" envDefault:"true"`
	AnalyticsDatabasePath string `env:"ANALYTICS_DB_PATH" envDefault:"data/analytics.db"`

	Appwrite AppwriteConfig `envPrefix:"APPWRITE_"`
	Storage  StorageConfig
}

// AppwriteConfig locates the hosted project and its collections.
type AppwriteConfig struct {
	Endpoint         string `env:"ENDPOINT" envDefault:"https://cloud.appwrite.io/v1"`
	ProjectID        string `env:"PROJECT_ID"`
	APIKey           string `env:"API_KEY"`
	DatabaseID       string `env:"DATABASE_ID" envDefault:"main"`
	UsersCollection  string `env:"USERS_COLLECTION" envDefault:"users"`
	PostsCollection  string `env:"POSTS_COLLECTION" envDefault:"blogposts"`
	AssetsCollection string `env:"ASSETS_COLLECTION" envDefault:"assets"`
	BucketID         string `env:"BUCKET_ID" envDefault:"user_assets"`
}

// StorageConfig selects where asset content lives. The appwrite driver
// uses the project bucket; s3 and minio use the S3_* settings.
type StorageConfig struct {
	Driver    string `env:"STORAGE_DRIVER" envDefault:"appwrite"`
	Endpoint  string `env:"S3_ENDPOINT"`
	Region    string `env:"S3_REGION" envDefault:"auto"`
	Bucket    string `env:"S3_BUCKET"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	PublicURL string `env:"S3_PUBLIC_URL"`
	UseSSL    bool   `env:"S3_USE_SSL" envDefault:"true"`
}

// Storage drivers.
const (
	DriverAppwrite = "appwrite"
	DriverS3       = "s3"
	DriverMinio    = "minio"
)

// LoadConfig reads the configuration from the environment.
func LoadConfig() (SiteConfig, error) {
	cfg, err := env.ParseAs[SiteConfig]()
	if err != nil {
		return SiteConfig{}, fmt.Errorf("codegrabber: parse env: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Code Grabber"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
	if c.Appwrite.DatabaseID == "" {
		c.Appwrite.DatabaseID = "main"
	}
	if c.Appwrite.UsersCollection == "" {
		c.Appwrite.UsersCollection = "users"
	}
	if c.Appwrite.PostsCollection == "" {
		c.Appwrite.PostsCollection = "blogposts"
	}
	if c.Appwrite.AssetsCollection == "" {
		c.Appwrite.AssetsCollection = "assets"
	}
	if c.Appwrite.BucketID == "" {
		c.Appwrite.BucketID = "user_assets"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverAppwrite
	}
}

func (c SiteConfig) validate(needBackend bool) error {
	if c.SessionSecret == "" {
		return fmt.Errorf("codegrabber: SESSION_SECRET is required")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("codegrabber: SESSION_SECRET must be at least 32 characters")
	}
	if needBackend && c.Appwrite.ProjectID == "" {
		return fmt.Errorf("codegrabber: APPWRITE_PROJECT_ID is required")
	}
	switch c.Storage.Driver {
	case DriverAppwrite:
	case DriverS3, DriverMinio:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("codegrabber: S3_BUCKET is required for the %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("codegrabber: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithBackend replaces the backend built from configuration.
func WithBackend(be backend.Client) Option {
	return func(a *App) {
		a.Backend = be
		a.backendInjected = true
	}
}

// WithLogger sets the application logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
