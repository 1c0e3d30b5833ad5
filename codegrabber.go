// Package codegrabber is a blogging platform for developers built with Go,
// Echo and HTMX. Accounts, documents and files live on a hosted Appwrite
// project; this package serves the pages and wraps the backend calls in
// small stores.
package codegrabber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/codegrabber/codegrabber/analytics"
	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/logger"
	"github.com/codegrabber/codegrabber/views"
)

// App is the central application. It wires together the backend, the
// stores, handlers and middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Backend backend.Client
	Log     *logger.Logger

	Auth   *AuthStore
	Posts  *PostStore
	Assets *AssetStore
	Theme  ThemeStore
	Cache  *PostCache

	tracker         *analytics.Tracker
	stopCleanup     func()
	loginLimiter    *LoginLimiter
	validate        *validator.Validate
	customRoutes    []func(*App)
	backendInjected bool
}

// New creates an App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = logger.New(cfg.LogLevel)
	}
	return a
}

// Setup connects the backend, builds the stores and registers middleware
// and routes. It must be called once before Start or ServeHTTP.
func (a *App) Setup(ctx context.Context) error {
	if err := a.Config.validate(!a.backendInjected); err != nil {
		return err
	}

	if !a.backendInjected {
		be, err := NewBackend(ctx, a.Config)
		if err != nil {
			return err
		}
		a.Backend = be
	}

	a.validate = validator.New(validator.WithRequiredStructEnabled())
	a.Cache = NewPostCache(a.Config.PostCacheTTL)
	aw := a.Config.Appwrite
	a.Auth = NewAuthStore(a.Backend, aw.UsersCollection, a.Config.URL, a.Log, a.validate)
	a.Posts = NewPostStore(a.Backend.Databases, aw.PostsCollection, a.Cache, a.Log, a.validate)
	a.Assets = NewAssetStore(a.Backend, aw.AssetsCollection, a.Log)
	a.Theme = ThemeStore{Secure: a.Config.CookieSecure}
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if a.Config.AnalyticsEnabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDatabasePath)
		if err != nil {
			return fmt.Errorf("codegrabber: init analytics: %w", err)
		}
		tracker, err := analytics.NewTracker(ctx, store, analytics.TrackerConfig{
			SiteHost: siteHost(a.Config.URL),
			Logger:   a.Log.Logger,
		})
		if err != nil {
			store.Close()
			return fmt.Errorf("codegrabber: init analytics: %w", err)
		}
		a.tracker = tracker
		a.stopCleanup = store.StartCleanupScheduler(365, 24*time.Hour, a.Log.Logger)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start serves HTTP on the configured address until Shutdown is called.
func (a *App) Start() error {
	a.Log.Info("listening", "addr", a.Config.Addr, "site", a.Config.URL)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.StaticFS("/public", views.Static())
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.POST("/theme/", a.handleThemeToggle)

	e.GET("/", a.handleHome)
	e.GET("/blogs/", a.handleBlogs)
	e.GET("/blogs/:slug/", a.handlePost)
	e.GET("/profile/:userId/", a.handleProfile)

	e.GET("/auth/", a.handleAuth)
	e.POST("/auth/signin/", a.handleSignIn)
	e.POST("/auth/signup/", a.handleSignUp)
	e.POST("/auth/logout/", a.handleLogout)
	e.GET("/auth/oauth/:provider/", a.handleOAuthStart)
	e.GET("/auth/callback/", a.handleOAuthCallback)
	e.GET("/auth/failure/", a.handleAuthFailure)

	e.GET("/admin/", a.handleAccount)
	e.POST("/admin/profile/", a.handleProfileUpdate)
	e.GET("/admin/create-blog/", a.handleEditor)
	e.POST("/admin/create-blog/", a.handleEditorSave)
	e.POST("/admin/preview/", a.handlePreview)
	e.GET("/admin/manage-blogs/", a.handleManage)
	e.DELETE("/admin/manage-blogs/:id/", a.handleManageDelete)
	e.GET("/admin/manage-blogs/:id/stats/", a.handleManageStats)
	e.GET("/admin/asset-manager/", a.handleAssets)
	e.POST("/admin/asset-manager/upload/", a.handleAssetUpload, uploadBodyLimit(), uploadRateLimit())
	e.DELETE("/admin/asset-manager/:id/", a.handleAssetDelete)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.stopCleanup != nil {
		a.stopCleanup()
	}
	if a.tracker != nil {
		// Waits for pending view writes before the database closes.
		a.tracker.Close()
		return a.tracker.Store().Close()
	}
	return nil
}

func siteHost(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}
	return u.Host
}
