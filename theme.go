package codegrabber

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	themeCookie = "theme"
	themeMaxAge = 365 * 24 * 60 * 60
)

// ThemeStore keeps the light/dark preference in a cookie.
type ThemeStore struct {
	Secure bool
}

// Load returns the theme for the request, light when unset.
func (s ThemeStore) Load(c echo.Context) string {
	ck, err := c.Cookie(themeCookie)
	if err != nil || ck.Value != ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Save persists theme for a year.
func (s ThemeStore) Save(c echo.Context, theme string) {
	if theme != ThemeDark {
		theme = ThemeLight
	}
	c.SetCookie(&http.Cookie{
		Name:     themeCookie,
		Value:    theme,
		Path:     "/",
		MaxAge:   themeMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Secure,
	})
}

// Toggle flips and saves the theme, returning the new value.
func (s ThemeStore) Toggle(c echo.Context) string {
	next := ThemeDark
	if s.Load(c) == ThemeDark {
		next = ThemeLight
	}
	s.Save(c, next)
	return next
}

func (a *App) handleThemeToggle(c echo.Context) error {
	a.Theme.Toggle(c)
	if isHTMX(c) {
		c.Response().Header().Set("HX-Refresh", "true")
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, backPath(c.Request().Referer()))
}

// backPath returns the local path of a referer, or "/".
func backPath(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Path == "" {
		return "/"
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") || strings.HasPrefix(u.Path, "/\\") {
		return "/"
	}
	return u.RequestURI()
}
