package codegrabber

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestBackPath(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"", "/"},
		{"http://localhost:3000/blogs/?tag=go", "/blogs/?tag=go"},
		{"/profile/u1/", "/profile/u1/"},
		{"https://evil.example.com", "/"},
		{"//evil.example.com/x", "/x"},
		{"http://localhost:3000//evil.example.com", "/"},
		{"/\\evil.example.com", "/"},
		{"::not a url", "/"},
	}
	for _, tt := range tests {
		if got := backPath(tt.ref); got != tt.want {
			t.Errorf("backPath(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestThemeStoreLoad(t *testing.T) {
	e := echo.New()
	var s ThemeStore

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := s.Load(e.NewContext(req, httptest.NewRecorder())); got != ThemeLight {
		t.Errorf("no cookie: got %q, want light", got)
	}

	req.AddCookie(&http.Cookie{Name: themeCookie, Value: "purple"})
	if got := s.Load(e.NewContext(req, httptest.NewRecorder())); got != ThemeLight {
		t.Errorf("unknown value: got %q, want light", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: themeCookie, Value: ThemeDark})
	if got := s.Load(e.NewContext(req, httptest.NewRecorder())); got != ThemeDark {
		t.Errorf("dark cookie: got %q, want dark", got)
	}
}

func TestThemeStoreToggle(t *testing.T) {
	e := echo.New()
	s := ThemeStore{Secure: true}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/theme/", nil), rec)

	if got := s.Toggle(c); got != ThemeDark {
		t.Fatalf("Toggle from light = %q, want dark", got)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	ck := cookies[0]
	if ck.Name != themeCookie || ck.Value != ThemeDark {
		t.Errorf("cookie = %s=%s", ck.Name, ck.Value)
	}
	if ck.MaxAge != themeMaxAge || !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie attributes: %+v", ck)
	}
}
