package codegrabber

import (
	"crypto/sha256"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/hkdf"

	"github.com/codegrabber/codegrabber/backend"
)

const (
	sessionName   = "cg_session"
	sessionSecret = "secret"
	sessionUser   = "user"
	userKey       = "user"
)

// maxSessionPicture bounds the avatar URL kept in the cookie. Longer URLs
// are left out and the navbar falls back to the initial.
const maxSessionPicture = 512

// sessionProfile is the part of the user that rides along in the cookie.
// The bio and timestamps are loaded from the backend when a page needs them.
type sessionProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Picture  string `json:"picture,omitempty"`
}

func newSessionProfile(u backend.User) sessionProfile {
	p := sessionProfile{ID: u.ID, Username: u.Username, Email: u.Email}
	if len(u.ProfilePicture) <= maxSessionPicture {
		p.Picture = u.ProfilePicture
	}
	return p
}

func (p sessionProfile) user() *backend.User {
	return &backend.User{ID: p.ID, Username: p.Username, Email: p.Email, ProfilePicture: p.Picture}
}

// sessionKeys derives the cookie signing and encryption keys from the
// configured secret. HKDF-SHA256 only fails past 8160 bytes of output.
func sessionKeys(secret string) (hashKey, blockKey []byte) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("codegrabber session"))
	hashKey = make([]byte, 64)
	blockKey = make([]byte, 32)
	_, _ = io.ReadFull(r, hashKey)
	_, _ = io.ReadFull(r, blockKey)
	return hashKey, blockKey
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore(sessionKeys(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 24 * 30,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// loadSession restores the signed-in user from the session cookie and puts
// the backend session secret on the request context.
func loadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := session.Get(sessionName, c)
		if err != nil {
			return next(c)
		}
		secret, _ := sess.Values[sessionSecret].(string)
		raw, _ := sess.Values[sessionUser].(string)
		if secret == "" || raw == "" {
			return next(c)
		}
		var p sessionProfile
		if err := json.Unmarshal([]byte(raw), &p); err != nil || p.ID == "" {
			c.Logger().Warnf("session: decode user: %v", err)
			return next(c)
		}
		c.Set(userKey, p.user())
		req := c.Request()
		c.SetRequest(req.WithContext(backend.WithSession(req.Context(), secret)))
		return next(c)
	}
}

// CurrentUser returns the signed-in user, or nil. Outside the request that
// signed in or saved the profile only the fields kept in the cookie are set.
func CurrentUser(c echo.Context) *backend.User {
	u, _ := c.Get(userKey).(*backend.User)
	return u
}

// saveSession stores the session secret and a compact copy of u. The full
// user stays available to the rest of the request.
func saveSession(c echo.Context, secret string, u backend.User) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(newSessionProfile(u))
	if err != nil {
		return err
	}
	if secret != "" {
		sess.Values[sessionSecret] = secret
	}
	sess.Values[sessionUser] = string(raw)
	c.Set(userKey, &u)
	return sess.Save(c.Request(), c.Response())
}

func clearSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	c.Set(userKey, nil)
	return sess.Save(c.Request(), c.Response())
}
