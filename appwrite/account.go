package appwrite

import (
	"context"
	"net/http"
	"net/url"

	"github.com/codegrabber/codegrabber/backend"
)

// Accounts implements backend.Accounts.
type Accounts struct {
	c *Client
}

var _ backend.Accounts = (*Accounts)(nil)

type accountJSON struct {
	ID        string         `json:"$id"`
	CreatedAt string         `json:"$createdAt"`
	UpdatedAt string         `json:"$updatedAt"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Prefs     map[string]any `json:"prefs"`
}

func (a accountJSON) account() backend.Account {
	prefs := backend.Prefs(a.Prefs)
	if prefs == nil {
		prefs = backend.Prefs{}
	}
	return backend.Account{
		ID:        a.ID,
		CreatedAt: backend.ParseTime(a.CreatedAt),
		UpdatedAt: backend.ParseTime(a.UpdatedAt),
		Name:      a.Name,
		Email:     a.Email,
		Prefs:     prefs,
	}
}

type sessionJSON struct {
	ID       string `json:"$id"`
	UserID   string `json:"userId"`
	Secret   string `json:"secret"`
	Provider string `json:"provider"`
	Expire   string `json:"expire"`
}

func (s sessionJSON) session() backend.Session {
	return backend.Session{
		ID:       s.ID,
		UserID:   s.UserID,
		Secret:   s.Secret,
		Provider: s.Provider,
		Expire:   backend.ParseTime(s.Expire),
	}
}

func (a *Accounts) Create(ctx context.Context, userID, email, password, name string) (backend.Account, error) {
	var out accountJSON
	err := a.c.call(ctx, http.MethodPost, "/account", nil, map[string]string{
		"userId":   userID,
		"email":    email,
		"password": password,
		"name":     name,
	}, "", &out)
	if err != nil {
		return backend.Account{}, err
	}
	return out.account(), nil
}

func (a *Accounts) CreateEmailPasswordSession(ctx context.Context, email, password string) (backend.Session, error) {
	var out sessionJSON
	err := a.c.call(ctx, http.MethodPost, "/account/sessions/email", nil, map[string]string{
		"email":    email,
		"password": password,
	}, "", &out)
	if err != nil {
		return backend.Session{}, err
	}
	return out.session(), nil
}

func (a *Accounts) CreateSession(ctx context.Context, userID, secret string) (backend.Session, error) {
	var out sessionJSON
	err := a.c.call(ctx, http.MethodPost, "/account/sessions/token", nil, map[string]string{
		"userId": userID,
		"secret": secret,
	}, "", &out)
	if err != nil {
		return backend.Session{}, err
	}
	return out.session(), nil
}

func (a *Accounts) Get(ctx context.Context) (backend.Account, error) {
	var out accountJSON
	if err := a.c.call(ctx, http.MethodGet, "/account", nil, nil, "", &out); err != nil {
		return backend.Account{}, err
	}
	return out.account(), nil
}

func (a *Accounts) UpdatePrefs(ctx context.Context, prefs backend.Prefs) (backend.Account, error) {
	var out accountJSON
	err := a.c.call(ctx, http.MethodPatch, "/account/prefs", nil, map[string]any{
		"prefs": map[string]any(prefs),
	}, "", &out)
	if err != nil {
		return backend.Account{}, err
	}
	return out.account(), nil
}

// DeleteSession removes sessionID; "current" removes the session in ctx.
func (a *Accounts) DeleteSession(ctx context.Context, sessionID string) error {
	return a.c.call(ctx, http.MethodDelete, "/account/sessions/"+url.PathEscape(sessionID), nil, nil, "", nil)
}

// OAuth2URL is where the browser starts an OAuth2 token flow. The platform
// redirects to success with userId and secret query parameters.
func (a *Accounts) OAuth2URL(provider, success, failure string) string {
	q := url.Values{}
	q.Set("project", a.c.cfg.ProjectID)
	q.Set("success", success)
	q.Set("failure", failure)
	return a.c.cfg.Endpoint + "/account/tokens/oauth2/" + url.PathEscape(provider) + "?" + q.Encode()
}
