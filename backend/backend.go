// Package backend describes the hosted platform that owns Code Grabber's
// accounts, documents and files. Adapters for a concrete platform live in
// sibling packages; everything above them only sees these interfaces.
package backend

import (
	"context"
	"io"
	"time"
)

// Accounts is the authentication surface of the platform. Get, UpdatePrefs
// and DeleteSession act on the session carried by ctx (see WithSession).
type Accounts interface {
	Create(ctx context.Context, userID, email, password, name string) (Account, error)
	CreateEmailPasswordSession(ctx context.Context, email, password string) (Session, error)
	// CreateSession exchanges the userId/secret pair of an OAuth2 token
	// redirect for a session.
	CreateSession(ctx context.Context, userID, secret string) (Session, error)
	Get(ctx context.Context) (Account, error)
	UpdatePrefs(ctx context.Context, prefs Prefs) (Account, error)
	DeleteSession(ctx context.Context, sessionID string) error
	OAuth2URL(provider, success, failure string) string
}

// Databases is the document store. Collection names are resolved against the
// database the adapter was configured with.
type Databases interface {
	ListDocuments(ctx context.Context, collection string, queries ...Query) (DocumentList, error)
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	CreateDocument(ctx context.Context, collection, id string, data map[string]any, permissions []string) (Document, error)
	UpdateDocument(ctx context.Context, collection, id string, data map[string]any, permissions []string) (Document, error)
	UpsertDocument(ctx context.Context, collection, id string, data map[string]any, permissions []string) (Document, error)
	DeleteDocument(ctx context.Context, collection, id string) error
}

// Storage holds the binary content of assets.
type Storage interface {
	CreateFile(ctx context.Context, id string, upload Upload, permissions []string) (File, error)
	DeleteFile(ctx context.Context, id string) error
	FileURL(ctx context.Context, id string) (string, error)
}

// Client bundles the three services a running app talks to.
type Client struct {
	Accounts  Accounts
	Databases Databases
	Storage   Storage
}

// Account is the platform's view of a signed-up user.
type Account struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string
	Email     string
	Prefs     Prefs
}

// Prefs are free-form account preferences.
type Prefs map[string]any

// String returns the preference stored under key, or "" when it is absent or
// not a string.
func (p Prefs) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Session is an authenticated session. Secret is only populated when the
// session was created with server credentials.
type Session struct {
	ID       string
	UserID   string
	Secret   string
	Provider string
	Expire   time.Time
}

// Upload is a file about to be stored.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// File is stored object metadata.
type File struct {
	ID        string
	Name      string
	MimeType  string
	Size      int64
	CreatedAt time.Time
}
