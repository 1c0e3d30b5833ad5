// Package backendtest provides an in-memory backend for tests. It records
// every call so tests can assert how many round trips an operation made.
package backendtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codegrabber/codegrabber/backend"
)

type account struct {
	backend.Account
	password string
}

// Fake implements backend.Accounts, backend.Databases and backend.Storage.
type Fake struct {
	mu       sync.Mutex
	docs     map[string][]backend.Document
	files    map[string]backend.File
	accounts map[string]*account
	sessions map[string]string
	calls    map[string]int
	queries  map[string][][]backend.Query
	errs     map[string]error
	clock    time.Time
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		docs:     make(map[string][]backend.Document),
		files:    make(map[string]backend.File),
		accounts: make(map[string]*account),
		sessions: make(map[string]string),
		calls:    make(map[string]int),
		queries:  make(map[string][][]backend.Query),
		errs:     make(map[string]error),
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Client wraps f as a backend.Client.
func (f *Fake) Client() backend.Client {
	return backend.Client{Accounts: f, Databases: f, Storage: f}
}

// Calls returns how many times method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// StorageCalls returns the number of object storage calls.
func (f *Fake) StorageCalls() int {
	return f.Calls("CreateFile") + f.Calls("DeleteFile") + f.Calls("FileURL")
}

// Queries returns the query lists passed to ListDocuments, in call order.
func (f *Fake) Queries() [][]backend.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]backend.Query(nil), f.queries["ListDocuments"]...)
}

// Fail makes every later call to method return err.
func (f *Fake) Fail(method string, err error) {
	f.mu.Lock()
	f.errs[method] = err
	f.mu.Unlock()
}

// Reset clears recorded calls without touching stored data.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.calls = make(map[string]int)
	f.queries = make(map[string][][]backend.Query)
	f.mu.Unlock()
}

// Seed stores a document without recording a call. Each seeded document is
// one second newer than the previous one.
func (f *Fake) Seed(collection, id string, data map[string]any) backend.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.newDoc(collection, id, data, nil)
	f.docs[collection] = append(f.docs[collection], doc)
	return doc
}

// SeedFile stores file metadata without recording a call.
func (f *Fake) SeedFile(id, name string) {
	f.mu.Lock()
	f.files[id] = backend.File{ID: id, Name: name, CreatedAt: f.tick()}
	f.mu.Unlock()
}

// HasFile reports whether an object with id is stored.
func (f *Fake) HasFile(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[id]
	return ok
}

// HasDocument reports whether collection holds a document with id.
func (f *Fake) HasDocument(collection, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, i := f.find(collection, id)
	return i >= 0
}

// AddAccount registers an account that can sign in with email and password.
func (f *Fake) AddAccount(id, email, password, name string) {
	f.mu.Lock()
	f.accounts[id] = &account{
		Account:  backend.Account{ID: id, Email: email, Name: name, Prefs: backend.Prefs{}, CreatedAt: f.tick()},
		password: password,
	}
	f.mu.Unlock()
}

// IssueSession creates a session for userID and returns its secret.
func (f *Fake) IssueSession(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	secret := "secret-" + userID
	f.sessions[secret] = userID
	return secret
}

func (f *Fake) record(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.errs[method]
}

func (f *Fake) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *Fake) newDoc(collection, id string, data map[string]any, perms []string) backend.Document {
	now := f.tick()
	return backend.Document{
		ID:          id,
		Collection:  collection,
		CreatedAt:   now,
		UpdatedAt:   now,
		Permissions: perms,
		Data:        copyData(data),
	}
}

func (f *Fake) find(collection, id string) (backend.Document, int) {
	for i, d := range f.docs[collection] {
		if d.ID == id {
			return d, i
		}
	}
	return backend.Document{}, -1
}

func (f *Fake) sessionUser(ctx context.Context) (*account, error) {
	secret, ok := backend.SessionFrom(ctx)
	if !ok {
		return nil, &backend.Error{Code: http.StatusUnauthorized, Type: "general_unauthorized_scope", Message: "User (role: guests) missing scope (account)"}
	}
	acc, ok := f.accounts[f.sessions[secret]]
	if !ok {
		return nil, &backend.Error{Code: http.StatusUnauthorized, Type: "user_unauthorized", Message: "The current user is not authorized to perform the requested action."}
	}
	return acc, nil
}

func notFound(what string) error {
	return &backend.Error{Code: http.StatusNotFound, Type: what + "_not_found", Message: "Requested " + what + " could not be found."}
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// Accounts

func (f *Fake) Create(_ context.Context, userID, email, password, name string) (backend.Account, error) {
	if err := f.record("Create"); err != nil {
		return backend.Account{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) {
			return backend.Account{}, &backend.Error{Code: http.StatusConflict, Type: "user_already_exists", Message: "A user with the same id, email, or phone already exists in this project."}
		}
	}
	acc := &account{
		Account:  backend.Account{ID: userID, Email: email, Name: name, Prefs: backend.Prefs{}, CreatedAt: f.tick()},
		password: password,
	}
	f.accounts[userID] = acc
	return acc.Account, nil
}

func (f *Fake) CreateEmailPasswordSession(_ context.Context, email, password string) (backend.Session, error) {
	if err := f.record("CreateEmailPasswordSession"); err != nil {
		return backend.Session{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.accounts {
		if strings.EqualFold(a.Email, email) && a.password == password {
			secret := "secret-" + id
			f.sessions[secret] = id
			return backend.Session{ID: "session-" + id, UserID: id, Secret: secret, Provider: "email"}, nil
		}
	}
	return backend.Session{}, &backend.Error{Code: http.StatusUnauthorized, Type: "user_invalid_credentials", Message: "Invalid credentials. Please check the email and password."}
}

func (f *Fake) CreateSession(_ context.Context, userID, secret string) (backend.Session, error) {
	if err := f.record("CreateSession"); err != nil {
		return backend.Session{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[userID]; !ok || secret == "" {
		return backend.Session{}, &backend.Error{Code: http.StatusUnauthorized, Type: "user_invalid_token", Message: "Invalid token passed in the request."}
	}
	s := "secret-" + userID
	f.sessions[s] = userID
	return backend.Session{ID: "session-" + userID, UserID: userID, Secret: s, Provider: "oauth2"}, nil
}

func (f *Fake) Get(ctx context.Context) (backend.Account, error) {
	if err := f.record("Get"); err != nil {
		return backend.Account{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, err := f.sessionUser(ctx)
	if err != nil {
		return backend.Account{}, err
	}
	return acc.Account, nil
}

func (f *Fake) UpdatePrefs(ctx context.Context, prefs backend.Prefs) (backend.Account, error) {
	if err := f.record("UpdatePrefs"); err != nil {
		return backend.Account{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, err := f.sessionUser(ctx)
	if err != nil {
		return backend.Account{}, err
	}
	acc.Prefs = backend.Prefs{}
	for k, v := range prefs {
		acc.Prefs[k] = v
	}
	acc.UpdatedAt = f.tick()
	return acc.Account, nil
}

func (f *Fake) DeleteSession(ctx context.Context, _ string) error {
	if err := f.record("DeleteSession"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	secret, _ := backend.SessionFrom(ctx)
	delete(f.sessions, secret)
	return nil
}

func (f *Fake) OAuth2URL(provider, success, failure string) string {
	return fmt.Sprintf("https://backend.test/v1/account/tokens/oauth2/%s?success=%s&failure=%s", provider, success, failure)
}

// Databases

func (f *Fake) ListDocuments(_ context.Context, collection string, queries ...backend.Query) (backend.DocumentList, error) {
	f.mu.Lock()
	f.queries["ListDocuments"] = append(f.queries["ListDocuments"], queries)
	f.mu.Unlock()
	if err := f.record("ListDocuments"); err != nil {
		return backend.DocumentList{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	docs := append([]backend.Document(nil), f.docs[collection]...)
	limit, offset := 25, 0
	for _, q := range queries {
		switch q.Method {
		case "equal":
			docs = filter(docs, func(d backend.Document) bool { return matchesAny(attr(d, q.Attribute), q.Values) })
		case "contains":
			docs = filter(docs, func(d backend.Document) bool {
				for _, v := range d.Strings(q.Attribute) {
					if matchesAny(v, q.Values) {
						return true
					}
				}
				return false
			})
		case "search":
			needle := strings.ToLower(fmt.Sprint(q.Values[0]))
			docs = filter(docs, func(d backend.Document) bool {
				return strings.Contains(strings.ToLower(d.String(q.Attribute)), needle)
			})
		case "orderDesc":
			sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
		case "orderAsc":
			sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
		case "limit":
			limit = toInt(q.Values[0])
		case "offset":
			offset = toInt(q.Values[0])
		}
	}
	total := len(docs)
	if offset > len(docs) {
		offset = len(docs)
	}
	docs = docs[offset:]
	if limit < len(docs) {
		docs = docs[:limit]
	}
	return backend.DocumentList{Total: total, Documents: docs}, nil
}

func (f *Fake) GetDocument(_ context.Context, collection, id string) (backend.Document, error) {
	if err := f.record("GetDocument"); err != nil {
		return backend.Document{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, i := f.find(collection, id)
	if i < 0 {
		return backend.Document{}, notFound("document")
	}
	return d, nil
}

func (f *Fake) CreateDocument(_ context.Context, collection, id string, data map[string]any, permissions []string) (backend.Document, error) {
	if err := f.record("CreateDocument"); err != nil {
		return backend.Document{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, i := f.find(collection, id); i >= 0 {
		return backend.Document{}, &backend.Error{Code: http.StatusConflict, Type: "document_already_exists", Message: "Document with the requested ID already exists."}
	}
	if slug, ok := data["slug"].(string); ok {
		for _, d := range f.docs[collection] {
			if d.String("slug") == slug {
				return backend.Document{}, &backend.Error{Code: http.StatusConflict, Type: "document_already_exists", Message: "Document with the requested ID already exists."}
			}
		}
	}
	doc := f.newDoc(collection, id, data, permissions)
	f.docs[collection] = append(f.docs[collection], doc)
	return doc, nil
}

func (f *Fake) UpdateDocument(_ context.Context, collection, id string, data map[string]any, permissions []string) (backend.Document, error) {
	if err := f.record("UpdateDocument"); err != nil {
		return backend.Document{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, i := f.find(collection, id)
	if i < 0 {
		return backend.Document{}, notFound("document")
	}
	for k, v := range data {
		d.Data[k] = v
	}
	if permissions != nil {
		d.Permissions = permissions
	}
	d.UpdatedAt = f.tick()
	f.docs[collection][i] = d
	return d, nil
}

func (f *Fake) UpsertDocument(_ context.Context, collection, id string, data map[string]any, permissions []string) (backend.Document, error) {
	if err := f.record("UpsertDocument"); err != nil {
		return backend.Document{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, i := f.find(collection, id)
	if i < 0 {
		doc := f.newDoc(collection, id, data, permissions)
		f.docs[collection] = append(f.docs[collection], doc)
		return doc, nil
	}
	d.Data = copyData(data)
	if permissions != nil {
		d.Permissions = permissions
	}
	d.UpdatedAt = f.tick()
	f.docs[collection][i] = d
	return d, nil
}

func (f *Fake) DeleteDocument(_ context.Context, collection, id string) error {
	if err := f.record("DeleteDocument"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, i := f.find(collection, id)
	if i < 0 {
		return notFound("document")
	}
	docs := f.docs[collection]
	f.docs[collection] = append(docs[:i:i], docs[i+1:]...)
	return nil
}

// Storage

func (f *Fake) CreateFile(_ context.Context, id string, upload backend.Upload, _ []string) (backend.File, error) {
	if err := f.record("CreateFile"); err != nil {
		return backend.File{}, err
	}
	n, err := io.Copy(io.Discard, upload.Body)
	if err != nil {
		return backend.File{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	file := backend.File{ID: id, Name: upload.Name, MimeType: upload.ContentType, Size: n, CreatedAt: f.tick()}
	f.files[id] = file
	return file, nil
}

func (f *Fake) DeleteFile(_ context.Context, id string) error {
	if err := f.record("DeleteFile"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return notFound("storage_file")
	}
	delete(f.files, id)
	return nil
}

func (f *Fake) FileURL(_ context.Context, id string) (string, error) {
	if err := f.record("FileURL"); err != nil {
		return "", err
	}
	return "https://backend.test/v1/storage/files/" + id + "/view", nil
}

func filter(docs []backend.Document, keep func(backend.Document) bool) []backend.Document {
	out := docs[:0]
	for _, d := range docs {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func attr(d backend.Document, name string) string {
	if name == backend.AttrID {
		return d.ID
	}
	return d.Ref(name)
}

func matchesAny(v string, values []any) bool {
	for _, want := range values {
		if fmt.Sprint(want) == v {
			return true
		}
	}
	return false
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
