package appwrite

import (
	"context"
	"net/http"
	"net/url"

	"github.com/codegrabber/codegrabber/backend"
)

// Databases implements backend.Databases against the configured database.
type Databases struct {
	c *Client
}

var _ backend.Databases = (*Databases)(nil)

func (d *Databases) path(collection string, id ...string) string {
	p := "/databases/" + url.PathEscape(d.c.cfg.DatabaseID) +
		"/collections/" + url.PathEscape(collection) + "/documents"
	if len(id) > 0 {
		p += "/" + url.PathEscape(id[0])
	}
	return p
}

func (d *Databases) ListDocuments(ctx context.Context, collection string, queries ...backend.Query) (backend.DocumentList, error) {
	var out backend.DocumentList
	err := d.c.call(ctx, http.MethodGet, d.path(collection), encodeQueries(queries), nil, "", &out)
	return out, err
}

func (d *Databases) GetDocument(ctx context.Context, collection, id string) (backend.Document, error) {
	var out backend.Document
	err := d.c.call(ctx, http.MethodGet, d.path(collection, id), nil, nil, "", &out)
	return out, err
}

func (d *Databases) CreateDocument(ctx context.Context, collection, id string, data map[string]any, permissions []string) (backend.Document, error) {
	body := map[string]any{
		"documentId": id,
		"data":       data,
	}
	if permissions != nil {
		body["permissions"] = permissions
	}
	var out backend.Document
	err := d.c.call(ctx, http.MethodPost, d.path(collection), nil, body, "", &out)
	return out, err
}

func (d *Databases) UpdateDocument(ctx context.Context, collection, id string, data map[string]any, permissions []string) (backend.Document, error) {
	body := map[string]any{"data": data}
	if permissions != nil {
		body["permissions"] = permissions
	}
	var out backend.Document
	err := d.c.call(ctx, http.MethodPatch, d.path(collection, id), nil, body, "", &out)
	return out, err
}

func (d *Databases) UpsertDocument(ctx context.Context, collection, id string, data map[string]any, permissions []string) (backend.Document, error) {
	body := map[string]any{"data": data}
	if permissions != nil {
		body["permissions"] = permissions
	}
	var out backend.Document
	err := d.c.call(ctx, http.MethodPut, d.path(collection, id), nil, body, "", &out)
	return out, err
}

func (d *Databases) DeleteDocument(ctx context.Context, collection, id string) error {
	return d.c.call(ctx, http.MethodDelete, d.path(collection, id), nil, nil, "", nil)
}
