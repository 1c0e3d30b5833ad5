// Package appwrite talks to an Appwrite server over its REST API and exposes
// it through the backend interfaces.
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codegrabber/codegrabber/backend"
)

// Config points the client at a project.
type Config struct {
	Endpoint   string // e.g. https://cloud.appwrite.io/v1
	ProjectID  string
	APIKey     string // server key; needed to read session secrets
	DatabaseID string
	BucketID   string
}

// Client is a thin REST client. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) *Client {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the three services backed by c.
func (c *Client) Backend() backend.Client {
	return backend.Client{
		Accounts:  &Accounts{c: c},
		Databases: &Databases{c: c},
		Storage:   &Storage{c: c},
	}
}

// call performs a JSON request. body may be nil, an io.Reader paired with
// contentType, or any value to be JSON encoded. out may be nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any, contentType string, out any) error {
	return c.callWithHeader(ctx, method, path, query, body, contentType, nil, out)
}

// callWithHeader is call with extra request headers.
func (c *Client) callWithHeader(ctx context.Context, method, path string, query url.Values, body any, contentType string, header http.Header, out any) error {
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		rdr = b
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("appwrite: encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(buf)
		contentType = "application/json"
	}

	u := c.cfg.Endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("appwrite: build %s %s: %w", method, path, err)
	}
	c.authorize(ctx, req)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("appwrite: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("appwrite: decode %s %s: %w", method, path, err)
	}
	return nil
}

// authorize sets project headers and credentials. A session in ctx wins over
// the server key so that permission checks run as the signed-in user.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	req.Header.Set("X-Appwrite-Project", c.cfg.ProjectID)
	req.Header.Set("X-Appwrite-Response-Format", "1.6.0")
	req.Header.Set("Accept", "application/json")
	if secret, ok := backend.SessionFrom(ctx); ok {
		req.Header.Set("X-Appwrite-Session", secret)
		return
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Appwrite-Key", c.cfg.APIKey)
	}
}

func decodeError(resp *http.Response) error {
	be := &backend.Error{Code: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(body, be); err != nil || be.Message == "" {
		be.Message = strings.TrimSpace(string(body))
	}
	be.Code = resp.StatusCode
	return be
}

func encodeQueries(queries []backend.Query) url.Values {
	if len(queries) == 0 {
		return nil
	}
	v := url.Values{}
	for _, q := range queries {
		v.Add("queries[]", q.String())
	}
	return v
}
