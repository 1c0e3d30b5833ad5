package appwrite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/codegrabber/codegrabber/backend"
)

// Storage implements backend.Storage on the configured bucket.
type Storage struct {
	c *Client
}

var _ backend.Storage = (*Storage)(nil)

type fileJSON struct {
	ID           string `json:"$id"`
	CreatedAt    string `json:"$createdAt"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	SizeOriginal int64  `json:"sizeOriginal"`
}

func (s *Storage) path(id ...string) string {
	p := "/storage/buckets/" + url.PathEscape(s.c.cfg.BucketID) + "/files"
	if len(id) > 0 {
		p += "/" + url.PathEscape(id[0])
	}
	return p
}

// chunkSize is the largest body Appwrite accepts in one upload request.
const chunkSize = 5 << 20

// CreateFile uploads the file, splitting bodies above chunkSize into
// Content-Range requests that Appwrite joins under the same file id.
func (s *Storage) CreateFile(ctx context.Context, id string, upload backend.Upload, permissions []string) (backend.File, error) {
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return backend.File{}, fmt.Errorf("appwrite: read upload: %w", err)
	}
	ct := upload.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	total := len(data)
	var out fileJSON
	for start := 0; ; start += chunkSize {
		end := min(start+chunkSize, total)
		var header http.Header
		if total > chunkSize {
			header = http.Header{}
			header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end-1, total))
			if start > 0 {
				header.Set("X-Appwrite-ID", id)
			}
		}
		body, formType, err := uploadForm(id, upload.Name, ct, permissions, data[start:end])
		if err != nil {
			return backend.File{}, err
		}
		if err := s.c.callWithHeader(ctx, http.MethodPost, s.path(), nil, body, formType, header, &out); err != nil {
			return backend.File{}, err
		}
		if end >= total {
			break
		}
	}
	return backend.File{
		ID:        out.ID,
		Name:      out.Name,
		MimeType:  out.MimeType,
		Size:      out.SizeOriginal,
		CreatedAt: backend.ParseTime(out.CreatedAt),
	}, nil
}

func uploadForm(id, name, contentType string, permissions []string, chunk []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("fileId", id); err != nil {
		return nil, "", fmt.Errorf("appwrite: write form: %w", err)
	}
	for _, p := range permissions {
		if err := mw.WriteField("permissions[]", p); err != nil {
			return nil, "", fmt.Errorf("appwrite: write form: %w", err)
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("appwrite: write form: %w", err)
	}
	if _, err := part.Write(chunk); err != nil {
		return nil, "", fmt.Errorf("appwrite: write form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("appwrite: write form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func (s *Storage) DeleteFile(ctx context.Context, id string) error {
	return s.c.call(ctx, http.MethodDelete, s.path(id), nil, nil, "", nil)
}

// FileURL returns the public view URL. Files are readable by anyone, so no
// request is made.
func (s *Storage) FileURL(_ context.Context, id string) (string, error) {
	q := url.Values{}
	q.Set("project", s.c.cfg.ProjectID)
	return s.c.cfg.Endpoint + s.path(id) + "/view?" + q.Encode(), nil
}
