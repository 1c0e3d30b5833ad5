// Package minio stores asset content in a MinIO bucket.
package minio

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/codegrabber/codegrabber/backend"
)

// Config describes the server and bucket.
type Config struct {
	Endpoint  string // host:port
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	PublicURL string
	URLExpiry time.Duration
}

// minioAPI is the subset of *minio.Client the store needs.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Store implements backend.Storage.
type Store struct {
	api       minioAPI
	bucket    string
	region    string
	publicURL string
	expiry    time.Duration
}

var _ backend.Storage = (*Store)(nil)

// New connects to the server in cfg and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: new client: %w", err)
	}
	return NewWithAPI(ctx, client, cfg)
}

// NewWithAPI allows injecting a fake client.
func NewWithAPI(ctx context.Context, api minioAPI, cfg Config) (*Store, error) {
	expiry := cfg.URLExpiry
	if expiry == 0 {
		expiry = time.Hour
	}
	s := &Store{
		api:       api,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		expiry:    expiry,
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("minio: ensure bucket: %w", err)
	}
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func objectKey(id string) string {
	return "assets/" + id
}

func (s *Store) CreateFile(ctx context.Context, id string, upload backend.Upload, _ []string) (backend.File, error) {
	size := upload.Size
	if size <= 0 {
		size = -1
	}
	info, err := s.api.PutObject(ctx, s.bucket, objectKey(id), upload.Body, size, minio.PutObjectOptions{
		ContentType:        upload.ContentType,
		ContentDisposition: mime.FormatMediaType("inline", map[string]string{"filename": upload.Name}),
	})
	if err != nil {
		return backend.File{}, fmt.Errorf("minio: put object: %w", err)
	}
	return backend.File{
		ID:        id,
		Name:      upload.Name,
		MimeType:  upload.ContentType,
		Size:      info.Size,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *Store) DeleteFile(ctx context.Context, id string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, objectKey(id), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: remove object: %w", err)
	}
	return nil
}

func (s *Store) FileURL(ctx context.Context, id string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + s.bucket + "/" + objectKey(id), nil
	}
	u, err := s.api.PresignedGetObject(ctx, s.bucket, objectKey(id), s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("minio: presign: %w", err)
	}
	return u.String(), nil
}
