// Package s3 stores asset content in an S3 compatible bucket (AWS, R2,
// MinIO in S3 mode).
package s3

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/codegrabber/codegrabber/backend"
)

var loadDefaultConfig = config.LoadDefaultConfig

// Config describes the bucket.
type Config struct {
	Endpoint  string // custom endpoint; empty for AWS
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string        // when set, URLs are PublicURL/<key> instead of presigned
	URLExpiry time.Duration // presigned URL lifetime (default 1h)
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store implements backend.Storage. Permission grants are not representable
// on plain buckets and are ignored.
type Store struct {
	api       objectAPI
	presign   presignAPI
	bucket    string
	publicURL string
	expiry    time.Duration
}

var _ backend.Storage = (*Store)(nil)

// New builds a Store from static credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	awsCfg, err := loadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithAPI(client, s3.NewPresignClient(client), cfg), nil
}

// NewWithAPI builds a Store on injected clients.
func NewWithAPI(api objectAPI, presign presignAPI, cfg Config) *Store {
	expiry := cfg.URLExpiry
	if expiry == 0 {
		expiry = time.Hour
	}
	return &Store{
		api:       api,
		presign:   presign,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		expiry:    expiry,
	}
}

func objectKey(id string) string {
	return "assets/" + id
}

func (s *Store) CreateFile(ctx context.Context, id string, upload backend.Upload, _ []string) (backend.File, error) {
	in := &s3.PutObjectInput{
		Bucket:             aws.String(s.bucket),
		Key:                aws.String(objectKey(id)),
		Body:               upload.Body,
		ContentType:        aws.String(upload.ContentType),
		ContentDisposition: aws.String(mime.FormatMediaType("inline", map[string]string{"filename": upload.Name})),
	}
	if upload.Size > 0 {
		in.ContentLength = aws.Int64(upload.Size)
	}
	if _, err := s.api.PutObject(ctx, in); err != nil {
		return backend.File{}, fmt.Errorf("s3: put object: %w", err)
	}
	return backend.File{
		ID:        id,
		Name:      upload.Name,
		MimeType:  upload.ContentType,
		Size:      upload.Size,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (s *Store) DeleteFile(ctx context.Context, id string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("s3: delete object: %w", err)
	}
	return nil
}

func (s *Store) FileURL(ctx context.Context, id string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + objectKey(id), nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("s3: presign: %w", err)
	}
	return req.URL, nil
}
