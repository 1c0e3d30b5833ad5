package codegrabber

import (
	"context"
	"fmt"

	"github.com/codegrabber/codegrabber/appwrite"
	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/objectstore/minio"
	"github.com/codegrabber/codegrabber/objectstore/s3"
)

// NewBackend connects to the hosted project described by cfg. Accounts and
// documents always go to Appwrite; file content goes to the configured
// storage driver.
func NewBackend(ctx context.Context, cfg SiteConfig) (backend.Client, error) {
	aw := appwrite.New(appwrite.Config{
		Endpoint:   cfg.Appwrite.Endpoint,
		ProjectID:  cfg.Appwrite.ProjectID,
		APIKey:     cfg.Appwrite.APIKey,
		DatabaseID: cfg.Appwrite.DatabaseID,
		BucketID:   cfg.Appwrite.BucketID,
	}).Backend()

	st := cfg.Storage
	switch st.Driver {
	case DriverAppwrite, "":
	case DriverS3:
		store, err := s3.New(ctx, s3.Config{
			Endpoint:  st.Endpoint,
			Region:    st.Region,
			Bucket:    st.Bucket,
			AccessKey: st.AccessKey,
			SecretKey: st.SecretKey,
			PublicURL: st.PublicURL,
		})
		if err != nil {
			return backend.Client{}, fmt.Errorf("codegrabber: s3 storage: %w", err)
		}
		aw.Storage = store
	case DriverMinio:
		store, err := minio.New(ctx, minio.Config{
			Endpoint:  st.Endpoint,
			AccessKey: st.AccessKey,
			SecretKey: st.SecretKey,
			Bucket:    st.Bucket,
			Region:    st.Region,
			UseSSL:    st.UseSSL,
			PublicURL: st.PublicURL,
		})
		if err != nil {
			return backend.Client{}, fmt.Errorf("codegrabber: minio storage: %w", err)
		}
		aw.Storage = store
	default:
		return backend.Client{}, fmt.Errorf("codegrabber: unknown storage driver %q", st.Driver)
	}
	return aw, nil
}
