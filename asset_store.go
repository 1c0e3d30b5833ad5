package codegrabber

import (
	"context"
	"fmt"

	"github.com/codegrabber/codegrabber/backend"
	"github.com/codegrabber/codegrabber/logger"
)

// AssetStore manages uploaded files: the object lives in storage, its
// metadata in the assets collection under the same id.
type AssetStore struct {
	db      backend.Databases
	storage backend.Storage
	assets  string
	log     *logger.Logger
}

// NewAssetStore creates an AssetStore.
func NewAssetStore(be backend.Client, assetsCollection string, log *logger.Logger) *AssetStore {
	return &AssetStore{db: be.Databases, storage: be.Storage, assets: assetsCollection, log: log}
}

// Upload stores the file for user. When the metadata document cannot be
// written the stored object is removed again.
func (s *AssetStore) Upload(ctx context.Context, user *backend.User, up backend.Upload) (backend.Asset, error) {
	if user == nil {
		return backend.Asset{}, ErrNotLoggedIn
	}
	up, err := prepareUpload(up)
	if err != nil {
		return backend.Asset{}, err
	}

	id := backend.UniqueID()
	perms := backend.OwnerPermissions(user.ID)
	file, err := s.storage.CreateFile(ctx, id, up, perms)
	if err != nil {
		s.log.Error("upload asset", "name", up.Name, "user", user.ID, "error", err)
		return backend.Asset{}, fmt.Errorf("upload %s: %w", up.Name, err)
	}

	meta := backend.Asset{
		ID:       id,
		Name:     up.Name,
		UserID:   user.ID,
		MimeType: up.ContentType,
		Size:     file.Size,
	}
	if meta.Size <= 0 {
		meta.Size = up.Size
	}
	doc, err := s.db.CreateDocument(ctx, s.assets, id, meta.Data(), perms)
	if err != nil {
		s.log.Error("save asset metadata", "id", id, "user", user.ID, "error", err)
		if derr := s.storage.DeleteFile(ctx, id); derr != nil {
			s.log.Error("roll back asset object", "id", id, "error", derr)
		}
		return backend.Asset{}, fmt.Errorf("save asset %s: %w", id, err)
	}
	return backend.AssetFromDocument(doc), nil
}

// List returns the assets owned by user, newest first.
func (s *AssetStore) List(ctx context.Context, user *backend.User) ([]backend.Asset, error) {
	if user == nil {
		return nil, ErrNotLoggedIn
	}
	list, err := s.db.ListDocuments(ctx, s.assets,
		backend.Equal("user", user.ID),
		backend.OrderDesc(backend.AttrCreatedAt),
		backend.Limit(100),
	)
	if err != nil {
		s.log.Error("list assets", "user", user.ID, "error", err)
		return nil, fmt.Errorf("list assets: %w", err)
	}
	assets := make([]backend.Asset, 0, len(list.Documents))
	for _, d := range list.Documents {
		assets = append(assets, backend.AssetFromDocument(d))
	}
	return assets, nil
}

// Delete removes asset id. The owner is checked before storage is touched;
// the object goes first, then its metadata.
func (s *AssetStore) Delete(ctx context.Context, user *backend.User, id string) error {
	if user == nil {
		return ErrNotLoggedIn
	}
	doc, err := s.db.GetDocument(ctx, s.assets, id)
	if err != nil {
		if !backend.IsNotFound(err) {
			s.log.Error("load asset", "id", id, "error", err)
		}
		return fmt.Errorf("load asset %s: %w", id, err)
	}
	asset := backend.AssetFromDocument(doc)
	if asset.UserID != user.ID {
		s.log.Warn("asset ownership mismatch", "id", id, "owner", asset.UserID, "user", user.ID)
		return ErrForbidden
	}

	if err := s.storage.DeleteFile(ctx, id); err != nil {
		if !backend.IsNotFound(err) {
			s.log.Error("delete asset object", "id", id, "error", err)
			return fmt.Errorf("delete asset %s: %w", id, err)
		}
		s.log.Warn("asset object already gone", "id", id)
	}
	if err := s.db.DeleteDocument(ctx, s.assets, id); err != nil {
		s.log.Error("delete asset metadata", "id", id, "error", err)
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	return nil
}

// URL returns a link to the stored object.
func (s *AssetStore) URL(ctx context.Context, id string) (string, error) {
	u, err := s.storage.FileURL(ctx, id)
	if err != nil {
		return "", fmt.Errorf("asset url %s: %w", id, err)
	}
	return u, nil
}

// MarkdownSnippet returns the markdown that embeds or links the asset.
func MarkdownSnippet(a backend.Asset, url string) string {
	if a.IsImage() {
		return fmt.Sprintf("![%s](%s)", a.Name, url)
	}
	return fmt.Sprintf("[%s](%s)", a.Name, url)
}
