package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/storage"
)

var (
	ErrReaderNil        = errors.New("reader is nil")
	ErrAssetTooLarge    = errors.New("asset exceeds the maximum size")
	ErrAssetContentType = errors.New("asset content type is not allowed")
)

// MaxAssetSize bounds a single uploaded asset.
const MaxAssetSize = 10 << 20

// assetPresignExpiry is how long returned download URLs stay valid.
const assetPresignExpiry = 7 * 24 * time.Hour

var allowedAssetTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/webp":      true,
	"image/svg+xml":   true,
	"application/pdf": true,
}

// AssetInfo is what an upload returns to the client.
type AssetInfo struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// AssetService handles uploads of portfolio media.
type AssetService interface {
	// Upload streams the content to object storage under a generated key and
	// returns a time-limited download URL. originalFilename is used only to
	// keep the extension.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*AssetInfo, error)
}

type assetService struct {
	store storage.Storage
}

// NewAssetService constructs a new AssetService.
func NewAssetService(store storage.Storage) AssetService {
	return &assetService{store: store}
}

func (s *assetService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*AssetInfo, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if !allowedAssetTypes[contentType] {
		return nil, ErrAssetContentType
	}
	if size <= 0 || size > MaxAssetSize {
		return nil, ErrAssetTooLarge
	}

	ext := filepath.Ext(originalFilename)
	key := filepath.ToSlash(filepath.Join("assets", uuid.New().String()+ext))

	info, err := s.store.Put(ctx, key, io.LimitReader(r, MaxAssetSize), storage.PutOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	url, err := s.store.PresignGet(ctx, key, assetPresignExpiry)
	if err != nil {
		// Roll back so a URL-less object doesn't linger.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("presign failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("presign asset: %w", err)
	}

	return &AssetInfo{
		Key:         key,
		URL:         url,
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}
