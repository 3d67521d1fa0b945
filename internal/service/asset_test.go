package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/storage"
	storeMocks "github.com/aayushimalhotra3/DevDeck-sub002/internal/storage/mocks"
)

func TestAssetService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name             string
		originalFilename string
		contentType      string
		size             int64
		setupMocks       func(mStore *storeMocks.MockStorage) io.Reader
		wantErr          error
		wantErrMsg       string
	}{
		{
			name:             "happy path",
			originalFilename: "avatar.png",
			contentType:      "image/png",
			size:             1024,
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "assets/") && strings.HasSuffix(key, ".png")
				}), mock.Anything, mock.MatchedBy(func(opt storage.PutOptions) bool {
					return opt.Size == 1024 && opt.ContentType == "image/png"
				})).Return(storage.ObjectInfo{Key: "assets/uuid.png", Size: 1024}, nil)
				mStore.On("PresignGet", ctx, mock.Anything, assetPresignExpiry).
					Return("https://cdn.example.com/assets/uuid.png?sig=abc", nil)
				return strings.NewReader("data")
			},
		},
		{
			name:             "nil reader",
			originalFilename: "avatar.png",
			contentType:      "image/png",
			size:             1024,
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				return nil
			},
			wantErr: ErrReaderNil,
		},
		{
			name:             "disallowed content type",
			originalFilename: "payload.exe",
			contentType:      "application/octet-stream",
			size:             1024,
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				return strings.NewReader("data")
			},
			wantErr: ErrAssetContentType,
		},
		{
			name:             "too large",
			originalFilename: "huge.png",
			contentType:      "image/png",
			size:             MaxAssetSize + 1,
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				return strings.NewReader("data")
			},
			wantErr: ErrAssetTooLarge,
		},
		{
			name:             "storage failure",
			originalFilename: "avatar.png",
			contentType:      "image/png",
			size:             1024,
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
				return strings.NewReader("data")
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:             "presign failure rolls back the object",
			originalFilename: "avatar.png",
			contentType:      "image/png",
			size:             1024,
			setupMocks: func(mStore *storeMocks.MockStorage) io.Reader {
				mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "assets/uuid.png", Size: 1024}, nil)
				mStore.On("PresignGet", ctx, mock.Anything, assetPresignExpiry).
					Return("", errors.New("presign fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
				return strings.NewReader("data")
			},
			wantErrMsg: "presign asset: presign fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			r := tt.setupMocks(mStore)

			svc := NewAssetService(mStore)
			info, err := svc.Upload(ctx, r, tt.originalFilename, tt.contentType, tt.size)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, info)
			case tt.wantErrMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				assert.Nil(t, info)
			default:
				assert.NoError(t, err)
				require.NotNil(t, info)
				assert.NotEmpty(t, info.URL)
				assert.Equal(t, "image/png", info.ContentType)
			}
			mStore.AssertExpectations(t)
		})
	}
}
