package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
)

type MockAssetService struct {
	mock.Mock
}

func (m *MockAssetService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*service.AssetInfo, error) {
	args := m.Called(ctx, r, originalFilename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AssetInfo), args.Error(1)
}
