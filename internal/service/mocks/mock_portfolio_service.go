package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
)

type MockPortfolioService struct {
	mock.Mock
}

func (m *MockPortfolioService) Create(ctx context.Context, ownerID string, in service.CreatePortfolioInput) (*model.Portfolio, error) {
	args := m.Called(ctx, ownerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Portfolio), args.Error(1)
}

func (m *MockPortfolioService) ListMine(ctx context.Context, ownerID string) ([]model.Portfolio, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Portfolio), args.Error(1)
}

func (m *MockPortfolioService) Get(ctx context.Context, id string) (*model.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Portfolio), args.Error(1)
}

func (m *MockPortfolioService) SaveBlocks(ctx context.Context, id string, baseVersion int64, blocks []model.Block) (*model.Portfolio, error) {
	args := m.Called(ctx, id, baseVersion, blocks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Portfolio), args.Error(1)
}

func (m *MockPortfolioService) SetPublished(ctx context.Context, id string, published bool) error {
	args := m.Called(ctx, id, published)
	return args.Error(0)
}

func (m *MockPortfolioService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPortfolioService) PublicByUsername(ctx context.Context, username string) ([]byte, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPortfolioService) PublicPreview(ctx context.Context, username string) ([]byte, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
