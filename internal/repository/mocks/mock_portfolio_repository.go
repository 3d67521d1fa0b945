package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
)

type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) Create(ctx context.Context, p *model.Portfolio) (*model.Portfolio, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) FindByID(ctx context.Context, id string) (*model.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Portfolio, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) FindPublishedByUsername(ctx context.Context, username string) (*model.Portfolio, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) UpdateBlocks(ctx context.Context, id string, baseVersion int64, blocks []model.Block) (*model.Portfolio, error) {
	args := m.Called(ctx, id, baseVersion, blocks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) SetPublished(ctx context.Context, id string, published bool) error {
	args := m.Called(ctx, id, published)
	return args.Error(0)
}

func (m *MockPortfolioRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
