package repository

import (
	"context"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
)

// PortfolioRepository defines data access for portfolios. The write-with-
// version contract (UpdateBlocks) is the single serialization point for
// document mutations: the row is updated only when the caller's base version
// still matches, and the version advances by exactly 1.
type PortfolioRepository interface {
	// Create inserts a new portfolio at version 0 and returns the stored row.
	Create(ctx context.Context, p *model.Portfolio) (*model.Portfolio, error)

	// FindByID returns a portfolio by ID.
	FindByID(ctx context.Context, id string) (*model.Portfolio, error)

	// ListByOwner returns all portfolios owned by the given user, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Portfolio, error)

	// FindPublishedByUsername returns the published portfolio for a username.
	FindPublishedByUsername(ctx context.Context, username string) (*model.Portfolio, error)

	// UpdateBlocks replaces the block set and increments version atomically,
	// but only if the stored version equals baseVersion. Returns
	// ErrVersionConflict when it does not (or the row is gone).
	UpdateBlocks(ctx context.Context, id string, baseVersion int64, blocks []model.Block) (*model.Portfolio, error)

	// SetPublished flips the visibility flag.
	SetPublished(ctx context.Context, id string, published bool) error

	// Delete removes a portfolio by ID. Returns nil if the row was deleted
	// or did not exist.
	Delete(ctx context.Context, id string) error
}
