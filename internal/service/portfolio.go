package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/cache"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/repository"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("portfolio not found")
	// ErrVersionConflict signals a save built on a stale version. The caller
	// must refetch and rebase before retrying.
	ErrVersionConflict = errors.New("portfolio version conflict")
)

const maxBlocks = 100

// maxBlockContent bounds a single block's JSON payload.
const maxBlockContent = 64 << 10

// CreatePortfolioInput carries the fields of a create request.
type CreatePortfolioInput struct {
	Title string `json:"title" validate:"required,max=120"`
}

// PublicPortfolio is the read-only projection served on the public route.
// Hidden blocks and owner identifiers are stripped.
type PublicPortfolio struct {
	Username  string        `json:"username"`
	Title     string        `json:"title"`
	Blocks    []model.Block `json:"blocks"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// PortfolioService defines the portfolio use cases.
type PortfolioService interface {
	// Create makes an empty portfolio at version zero for the owner.
	Create(ctx context.Context, ownerID string, in CreatePortfolioInput) (*model.Portfolio, error)

	// ListMine returns the owner's portfolios, newest first.
	ListMine(ctx context.Context, ownerID string) ([]model.Portfolio, error)

	// Get returns a single portfolio by its ID.
	Get(ctx context.Context, id string) (*model.Portfolio, error)

	// SaveBlocks replaces the block set, guarded by the caller's base
	// version. A stale base yields ErrVersionConflict and changes nothing.
	SaveBlocks(ctx context.Context, id string, baseVersion int64, blocks []model.Block) (*model.Portfolio, error)

	// SetPublished toggles public visibility.
	SetPublished(ctx context.Context, id string, published bool) error

	// Delete removes a portfolio.
	Delete(ctx context.Context, id string) error

	// PublicByUsername returns the published portfolio for a username as a
	// serialized projection, cached with a short TTL.
	PublicByUsername(ctx context.Context, username string) ([]byte, error)

	// PublicPreview is PublicByUsername without the cache, for owners
	// checking their own page right after a change.
	PublicPreview(ctx context.Context, username string) ([]byte, error)
}

type portfolioService struct {
	repo      repository.PortfolioRepository
	users     repository.UserRepository
	cache     *cache.ReadThrough
	publicTTL time.Duration
}

// NewPortfolioService constructs a new PortfolioService.
func NewPortfolioService(repo repository.PortfolioRepository, users repository.UserRepository, rc *cache.ReadThrough, publicTTL time.Duration) PortfolioService {
	return &portfolioService{repo: repo, users: users, cache: rc, publicTTL: publicTTL}
}

func (s *portfolioService) Create(ctx context.Context, ownerID string, in CreatePortfolioInput) (*model.Portfolio, error) {
	if ownerID == "" {
		return nil, ErrIDRequired
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	p := &model.Portfolio{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     in.Title,
		Blocks:    []model.Block{},
		CreatedAt: time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}
	return stored, nil
}

func (s *portfolioService) ListMine(ctx context.Context, ownerID string) ([]model.Portfolio, error) {
	if ownerID == "" {
		return nil, ErrIDRequired
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *portfolioService) Get(ctx context.Context, id string) (*model.Portfolio, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// validateBlocks rejects unknown block types and oversized payloads before
// anything touches the store.
func validateBlocks(blocks []model.Block) error {
	if len(blocks) > maxBlocks {
		return ValidationErrors{{Field: "blocks", Message: fmt.Sprintf("must contain at most %d blocks", maxBlocks)}}
	}
	var errs ValidationErrors
	for i, b := range blocks {
		if b.ID == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("blocks[%d].id", i), Message: "is required"})
		}
		if !model.ValidBlockType(b.Type) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("blocks[%d].type", i), Message: "is not a supported block type"})
		}
		if b.Position < 0 {
			errs = append(errs, FieldError{Field: fmt.Sprintf("blocks[%d].position", i), Message: "must not be negative"})
		}
		if len(b.Content) > maxBlockContent {
			errs = append(errs, FieldError{Field: fmt.Sprintf("blocks[%d].content", i), Message: "exceeds the maximum size"})
		} else if len(b.Content) > 0 && !json.Valid(b.Content) {
			errs = append(errs, FieldError{Field: fmt.Sprintf("blocks[%d].content", i), Message: "must be valid JSON"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *portfolioService) SaveBlocks(ctx context.Context, id string, baseVersion int64, blocks []model.Block) (*model.Portfolio, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if baseVersion < 0 {
		return nil, ValidationErrors{{Field: "version", Message: "must not be negative"}}
	}
	if blocks == nil {
		blocks = []model.Block{}
	}
	if err := validateBlocks(blocks); err != nil {
		return nil, err
	}

	p, err := s.repo.UpdateBlocks(ctx, id, baseVersion, blocks)
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// Distinguish a deleted portfolio from a stale version.
			if _, ferr := s.repo.FindByID(ctx, id); errors.Is(ferr, sql.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, ErrVersionConflict
		}
		return nil, err
	}
	s.invalidatePublic(ctx, p.OwnerID)
	return p, nil
}

func (s *portfolioService) SetPublished(ctx context.Context, id string, published bool) error {
	if id == "" {
		return ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.invalidatePublic(ctx, p.OwnerID)
	return nil
}

func (s *portfolioService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidatePublic(ctx, p.OwnerID)
	return nil
}

func publicCacheKey(username string) string {
	return "portfolio:public:" + username
}

func (s *portfolioService) PublicByUsername(ctx context.Context, username string) ([]byte, error) {
	if username == "" {
		return nil, ErrIDRequired
	}
	return s.cache.GetOrCompute(ctx, publicCacheKey(username), s.publicTTL, func(ctx context.Context) ([]byte, error) {
		return s.publicProjection(ctx, username)
	})
}

func (s *portfolioService) PublicPreview(ctx context.Context, username string) ([]byte, error) {
	if username == "" {
		return nil, ErrIDRequired
	}
	return s.publicProjection(ctx, username)
}

func (s *portfolioService) publicProjection(ctx context.Context, username string) ([]byte, error) {
	p, err := s.repo.FindPublishedByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	visible := make([]model.Block, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		if b.Visible {
			visible = append(visible, b)
		}
	}
	return json.Marshal(PublicPortfolio{
		Username:  username,
		Title:     p.Title,
		Blocks:    visible,
		UpdatedAt: p.UpdatedAt,
	})
}

// invalidatePublic drops the owner's cached public projection after a
// mutation. Resolving the username can fail; the entry then ages out by TTL.
func (s *portfolioService) invalidatePublic(ctx context.Context, ownerID string) {
	u, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return
	}
	s.cache.Invalidate(ctx, publicCacheKey(u.Username))
}
