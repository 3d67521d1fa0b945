package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/repository"
)

// PortfolioPostgres is a PostgreSQL implementation of
// repository.PortfolioRepository. Blocks are stored as a JSONB column; the
// version guard lives in the UPDATE's WHERE clause so the compare-and-set is
// atomic at the store.
type PortfolioPostgres struct {
	db *sql.DB
}

// NewPortfolioPostgres creates a new PortfolioPostgres repository.
func NewPortfolioPostgres(db *sql.DB) *PortfolioPostgres {
	return &PortfolioPostgres{db: db}
}

var _ repository.PortfolioRepository = (*PortfolioPostgres)(nil)

const portfolioColumns = `id, owner_id, title, blocks, version, published, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row rowScanner) (*model.Portfolio, error) {
	var (
		p         model.Portfolio
		rawBlocks []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&rawBlocks,
		&p.Version,
		&p.Published,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawBlocks, &p.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	return &p, nil
}

// Create inserts a new portfolio row at version 0 and returns the stored record.
func (r *PortfolioPostgres) Create(ctx context.Context, p *model.Portfolio) (*model.Portfolio, error) {
	rawBlocks, err := json.Marshal(p.Blocks)
	if err != nil {
		return nil, fmt.Errorf("encode blocks: %w", err)
	}
	const q = `
		INSERT INTO portfolios (id, owner_id, title, blocks, version, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $6)
		RETURNING ` + portfolioColumns
	row := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.OwnerID,
		p.Title,
		rawBlocks,
		p.Published,
		p.CreatedAt,
	)
	return scanPortfolio(row)
}

// FindByID fetches a single portfolio by ID.
func (r *PortfolioPostgres) FindByID(ctx context.Context, id string) (*model.Portfolio, error) {
	const q = `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = $1`
	return scanPortfolio(r.db.QueryRowContext(ctx, q, id))
}

// ListByOwner returns all portfolios owned by ownerID, newest first.
func (r *PortfolioPostgres) ListByOwner(ctx context.Context, ownerID string) ([]model.Portfolio, error) {
	const q = `
		SELECT ` + portfolioColumns + `
		FROM portfolios
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// FindPublishedByUsername returns the published portfolio belonging to the
// user with the given username.
func (r *PortfolioPostgres) FindPublishedByUsername(ctx context.Context, username string) (*model.Portfolio, error) {
	const q = `
		SELECT p.id, p.owner_id, p.title, p.blocks, p.version, p.published, p.created_at, p.updated_at
		FROM portfolios p
		JOIN users u ON u.id = p.owner_id
		WHERE u.username = $1 AND p.published
		ORDER BY p.updated_at DESC
		LIMIT 1
	`
	return scanPortfolio(r.db.QueryRowContext(ctx, q, username))
}

// UpdateBlocks replaces the block set and bumps the version, guarded by the
// caller's base version in the WHERE clause. Zero rows updated means the
// stored version moved on (or the row is gone): ErrVersionConflict.
func (r *PortfolioPostgres) UpdateBlocks(ctx context.Context, id string, baseVersion int64, blocks []model.Block) (*model.Portfolio, error) {
	rawBlocks, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("encode blocks: %w", err)
	}
	const q = `
		UPDATE portfolios
		SET blocks = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + portfolioColumns
	p, err := scanPortfolio(r.db.QueryRowContext(ctx, q, id, baseVersion, rawBlocks))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrVersionConflict
		}
		return nil, err
	}
	return p, nil
}

// SetPublished flips the visibility flag.
func (r *PortfolioPostgres) SetPublished(ctx context.Context, id string, published bool) error {
	const q = `UPDATE portfolios SET published = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, published)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a portfolio by ID. It does not return an error if the row
// does not exist.
func (r *PortfolioPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM portfolios WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
