package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/auth"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/broker"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/cache"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
	repositoryMocks "github.com/aayushimalhotra3/DevDeck-sub002/internal/repository/mocks"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
	serviceMocks "github.com/aayushimalhotra3/DevDeck-sub002/internal/service/mocks"
)

// casPortfolio is a stateful in-memory PortfolioService holding a single
// portfolio with real compare-and-swap semantics, so the scenario below can
// observe version progression across requests.
type casPortfolio struct {
	mu        sync.Mutex
	portfolio model.Portfolio
	saves     int
}

func (f *casPortfolio) Create(ctx context.Context, ownerID string, in service.CreatePortfolioInput) (*model.Portfolio, error) {
	return nil, service.ErrNotFound
}

func (f *casPortfolio) ListMine(ctx context.Context, ownerID string) ([]model.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return []model.Portfolio{f.portfolio}, nil
}

func (f *casPortfolio) Get(ctx context.Context, id string) (*model.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.portfolio.ID {
		return nil, service.ErrNotFound
	}
	p := f.portfolio
	return &p, nil
}

func (f *casPortfolio) SaveBlocks(ctx context.Context, id string, baseVersion int64, blocks []model.Block) (*model.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.portfolio.ID {
		return nil, service.ErrNotFound
	}
	if baseVersion != f.portfolio.Version {
		return nil, service.ErrVersionConflict
	}
	f.portfolio.Blocks = blocks
	f.portfolio.Version++
	f.saves++
	p := f.portfolio
	return &p, nil
}

func (f *casPortfolio) SetPublished(ctx context.Context, id string, published bool) error {
	return nil
}

func (f *casPortfolio) Delete(ctx context.Context, id string) error { return nil }

func (f *casPortfolio) PublicByUsername(ctx context.Context, username string) ([]byte, error) {
	return nil, service.ErrNotFound
}

func (f *casPortfolio) PublicPreview(ctx context.Context, username string) ([]byte, error) {
	return nil, service.ErrNotFound
}

func (f *casPortfolio) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// userDirectory backs the verifier with a fixed set of users.
type userDirectory map[string]*model.User

func (d userDirectory) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := d[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

// TestVersionedEditingScenario walks the full pipeline: an anonymous caller is
// refused, the owner advances the version twice, a watcher who joins between
// the two edits sees only the second, a non-owner is refused without touching
// state, and a stale base version is rejected with the winning state attached.
func TestVersionedEditingScenario(t *testing.T) {
	owner := &model.User{ID: "u-owner", Username: "jdoe"}
	intruder := &model.User{ID: "u-intruder", Username: "mallory"}

	tm, err := auth.NewTokenManager("scenario-secret", time.Hour)
	require.NoError(t, err)
	verifier := auth.NewVerifier(tm, userDirectory{owner.ID: owner, intruder.ID: intruder}, time.Second)

	ownerToken, err := tm.Mint(owner.ID)
	require.NoError(t, err)
	intruderToken, err := tm.Mint(intruder.ID)
	require.NoError(t, err)

	svc := &casPortfolio{portfolio: model.Portfolio{ID: "p-1", OwnerID: owner.ID, Title: "Portfolio"}}
	brk := broker.New(svc, 8)

	repo := new(repositoryMocks.MockPortfolioRepository)
	repo.On("FindByID", mock.Anything, "p-1").
		Return(&model.Portfolio{ID: "p-1", OwnerID: owner.ID}, nil)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	RegisterRoutes(app, Deps{
		DB:         db,
		Verifier:   verifier,
		CookieName: testCookieName,
		Portfolios: repo,
		Limiters:   testLimiters(),
		Cache:      cache.NewReadThrough(cache.NewMemoryStore()),
		HealthTTL:  time.Minute,
		Auth:       NewAuthHandler(new(serviceMocks.MockAuthService), nil, testCookieName, time.Hour),
		Portfolio:  NewPortfolioHandler(svc, brk),
		Asset:      NewAssetHandler(new(serviceMocks.MockAssetService)),
		Sync:       NewSyncHandler(brk, time.Second, time.Minute),
	})

	as := func(req *http.Request, token string) *http.Request {
		req.Header.Set("Cookie", testCookieName+"="+token)
		return req
	}
	blocksV1 := []model.Block{{ID: "b-1", Type: model.BlockTypeHero, Visible: true, Content: json.RawMessage(`{"headline":"hi"}`)}}
	blocksV2 := []model.Block{{ID: "b-1", Type: model.BlockTypeHero, Visible: true, Content: json.RawMessage(`{"headline":"hello"}`)}}

	// Anonymous caller never reaches the handler.
	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/portfolio/p-1", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, svc.saveCount())

	// Owner edit: version 0 -> 1.
	resp, _ = app.Test(as(jsonRequest(http.MethodPut, "/api/portfolio/p-1", saveRequest{Version: 0, Blocks: blocksV1}), ownerToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	var p model.Portfolio
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, int64(1), p.Version)

	// A watcher joining now must not see the version 1 edit.
	watcher := brk.Join("p-1")
	defer brk.Leave(watcher)

	// Owner edit: version 1 -> 2; the watcher observes exactly this one.
	resp, _ = app.Test(as(jsonRequest(http.MethodPut, "/api/portfolio/p-1", saveRequest{Version: 1, Blocks: blocksV2}), ownerToken))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case msg := <-watcher.Events():
		assert.Equal(t, broker.EventAccepted, msg.Type)
		assert.Equal(t, int64(2), msg.Version)
	case <-time.After(time.Second):
		t.Fatal("watcher never received the broadcast")
	}

	// Non-owner mutation is refused and changes nothing.
	resp, _ = app.Test(as(jsonRequest(http.MethodPut, "/api/portfolio/p-1", saveRequest{Version: 2, Blocks: blocksV1}), intruderToken))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	current, err := svc.Get(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), current.Version)
	assert.Equal(t, 2, svc.saveCount())

	// Stale base version loses and learns the winning state.
	resp, _ = app.Test(as(jsonRequest(http.MethodPut, "/api/portfolio/p-1", saveRequest{Version: 0, Blocks: blocksV1}), ownerToken))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	env = decodeEnvelope(t, resp)
	require.NoError(t, json.Unmarshal(env.Current, &current))
	assert.Equal(t, int64(2), current.Version)
}
