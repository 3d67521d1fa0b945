package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/broker"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/middleware"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/response"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
)

// PortfolioHandler serves portfolio CRUD plus the versioned save path, which
// goes through the broker so live watchers see every accepted change.
type PortfolioHandler struct {
	svc service.PortfolioService
	brk *broker.Broker
}

// NewPortfolioHandler constructs a PortfolioHandler.
func NewPortfolioHandler(svc service.PortfolioService, brk *broker.Broker) *PortfolioHandler {
	return &PortfolioHandler{svc: svc, brk: brk}
}

// Create makes an empty portfolio owned by the caller.
func (h *PortfolioHandler) Create(c *fiber.Ctx) error {
	var in service.CreatePortfolioInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, fiber.StatusBadRequest, "malformed request body")
	}

	principal := middleware.PrincipalFromCtx(c)
	p, err := h.svc.Create(c.UserContext(), principal.ID, in)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.StatusCreated, p)
}

// List returns the caller's portfolios.
func (h *PortfolioHandler) List(c *fiber.Ctx) error {
	principal := middleware.PrincipalFromCtx(c)
	items, err := h.svc.ListMine(c.UserContext(), principal.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.StatusOK, items)
}

// Get returns the portfolio the ownership check already loaded.
func (h *PortfolioHandler) Get(c *fiber.Ctx) error {
	return response.OK(c, fiber.StatusOK, middleware.ResourceFromCtx(c))
}

type saveRequest struct {
	Version int64         `json:"version"`
	Blocks  []model.Block `json:"blocks"`
}

// Save replaces the block set if the caller's base version is current. The
// write goes through the broker, so it is serialized with live-connection
// edits and broadcast to every watcher.
func (h *PortfolioHandler) Save(c *fiber.Ctx) error {
	var req saveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, "malformed request body")
	}

	id := c.Params("id")
	out := h.brk.Submit(c.UserContext(), nil, id, req.Version, req.Blocks)
	switch out.Kind {
	case broker.OutcomeAccepted:
		return response.OK(c, fiber.StatusOK, out.Portfolio)
	case broker.OutcomeConflict:
		return response.Conflict(c, out.Portfolio)
	default:
		return serviceError(c, out.Err)
	}
}

// Delete removes a portfolio.
func (h *PortfolioHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Publish makes the portfolio publicly visible.
func (h *PortfolioHandler) Publish(c *fiber.Ctx) error {
	return h.setPublished(c, true)
}

// Unpublish hides the portfolio from public view.
func (h *PortfolioHandler) Unpublish(c *fiber.Ctx) error {
	return h.setPublished(c, false)
}

func (h *PortfolioHandler) setPublished(c *fiber.Ctx, published bool) error {
	id := c.Params("id")
	if err := h.svc.SetPublished(c.UserContext(), id, published); err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.StatusOK, fiber.Map{"id": id, "published": published})
}

// Public serves a published portfolio by its owner's username. The projection
// is cached; hidden blocks never appear in it. An owner viewing their own
// page skips the shared cache so an accepted change shows up immediately.
func (h *PortfolioHandler) Public(c *fiber.Ctx) error {
	username := c.Params("username")

	var raw []byte
	var err error
	if p := middleware.PrincipalFromCtx(c); p != nil && p.Username == username {
		raw, err = h.svc.PublicPreview(c.UserContext(), username)
	} else {
		raw, err = h.svc.PublicByUsername(c.UserContext(), username)
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.Error(c, fiber.StatusNotFound, "no published portfolio for this user")
		}
		return serviceError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Status(fiber.StatusOK).Send(raw)
}
