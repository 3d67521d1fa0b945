package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/http/response"
	"github.com/aayushimalhotra3/DevDeck-sub002/internal/service"
)

// AssetHandler serves uploads of portfolio media.
type AssetHandler struct {
	svc service.AssetService
}

// NewAssetHandler constructs an AssetHandler.
func NewAssetHandler(svc service.AssetService) *AssetHandler {
	return &AssetHandler{svc: svc}
}

// Upload accepts multipart/form-data with field name "file" and streams it
// to object storage.
func (h *AssetHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, "file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return response.Error(c, fiber.StatusBadRequest, "cannot open uploaded file")
	}
	defer f.Close()

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}

	info, err := h.svc.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size)
	if err != nil {
		return serviceError(c, err)
	}
	return response.OK(c, fiber.StatusCreated, info)
}
