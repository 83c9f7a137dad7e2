package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/park285/gaia-game-search/internal/ingest"
	"github.com/park285/gaia-game-search/internal/query"
	"github.com/park285/gaia-game-search/internal/store"
	"github.com/park285/gaia-game-search/internal/timeline"
	"github.com/park285/gaia-game-search/pkg/searchdto"
)

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
		"store":  h.opts.StoreName,
	})
}

// Search runs the URI-encoded request in q. Malformed q searches everything.
func (h *Handler) Search(c *fiber.Ctx) error {
	resp, err := h.svc.Search(c.UserContext(), c.Query("q"), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// Players always answers 200; a failing store yields an empty list.
func (h *Handler) Players(c *fiber.Ctx) error {
	return c.JSON(h.svc.PlayerNames(c.UserContext(), c.Query("q")))
}

func (h *Handler) GetGame(c *fiber.Ctx) error {
	tableID, err := strconv.ParseInt(c.Params("tableId"), 10, 64)
	if err != nil || tableID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(searchdto.ErrorResponse{
			Error:   "invalid table id",
			Code:    searchdto.ErrInvalidRequest,
			Details: c.Params("tableId"),
		})
	}
	game, err := h.svc.Game(c.UserContext(), tableID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(game)
}

func (h *Handler) Ingest(c *fiber.Ctx) error {
	bundle, ok := c.Locals(localBody).(*searchdto.Bundle)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(searchdto.ErrorResponse{
			Error: "validation bypass detected",
			Code:  searchdto.ErrInternalError,
		})
	}
	game, err := h.svc.Ingest(c.UserContext(), bundle)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(game)
}

// fail maps service errors to status codes and error bodies.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var dup *ingest.DuplicateError
	status, resp := fiber.StatusInternalServerError, searchdto.ErrorResponse{
		Error: "internal server error",
		Code:  searchdto.ErrInternalError,
	}
	switch {
	case errors.As(err, &dup):
		status, resp.Error, resp.Code = fiber.StatusConflict, "game already ingested", searchdto.ErrDuplicateGame
		if dup.Existing != nil {
			existing := h.svc.GameDTO(dup.Existing, nil)
			resp.Existing = &existing
		}
	case errors.Is(err, timeline.ErrMalformedInput):
		status, resp.Error, resp.Code = fiber.StatusBadRequest, "malformed game bundle", searchdto.ErrMalformedInput
	case errors.Is(err, query.ErrUnknownVocabulary):
		status, resp.Error, resp.Code = fiber.StatusBadRequest, "unknown race or structure", searchdto.ErrUnknownVocabulary
	case errors.Is(err, query.ErrEmptyClause), errors.Is(err, query.ErrInvalidRequest):
		status, resp.Error, resp.Code = fiber.StatusBadRequest, "invalid search request", searchdto.ErrInvalidRequest
	case errors.Is(err, store.ErrGameNotFound):
		status, resp.Error, resp.Code = fiber.StatusNotFound, "game not found", searchdto.ErrGameNotFound
	case errors.Is(err, store.ErrStorageUnavailable):
		status, resp.Error, resp.Code = fiber.StatusServiceUnavailable, "storage unavailable", searchdto.ErrStorageUnavailable
	}
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("request_failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		resp.Details = err.Error()
	}
	return c.Status(status).JSON(resp)
}
