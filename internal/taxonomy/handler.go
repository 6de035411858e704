package taxonomy

import (
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	index *Index
}

func NewHandler(index *Index) *Handler {
	if index == nil {
		index = Empty()
	}
	return &Handler{index: index}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/taxonomy/topics", h.getTopics)
	app.Get("/api/v1/taxonomy/topics/:topic/areas", h.getAreas)
	app.Get("/api/v1/taxonomy/topics/:topic/categories", h.getCategories)
}

func (h *Handler) getTopics(c *fiber.Ctx) error {
	return c.JSON(h.index.Topics())
}

func (h *Handler) getAreas(c *fiber.Ctx) error {
	areas, ok := h.index.Areas(c.Params("topic"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "topic not found"})
	}
	return c.JSON(areas)
}

// getCategories lists categories of ?area= under the topic, or of every area
// when area is omitted.
func (h *Handler) getCategories(c *fiber.Ctx) error {
	cats, ok := h.index.Categories(c.Params("topic"), c.Query("area"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "topic or area not found"})
	}
	return c.JSON(cats)
}
