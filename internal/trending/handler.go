package trending

import (
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	loader *Loader
}

func NewHandler(l *Loader) *Handler {
	return &Handler{loader: l}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/gifts/trending", h.getTrending)
	app.Get("/api/v1/gifts/recipients", h.getRecipients)
}

func (h *Handler) getTrending(c *fiber.Ctx) error {
	return c.JSON(h.loader.Load(c.UserContext()))
}

func (h *Handler) getRecipients(c *fiber.Ctx) error {
	return c.JSON(Recipients)
}
