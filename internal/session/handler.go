package session

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/shopspring/decimal"

	"github.com/wichananm65/gift-finder/internal/browse"
	"github.com/wichananm65/gift-finder/internal/gift"
)

const waitTimeout = 10 * time.Second

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/gifts/suggestions", h.getSuggestions)

	app.Post("/api/v1/sessions", h.createSession)
	app.Get("/api/v1/sessions/:id", h.getSession)
	app.Delete("/api/v1/sessions/:id", h.deleteSession)
	app.Put("/api/v1/sessions/:id/facets", h.setFacet)
	app.Put("/api/v1/sessions/:id/price", h.setPrice)
	app.Put("/api/v1/sessions/:id/providers", h.setProviders)
	app.Post("/api/v1/sessions/:id/query", h.query)
	app.Post("/api/v1/sessions/:id/suggestions/select", h.selectSuggestion)
	app.Post("/api/v1/sessions/:id/recipients/:recipient", h.openRecipient)
	app.Post("/api/v1/sessions/:id/more", h.loadMore)
	app.Post("/api/v1/sessions/:id/retry", h.retry)
	app.Post("/api/v1/sessions/:id/reset", h.reset)
}

type createRequest struct {
	Embed map[string]string `json:"embed"`
}

type facetRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type priceRequest struct {
	Min decimal.NullDecimal `json:"min"`
	Max decimal.NullDecimal `json:"max"`
}

type providersRequest struct {
	Providers []gift.Provider `json:"providers"`
}

type queryRequest struct {
	Text      string `json:"text"`
	Immediate bool   `json:"immediate"`
}

func (h *Handler) getSuggestions(c *fiber.Ctx) error {
	return c.JSON(h.service.Suggest(c.Query("q"), c.QueryInt("limit", 0)))
}

// createSession reads the URL configuration from the request's own query
// string and the embed configuration from the body.
func (h *Handler) createSession(c *fiber.Ctx) error {
	var req createRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return badRequest(c, "invalid query string")
	}
	variant := query.Get("variant")
	query.Del("variant")
	query.Del("wait")

	id, ctrl, err := h.service.Create(variant, query, req.Embed)
	if err != nil {
		return fail(c, err)
	}
	if err := waitIfAsked(c, ctrl); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id, "snapshot": ctrl.Snapshot()})
}

func (h *Handler) getSession(c *fiber.Ctx) error {
	return h.with(c, func(ctrl *browse.Controller) error { return nil })
}

func (h *Handler) deleteSession(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) setFacet(c *fiber.Ctx) error {
	var req facetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	return h.with(c, func(ctrl *browse.Controller) error {
		return ctrl.SetFacet(strings.TrimSpace(req.Name), req.Value)
	})
}

func (h *Handler) setPrice(c *fiber.Ctx) error {
	var req priceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	return h.with(c, func(ctrl *browse.Controller) error {
		return ctrl.SetPriceRange(req.Min, req.Max)
	})
}

func (h *Handler) setProviders(c *fiber.Ctx) error {
	var req providersRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	return h.with(c, func(ctrl *browse.Controller) error {
		return ctrl.SetProviders(req.Providers)
	})
}

// query handles typing (debounced, returns suggestions) and explicit
// submission with immediate=true.
func (h *Handler) query(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctrl, err := h.service.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}

	suggestions := []browse.Suggestion{}
	if req.Immediate {
		err = ctrl.SubmitQuery(req.Text)
	} else {
		suggestions, err = ctrl.TypeQuery(req.Text)
	}
	if err != nil {
		return fail(c, err)
	}
	if err := waitIfAsked(c, ctrl); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"suggestions": suggestions, "snapshot": ctrl.Snapshot()})
}

func (h *Handler) selectSuggestion(c *fiber.Ctx) error {
	var req browse.Suggestion
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	return h.with(c, func(ctrl *browse.Controller) error {
		return ctrl.SelectSuggestion(req)
	})
}

func (h *Handler) openRecipient(c *fiber.Ctx) error {
	// route params alias the request buffer, which fasthttp reuses
	recipient := utils.CopyString(c.Params("recipient"))
	return h.with(c, func(ctrl *browse.Controller) error {
		return ctrl.OpenRecipientFeed(recipient)
	})
}

func (h *Handler) loadMore(c *fiber.Ctx) error {
	return h.started(c, (*browse.Controller).LoadMore)
}

func (h *Handler) retry(c *fiber.Ctx) error {
	return h.started(c, (*browse.Controller).Retry)
}

func (h *Handler) reset(c *fiber.Ctx) error {
	return h.with(c, (*browse.Controller).Reset)
}

// with runs op on the session named by :id and answers with its snapshot.
func (h *Handler) with(c *fiber.Ctx, op func(*browse.Controller) error) error {
	ctrl, err := h.service.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if err := op(ctrl); err != nil {
		return fail(c, err)
	}
	if err := waitIfAsked(c, ctrl); err != nil {
		return fail(c, err)
	}
	return c.JSON(ctrl.Snapshot())
}

func (h *Handler) started(c *fiber.Ctx, op func(*browse.Controller) (bool, error)) error {
	ctrl, err := h.service.Get(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	ok, err := op(ctrl)
	if err != nil {
		return fail(c, err)
	}
	if err := waitIfAsked(c, ctrl); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"started": ok, "snapshot": ctrl.Snapshot()})
}

// waitIfAsked blocks until the session settles when the request carries
// ?wait=1.
func waitIfAsked(c *fiber.Ctx, ctrl *browse.Controller) error {
	if !c.QueryBool("wait") {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), waitTimeout)
	defer cancel()
	return ctrl.Wait(ctx)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": msg})
}

func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, browse.ErrClosed):
		status = fiber.StatusNotFound
	case errors.Is(err, browse.ErrFeatureDisabled):
		status = fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = fiber.StatusGatewayTimeout
	}
	return c.Status(status).JSON(fiber.Map{"message": err.Error()})
}
