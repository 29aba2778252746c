package handlers

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"waxworks/internal/app"
	exploreController "waxworks/internal/controllers/explore"
	"waxworks/internal/types"
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type ExploreHandler struct {
	Handler
	exploreController exploreController.ExploreControllerInterface
}

func NewExploreHandler(app app.App, router fiber.Router) *ExploreHandler {
	log := logger.New("handlers").File("explore_handler")
	return &ExploreHandler{
		exploreController: app.Controllers.Explore,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ExploreHandler) Register() {
	h.router.Get("/autocomplete", h.middleware.RateLimit(30, time.Minute), h.autocomplete)
	h.router.Get("/explore", h.explore)
	h.router.Get("/expand", h.expand)
	h.router.Get("/node/:id", h.node)
	h.router.Get("/trends", h.trends)
}

// parseKind validates the type query parameter. The error body echoes the
// raw value as sent, not the lowercased form used for matching.
func parseKind(c *fiber.Ctx, allowRelease bool) (types.ExploreType, string, bool) {
	raw := c.Query("type", "artist")
	kind, ok := types.ParseExploreType(strings.ToLower(raw), allowRelease)
	return kind, raw, ok
}

func (h *ExploreHandler) autocomplete(c *fiber.Ctx) error {
	log := h.log.Function("autocomplete")

	q := c.Query("q")
	if utf8.RuneCountInString(q) < 2 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Query must be at least 2 characters",
		})
	}

	kind, rawKind, ok := parseKind(c, false)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid type: %s. Must be artist, genre, label, or style", rawKind),
		})
	}

	limit, err := queryInt(c, "limit", 10)
	if err != nil || limit < 1 || limit > 50 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Limit must be between 1 and 50",
		})
	}

	resp, err := h.exploreController.Autocomplete(c.UserContext(), kind, q, limit)
	if err != nil {
		return log.Err("autocomplete lookup failed", err, "type", kind, "query", q)
	}

	return c.JSON(resp)
}

func (h *ExploreHandler) explore(c *fiber.Ctx) error {
	log := h.log.Function("explore")

	name, present := requiredQuery(c, "name")
	if !present {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Missing required parameter: name",
		})
	}

	kind, rawKind, ok := parseKind(c, false)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid type: %s. Must be artist, genre, label, or style", rawKind),
		})
	}

	resp, found, err := h.exploreController.Explore(c.UserContext(), kind, name)
	if err != nil {
		return log.Err("explore lookup failed", err, "type", kind, "name", name)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("%s '%s' not found", capitalize(rawKind), name),
		})
	}

	return c.JSON(resp)
}

func (h *ExploreHandler) expand(c *fiber.Ctx) error {
	log := h.log.Function("expand")

	nodeID, present := requiredQuery(c, "node_id")
	if !present {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Missing required parameter: node_id",
		})
	}
	rawKind, present := requiredQuery(c, "type")
	if !present {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Missing required parameter: type",
		})
	}
	rawCategory, present := requiredQuery(c, "category")
	if !present {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Missing required parameter: category",
		})
	}

	kind, ok := types.ParseExploreType(strings.ToLower(rawKind), false)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid type: %s", rawKind),
		})
	}

	category := strings.ToLower(rawCategory)
	valid := h.exploreController.ValidCategories(kind)
	if !slices.Contains(valid, category) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf(
				"Invalid category '%s' for type '%s'. Valid: %s",
				rawCategory, rawKind, strings.Join(valid, ", "),
			),
		})
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil || limit < 1 || limit > 200 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Limit must be between 1 and 200",
		})
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Offset must be non-negative",
		})
	}

	resp, err := h.exploreController.Expand(c.UserContext(), kind, category, nodeID, limit, offset)
	if err != nil {
		return log.Err(
			"expand lookup failed", err,
			"type", kind, "category", category, "nodeID", nodeID,
		)
	}

	return c.JSON(resp)
}

func (h *ExploreHandler) node(c *fiber.Ctx) error {
	log := h.log.Function("node")

	nodeID := c.Params("id")
	if decoded, err := url.PathUnescape(nodeID); err == nil {
		nodeID = decoded
	}

	kind, rawKind, ok := parseKind(c, true)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid type: %s", rawKind),
		})
	}

	details, found, err := h.exploreController.Details(c.UserContext(), kind, nodeID)
	if err != nil {
		return log.Err("node lookup failed", err, "type", kind, "nodeID", nodeID)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": fmt.Sprintf("%s '%s' not found", capitalize(rawKind), nodeID),
		})
	}

	return c.JSON(details)
}

func (h *ExploreHandler) trends(c *fiber.Ctx) error {
	log := h.log.Function("trends")

	name, present := requiredQuery(c, "name")
	if !present {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Missing required parameter: name",
		})
	}

	kind, rawKind, ok := parseKind(c, false)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid type: %s. Must be artist, genre, label, or style", rawKind),
		})
	}

	resp, err := h.exploreController.Trends(c.UserContext(), kind, name)
	if err != nil {
		return log.Err("trends lookup failed", err, "type", kind, "name", name)
	}

	return c.JSON(resp)
}
