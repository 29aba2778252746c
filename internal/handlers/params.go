package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// requiredQuery returns a query parameter's raw value and whether the
// parameter appeared in the request at all. An empty value still counts
// as present, which matters for parameters like ids where "provided but
// empty" and "missing" get different responses.
func requiredQuery(c *fiber.Ctx, name string) (string, bool) {
	if !c.Request().URI().QueryArgs().Has(name) {
		return "", false
	}
	return c.Query(name), true
}

// queryInt parses an integer query parameter, substituting def when the
// parameter is absent.
func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// capitalize renders a type name for display in not-found messages:
// first letter upper, rest lower.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
