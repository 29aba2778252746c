package middleware

import (
	"waxworks/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the correlation id. Inbound values are reused so
	// ids stay stable across proxies and client retries.
	TraceIDHeader = "X-Trace-ID"

	traceIDLocal = "traceID"
)

// TraceID stamps every request with a correlation id, echoes it on the
// response, and threads it through the user context for request-scoped
// logging. Inbound values that are not UUIDs are replaced, not trusted.
func (m *Middleware) TraceID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(TraceIDHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.New().String()
		}

		c.Set(TraceIDHeader, traceID)
		c.Locals(traceIDLocal, traceID)
		c.SetUserContext(logger.ContextWithTraceID(c.UserContext(), traceID))

		return c.Next()
	}
}

// GetTraceID returns the correlation id stamped on the request, or "" when
// the middleware has not run.
func GetTraceID(c *fiber.Ctx) string {
	traceID, _ := c.Locals(traceIDLocal).(string)
	return traceID
}
