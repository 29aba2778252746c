package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_LivesOutsideAPIGroup(t *testing.T) {
	app, _ := newTestServer(t)

	resp := doGet(t, app, "/health", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "api", body["service"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestTraceID_EchoesValidInboundID(t *testing.T) {
	app, _ := newTestServer(t)
	inbound := uuid.New().String()

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Trace-ID", inbound)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, inbound, resp.Header.Get("X-Trace-ID"))
}

func TestTraceID_ReplacesUntrustedInboundID(t *testing.T) {
	app, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Trace-ID", "not-a-uuid")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	echoed := resp.Header.Get("X-Trace-ID")
	_, parseErr := uuid.Parse(echoed)
	assert.NoError(t, parseErr, "junk inbound ids must be replaced with a fresh UUID")
}
