package handlers_test

import (
	"context"
	"errors"
	"testing"

	cacheController "waxworks/internal/controllers/cache"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheInvalidate_DeletesMatchingKeys(t *testing.T) {
	app, ta := newTestServer(t)

	var got cacheController.InvalidateRequest
	ta.cache.invalidate = func(_ context.Context, req cacheController.InvalidateRequest) (*cacheController.InvalidateResponse, error) {
		got = req
		return &cacheController.InvalidateResponse{
			Status:       "success",
			Pattern:      req.Pattern,
			DeletedCount: 12,
			Timestamp:    "2025-08-25T09:00:00Z",
		}, nil
	}

	resp := doJSON(t, app, fiber.MethodPost, "/api/cache/invalidate", "", map[string]string{
		"pattern": "autocomplete:artist:*",
		"secret":  "webhook-secret",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "autocomplete:artist:*", body["pattern"])
	assert.Equal(t, float64(12), body["deleted_count"])
	assert.NotEmpty(t, body["timestamp"])

	assert.Equal(t, "autocomplete:artist:*", got.Pattern)
	assert.Equal(t, "webhook-secret", got.Secret)
}

func TestCacheInvalidate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"empty pattern", map[string]string{"pattern": "", "secret": "x"}},
		{"empty secret", map[string]string{"pattern": "x", "secret": ""}},
		{"both empty", map[string]string{}},
	}

	app, _ := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, fiber.MethodPost, "/api/cache/invalidate", "", tt.body)
			require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
			assert.Equal(t, "pattern and secret are required", decodeMap(t, resp)["detail"])
		})
	}
}

func TestCacheInvalidate_InvalidBody(t *testing.T) {
	app, _ := newTestServer(t)

	resp := doRaw(t, app, fiber.MethodPost, "/api/cache/invalidate", "", "pattern=x")
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Invalid request body", decodeMap(t, resp)["detail"])
}

func TestCacheInvalidate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"webhook not configured", cacheController.ErrNotConfigured, fiber.StatusServiceUnavailable, "Cache invalidation webhook not configured"},
		{"wrong secret", cacheController.ErrBadSecret, fiber.StatusUnauthorized, "Invalid webhook secret"},
		{"backend failure", errors.New("valkey down"), fiber.StatusInternalServerError, "Cache invalidation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, ta := newTestServer(t)
			ta.cache.invalidate = func(context.Context, cacheController.InvalidateRequest) (*cacheController.InvalidateResponse, error) {
				return nil, tt.err
			}

			resp := doJSON(t, app, fiber.MethodPost, "/api/cache/invalidate", "", map[string]string{
				"pattern": "explore:*",
				"secret":  "guess",
			})
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantDetail, decodeMap(t, resp)["detail"])
		})
	}
}
