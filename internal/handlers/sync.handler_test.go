package handlers_test

import (
	"context"
	"testing"

	"waxworks/internal/models"
	"waxworks/internal/services"
	"waxworks/internal/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncTrigger_RequiresAuth(t *testing.T) {
	app, _ := newTestServer(t)

	resp := doJSON(t, app, fiber.MethodPost, "/api/sync", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authentication required", decodeMap(t, resp)["detail"])
}

func TestSyncTrigger_Started(t *testing.T) {
	app, ta := newTestServer(t)
	user, token := seedUser(t, ta)

	syncID := uuid.NewString()
	ta.sync.trigger = func(_ context.Context, u *models.User) (*types.SyncTriggerResponse, error) {
		assert.Equal(t, user.ID, u.ID)
		return &types.SyncTriggerResponse{SyncID: syncID, Status: services.TriggerStatusStarted}, nil
	}

	resp := doJSON(t, app, fiber.MethodPost, "/api/sync", token, nil)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, syncID, body["sync_id"])
}

func TestSyncTrigger_AlreadyRunning(t *testing.T) {
	// a sync in flight reuses its id and still answers 202
	app, ta := newTestServer(t)
	_, token := seedUser(t, ta)

	syncID := uuid.NewString()
	ta.sync.trigger = func(context.Context, *models.User) (*types.SyncTriggerResponse, error) {
		return &types.SyncTriggerResponse{SyncID: syncID, Status: services.TriggerStatusAlreadyRunning}, nil
	}

	resp := doJSON(t, app, fiber.MethodPost, "/api/sync", token, nil)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, "already_running", body["status"])
	assert.Equal(t, syncID, body["sync_id"])
}

func TestSyncTrigger_Cooldown(t *testing.T) {
	app, ta := newTestServer(t)
	_, token := seedUser(t, ta)

	ta.sync.trigger = func(context.Context, *models.User) (*types.SyncTriggerResponse, error) {
		return &types.SyncTriggerResponse{Status: services.TriggerStatusCooldown}, nil
	}

	resp := doJSON(t, app, fiber.MethodPost, "/api/sync", token, nil)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, "cooldown", body["status"])
	assert.Equal(t, "Sync rate limited. Please wait before triggering again.", body["message"])
}

func TestSyncTrigger_RateLimited(t *testing.T) {
	app, ta := newTestServer(t)
	_, token := seedUser(t, ta)

	for i := 0; i < 2; i++ {
		resp := doJSON(t, app, fiber.MethodPost, "/api/sync", token, nil)
		require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doJSON(t, app, fiber.MethodPost, "/api/sync", token, nil)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Rate limit exceeded", decodeMap(t, resp)["error"])
}

func TestSyncStatus_ListsRecentRuns(t *testing.T) {
	app, ta := newTestServer(t)
	user, token := seedUser(t, ta)

	completedAt := "2025-08-20T10:05:00Z"
	failure := "discogs returned 502"
	ta.sync.status = func(_ context.Context, u *models.User) (*types.SyncStatusResponse, error) {
		assert.Equal(t, user.ID, u.ID)
		return &types.SyncStatusResponse{Syncs: []types.SyncHistoryEntry{
			{
				SyncID:      uuid.NewString(),
				SyncType:    "full",
				Status:      "completed",
				ItemsSynced: 483,
				StartedAt:   "2025-08-20T10:00:00Z",
				CompletedAt: &completedAt,
			},
			{
				SyncID:    uuid.NewString(),
				SyncType:  "full",
				Status:    "failed",
				Error:     &failure,
				StartedAt: "2025-08-19T09:00:00Z",
			},
		}}, nil
	}

	resp := doGet(t, app, "/api/sync/status", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	syncs, ok := body["syncs"].([]any)
	require.True(t, ok)
	require.Len(t, syncs, 2)

	first, ok := syncs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", first["status"])
	assert.Equal(t, float64(483), first["items_synced"])
	assert.Equal(t, completedAt, first["completed_at"])
	assert.Nil(t, first["error"])

	second, ok := syncs[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "failed", second["status"])
	assert.Equal(t, failure, second["error"])
	assert.Nil(t, second["completed_at"])
}

func TestSyncStatus_RequiresAuth(t *testing.T) {
	app, _ := newTestServer(t)

	resp := doGet(t, app, "/api/sync/status", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authentication required", decodeMap(t, resp)["detail"])
}
