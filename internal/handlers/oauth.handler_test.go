package handlers_test

import (
	"context"
	"errors"
	"testing"

	oauthController "waxworks/internal/controllers/oauth"
	"waxworks/internal/models"
	"waxworks/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthRoutes_RequireAuth(t *testing.T) {
	app, _ := newTestServer(t)

	routes := []struct {
		method string
		target string
	}{
		{fiber.MethodGet, "/api/oauth/authorize/discogs"},
		{fiber.MethodPost, "/api/oauth/verify/discogs"},
		{fiber.MethodGet, "/api/oauth/status/discogs"},
		{fiber.MethodDelete, "/api/oauth/revoke/discogs"},
	}

	for _, route := range routes {
		resp := doJSON(t, app, route.method, route.target, "", nil)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, route.target)
		assert.Equal(t, "Authentication required", decodeMap(t, resp)["detail"])
	}
}

func TestOAuthAuthorize_StartsHandshake(t *testing.T) {
	app, ta := newTestServer(t)
	user, token := seedUser(t, ta)

	ta.oauth.authorize = func(_ context.Context, u *models.User) (*oauthController.AuthorizeResponse, error) {
		assert.Equal(t, user.ID, u.ID)
		return &oauthController.AuthorizeResponse{
			AuthorizeURL: "https://discogs.com/oauth/authorize?oauth_token=req-token",
			State:        "req-token",
			ExpiresIn:    600,
		}, nil
	}

	resp := doGet(t, app, "/api/oauth/authorize/discogs", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, "https://discogs.com/oauth/authorize?oauth_token=req-token", body["authorize_url"])
	assert.Equal(t, "req-token", body["state"])
	assert.Equal(t, float64(600), body["expires_in"])
}

func TestOAuthAuthorize_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"consumer not configured", services.ErrConsumerNotConfigured, fiber.StatusServiceUnavailable, "Discogs app credentials not configured"},
		{"upstream failure", oauthController.ErrUpstream, fiber.StatusBadGateway, "Failed to initiate Discogs OAuth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, ta := newTestServer(t)
			_, token := seedUser(t, ta)
			ta.oauth.authorize = func(context.Context, *models.User) (*oauthController.AuthorizeResponse, error) {
				return nil, tt.err
			}

			resp := doGet(t, app, "/api/oauth/authorize/discogs", token)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantDetail, decodeMap(t, resp)["detail"])
		})
	}
}

func TestOAuthVerify_LinksAccount(t *testing.T) {
	app, ta := newTestServer(t)
	_, token := seedUser(t, ta)

	var got oauthController.VerifyRequest
	ta.oauth.verify = func(_ context.Context, _ *models.User, req oauthController.VerifyRequest) (*oauthController.VerifyResponse, error) {
		got = req
		return &oauthController.VerifyResponse{
			Connected:       true,
			DiscogsUsername: "waxcollector",
			DiscogsUserID:   "123456",
		}, nil
	}

	resp := doJSON(t, app, fiber.MethodPost, "/api/oauth/verify/discogs", token, map[string]string{
		"state":          "req-token",
		"oauth_verifier": "verifier-code",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "waxcollector", body["discogs_username"])
	assert.Equal(t, "123456", body["discogs_user_id"])

	assert.Equal(t, "req-token", got.State)
	assert.Equal(t, "verifier-code", got.OAuthVerifier)
}

func TestOAuthVerify_InvalidBody(t *testing.T) {
	app, ta := newTestServer(t)
	_, token := seedUser(t, ta)

	resp := doRaw(t, app, fiber.MethodPost, "/api/oauth/verify/discogs", token, "{{")
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Invalid request body", decodeMap(t, resp)["detail"])
}

func TestOAuthVerify_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"missing fields", oauthController.ErrMissingField, fiber.StatusUnprocessableEntity, "state and oauth_verifier are required"},
		{"consumer not configured", services.ErrConsumerNotConfigured, fiber.StatusServiceUnavailable, "Discogs app credentials not configured"},
		{"state expired", oauthController.ErrStateExpired, fiber.StatusBadRequest, "OAuth state not found or expired. Please restart the OAuth flow."},
		{"exchange failed", oauthController.ErrExchangeFailed, fiber.StatusBadRequest, "Invalid verifier code or OAuth flow failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, ta := newTestServer(t)
			_, token := seedUser(t, ta)
			ta.oauth.verify = func(context.Context, *models.User, oauthController.VerifyRequest) (*oauthController.VerifyResponse, error) {
				return nil, tt.err
			}

			resp := doJSON(t, app, fiber.MethodPost, "/api/oauth/verify/discogs", token, map[string]string{
				"state":          "req-token",
				"oauth_verifier": "verifier-code",
			})
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantDetail, decodeMap(t, resp)["detail"])
		})
	}
}

func TestOAuthStatus_NotConnected(t *testing.T) {
	app, ta := newTestServer(t)
	_, token := seedUser(t, ta)

	resp := doGet(t, app, "/api/oauth/status/discogs", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, false, body["connected"])
	assert.NotContains(t, body, "discogs_username")
	assert.NotContains(t, body, "connected_at")
}

func TestOAuthStatus_Connected(t *testing.T) {
	app, ta := newTestServer(t)
	_, token := seedUser(t, ta)

	username := "waxcollector"
	providerID := "123456"
	connectedAt := "2025-08-01T08:30:00Z"
	ta.oauth.status = func(context.Context, *models.User) (*oauthController.StatusResponse, error) {
		return &oauthController.StatusResponse{
			Connected:       true,
			DiscogsUsername: &username,
			DiscogsUserID:   &providerID,
			ConnectedAt:     &connectedAt,
		}, nil
	}

	resp := doGet(t, app, "/api/oauth/status/discogs", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, username, body["discogs_username"])
	assert.Equal(t, providerID, body["discogs_user_id"])
	assert.Equal(t, connectedAt, body["connected_at"])
}

func TestOAuthRevoke_UnlinksAccount(t *testing.T) {
	app, ta := newTestServer(t)
	user, token := seedUser(t, ta)

	var gotUser *models.User
	ta.oauth.revoke = func(_ context.Context, u *models.User) (*oauthController.RevokeResponse, error) {
		gotUser = u
		return &oauthController.RevokeResponse{Revoked: true}, nil
	}

	resp := doJSON(t, app, fiber.MethodDelete, "/api/oauth/revoke/discogs", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeMap(t, resp)["revoked"])

	require.NotNil(t, gotUser)
	assert.Equal(t, user.ID, gotUser.ID)
}

func TestOAuth_UnmappedErrorBecomesOpaque500(t *testing.T) {
	app, ta := newTestServer(t)
	_, token := seedUser(t, ta)

	ta.oauth.status = func(context.Context, *models.User) (*oauthController.StatusResponse, error) {
		return nil, errors.New("oauth_tokens table vanished")
	}

	resp := doGet(t, app, "/api/oauth/status/discogs", token)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", decodeMap(t, resp)["detail"])
}
