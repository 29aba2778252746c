package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"waxworks/config"
	"waxworks/internal/app"
	"waxworks/internal/controllers"
	cacheController "waxworks/internal/controllers/cache"
	exploreController "waxworks/internal/controllers/explore"
	oauthController "waxworks/internal/controllers/oauth"
	userController "waxworks/internal/controllers/users"
	"waxworks/internal/database"
	"waxworks/internal/handlers/middleware"
	"waxworks/internal/models"
	"waxworks/internal/repositories"
	"waxworks/internal/server"
	"waxworks/internal/services"
	"waxworks/internal/types"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "handler-test-jwt-secret"

// testApp exposes the stubs one server instance is wired to. Tests assign
// the function fields to script controller behavior; unset functions answer
// with empty success values.
type testApp struct {
	users   *stubUserRepo
	auth    *stubAuthController
	explore *stubExploreController
	user    *stubUserController
	sync    *stubSyncController
	oauth   *stubOAuthController
	cache   *stubCacheController
}

// newTestServer builds the full fiber stack (cors, trace, error handler,
// per-route limiters) around stub controllers and an in-memory user repo.
// Each test gets its own instance so rate limiter counters never leak
// between tests.
func newTestServer(t *testing.T) (*fiber.App, *testApp) {
	t.Helper()

	cfg := config.Config{
		JWTSecretKey: testJWTSecret,
		CORSOrigins:  "http://localhost:3000",
	}

	authService, err := services.NewAuthService(cfg, database.DB{})
	require.NoError(t, err)

	ta := &testApp{
		users:   &stubUserRepo{users: make(map[uuid.UUID]*models.User)},
		auth:    &stubAuthController{},
		explore: &stubExploreController{},
		user:    &stubUserController{},
		sync:    &stubSyncController{},
		oauth:   &stubOAuthController{},
		cache:   &stubCacheController{},
	}

	application := &app.App{
		Config: cfg,
		Middleware: middleware.New(
			database.DB{}, nil, cfg,
			repositories.Repository{User: ta.users},
			authService,
		),
		Controllers: controllers.Controllers{
			Auth:    ta.auth,
			OAuth:   ta.oauth,
			Explore: ta.explore,
			User:    ta.user,
			Sync:    ta.sync,
			Cache:   ta.cache,
		},
	}

	srv, err := server.New(application)
	require.NoError(t, err)

	return srv.FiberApp, ta
}

// seedUser stores an account in the stub repo and mints a bearer token the
// auth middleware accepts. The token carries no jti, so validation never
// consults the revocation cache, which is not wired here.
func seedUser(t *testing.T, ta *testApp) (*models.User, string) {
	t.Helper()

	user := &models.User{
		BaseUUIDModel: models.BaseUUIDModel{ID: uuid.New()},
		Email:         "tester@example.com",
		IsActive:      true,
	}
	ta.users.users[user.ID] = user

	return user, mintToken(t, jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
}

func mintToken(t *testing.T, registered jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, services.TokenClaims{
		Email:            "tester@example.com",
		RegisteredClaims: registered,
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, target, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doGet(t *testing.T, app *fiber.App, target, token string) *http.Response {
	t.Helper()
	return doJSON(t, app, fiber.MethodGet, target, token, nil)
}

// doRaw sends a literal body, for malformed-payload cases doJSON cannot
// produce.
func doRaw(t *testing.T, app *fiber.App, method, target, token, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

type stubUserRepo struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == models.NormalizeEmail(email) {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s *stubUserRepo) Create(_ context.Context, user *models.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *stubUserRepo) Update(_ context.Context, user *models.User) error {
	s.users[user.ID] = user
	return nil
}

type stubAuthController struct {
	register func(ctx context.Context, req models.RegisterRequest) (*models.UserProfile, error)
	login    func(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	logout   func(ctx context.Context, claims *services.TokenClaims) error
	me       func(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

func (s *stubAuthController) Register(ctx context.Context, req models.RegisterRequest) (*models.UserProfile, error) {
	if s.register == nil {
		return &models.UserProfile{}, nil
	}
	return s.register(ctx, req)
}

func (s *stubAuthController) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	if s.login == nil {
		return &models.TokenResponse{}, nil
	}
	return s.login(ctx, req)
}

func (s *stubAuthController) Logout(ctx context.Context, claims *services.TokenClaims) error {
	if s.logout == nil {
		return nil
	}
	return s.logout(ctx, claims)
}

func (s *stubAuthController) Me(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	if s.me == nil {
		return &models.UserProfile{}, nil
	}
	return s.me(ctx, userID)
}

type stubExploreController struct {
	autocomplete    func(ctx context.Context, kind types.ExploreType, query string, limit int) (*exploreController.AutocompleteResponse, error)
	explore         func(ctx context.Context, kind types.ExploreType, name string) (*types.ExploreResponse, bool, error)
	validCategories func(kind types.ExploreType) []string
	expand          func(ctx context.Context, kind types.ExploreType, category, nodeID string, limit, offset int) (*types.ExpandResponse, error)
	details         func(ctx context.Context, kind types.ExploreType, nodeID string) (map[string]any, bool, error)
	trends          func(ctx context.Context, kind types.ExploreType, name string) (*types.TrendsResponse, error)
	invalidateCache func(pattern string) int
}

func (s *stubExploreController) Autocomplete(ctx context.Context, kind types.ExploreType, query string, limit int) (*exploreController.AutocompleteResponse, error) {
	if s.autocomplete == nil {
		return &exploreController.AutocompleteResponse{Results: []types.AutocompleteResult{}}, nil
	}
	return s.autocomplete(ctx, kind, query, limit)
}

func (s *stubExploreController) Explore(ctx context.Context, kind types.ExploreType, name string) (*types.ExploreResponse, bool, error) {
	if s.explore == nil {
		return nil, false, nil
	}
	return s.explore(ctx, kind, name)
}

func (s *stubExploreController) ValidCategories(kind types.ExploreType) []string {
	if s.validCategories == nil {
		return []string{"releases", "artists", "labels"}
	}
	return s.validCategories(kind)
}

func (s *stubExploreController) Expand(ctx context.Context, kind types.ExploreType, category, nodeID string, limit, offset int) (*types.ExpandResponse, error) {
	if s.expand == nil {
		return &types.ExpandResponse{Children: []map[string]any{}, Limit: limit, Offset: offset}, nil
	}
	return s.expand(ctx, kind, category, nodeID, limit, offset)
}

func (s *stubExploreController) Details(ctx context.Context, kind types.ExploreType, nodeID string) (map[string]any, bool, error) {
	if s.details == nil {
		return nil, false, nil
	}
	return s.details(ctx, kind, nodeID)
}

func (s *stubExploreController) Trends(ctx context.Context, kind types.ExploreType, name string) (*types.TrendsResponse, error) {
	if s.trends == nil {
		return &types.TrendsResponse{Name: name, Type: kind, Data: []types.TrendPoint{}}, nil
	}
	return s.trends(ctx, kind, name)
}

func (s *stubExploreController) InvalidateCache(pattern string) int {
	if s.invalidateCache == nil {
		return 0
	}
	return s.invalidateCache(pattern)
}

type stubUserController struct {
	collection      func(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*types.UserReleasesResponse, error)
	wantlist        func(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*types.UserReleasesResponse, error)
	recommendations func(ctx context.Context, userID uuid.UUID, limit int) (*types.RecommendationsResponse, error)
	stats           func(ctx context.Context, userID uuid.UUID) (*types.CollectionStats, error)
	releaseStatus   func(ctx context.Context, userID *uuid.UUID, ids []string) (*userController.StatusResponse, error)
}

func (s *stubUserController) Collection(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*types.UserReleasesResponse, error) {
	if s.collection == nil {
		return &types.UserReleasesResponse{Releases: []types.UserReleaseRow{}, Limit: limit}, nil
	}
	return s.collection(ctx, userID, limit, cursor)
}

func (s *stubUserController) Wantlist(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*types.UserReleasesResponse, error) {
	if s.wantlist == nil {
		return &types.UserReleasesResponse{Releases: []types.UserReleaseRow{}, Limit: limit}, nil
	}
	return s.wantlist(ctx, userID, limit, cursor)
}

func (s *stubUserController) Recommendations(ctx context.Context, userID uuid.UUID, limit int) (*types.RecommendationsResponse, error) {
	if s.recommendations == nil {
		return &types.RecommendationsResponse{Recommendations: []types.RecommendationRow{}}, nil
	}
	return s.recommendations(ctx, userID, limit)
}

func (s *stubUserController) Stats(ctx context.Context, userID uuid.UUID) (*types.CollectionStats, error) {
	if s.stats == nil {
		return &types.CollectionStats{TopArtists: []types.ArtistCount{}}, nil
	}
	return s.stats(ctx, userID)
}

func (s *stubUserController) ReleaseStatus(ctx context.Context, userID *uuid.UUID, ids []string) (*userController.StatusResponse, error) {
	if s.releaseStatus == nil {
		status := make(map[string]types.ReleaseStatus, len(ids))
		for _, id := range ids {
			status[id] = types.ReleaseStatus{}
		}
		return &userController.StatusResponse{Status: status}, nil
	}
	return s.releaseStatus(ctx, userID, ids)
}

type stubSyncController struct {
	trigger func(ctx context.Context, user *models.User) (*types.SyncTriggerResponse, error)
	status  func(ctx context.Context, user *models.User) (*types.SyncStatusResponse, error)
}

func (s *stubSyncController) Trigger(ctx context.Context, user *models.User) (*types.SyncTriggerResponse, error) {
	if s.trigger == nil {
		return &types.SyncTriggerResponse{Status: services.TriggerStatusStarted}, nil
	}
	return s.trigger(ctx, user)
}

func (s *stubSyncController) Status(ctx context.Context, user *models.User) (*types.SyncStatusResponse, error) {
	if s.status == nil {
		return &types.SyncStatusResponse{Syncs: []types.SyncHistoryEntry{}}, nil
	}
	return s.status(ctx, user)
}

type stubOAuthController struct {
	authorize func(ctx context.Context, user *models.User) (*oauthController.AuthorizeResponse, error)
	verify    func(ctx context.Context, user *models.User, req oauthController.VerifyRequest) (*oauthController.VerifyResponse, error)
	status    func(ctx context.Context, user *models.User) (*oauthController.StatusResponse, error)
	revoke    func(ctx context.Context, user *models.User) (*oauthController.RevokeResponse, error)
}

func (s *stubOAuthController) Authorize(ctx context.Context, user *models.User) (*oauthController.AuthorizeResponse, error) {
	if s.authorize == nil {
		return &oauthController.AuthorizeResponse{}, nil
	}
	return s.authorize(ctx, user)
}

func (s *stubOAuthController) Verify(ctx context.Context, user *models.User, req oauthController.VerifyRequest) (*oauthController.VerifyResponse, error) {
	if s.verify == nil {
		return &oauthController.VerifyResponse{}, nil
	}
	return s.verify(ctx, user, req)
}

func (s *stubOAuthController) Status(ctx context.Context, user *models.User) (*oauthController.StatusResponse, error) {
	if s.status == nil {
		return &oauthController.StatusResponse{}, nil
	}
	return s.status(ctx, user)
}

func (s *stubOAuthController) Revoke(ctx context.Context, user *models.User) (*oauthController.RevokeResponse, error) {
	if s.revoke == nil {
		return &oauthController.RevokeResponse{Revoked: true}, nil
	}
	return s.revoke(ctx, user)
}

type stubCacheController struct {
	invalidate func(ctx context.Context, req cacheController.InvalidateRequest) (*cacheController.InvalidateResponse, error)
}

func (s *stubCacheController) Invalidate(ctx context.Context, req cacheController.InvalidateRequest) (*cacheController.InvalidateResponse, error) {
	if s.invalidate == nil {
		return &cacheController.InvalidateResponse{Status: "success", Pattern: req.Pattern}, nil
	}
	return s.invalidate(ctx, req)
}
