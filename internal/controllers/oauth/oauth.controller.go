package oauthController

import (
	"context"
	"errors"
	"strconv"
	"time"

	"waxworks/config"
	"waxworks/internal/constants"
	"waxworks/internal/database"
	"waxworks/internal/models"
	"waxworks/internal/repositories"
	"waxworks/internal/services"
	"waxworks/pkg/logger"

	"gorm.io/gorm"
)

var (
	// ErrStateExpired means the request token secret is no longer in the
	// cache: the user took too long or the state value is bogus.
	ErrStateExpired = errors.New("authorization session expired or invalid")
	ErrMissingField = errors.New("state and oauth_verifier are required")
	// ErrUpstream wraps a failed call to Discogs while starting the flow.
	ErrUpstream = errors.New("failed to initiate discogs oauth")
	// ErrExchangeFailed wraps verifier exchange or identity failures.
	ErrExchangeFailed = errors.New("invalid verifier code or oauth flow failed")
)

type VerifyRequest struct {
	State         string `json:"state"`
	OAuthVerifier string `json:"oauth_verifier"`
}

type AuthorizeResponse struct {
	AuthorizeURL string `json:"authorize_url"`
	State        string `json:"state"`
	ExpiresIn    int    `json:"expires_in"`
}

type VerifyResponse struct {
	Connected       bool   `json:"connected"`
	DiscogsUsername string `json:"discogs_username"`
	DiscogsUserID   string `json:"discogs_user_id"`
}

type StatusResponse struct {
	Connected       bool    `json:"connected"`
	DiscogsUsername *string `json:"discogs_username,omitempty"`
	DiscogsUserID   *string `json:"discogs_user_id,omitempty"`
	ConnectedAt     *string `json:"connected_at,omitempty"`
}

type RevokeResponse struct {
	Revoked bool `json:"revoked"`
}

type OAuthControllerInterface interface {
	Authorize(ctx context.Context, user *models.User) (*AuthorizeResponse, error)
	Verify(ctx context.Context, user *models.User, req VerifyRequest) (*VerifyResponse, error)
	Status(ctx context.Context, user *models.User) (*StatusResponse, error)
	Revoke(ctx context.Context, user *models.User) (*RevokeResponse, error)
}

type OAuthController struct {
	config        config.Config
	db            database.DB
	discogs       *services.DiscogsService
	authService   *services.AuthService
	appConfigRepo repositories.AppConfigRepository
	tokenRepo     repositories.OAuthTokenRepository
	log           logger.Logger
}

func New(
	cfg config.Config,
	db database.DB,
	discogs *services.DiscogsService,
	authService *services.AuthService,
	appConfigRepo repositories.AppConfigRepository,
	tokenRepo repositories.OAuthTokenRepository,
) OAuthControllerInterface {
	return &OAuthController{
		config:        cfg,
		db:            db,
		discogs:       discogs,
		authService:   authService,
		appConfigRepo: appConfigRepo,
		tokenRepo:     tokenRepo,
		log:           logger.New("oauthController"),
	}
}

// Authorize starts the Discogs linking handshake. The request token secret
// is parked in the auth cache until the user returns with a verifier.
func (c *OAuthController) Authorize(ctx context.Context, user *models.User) (*AuthorizeResponse, error) {
	log := c.log.Function("Authorize")

	consumerKey, consumerSecret, err := services.LoadDiscogsConsumer(ctx, c.appConfigRepo, c.authService, c.config)
	if err != nil {
		return nil, err
	}

	requestToken, err := c.discogs.GetRequestToken(ctx, consumerKey, consumerSecret)
	if err != nil {
		log.Er("request token call failed", err, "userID", user.ID)
		return nil, ErrUpstream
	}

	err = database.NewCacheBuilder(c.db.Cache.Auth, requestToken.Token).
		WithHashPattern(constants.OAuthStatePrefix + "%s").
		WithValue(requestToken.Secret).
		WithTTL(constants.OAuthStateTTL).
		WithContext(ctx).
		Set()
	if err != nil {
		return nil, log.Err("failed to store oauth state", err, "userID", user.ID)
	}

	log.Info("discogs authorization started", "userID", user.ID)
	return &AuthorizeResponse{
		AuthorizeURL: c.discogs.AuthorizeURL(requestToken.Token),
		State:        requestToken.Token,
		ExpiresIn:    int(constants.OAuthStateTTL.Seconds()),
	}, nil
}

// Verify completes the handshake: verifier -> access token -> identity ->
// encrypted upsert into oauth_tokens.
func (c *OAuthController) Verify(ctx context.Context, user *models.User, req VerifyRequest) (*VerifyResponse, error) {
	log := c.log.Function("Verify")

	if req.State == "" || req.OAuthVerifier == "" {
		return nil, ErrMissingField
	}

	stateBuilder := database.NewCacheBuilder(c.db.Cache.Auth, req.State).
		WithHashPattern(constants.OAuthStatePrefix + "%s").
		WithContext(ctx)

	requestSecret, found, err := stateBuilder.GetString()
	if err != nil {
		return nil, log.Err("failed to read oauth state", err, "userID", user.ID)
	}
	if !found {
		return nil, ErrStateExpired
	}

	consumerKey, consumerSecret, err := services.LoadDiscogsConsumer(ctx, c.appConfigRepo, c.authService, c.config)
	if err != nil {
		return nil, err
	}

	accessToken, err := c.discogs.ExchangeAccessToken(
		ctx, consumerKey, consumerSecret, req.State, requestSecret, req.OAuthVerifier)
	if err != nil {
		log.Er("verifier exchange failed", err, "userID", user.ID)
		return nil, ErrExchangeFailed
	}

	identity, err := c.discogs.GetIdentity(ctx, services.DiscogsAuth{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Token:          accessToken.Token,
		TokenSecret:    accessToken.Secret,
	})
	if err != nil {
		log.Er("identity fetch failed", err, "userID", user.ID)
		return nil, ErrExchangeFailed
	}

	encryptedToken, err := c.authService.EncryptSecret(accessToken.Token)
	if err != nil {
		return nil, log.Err("failed to encrypt access token", err, "userID", user.ID)
	}
	encryptedSecret, err := c.authService.EncryptSecret(accessToken.Secret)
	if err != nil {
		return nil, log.Err("failed to encrypt access secret", err, "userID", user.ID)
	}

	providerUserID := strconv.FormatInt(identity.ID, 10)
	token := &models.OAuthToken{
		UserID:           user.ID,
		Provider:         models.ProviderDiscogs,
		AccessToken:      encryptedToken,
		AccessSecret:     encryptedSecret,
		ProviderUsername: identity.Username,
		ProviderUserID:   providerUserID,
	}
	if err := c.tokenRepo.Upsert(ctx, token); err != nil {
		return nil, err
	}

	if err := stateBuilder.Delete(); err != nil {
		log.Warn("failed to clear oauth state", "error", err, "userID", user.ID)
	}

	log.Info("discogs account linked",
		"userID", user.ID,
		"discogsUsername", identity.Username,
	)
	return &VerifyResponse{
		Connected:       true,
		DiscogsUsername: identity.Username,
		DiscogsUserID:   providerUserID,
	}, nil
}

func (c *OAuthController) Status(ctx context.Context, user *models.User) (*StatusResponse, error) {
	token, err := c.tokenRepo.GetByUserAndProvider(ctx, user.ID, models.ProviderDiscogs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &StatusResponse{Connected: false}, nil
		}
		return nil, err
	}

	username := token.ProviderUsername
	providerUserID := token.ProviderUserID
	connectedAt := token.UpdatedAt.UTC().Format(time.RFC3339)
	return &StatusResponse{
		Connected:       true,
		DiscogsUsername: &username,
		DiscogsUserID:   &providerUserID,
		ConnectedAt:     &connectedAt,
	}, nil
}

func (c *OAuthController) Revoke(ctx context.Context, user *models.User) (*RevokeResponse, error) {
	log := c.log.Function("Revoke")

	if err := c.tokenRepo.DeleteByUserAndProvider(ctx, user.ID, models.ProviderDiscogs); err != nil {
		return nil, err
	}

	log.Info("discogs account unlinked", "userID", user.ID)
	return &RevokeResponse{Revoked: true}, nil
}
