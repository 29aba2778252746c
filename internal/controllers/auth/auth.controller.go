package authController

import (
	"context"
	"errors"

	"waxworks/internal/models"
	"waxworks/internal/repositories"
	"waxworks/internal/services"
	"waxworks/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sentinel errors the handler layer maps onto status codes and the frozen
// response bodies.
var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrWeakPassword  = errors.New("password must be at least 8 characters")
	ErrEmailTaken    = errors.New("email address already registered")
	ErrBadCredential = errors.New("incorrect email or password")
	ErrUserMissing   = errors.New("user not found")
)

const minPasswordLength = 8

type AuthControllerInterface interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.UserProfile, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	Logout(ctx context.Context, claims *services.TokenClaims) error
	Me(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
}

type AuthController struct {
	authService *services.AuthService
	userRepo    repositories.UserRepository
	log         logger.Logger
}

func New(authService *services.AuthService, userRepo repositories.UserRepository) AuthControllerInterface {
	return &AuthController{
		authService: authService,
		userRepo:    userRepo,
		log:         logger.New("authController"),
	}
}

func (c *AuthController) Register(ctx context.Context, req models.RegisterRequest) (*models.UserProfile, error) {
	log := c.log.Function("Register")

	email := models.NormalizeEmail(req.Email)
	if !models.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	exists, err := c.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, log.Err("failed to check email uniqueness", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashed, err := c.authService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:          email,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := c.userRepo.Create(ctx, user); err != nil {
		return nil, log.Err("failed to create user", err, "email", email)
	}

	log.Info("user registered", "userID", user.ID)
	profile := user.ToProfile()
	return &profile, nil
}

func (c *AuthController) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	log := c.log.Function("Login")

	email := models.NormalizeEmail(req.Email)

	user, err := c.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn the same hashing cost as a real verification so the
			// response time does not reveal whether the account exists.
			c.authService.VerifyDummy(req.Password)
			return nil, ErrBadCredential
		}
		return nil, log.Err("failed to look up user", err)
	}

	if !user.IsActive || !c.authService.VerifyPassword(req.Password, user.HashedPassword) {
		return nil, ErrBadCredential
	}

	token, expiresIn, err := c.authService.IssueToken(user)
	if err != nil {
		return nil, err
	}

	log.Info("user logged in", "userID", user.ID)
	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	}, nil
}

func (c *AuthController) Logout(ctx context.Context, claims *services.TokenClaims) error {
	return c.authService.RevokeToken(ctx, claims)
}

func (c *AuthController) Me(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	user, err := c.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserMissing
		}
		return nil, err
	}

	profile := user.ToProfile()
	return &profile, nil
}
