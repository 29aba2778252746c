package repositories

import (
	"context"
	"waxworks/internal/database"
	. "waxworks/internal/models"
	"waxworks/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

type OAuthTokenRepository interface {
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*OAuthToken, error)
	Upsert(ctx context.Context, token *OAuthToken) error
	DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) error
}

type oauthTokenRepository struct {
	db  database.DB
	log logger.Logger
}

func NewOAuthTokenRepository(db database.DB) OAuthTokenRepository {
	return &oauthTokenRepository{
		db:  db,
		log: logger.New("oauthTokenRepository"),
	}
}

func (r *oauthTokenRepository) GetByUserAndProvider(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
) (*OAuthToken, error) {
	var token OAuthToken
	if err := r.db.SQLWithContext(ctx).
		First(&token, "user_id = ? AND provider = ?", userID, provider).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *oauthTokenRepository) Upsert(ctx context.Context, token *OAuthToken) error {
	log := r.log.Function("Upsert")

	if err := r.db.SQLWithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "provider"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token",
				"access_secret",
				"provider_username",
				"provider_user_id",
				"updated_at",
			}),
		}).
		Create(token).Error; err != nil {
		return log.Err("failed to upsert oauth token", err, "userID", token.UserID, "provider", token.Provider)
	}

	return nil
}

// DeleteByUserAndProvider hard-deletes the row. A soft-deleted token would
// keep holding the (user_id, provider) unique index, so a later re-link
// would upsert into a row the scoped reads never see.
func (r *oauthTokenRepository) DeleteByUserAndProvider(
	ctx context.Context,
	userID uuid.UUID,
	provider string,
) error {
	log := r.log.Function("DeleteByUserAndProvider")

	if err := r.db.SQLWithContext(ctx).Unscoped().
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&OAuthToken{}).Error; err != nil {
		return log.Err("failed to delete oauth token", err, "userID", userID, "provider", provider)
	}

	return nil
}
