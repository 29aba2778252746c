package cacheController

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"waxworks/config"
	"waxworks/internal/database"
	"waxworks/internal/events"
	"waxworks/pkg/logger"
)

var (
	// ErrNotConfigured means CACHE_WEBHOOK_SECRET is unset, so the webhook
	// cannot authenticate anyone.
	ErrNotConfigured = errors.New("cache invalidation webhook not configured")
	ErrBadSecret     = errors.New("invalid webhook secret")
)

type InvalidateRequest struct {
	Pattern string `json:"pattern"`
	Secret  string `json:"secret"`
}

type InvalidateResponse struct {
	Status       string `json:"status"`
	Pattern      string `json:"pattern"`
	DeletedCount int64  `json:"deleted_count"`
	Timestamp    string `json:"timestamp"`
}

type CacheControllerInterface interface {
	Invalidate(ctx context.Context, req InvalidateRequest) (*InvalidateResponse, error)
}

type CacheController struct {
	config   config.Config
	db       database.DB
	eventBus *events.EventBus
	log      logger.Logger
}

func New(cfg config.Config, db database.DB, eventBus *events.EventBus) CacheControllerInterface {
	return &CacheController{
		config:   cfg,
		db:       db,
		eventBus: eventBus,
		log:      logger.New("cacheController"),
	}
}

// Invalidate deletes matching keys from the general cache and broadcasts the
// pattern so in-process caches drop their matching entries too.
func (c *CacheController) Invalidate(ctx context.Context, req InvalidateRequest) (*InvalidateResponse, error) {
	log := c.log.Function("Invalidate")

	if c.config.CacheWebhookSecret == "" {
		return nil, ErrNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(c.config.CacheWebhookSecret)) != 1 {
		log.Warn("webhook secret mismatch", "pattern", req.Pattern)
		return nil, ErrBadSecret
	}

	deleted, err := database.DeleteByPattern(ctx, c.db.Cache.General, req.Pattern)
	if err != nil {
		return nil, log.Err("failed to delete cache keys", err, "pattern", req.Pattern)
	}

	if c.eventBus != nil {
		if err := c.eventBus.PublishCacheInvalidation(req.Pattern); err != nil {
			log.Warn("failed to broadcast cache invalidation", "error", err, "pattern", req.Pattern)
		}
	}

	log.Info("cache invalidated", "pattern", req.Pattern, "deleted", deleted)
	return &InvalidateResponse{
		Status:       "success",
		Pattern:      req.Pattern,
		DeletedCount: deleted,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}
