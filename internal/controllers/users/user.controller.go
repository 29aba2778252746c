package userController

import (
	"context"
	"errors"
	"strconv"

	"waxworks/internal/repositories"
	"waxworks/internal/types"
	"waxworks/internal/utils"
	"waxworks/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatusResponse struct {
	Status map[string]types.ReleaseStatus `json:"status"`
}

type UserControllerInterface interface {
	Collection(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*types.UserReleasesResponse, error)
	Wantlist(ctx context.Context, userID uuid.UUID, limit int, cursor string) (*types.UserReleasesResponse, error)
	Recommendations(ctx context.Context, userID uuid.UUID, limit int) (*types.RecommendationsResponse, error)
	Stats(ctx context.Context, userID uuid.UUID) (*types.CollectionStats, error)
	ReleaseStatus(ctx context.Context, userID *uuid.UUID, ids []string) (*StatusResponse, error)
}

type UserController struct {
	userGraphRepo repositories.UserGraphRepository
	valueRepo     repositories.CollectionValueRepository
	log           logger.Logger
}

func New(
	userGraphRepo repositories.UserGraphRepository,
	valueRepo repositories.CollectionValueRepository,
) UserControllerInterface {
	return &UserController{
		userGraphRepo: userGraphRepo,
		valueRepo:     valueRepo,
		log:           logger.New("userController"),
	}
}

func (c *UserController) Collection(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	cursor string,
) (*types.UserReleasesResponse, error) {
	return c.userView(ctx, userID, limit, cursor,
		c.userGraphRepo.CollectionRows, c.userGraphRepo.CollectionCount)
}

func (c *UserController) Wantlist(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	cursor string,
) (*types.UserReleasesResponse, error) {
	return c.userView(ctx, userID, limit, cursor,
		c.userGraphRepo.WantlistRows, c.userGraphRepo.WantlistCount)
}

func (c *UserController) userView(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	cursor string,
	rowsFn func(context.Context, string, int, int) ([]types.UserReleaseRow, error),
	countFn func(context.Context, string) (int64, error),
) (*types.UserReleasesResponse, error) {
	offset := utils.DecodeCursor(cursor)

	rows, err := rowsFn(ctx, userID.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := countFn(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	if rows == nil {
		rows = []types.UserReleaseRow{}
	}
	response := &types.UserReleasesResponse{
		Releases: rows,
		Total:    total,
		Offset:   offset,
		Limit:    limit,
		HasMore:  int64(offset+len(rows)) < total,
	}
	if next := utils.NextCursor(offset, limit, len(rows)); next != nil {
		response.NextCursor = *next
	}
	return response, nil
}

func (c *UserController) Recommendations(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) (*types.RecommendationsResponse, error) {
	rows, err := c.userGraphRepo.Recommendations(ctx, userID.String(), limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []types.RecommendationRow{}
	}
	return &types.RecommendationsResponse{Recommendations: rows, Total: len(rows)}, nil
}

func (c *UserController) Stats(ctx context.Context, userID uuid.UUID) (*types.CollectionStats, error) {
	stats, err := c.userGraphRepo.Stats(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	value, err := c.valueRepo.GetByUser(ctx, userID)
	switch {
	case err == nil:
		stats.Value = &types.ValueSummary{
			Minimum:  value.Minimum.String(),
			Median:   value.Median.String(),
			Maximum:  value.Maximum.String(),
			Currency: value.Currency,
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No value sync yet; stats go out without the estimate.
	default:
		c.log.Function("Stats").Warn("failed to load collection value", "error", err, "userID", userID)
	}

	return &stats, nil
}

// ReleaseStatus reports collection/wantlist membership for the given ids.
// Without an authenticated user every id reports false rather than 401.
func (c *UserController) ReleaseStatus(
	ctx context.Context,
	userID *uuid.UUID,
	ids []string,
) (*StatusResponse, error) {
	status := make(map[string]types.ReleaseStatus, len(ids))
	for _, id := range ids {
		status[id] = types.ReleaseStatus{}
	}

	if userID == nil || len(ids) == 0 {
		return &StatusResponse{Status: status}, nil
	}

	numeric := make([]int64, 0, len(ids))
	for _, id := range ids {
		if parsed, err := strconv.ParseInt(id, 10, 64); err == nil {
			numeric = append(numeric, parsed)
		}
	}

	found, err := c.userGraphRepo.ReleaseStatus(ctx, userID.String(), numeric)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if parsed, perr := strconv.ParseInt(id, 10, 64); perr == nil {
			if s, ok := found[parsed]; ok {
				status[id] = s
			}
		}
	}

	return &StatusResponse{Status: status}, nil
}
