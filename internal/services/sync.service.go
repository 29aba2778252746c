package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"waxworks/config"
	"waxworks/internal/constants"
	"waxworks/internal/database"
	"waxworks/internal/events"
	"waxworks/internal/models"
	"waxworks/internal/repositories"
	"waxworks/internal/types"
	"waxworks/internal/utils"
	"waxworks/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TriggerStatusStarted        = "started"
	TriggerStatusAlreadyRunning = "already_running"
	TriggerStatusCooldown       = "cooldown"
)

// syncTask marks one in-flight background sync. done closes when the
// goroutine finishes, whatever the outcome.
type syncTask struct {
	syncID uuid.UUID
	done   chan struct{}
}

func (t *syncTask) isDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// SyncService orchestrates per-user Discogs syncs: the trigger gates
// (cooldown, one task per user), the background run that pages through the
// user's collection and wantlist into Postgres and the graph, and the
// lifecycle bookkeeping around it.
type SyncService struct {
	config      config.Config
	db          database.DB
	repos       repositories.Repository
	discogs     *DiscogsService
	auth        *AuthService
	transaction *TransactionService
	eventBus    *events.EventBus
	log         logger.Logger

	mu           sync.Mutex
	runningSyncs map[uuid.UUID]*syncTask
}

func NewSyncService(
	cfg config.Config,
	db database.DB,
	repos repositories.Repository,
	discogs *DiscogsService,
	auth *AuthService,
	transaction *TransactionService,
	eventBus *events.EventBus,
) *SyncService {
	return &SyncService{
		config:       cfg,
		db:           db,
		repos:        repos,
		discogs:      discogs,
		auth:         auth,
		transaction:  transaction,
		eventBus:     eventBus,
		log:          logger.New("syncService"),
		runningSyncs: make(map[uuid.UUID]*syncTask),
	}
}

// Trigger applies the concurrency gates and, when clear, starts a full sync
// in the background. The response status tells the handler which of the
// three outcomes happened; only transport-level failures return an error.
func (s *SyncService) Trigger(ctx context.Context, user *models.User) (*types.SyncTriggerResponse, error) {
	log := s.log.Function("Trigger")

	onCooldown, err := database.NewCacheBuilder(s.db.Cache.Sync, user.ID).
		WithHashPattern(constants.SyncCooldownPrefix + "%s").
		WithContext(ctx).
		Exists()
	if err != nil {
		return nil, log.Err("failed to check sync cooldown", err, "userID", user.ID)
	}
	if onCooldown {
		return &types.SyncTriggerResponse{Status: TriggerStatusCooldown}, nil
	}

	s.mu.Lock()
	if task, ok := s.runningSyncs[user.ID]; ok && !task.isDone() {
		s.mu.Unlock()

		syncID := ""
		if row, err := s.repos.SyncHistory.LatestRunning(ctx, user.ID); err == nil {
			syncID = row.ID.String()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("failed to look up running sync row", "error", err, "userID", user.ID)
		}
		return &types.SyncTriggerResponse{SyncID: syncID, Status: TriggerStatusAlreadyRunning}, nil
	}

	row, err := s.repos.SyncHistory.Create(ctx, user.ID, models.SyncTypeFull)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	task := &syncTask{syncID: row.ID, done: make(chan struct{})}
	s.runningSyncs[user.ID] = task
	s.mu.Unlock()

	s.setCooldown(ctx, user.ID)

	go s.runTask(task, user)

	log.Info("sync started", "userID", user.ID, "syncID", row.ID)
	return &types.SyncTriggerResponse{SyncID: row.ID.String(), Status: TriggerStatusStarted}, nil
}

func (s *SyncService) setCooldown(ctx context.Context, userID uuid.UUID) {
	ttl := time.Duration(s.config.SyncCooldownSeconds) * time.Second
	if ttl <= 0 {
		return
	}

	err := database.NewCacheBuilder(s.db.Cache.Sync, userID).
		WithHashPattern(constants.SyncCooldownPrefix + "%s").
		WithValue("1").
		WithTTL(ttl).
		WithContext(ctx).
		Set()
	if err != nil {
		s.log.Function("setCooldown").Warn("failed to set sync cooldown", "error", err, "userID", userID)
	}
}

// runTask is the goroutine wrapper: the task outlives the triggering
// request, so it runs on a background context and unregisters itself when
// finished.
func (s *SyncService) runTask(task *syncTask, user *models.User) {
	defer func() {
		s.mu.Lock()
		if s.runningSyncs[user.ID] == task {
			delete(s.runningSyncs, user.ID)
		}
		s.mu.Unlock()
		close(task.done)
	}()

	s.RunFullSync(context.Background(), user, task.syncID)
}

// RunFullSync executes one sync run end to end. The history row is
// finalized in a defer so every exit — missing credentials, partial fetch,
// write failure — records its outcome exactly once.
func (s *SyncService) RunFullSync(ctx context.Context, user *models.User, syncID uuid.UUID) {
	log := s.log.Function("RunFullSync")

	var itemsSynced, pagesFetched int
	var runErr error

	s.publishSyncEvent(types.SyncStarted, user, syncID, 0, 0, "")

	defer func() {
		status := models.SyncStatusCompleted
		eventType := types.SyncCompleted
		errMsg := ""
		if runErr != nil {
			status = models.SyncStatusFailed
			eventType = types.SyncFailed
			errMsg = runErr.Error()
		}

		if err := s.repos.SyncHistory.Finalize(ctx, syncID, status, itemsSynced, pagesFetched, errMsg); err != nil {
			log.Er("failed to finalize sync history", err, "syncID", syncID)
		}
		s.publishSyncEvent(eventType, user, syncID, itemsSynced, pagesFetched, errMsg)

		log.Info("sync finished",
			"syncID", syncID,
			"userID", user.ID,
			"status", string(status),
			"items", itemsSynced,
			"pages", pagesFetched,
		)
	}()

	token, err := s.repos.OAuthToken.GetByUserAndProvider(ctx, user.ID, models.ProviderDiscogs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			runErr = errors.New("no linked Discogs account")
		} else {
			runErr = fmt.Errorf("failed to load Discogs token: %w", err)
		}
		return
	}
	if token.ProviderUsername == "" {
		runErr = errors.New("linked Discogs token has no username")
		return
	}

	accessToken, err := s.auth.DecryptSecret(token.AccessToken)
	if err != nil {
		runErr = fmt.Errorf("failed to decrypt access token: %w", err)
		return
	}
	accessSecret, err := s.auth.DecryptSecret(token.AccessSecret)
	if err != nil {
		runErr = fmt.Errorf("failed to decrypt access secret: %w", err)
		return
	}

	consumerKey, consumerSecret, err := LoadDiscogsConsumer(ctx, s.repos.AppConfig, s.auth, s.config)
	if err != nil {
		runErr = fmt.Errorf("discogs app credentials not configured: %w", err)
		return
	}

	auth := DiscogsAuth{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Token:          accessToken,
		TokenSecret:    accessSecret,
	}
	username := token.ProviderUsername
	startedAt := time.Now().UTC()

	items, pages, err := s.syncCollection(ctx, auth, user, username, syncID)
	itemsSynced += items
	pagesFetched += pages
	if err != nil {
		runErr = fmt.Errorf("collection sync failed: %w", err)
		return
	}

	items, pages, err = s.syncWantlist(ctx, auth, user, username, syncID)
	itemsSynced += items
	pagesFetched += pages
	if err != nil {
		runErr = fmt.Errorf("wantlist sync failed: %w", err)
		return
	}

	// Full sync has replace semantics: only after both fetches complete do
	// rows and edges the run never touched get swept.
	if err := s.pruneRemoved(ctx, user, syncID, startedAt); err != nil {
		runErr = fmt.Errorf("prune failed: %w", err)
		return
	}

	s.syncCollectionValue(ctx, auth, user, username)
}

// pruneRemoved deletes local state for items no longer present upstream.
// Both table prunes share one transaction; the graph sweep keys on the run
// id stamped into every edge this sync merged.
func (s *SyncService) pruneRemoved(
	ctx context.Context,
	user *models.User,
	syncID uuid.UUID,
	startedAt time.Time,
) error {
	log := s.log.Function("pruneRemoved")

	var collectionPruned, wantlistPruned int64
	err := s.transaction.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		collectionPruned, err = s.repos.UserCollection.PruneCollectionBefore(ctx, tx, user.ID, startedAt)
		if err != nil {
			return err
		}
		wantlistPruned, err = s.repos.UserCollection.PruneWantlistBefore(ctx, tx, user.ID, startedAt)
		return err
	})
	if err != nil {
		return err
	}

	edgesPruned, err := s.repos.UserGraph.PruneStaleEdges(ctx, user.ID.String(), syncID.String())
	if err != nil {
		return err
	}

	if collectionPruned > 0 || wantlistPruned > 0 || edgesPruned > 0 {
		fields := []any{
			"userID", user.ID,
			"collection", collectionPruned,
			"wantlist", wantlistPruned,
			"edges", edgesPruned,
		}
		if total, err := s.repos.UserCollection.CountCollection(ctx, user.ID); err == nil {
			fields = append(fields, "collectionRemaining", total)
		}
		if total, err := s.repos.UserCollection.CountWantlist(ctx, user.ID); err == nil {
			fields = append(fields, "wantlistRemaining", total)
		}
		log.Info("pruned removed items", fields...)
	}
	return nil
}

// syncCollection pages through the collection, upserting rows and merging
// COLLECTED edges per page. Items without a release id are skipped.
func (s *SyncService) syncCollection(
	ctx context.Context,
	auth DiscogsAuth,
	user *models.User,
	username string,
	syncID uuid.UUID,
) (int, int, error) {
	items := 0

	pages, err := s.discogs.ForEachCollectionPage(ctx, auth, username, func(page types.CollectionPage) error {
		rows := make([]*models.UserCollectionItem, 0, len(page.Releases))
		edges := make([]map[string]any, 0, len(page.Releases))

		for _, item := range page.Releases {
			if item.Basic.ID == 0 {
				continue
			}

			formats, _ := json.Marshal(item.Basic.Formats)
			metadata, _ := json.Marshal(map[string]any{
				"genres": item.Basic.Genres,
				"styles": item.Basic.Styles,
			})

			rows = append(rows, &models.UserCollectionItem{
				UserID:     user.ID,
				ReleaseID:  item.Basic.ID,
				InstanceID: item.InstanceID,
				FolderID:   item.FolderID,
				Title:      item.Basic.Title,
				Artist:     item.Basic.PrimaryArtist(),
				Year:       item.Basic.Year,
				Formats:    datatypes.JSON(formats),
				Label:      item.Basic.PrimaryLabel(),
				Rating:     item.Rating,
				DateAdded:  item.DateAdded,
				Metadata:   datatypes.JSON(metadata),
			})
			edges = append(edges, map[string]any{
				"release_id":  item.Basic.ID,
				"instance_id": item.InstanceID,
				"rating":      item.Rating,
				"folder_id":   item.FolderID,
				"date_added":  edgeDate(item.DateAdded),
			})
		}

		if len(rows) == 0 {
			return nil
		}
		if err := s.repos.UserCollection.UpsertCollectionItems(ctx, rows); err != nil {
			return err
		}
		if err := s.repos.UserGraph.MergeCollectedEdges(ctx, user.ID.String(), username, syncID.String(), edges); err != nil {
			return err
		}

		items += len(rows)
		return nil
	})

	return items, pages, err
}

// syncWantlist mirrors syncCollection for WANTS edges. Wantlist items carry
// their release id at the top level, not under basic_information.
func (s *SyncService) syncWantlist(
	ctx context.Context,
	auth DiscogsAuth,
	user *models.User,
	username string,
	syncID uuid.UUID,
) (int, int, error) {
	items := 0

	pages, err := s.discogs.ForEachWantlistPage(ctx, auth, username, func(page types.WantlistPage) error {
		rows := make([]*models.UserWantlistItem, 0, len(page.Wants))
		edges := make([]map[string]any, 0, len(page.Wants))

		for _, item := range page.Wants {
			if item.ID == 0 {
				continue
			}

			rows = append(rows, &models.UserWantlistItem{
				UserID:    user.ID,
				ReleaseID: item.ID,
				Title:     item.Basic.Title,
				Artist:    item.Basic.PrimaryArtist(),
				Year:      item.Basic.Year,
				Format:    item.Basic.PrimaryFormat(),
				Rating:    item.Rating,
				Notes:     item.Notes,
				DateAdded: item.DateAdded,
			})
			edges = append(edges, map[string]any{
				"release_id": item.ID,
				"rating":     item.Rating,
				"date_added": edgeDate(item.DateAdded),
			})
		}

		if len(rows) == 0 {
			return nil
		}
		if err := s.repos.UserCollection.UpsertWantlistItems(ctx, rows); err != nil {
			return err
		}
		if err := s.repos.UserGraph.MergeWantsEdges(ctx, user.ID.String(), username, syncID.String(), edges); err != nil {
			return err
		}

		items += len(rows)
		return nil
	})

	return items, pages, err
}

// syncCollectionValue refreshes the marketplace value summary. Best effort:
// failures are logged and never affect the sync outcome.
func (s *SyncService) syncCollectionValue(
	ctx context.Context,
	auth DiscogsAuth,
	user *models.User,
	username string,
) {
	log := s.log.Function("syncCollectionValue")

	value, err := s.discogs.FetchCollectionValue(ctx, auth, username)
	if err != nil {
		log.Warn("collection value fetch failed", "error", err, "userID", user.ID)
		return
	}

	minimum, err := utils.ParseMoney(value.Minimum)
	if err != nil {
		log.Warn("unparseable minimum value", "error", err, "value", value.Minimum)
		return
	}
	median, err := utils.ParseMoney(value.Median)
	if err != nil {
		log.Warn("unparseable median value", "error", err, "value", value.Median)
		return
	}
	maximum, err := utils.ParseMoney(value.Maximum)
	if err != nil {
		log.Warn("unparseable maximum value", "error", err, "value", value.Maximum)
		return
	}

	row := &models.UserCollectionValue{
		UserID:   user.ID,
		Minimum:  minimum,
		Median:   median,
		Maximum:  maximum,
		Currency: "USD",
		SyncedAt: time.Now().UTC(),
	}
	if err := s.repos.CollectionValue.Upsert(ctx, row); err != nil {
		log.Warn("failed to store collection value", "error", err, "userID", user.ID)
	}
}

func (s *SyncService) publishSyncEvent(
	eventType types.SyncEventType,
	user *models.User,
	syncID uuid.UUID,
	items, pages int,
	errMsg string,
) {
	status := map[types.SyncEventType]string{
		types.SyncStarted:   string(models.SyncStatusRunning),
		types.SyncCompleted: string(models.SyncStatusCompleted),
		types.SyncFailed:    string(models.SyncStatusFailed),
	}[eventType]

	event := types.SyncEvent{
		SyncID:       syncID.String(),
		UserID:       user.ID.String(),
		SyncType:     string(models.SyncTypeFull),
		Status:       status,
		ItemsSynced:  items,
		PagesFetched: pages,
		Error:        errMsg,
	}
	if err := s.eventBus.PublishSyncEvent(eventType, event); err != nil {
		s.log.Function("publishSyncEvent").Warn("failed to publish sync event",
			"error", err, "syncID", syncID, "type", string(eventType))
	}
}

// CleanupStaleRunning marks rows stranded by a previous process as failed.
// Runs once at startup, before the server accepts triggers.
func (s *SyncService) CleanupStaleRunning(ctx context.Context) {
	log := s.log.Function("CleanupStaleRunning")

	count, err := s.repos.SyncHistory.FailStaleRunning(ctx, "interrupted by restart")
	if err != nil {
		log.Er("failed to clean up stale sync rows", err)
		return
	}
	if count > 0 {
		log.Info("marked stale running syncs as failed", "count", count)
	}
}

// TriggerDueUsers re-syncs every linked user whose last completed sync
// predates the cutoff, honoring the same gates as a manual trigger.
func (s *SyncService) TriggerDueUsers(ctx context.Context, olderThan time.Time) {
	log := s.log.Function("TriggerDueUsers")

	userIDs, err := s.repos.SyncHistory.UsersDueForSync(ctx, olderThan)
	if err != nil {
		log.Er("failed to list users due for sync", err)
		return
	}

	for _, userID := range userIDs {
		user, err := s.repos.User.GetByID(ctx, userID)
		if err != nil {
			log.Warn("skipping unknown user", "error", err, "userID", userID)
			continue
		}

		resp, err := s.Trigger(ctx, user)
		if err != nil {
			log.Warn("periodic trigger failed", "error", err, "userID", userID)
			continue
		}
		log.Info("periodic sync evaluated", "userID", userID, "status", resp.Status)
	}
}

func edgeDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
