package app

import (
	"context"
	"time"

	"waxworks/config"
	"waxworks/internal/controllers"
	"waxworks/internal/database"
	"waxworks/internal/events"
	"waxworks/internal/graph"
	"waxworks/internal/handlers/middleware"
	"waxworks/internal/jobs"
	"waxworks/internal/repositories"
	"waxworks/internal/services"
	"waxworks/internal/websockets"
	"waxworks/pkg/logger"
)

type App struct {
	Database   database.DB
	Graph      *graph.Graph
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config

	Services    services.Service
	Repos       repositories.Repository
	Controllers controllers.Controllers

	SchedulerService *services.SchedulerService
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New(config.ProfileAPI)
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gr, err := graph.New(startupCtx, config)
	if err != nil {
		return &App{}, log.Err("failed to connect to graph database", err)
	}
	if err := gr.EnsureSchema(startupCtx); err != nil {
		return &App{}, log.Err("failed to ensure graph schema", err)
	}

	eventBus := events.New(db.Cache.Events, config)

	repos := repositories.New(db, gr)

	service, err := services.New(db, config, repos, eventBus)
	if err != nil {
		return &App{}, log.Err("failed to initialize services", err)
	}

	// Syncs left in running state by a previous process will never finish;
	// mark them failed before accepting new trigger requests.
	service.Sync.CleanupStaleRunning(startupCtx)

	controllers := controllers.New(service, repos, eventBus, config, db)

	middleware := middleware.New(db, eventBus, config, repos, service.Auth)

	websocket, err := websockets.New(eventBus, config, service.Auth, repos.User)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	schedulerService := services.NewSchedulerService()
	if config.PeriodicCheckDays > 0 {
		job := jobs.NewPeriodicSyncJob(service.Sync, config.PeriodicCheckDays)
		if err := schedulerService.AddJob(job); err != nil {
			return &App{}, log.Err("failed to register periodic sync job", err)
		}
		if err := schedulerService.Start(startupCtx); err != nil {
			return &App{}, log.Err("failed to start scheduler", err)
		}
		log.Info("Periodic sync sweep enabled", "checkDays", config.PeriodicCheckDays)
	}

	app := &App{
		Database:         db,
		Graph:            gr,
		Config:           config,
		Middleware:       middleware,
		Websocket:        websocket,
		EventBus:         eventBus,
		Services:         service,
		Repos:            repos,
		Controllers:      controllers,
		SchedulerService: schedulerService,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")

	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}
	if a.Graph == nil {
		return log.ErrMsg("graph is nil")
	}
	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := map[string]any{
		"websocket":          a.Websocket,
		"eventBus":           a.EventBus,
		"scheduler":          a.SchedulerService,
		"authService":        a.Services.Auth,
		"discogsService":     a.Services.Discogs,
		"syncService":        a.Services.Sync,
		"transactionService": a.Services.Transaction,
		"userRepo":           a.Repos.User,
		"oauthTokenRepo":     a.Repos.OAuthToken,
		"appConfigRepo":      a.Repos.AppConfig,
		"syncHistoryRepo":    a.Repos.SyncHistory,
		"exploreRepo":        a.Repos.Explore,
		"userGraphRepo":      a.Repos.UserGraph,
		"authController":     a.Controllers.Auth,
		"oauthController":    a.Controllers.OAuth,
		"exploreController":  a.Controllers.Explore,
		"userController":     a.Controllers.User,
		"syncController":     a.Controllers.Sync,
		"cacheController":    a.Controllers.Cache,
	}

	for name, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed: " + name)
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.SchedulerService != nil {
		if closeErr := a.SchedulerService.Stop(ctx); closeErr != nil {
			err = closeErr
		}
	}

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.Graph != nil {
		if closeErr := a.Graph.Close(ctx); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
