package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teamreach/outreach-backend/internal/config"
	"github.com/teamreach/outreach-backend/internal/controller"
	"github.com/teamreach/outreach-backend/internal/db"
	"github.com/teamreach/outreach-backend/internal/model"
	"github.com/teamreach/outreach-backend/internal/queue"
	"github.com/teamreach/outreach-backend/internal/repository"
	"github.com/teamreach/outreach-backend/internal/service"
	"github.com/teamreach/outreach-backend/internal/slack"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	conn, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer conn.Close()

	jobRepo := &repository.JobRepository{DB: conn}
	userRepo := &repository.UserRepository{DB: conn}
	activityRepo := &repository.ActivityRepository{DB: conn}
	workflowRepo := &repository.WorkflowRepository{DB: conn}
	workspaceRepo := &repository.WorkspaceRepository{DB: conn}

	gateway := slack.NewClient(cfg.SlackBaseURL, cfg.SendRatePerSec)
	sender := &service.SenderResolver{Workspaces: workspaceRepo}

	jobService := &service.JobService{
		Jobs:       jobRepo,
		Users:      userRepo,
		Workspaces: workspaceRepo,
		Selector:   &service.RecipientSelector{Activity: activityRepo, Users: userRepo},
		Sender:     sender,
		Gateway:    gateway,
		Logger:     logger,
	}

	engine := &service.WorkflowEngine{
		Workflows: workflowRepo,
		Users:     userRepo,
		Activity:  activityRepo,
		Sender:    sender,
		Gateway:   gateway,
		Logger:    logger,
	}

	syncService := &service.SyncService{
		Workspaces: workspaceRepo,
		Users:      userRepo,
		Directory:  gateway,
		Logger:     logger,
	}

	// Events go through AMQP when a broker is configured, otherwise the
	// engine runs in-request.
	var sink queue.EventSink
	if cfg.AMQPURL != "" {
		amqpSink, err := queue.NewAMQPSink(cfg.AMQPURL, cfg.EventQueueName)
		if err != nil {
			logger.Fatal("connect amqp", zap.Error(err))
		}
		defer amqpSink.Close()
		sink = amqpSink
		logger.Info("publishing events to amqp", zap.String("queue", cfg.EventQueueName))
	} else {
		sink = &queue.InlineSink{Handler: func(ctx context.Context, ev model.Event) error {
			return engine.HandleEvent(ctx, ev)
		}}
	}

	jobController := &controller.JobController{Service: jobService, CronSecret: cfg.CronSecret, Logger: logger}
	workflowController := &controller.WorkflowController{Workflows: workflowRepo, Engine: engine, Logger: logger}
	eventController := &controller.EventController{SigningSecret: cfg.SlackSigningSecret, Sink: sink, Logger: logger}
	directoryController := &controller.DirectoryController{
		Workspaces: workspaceRepo,
		Users:      userRepo,
		Activity:   activityRepo,
		Sync:       syncService,
		Logger:     logger,
	}

	// In-process schedule for the dispatcher pass; the HTTP cron
	// endpoint stays available for external schedulers.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.DispatchCronSpec, func() {
		result, err := jobService.RunPass(context.Background(), "", cfg.DispatchMaxJobs, cfg.DispatchBatch)
		if err != nil {
			logger.Error("scheduled dispatcher pass failed", zap.Error(err))
			return
		}
		if result.JobsProcessed > 0 || result.MessagesSent > 0 {
			logger.Info("scheduled dispatcher pass",
				zap.Int("jobs_processed", result.JobsProcessed),
				zap.Int("messages_sent", result.MessagesSent))
		}
	}); err != nil {
		logger.Fatal("schedule dispatcher", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/dm-jobs", jobController.CreateJob)
	r.Get("/dm-jobs/{id}", jobController.GetJob)
	r.Post("/dm-jobs/run", jobController.RunJob)
	r.Post("/dm-jobs/process-queue", jobController.ProcessQueue)
	r.Get("/cron/dm-queue", jobController.CronQueue)

	r.Get("/workflows", workflowController.List)
	r.Post("/workflows", workflowController.Create)
	r.Put("/workflows", workflowController.Update)
	r.Post("/workflows/backfill", workflowController.Backfill)

	r.Post("/slack/events", eventController.HandleEvent)
	r.Post("/slack/sync-users", directoryController.SyncUsers)
	r.Post("/slack/sync-channels", directoryController.SyncChannels)

	r.Get("/workspaces", directoryController.ListWorkspaces)
	r.Get("/channels", directoryController.ListChannels)
	r.Get("/senders", directoryController.ListSenders)
	r.Get("/active", directoryController.ListActive)

	logger.Info("server running", zap.String("port", cfg.ServerPort))
	if err := http.ListenAndServe(":"+cfg.ServerPort, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	if os.Getenv("GO_ENV") == "development" {
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}
