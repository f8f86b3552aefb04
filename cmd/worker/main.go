package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/teamreach/outreach-backend/internal/config"
	"github.com/teamreach/outreach-backend/internal/db"
	"github.com/teamreach/outreach-backend/internal/queue"
	"github.com/teamreach/outreach-backend/internal/repository"
	"github.com/teamreach/outreach-backend/internal/service"
	"github.com/teamreach/outreach-backend/internal/slack"
)

// The worker drains normalized workspace events from AMQP and runs the
// workflow engine over them. Deploy it when the webhook is configured to
// publish instead of processing inline.
func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.AMQPURL == "" {
		logger.Fatal("AMQP_URL is required for the event worker")
	}

	conn, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer conn.Close()

	engine := &service.WorkflowEngine{
		Workflows: &repository.WorkflowRepository{DB: conn},
		Users:     &repository.UserRepository{DB: conn},
		Activity:  &repository.ActivityRepository{DB: conn},
		Sender:    &service.SenderResolver{Workspaces: &repository.WorkspaceRepository{DB: conn}},
		Gateway:   slack.NewClient(cfg.SlackBaseURL, cfg.SendRatePerSec),
		Logger:    logger,
	}

	if err := queue.ConsumeEvents(cfg.AMQPURL, cfg.EventQueueName, engine.HandleEvent, logger); err != nil {
		logger.Fatal("event consumer stopped", zap.Error(err))
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
