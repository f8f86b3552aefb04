package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is loaded from the environment, optionally seeded from a .env
// file in development.
type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	SlackBaseURL       string `env:"SLACK_BASE_URL" envDefault:"https://slack.com/api"`
	SlackSigningSecret string `env:"SLACK_SIGNING_SECRET"`
	CronSecret         string `env:"CRON_SECRET"`

	// AMQP is optional; when unset, webhook events are processed inline.
	AMQPURL        string `env:"AMQP_URL"`
	EventQueueName string `env:"EVENT_QUEUE_NAME" envDefault:"slack_events"`

	// Dispatcher defaults for the scheduled trigger.
	DispatchCronSpec string `env:"DISPATCH_CRON_SPEC" envDefault:"@every 1m"`
	DispatchMaxJobs  int    `env:"DISPATCH_MAX_JOBS" envDefault:"5"`
	DispatchBatch    int    `env:"DISPATCH_BATCH_SIZE" envDefault:"20"`

	// Outbound pacing, messages per second against the Slack API.
	SendRatePerSec int `env:"SEND_RATE_PER_SEC" envDefault:"1"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
