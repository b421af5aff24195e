package main

import (
	"log/slog"
	"os"

	"github.com/dmitrymomot/mealsub/pkg/config"
	"github.com/dmitrymomot/mealsub/pkg/environment"
	"github.com/dmitrymomot/mealsub/pkg/logger"
	"github.com/dmitrymomot/mealsub/pkg/requestid"
)

type appConfig struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Name string `env:"APP_NAME" envDefault:"mealsub"`
}

func loadApp() (appConfig, environment.Environment, *slog.Logger, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return cfg, "", nil, err
	}
	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithOutput(os.Stdout),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	return cfg, environment.Parse(cfg.Env), log, nil
}
