package main

import (
	"context"

	"Vid_Community/internal/app"
	"Vid_Community/internal/config"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		app.CreateApp(),
		fx.Invoke(run),
	).Run()
}

func run(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().
				Str("service", cfg.Service.Name).
				Str("port", cfg.Service.Port).
				Str("db_driver", cfg.Database.Driver).
				Msg("Starting vid-community service")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("vid-community service stopped")
			return nil
		},
	})
}
