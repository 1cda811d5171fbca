package app

import (
	"Vid_Community/internal/config"
	"Vid_Community/internal/handler"
	"Vid_Community/internal/middleware"
	"Vid_Community/internal/repository/mysql"
	"Vid_Community/internal/repository/redis"
	"Vid_Community/internal/router"
	"Vid_Community/internal/service"

	"go.uber.org/fx"
)

func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(config.Out),

		fx.Provide(
			NewLogger,
			mysql.NewDB,
			NewRedisClient,
			NewTokenIssuer,
			NewMediaStorage,
			NewSender,
		),

		fx.Provide(
			mysql.NewUserRepository,
			mysql.NewVideoRepository,
			mysql.NewPostRepository,
			mysql.NewCommentRepository,
			mysql.NewSubscriptionRepository,
			mysql.NewOutboxRepository,
			redis.NewTokenRepository,
		),

		fx.Provide(
			service.NewUserService,
			service.NewVideoService,
			service.NewPostService,
			service.NewCommentService,
			service.NewSubscriptionService,
			service.NewOutboxRelayer,
		),

		fx.Provide(
			middleware.NewIPRateLimiter,
			handler.NewUserHandler,
			handler.NewVideoHandler,
			handler.NewPostHandler,
			handler.NewCommentHandler,
			handler.NewSubscriptionHandler,
			router.InitRouter,
		),

		fx.Invoke(registerHTTPServer, registerOutboxRelayer),
	)
}
