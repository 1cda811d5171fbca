package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"Vid_Community/internal/config"
	"Vid_Community/internal/pkg"
	"Vid_Community/internal/repository/redis"
	"Vid_Community/internal/service"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func NewLogger(cfg *config.LoggingConfig, svc *config.ServiceConfig) zerolog.Logger {
	return pkg.NewLogger(cfg.Level, cfg.Format).With().Str("service", svc.Name).Logger()
}

func NewRedisClient(lc fx.Lifecycle, cfg *config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client, err := redis.NewClient(*cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.Addr).Msg("redis connected")
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func NewTokenIssuer(cfg *config.JWTConfig) *pkg.TokenIssuer {
	return pkg.NewTokenIssuer(*cfg)
}

// NewMediaStorage 启动时确保 bucket 存在
func NewMediaStorage(lc fx.Lifecycle, cfg *config.StorageConfig, log zerolog.Logger) (pkg.MediaStorage, error) {
	s, err := pkg.NewMinioStorage(*cfg, log.With().Str("component", "storage").Logger())
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.EnsureBucket(ctx)
		},
	})
	return s, nil
}

// NewSender 未配置 KAFKA_BROKERS 时 outbox 事件只写日志
func NewSender(lc fx.Lifecycle, cfg *config.KafkaConfig, log zerolog.Logger) (service.Sender, error) {
	if len(cfg.Brokers) == 0 {
		log.Warn().Msg("KAFKA_BROKERS not set, outbox events will only be logged")
		return service.LogSender(log.With().Str("component", "outbox").Logger()), nil
	}
	producer, err := pkg.NewKafkaProducer(*cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("closing kafka producer...")
			return producer.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka producer ready")
	return service.KafkaSender(producer), nil
}

func registerHTTPServer(lc fx.Lifecycle, cfg *config.ServiceConfig, engine *gin.Engine, log zerolog.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info().Str("port", cfg.Port).Msg("HTTP server started")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("HTTP server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("stopping HTTP server...")
			return srv.Shutdown(ctx)
		},
	})
}

func registerOutboxRelayer(lc fx.Lifecycle, relayer *service.OutboxRelayer) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			relayer.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			relayer.Stop()
			return nil
		},
	})
}
