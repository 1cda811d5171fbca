package mysql

import (
	"context"
	"fmt"

	"Vid_Community/internal/config"
	"Vid_Community/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Open 按驱动打开数据库；配置了从库时启用读写分离
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dial := func(dsn string) (gorm.Dialector, error) {
		switch cfg.Driver {
		case "mysql":
			return mysqldriver.Open(dsn), nil
		case "postgres":
			return postgres.Open(dsn), nil
		case "sqlite":
			return sqlite.Open(dsn), nil
		}
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	primary, err := dial(cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(primary, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if len(cfg.ReplicaDSNs) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.ReplicaDSNs))
		for _, dsn := range cfg.ReplicaDSNs {
			r, err := dial(dsn)
			if err != nil {
				return nil, err
			}
			replicas = append(replicas, r)
		}
		if err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, fmt.Errorf("failed to register replicas: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	return db, nil
}

// AutoMigrate 自动建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Video{},
		&model.Comment{},
		&model.Post{},
		&model.Subscription{},
		&model.Outbox{},
	)
}

// NewDB 连接、建表，并在应用停止时关闭连接
func NewDB(lc fx.Lifecycle, cfg *config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	db, err := Open(*cfg)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	log.Info().Str("driver", cfg.Driver).Int("replicas", len(cfg.ReplicaDSNs)).Msg("database connected and migrated")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("closing database connection...")
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}
