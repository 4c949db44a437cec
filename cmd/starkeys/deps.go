package main

import (
	"context"
	"fmt"
	"starkeys-go/internal/repository"
	"starkeys-go/pkg/database"
	"starkeys-go/pkg/kafka"
	"starkeys-go/pkg/log"

	"gorm.io/gorm"
)

// docStoreConnector 根据 docstore.backend 选择文档库实现。
// gorm 后端未单独配置 dsn 时与关系库共用同一个库。
func docStoreConnector() (repository.Connector, error) {
	switch cfg.DocStore.Backend {
	case "", "gorm":
		driver, dsn := cfg.DocStore.Driver, cfg.DocStore.DSN
		if dsn == "" {
			driver, dsn = cfg.Database.MySQL.Driver, cfg.Database.MySQL.DSN
		}
		if dsn == "" {
			return nil, fmt.Errorf("docstore: no dsn configured")
		}
		return repository.GormConnector(driver, dsn), nil
	case "badger":
		if cfg.DocStore.Path == "" {
			return nil, fmt.Errorf("docstore: badger backend requires path")
		}
		return repository.BadgerConnector(cfg.DocStore.Path), nil
	default:
		return nil, fmt.Errorf("docstore: unknown backend %q", cfg.DocStore.Backend)
	}
}

// openCategories 打开关系库并返回 category 表仓库，调用方负责关闭 db。
func openCategories() (repository.CategoryRepository, *gorm.DB, error) {
	db, err := database.Open(cfg.Database.MySQL.Driver, cfg.Database.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	repo, err := repository.NewCategoryRepository(db)
	if err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("migrate category: %w", err)
	}
	return repo, db, nil
}

// openCheckpoints 在配置了 Redis 时返回基于 Redis 的断点存储，否则返回空实现。
func openCheckpoints(ctx context.Context) (repository.CheckpointStore, func(), error) {
	if cfg.Database.Redis.Addr == "" {
		log.Info("未配置 Redis，断点续跑已关闭")
		return repository.NoopCheckpointStore{}, func() {}, nil
	}
	rdb, err := database.OpenRedis(ctx, cfg.Database.Redis)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewCheckpointStore(rdb, cfg.Database.Redis.KeyPrefix), func() { _ = rdb.Close() }, nil
}

func openEvents() kafka.EventPublisher {
	return kafka.NewPublisher(cfg.Kafka)
}

func closeEvents(events kafka.EventPublisher) {
	if err := events.Close(); err != nil {
		log.Warnf("关闭 Kafka 生产者失败: %v", err)
	}
}
