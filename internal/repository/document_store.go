// Package repository 定义了与各存储进行数据交换的接口和实现。
package repository

import (
	"context"
	"fmt"
	"starkeys-go/internal/model"
	"starkeys-go/pkg/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentStore 定义了原始文档库的操作接口。
// 同一个实例只允许单一使用者顺序调用。
type DocumentStore interface {
	// Upsert 以 doc.ID 为键写入，已存在时覆盖。
	Upsert(ctx context.Context, doc *model.RawDocument) error
	// Scan 按 ID 升序返回 ID 大于 after 的最多 limit 条记录，after 为空时从头开始。
	Scan(ctx context.Context, after string, limit int) ([]model.RawDocument, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Connector 打开一个新的文档库连接，用于周期性回收和写失败后的重连。
type Connector func(ctx context.Context) (DocumentStore, error)

// gormDocumentStore 是 DocumentStore 接口的 GORM 实现。
type gormDocumentStore struct {
	db *gorm.DB
}

// NewGormDocumentStore 基于已有连接创建文档库，并确保 paper_json 表存在。
func NewGormDocumentStore(db *gorm.DB) (DocumentStore, error) {
	if err := db.AutoMigrate(&model.RawDocument{}); err != nil {
		return nil, fmt.Errorf("migrate paper_json: %w", err)
	}
	return &gormDocumentStore{db: db}, nil
}

// GormConnector 返回每次都重新建立连接的 Connector。
func GormConnector(driver, dsn string) Connector {
	return func(context.Context) (DocumentStore, error) {
		db, err := database.Open(driver, dsn)
		if err != nil {
			return nil, err
		}
		store, err := NewGormDocumentStore(db)
		if err != nil {
			_ = database.Close(db)
			return nil, err
		}
		return store, nil
	}
}

func (s *gormDocumentStore) Upsert(ctx context.Context, doc *model.RawDocument) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"bioc_json", "fetched_at"}),
	}).Create(doc).Error
}

func (s *gormDocumentStore) Scan(ctx context.Context, after string, limit int) ([]model.RawDocument, error) {
	var docs []model.RawDocument
	err := s.db.WithContext(ctx).
		Select("id", "bioc_json").
		Where("id > ?", after).
		Order("id asc").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

func (s *gormDocumentStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.RawDocument{}).Count(&n).Error
	return n, err
}

func (s *gormDocumentStore) Close() error {
	return database.Close(s.db)
}
