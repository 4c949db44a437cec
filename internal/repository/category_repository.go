package repository

import (
	"context"
	"errors"
	"starkeys-go/internal/model"

	"gorm.io/gorm"
)

// CategoryRepository 定义了对 category 表的数据操作接口。
type CategoryRepository interface {
	// Exists 判断该论文是否已有任意实体记录，作为标注阶段的幂等门。
	Exists(ctx context.Context, paperID string) (bool, error)
	// InsertBatch 在一个事务内以单条多行 INSERT 写入一篇论文的全部记录。
	InsertBatch(ctx context.Context, records []model.EntityRecord) error
	// DistinctTypes 返回该论文去重后的实体类型。
	DistinctTypes(ctx context.Context, paperID string) ([]string, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建一个新的 CategoryRepository 实例，并确保 category 表存在。
func NewCategoryRepository(db *gorm.DB) (CategoryRepository, error) {
	if err := db.AutoMigrate(&model.EntityRecord{}); err != nil {
		return nil, err
	}
	return &categoryRepository{db: db}, nil
}

func (r *categoryRepository) Exists(ctx context.Context, paperID string) (bool, error) {
	var rec model.EntityRecord
	err := r.db.WithContext(ctx).Select("id").Where("paper_id = ?", paperID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *categoryRepository) InsertBatch(ctx context.Context, records []model.EntityRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
}

func (r *categoryRepository) DistinctTypes(ctx context.Context, paperID string) ([]string, error) {
	var types []string
	err := r.db.WithContext(ctx).
		Model(&model.EntityRecord{}).
		Distinct("entity_type").
		Where("paper_id = ?", paperID).
		Order("entity_type").
		Pluck("entity_type", &types).Error
	return types, err
}
