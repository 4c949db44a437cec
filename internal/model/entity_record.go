package model

// EntityRecord 对应于关系库中的 category 表。
// 每篇论文最多保存 TopK 条，写入后不再修改；存在任意一条即视为该论文已标注。
type EntityRecord struct {
	ID         uint   `gorm:"primaryKey;autoIncrement;column:id"`
	PaperID    string `gorm:"type:varchar(100);index;column:paper_id"`
	EntityText string `gorm:"type:varchar(100);column:entity_text"`
	EntityType string `gorm:"type:varchar(100);column:entity_type"`
	Count      int    `gorm:"not null;default:1;column:count"`
}

func (EntityRecord) TableName() string {
	return "category"
}
