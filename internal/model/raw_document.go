package model

import "time"

// UnknownPaperID 是 payload 中缺少文档 ID 时使用的存储键。
const UnknownPaperID = "PMC_UNKNOWN"

// RawDocument 对应于文档库中的 paper_json 表，是原始 BioC payload 的系统记录。
// 同一 ID 重复写入时覆盖旧值。
type RawDocument struct {
	ID        string    `gorm:"type:varchar(100);primaryKey;column:id" json:"id"`
	BiocJSON  string    `gorm:"type:longtext;column:bioc_json" json:"bioc_json"`
	FetchedAt time.Time `gorm:"column:fetched_at" json:"fetched_at"`
}

func (RawDocument) TableName() string {
	return "paper_json"
}
