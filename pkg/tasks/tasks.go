// Package tasks 定义了各阶段发送到 Kafka 的事件结构。
package tasks

import "starkeys-go/internal/model"

// StageEvent 描述一个阶段运行的进度或结束。
type StageEvent struct {
	RunID     string          `json:"run_id"`
	Stage     string          `json:"stage"`
	Kind      string          `json:"kind"` // "batch" 或 "finished"
	LastID    string          `json:"last_id,omitempty"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Error     string          `json:"error,omitempty"`
	At        model.LocalTime `json:"at"`
}

const (
	KindBatch    = "batch"
	KindFinished = "finished"
)
