// Package pipeline 定义了采集、标注、发布三个批处理阶段。
// 三个阶段都是单线程顺序执行，阶段之间只通过存储交换数据。
package pipeline

import (
	"context"
	"fmt"
	"starkeys-go/internal/model"
	"starkeys-go/internal/repository"
	"starkeys-go/pkg/kafka"
	"starkeys-go/pkg/log"
	"starkeys-go/pkg/tasks"
	"time"

	"github.com/google/uuid"
)

// Run 是一次阶段运行的上下文，持有文档库连接与计数器。
// 连接只属于这一次运行，不允许并发访问；Close 在所有退出路径上释放连接。
type Run struct {
	ID    string
	Stage string

	connect repository.Connector
	store   repository.DocumentStore
	events  kafka.EventPublisher

	Processed  int
	Skipped    int
	Failed     int
	Reconnects int
}

// NewRun 打开文档库连接并创建运行上下文。events 为 nil 时不发送事件。
func NewRun(ctx context.Context, stage string, connect repository.Connector, events kafka.EventPublisher) (*Run, error) {
	if events == nil {
		events = kafka.NopPublisher{}
	}
	store, err := connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	run := &Run{
		ID:      uuid.NewString(),
		Stage:   stage,
		connect: connect,
		store:   store,
		events:  events,
	}
	log.Infow("[Run] 阶段开始", "stage", stage, "run_id", run.ID)
	return run, nil
}

// Store 返回当前连接；上一次重连失败时在这里再尝试打开。
func (r *Run) Store(ctx context.Context) (repository.DocumentStore, error) {
	if r.store == nil {
		store, err := r.connect(ctx)
		if err != nil {
			return nil, err
		}
		r.store = store
	}
	return r.store, nil
}

// Reconnect 关闭当前连接并重新打开，用于周期性回收和写失败后的重连。
func (r *Run) Reconnect(ctx context.Context) error {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			log.Warnf("[Run] 关闭文档库连接失败: %v", err)
		}
		r.store = nil
	}
	r.Reconnects++
	store, err := r.connect(ctx)
	if err != nil {
		return fmt.Errorf("reopen document store: %w", err)
	}
	r.store = store
	return nil
}

// Emit 发送阶段事件，失败只记录日志。
func (r *Run) Emit(ctx context.Context, kind, lastID string, runErr error) {
	event := tasks.StageEvent{
		RunID:     r.ID,
		Stage:     r.Stage,
		Kind:      kind,
		LastID:    lastID,
		Processed: r.Processed,
		Failed:    r.Failed,
		Skipped:   r.Skipped,
		At:        model.LocalTime(time.Now()),
	}
	if runErr != nil {
		event.Error = runErr.Error()
	}
	if err := r.events.Publish(ctx, event); err != nil {
		log.Warnf("[Run] 发送阶段事件失败 (stage=%s kind=%s): %v", r.Stage, kind, err)
	}
}

// Close 释放文档库连接。
func (r *Run) Close() error {
	log.Infow("[Run] 阶段结束", "stage", r.Stage, "run_id", r.ID,
		"processed", r.Processed, "skipped", r.Skipped, "failed", r.Failed, "reconnects", r.Reconnects)
	if r.store == nil {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	return err
}
