// Package kafka 提供了向 Kafka 发送阶段事件的功能。
package kafka

import (
	"context"
	"encoding/json"
	"starkeys-go/internal/config"
	"starkeys-go/pkg/log"
	"starkeys-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// EventPublisher 定义了阶段事件的发送接口。
type EventPublisher interface {
	Publish(ctx context.Context, event tasks.StageEvent) error
	Close() error
}

type producer struct {
	writer *kafka.Writer
}

// NewPublisher 创建 Kafka 事件生产者。Brokers 为空时返回不发送任何消息的实现。
func NewPublisher(cfg config.KafkaConfig) EventPublisher {
	if cfg.Brokers == "" {
		return NopPublisher{}
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &producer{writer: w}
}

// Publish 以阶段名作为消息键发送事件，同一阶段的事件落在同一分区，保持顺序。
func (p *producer) Publish(ctx context.Context, event tasks.StageEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Stage),
		Value: value,
	})
}

func (p *producer) Close() error {
	return p.writer.Close()
}

// NopPublisher 丢弃所有事件。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, tasks.StageEvent) error { return nil }
func (NopPublisher) Close() error                                    { return nil }
