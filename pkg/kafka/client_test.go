package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"starkeys-go/internal/config"
	"starkeys-go/pkg/tasks"
)

func TestNewPublisher_NopWithoutBrokers(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Topic: "events"})
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), tasks.StageEvent{Stage: "ingest"}))
	assert.NoError(t, p.Close())
}

func TestNewPublisher_Writer(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Brokers: "127.0.0.1:9092", Topic: "events"})
	prod, ok := p.(*producer)
	if assert.True(t, ok) {
		assert.Equal(t, "events", prod.writer.Topic)
	}
	assert.NoError(t, p.Close())
}
