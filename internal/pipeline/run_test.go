package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starkeys-go/internal/repository"
	"starkeys-go/pkg/tasks"
)

type recordingEvents struct {
	events []tasks.StageEvent
	err    error
}

func (r *recordingEvents) Publish(_ context.Context, event tasks.StageEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingEvents) Close() error { return nil }

func TestRun_ReconnectAndClose(t *testing.T) {
	b := newMemBacking()
	run, err := NewRun(context.Background(), StageIngest, b.connector(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	require.NoError(t, run.Reconnect(context.Background()))
	require.NoError(t, run.Reconnect(context.Background()))
	assert.Equal(t, 2, run.Reconnects)
	assert.Equal(t, 3, b.opens)

	require.NoError(t, run.Close())
	assert.Equal(t, 3, b.closes)
	// 重复关闭不报错
	require.NoError(t, run.Close())
	assert.Equal(t, 3, b.closes)
}

func TestRun_StoreReopensAfterFailedReconnect(t *testing.T) {
	b := newMemBacking()
	failing := true
	connect := func(ctx context.Context) (repository.DocumentStore, error) {
		if b.opens > 0 && failing {
			failing = false
			b.opens++
			return nil, errors.New("dial tcp: refused")
		}
		return b.connector()(ctx)
	}

	run, err := NewRun(context.Background(), StageIngest, connect, nil)
	require.NoError(t, err)
	defer run.Close()

	assert.Error(t, run.Reconnect(context.Background()))
	store, err := run.Store(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestRun_EmitCarriesCounters(t *testing.T) {
	events := &recordingEvents{err: errors.New("broker down")}
	run, err := NewRun(context.Background(), StagePublish, newMemBacking().connector(), events)
	require.NoError(t, err)
	defer run.Close()

	run.Processed, run.Failed, run.Skipped = 5, 1, 2
	run.Emit(context.Background(), tasks.KindBatch, "PMC9", errors.New("bulk failed"))

	require.Len(t, events.events, 1)
	ev := events.events[0]
	assert.Equal(t, run.ID, ev.RunID)
	assert.Equal(t, StagePublish, ev.Stage)
	assert.Equal(t, tasks.KindBatch, ev.Kind)
	assert.Equal(t, "PMC9", ev.LastID)
	assert.Equal(t, 5, ev.Processed)
	assert.Equal(t, 1, ev.Failed)
	assert.Equal(t, 2, ev.Skipped)
	assert.Equal(t, "bulk failed", ev.Error)
}

func TestNewRun_ConnectError(t *testing.T) {
	_, err := NewRun(context.Background(), StageIngest, func(context.Context) (repository.DocumentStore, error) {
		return nil, errors.New("no db")
	}, nil)
	assert.Error(t, err)
}
