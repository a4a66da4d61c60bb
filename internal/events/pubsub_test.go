package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionPublisher_DeliversToSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := NewPubSub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer pubSub.Close()

	received := make(chan domain.TransitionEvent, 1)
	require.NoError(t, Subscribe(ctx, pubSub, func(_ context.Context, e domain.TransitionEvent) error {
		received <- e
		return nil
	}))

	sent := domain.TransitionEvent{
		InstanceID:           "i-1",
		WorkflowDefinitionID: "wf",
		ActionID:             "go",
		FromStateID:          "A",
		ToStateID:            "B",
		Timestamp:            time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC),
		Version:              2,
	}
	require.NoError(t, NewTransitionPublisher(pubSub).OnTransition(ctx, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("transition event was not delivered")
	}
}

func TestLogHandler_NeverFails(t *testing.T) {
	h := LogHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, h(context.Background(), domain.TransitionEvent{InstanceID: "x"}))
}
