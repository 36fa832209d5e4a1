package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/config"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/service"
)

type closeRecorder struct {
	closed chan struct{}
}

func (c *closeRecorder) Close() error {
	close(c.closed)
	return nil
}

type countingForwarder struct {
	count int
}

func (f *countingForwarder) PublishEvent(context.Context, events.Event) error {
	f.count++
	return nil
}

func TestStartNotificationWorkerRegistersAndClosesBroker(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	forwarder := &countingForwarder{}
	svc := service.NewNotificationService(dispatcher, forwarder, zap.NewNop(), config.NotificationConfig{})
	broker := &closeRecorder{closed: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	StartNotificationWorker(ctx, svc, broker, zap.NewNop())

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventTicketSLABreached, events.Actor{}, nil)))
	assert.Equal(t, 1, forwarder.count)

	cancel()
	select {
	case <-broker.closed:
	case <-time.After(time.Second):
		t.Fatal("broker was not closed")
	}
}
