package worker

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/service"
)

// StartNotificationWorker registers notification handlers. When broker is set
// it is closed once ctx is done so pending publishes get flushed.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, broker io.Closer, logger *zap.Logger) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if broker == nil {
		return
	}
	go func() {
		<-ctx.Done()
		if err := broker.Close(); err != nil {
			logger.Warn("failed to close event broker", zap.Error(err))
			return
		}
		logger.Info("event broker closed")
	}()
}
