package worker

import (
	"github.com/spec-kit/ticket-analytics/internal/service"
)

// StartNotificationWorker subscribes webhook notifications to analysis and upload events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
