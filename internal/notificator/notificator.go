package notificator

import (
	"runtime/debug"

	"github.com/casperflow/remitd/internal/models"
	"github.com/casperflow/remitd/pkg/logger"
)

// Notificator fans operation events out to the configured providers.
// Delivery is best-effort: a failing or panicking provider never affects the
// escrow operation that produced the event.
type Notificator struct {
	logger *logger.Logger

	TelegramNotificator *TelegramNotificator
	EmailNotificator    *EmailNotificator
	WebhookNotificator  *WebhookNotificator
}

func NewNotificator(logger *logger.Logger, telNotif *TelegramNotificator, emailNotif *EmailNotificator, webhookNotif *WebhookNotificator) *Notificator {
	return &Notificator{logger: logger, TelegramNotificator: telNotif, EmailNotificator: emailNotif, WebhookNotificator: webhookNotif}
}

// safeCall runs a function with panic recovery
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (n *Notificator) Notify(event *models.Event) {
	go func() {
		if n.TelegramNotificator != nil {
			n.safeCall(func() { n.TelegramNotificator.SendNotification(event.String()) }, "telegramNotification")
		}
		if n.EmailNotificator != nil {
			n.safeCall(func() { n.EmailNotificator.SendNotification(event.String()) }, "emailNotification")
		}
		if n.WebhookNotificator != nil {
			n.safeCall(func() { n.WebhookNotificator.SendNotification(event) }, "webhookNotification")
		}
	}()
}
