package notificator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/casperflow/remitd/internal/models"
	"github.com/casperflow/remitd/pkg/logger"
)

// WebhookNotificator POSTs the raw event record to an external observer
// endpoint.
type WebhookNotificator struct {
	logger *logger.Logger
	url    string
	client *http.Client
}

func NewWebhookNotificator(logger *logger.Logger, url string) *WebhookNotificator {
	return &WebhookNotificator{
		logger: logger,
		url:    url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *WebhookNotificator) SendNotification(event *models.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		w.logger.Error("Failed to marshal event: ", err)
		return
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.logger.Error("Failed to deliver webhook: ", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.logger.Error("Webhook endpoint returned status ", resp.StatusCode, " for event ", event.Op)
	}
}
