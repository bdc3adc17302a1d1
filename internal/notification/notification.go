package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/staffbooks/staffbooks/config"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// NotifyError reports an operational error to the configured slack
// webhook. Errors here are logged, never propagated; notification must
// not affect ledger state.
func NotifyError(systemError error) {
	logrus.Error(systemError)
	conf, err := config.Fetch()
	if err != nil {
		logrus.Error(err)
		return
	}
	if conf.Notification.Slack.WebhookUrl == "" {
		return
	}
	go func() {
		if err := sendSlack(conf.Notification.Slack.WebhookUrl, systemError.Error()); err != nil {
			logrus.Error(err)
		}
	}()
}

func sendSlack(webhookURL, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// WebhookClient posts reconciliation events to the configured webhook.
type WebhookClient struct {
	URL     string
	Headers map[string]string
}

func NewWebhookClientFromConfig() (*WebhookClient, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	return &WebhookClient{
		URL:     conf.Notification.Webhook.Url,
		Headers: conf.Notification.Webhook.Headers,
	}, nil
}

// Send delivers one event. A missing URL disables delivery silently.
func (w *WebhookClient) Send(event string, payload interface{}) error {
	if w.URL == "" {
		return nil
	}
	body, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.Headers {
		req.Header.Set(k, v)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
