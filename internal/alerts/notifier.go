package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/loglens/loglens/internal/config"
)

const defaultCooldown = 15 * time.Minute

// Notifier delivers webhook notifications when the error-threshold gate
// opens. Deliveries within the cooldown window are suppressed so a sustained
// error burst does not flood the targets. Errors are logged, never returned.
//
// Notifier is safe for concurrent use, and its webhook set can be swapped at
// runtime by config hot reload.
type Notifier struct {
	client   *http.Client
	cooldown time.Duration

	mu       sync.Mutex
	webhooks []config.Webhook
	lastFire time.Time
	now      func() time.Time
}

// NewNotifier creates a Notifier for the given webhook targets. A
// non-positive cooldown falls back to 15 minutes.
func NewNotifier(webhooks []config.Webhook, cooldown time.Duration) *Notifier {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Notifier{
		client:   &http.Client{Timeout: 10 * time.Second},
		cooldown: cooldown,
		webhooks: webhooks,
		now:      time.Now,
	}
}

// UpdateWebhooks replaces the delivery targets, used on config reload.
func (n *Notifier) UpdateWebhooks(webhooks []config.Webhook) {
	n.mu.Lock()
	n.webhooks = webhooks
	n.mu.Unlock()
}

// Notify delivers rep to every configured target unless the cooldown is
// still active.
func (n *Notifier) Notify(rep Report) {
	n.mu.Lock()
	if n.now().Sub(n.lastFire) < n.cooldown {
		n.mu.Unlock()
		return
	}
	n.lastFire = n.now()
	targets := make([]config.Webhook, len(n.webhooks))
	copy(targets, n.webhooks)
	n.mu.Unlock()

	for _, wh := range targets {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(url, rep)
		case "http", "":
			err = n.sendHTTP(url, rep)
		default:
			slog.Warn("alerts: unknown webhook type — skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "err", err)
		} else {
			slog.Info("alerts: webhook delivered",
				"type", wh.Type, "error_count", rep.ErrorCount)
		}
	}
}

func (n *Notifier) sendSlack(url string, rep Report) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*[ALERT]* %d errors in the last %d minutes (threshold %.0f)",
			rep.ErrorCount, rep.WindowMinutes, rep.Threshold),
	})
	return n.post(url, body)
}

func (n *Notifier) sendHTTP(url string, rep Report) error {
	body, _ := json.Marshal(map[string]any{"alert": rep})
	return n.post(url, body)
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
