// Package notify delivers operational alerts (provider outages,
// circuit breaker trips) to configured webhook endpoints.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"agrigate/core"

	"go.uber.org/zap"
)

// severityOrder ranks alert severities for filtering.
var severityOrder = map[string]int{
	"low":      1,
	"medium":   2,
	"high":     3,
	"critical": 4,
}

// WebhookConfig describes one webhook destination.
type WebhookConfig struct {
	Enabled bool              `json:"enabled"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	// MinSeverity filters alerts below this severity.
	MinSeverity string `json:"min_severity"`
}

// Notifier sends system alerts to webhooks, each protected by its own
// circuit breaker so a dead endpoint cannot stall the gateway.
type Notifier struct {
	configs         []WebhookConfig
	client          *http.Client
	logger          *zap.SugaredLogger
	circuitBreakers map[string]*core.CircuitBreaker
	cbMu            sync.RWMutex
}

// NewNotifier creates a notifier for the given webhook destinations.
func NewNotifier(configs []WebhookConfig, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{
		configs:         configs,
		client:          &http.Client{Timeout: 10 * time.Second},
		logger:          logger,
		circuitBreakers: make(map[string]*core.CircuitBreaker),
	}
}

// getOrCreateCircuitBreaker returns the breaker for a webhook URL,
// creating it on first use.
func (n *Notifier) getOrCreateCircuitBreaker(key string) *core.CircuitBreaker {
	n.cbMu.RLock()
	cb, exists := n.circuitBreakers[key]
	n.cbMu.RUnlock()
	if exists {
		return cb
	}

	n.cbMu.Lock()
	defer n.cbMu.Unlock()

	if cb, exists := n.circuitBreakers[key]; exists {
		return cb
	}

	cb = core.MustNewCircuitBreaker(core.CircuitBreakerConfig{
		MaxFailures:         3,
		Timeout:             60 * time.Second,
		MaxHalfOpenRequests: 1,
	})
	n.circuitBreakers[key] = cb
	n.logger.Infof("Created circuit breaker for notification webhook: %s", key)
	return cb
}

// systemAlertPayload is the JSON body posted to webhooks.
type systemAlertPayload struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// NotifySystemAlert sends an alert to every enabled webhook whose
// severity filter admits it. Delivery failures are logged, not
// returned, except when every delivery failed.
func (n *Notifier) NotifySystemAlert(title, message, severity string) error {
	var attempted, failed int

	for _, config := range n.configs {
		if !config.Enabled || config.URL == "" {
			continue
		}

		if config.MinSeverity != "" {
			alertRank, ok := severityOrder[severity]
			if !ok {
				alertRank = 1
			}
			minRank, ok := severityOrder[config.MinSeverity]
			if !ok {
				minRank = 1
			}
			if alertRank < minRank {
				continue
			}
		}

		attempted++
		cb := n.getOrCreateCircuitBreaker(config.URL)
		if err := cb.Allow(); err != nil {
			n.logger.Warnf("Circuit breaker open for webhook %s: %v", config.URL, err)
			failed++
			continue
		}

		if err := n.sendWebhook(title, message, severity, config); err != nil {
			cb.RecordFailure()
			n.logger.Errorf("Failed to send webhook notification to %s: %v", config.URL, err)
			failed++
		} else {
			cb.RecordSuccess()
		}
	}

	if attempted > 0 && failed == attempted {
		return fmt.Errorf("all %d webhook deliveries failed", attempted)
	}
	return nil
}

// sendWebhook posts the alert payload to one webhook destination.
func (n *Notifier) sendWebhook(title, message, severity string, config WebhookConfig) error {
	payload := systemAlertPayload{
		Title:     title,
		Message:   message,
		Severity:  severity,
		Source:    "agrigate",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	method := config.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequest(method, config.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
