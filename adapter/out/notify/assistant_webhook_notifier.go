// Package notify dispatches urgent-analysis notifications to an external
// webhook. Delivery transport beyond the webhook handoff is out of scope.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"assistant_server/core/domain"
	"assistant_server/pkg/logger"
)

// =============================================================================
// Webhook Notifier
// =============================================================================

// WebhookNotifier posts urgent analyses to a configured webhook URL behind a
// circuit breaker, so a dead notification endpoint cannot slow down the
// analysis path.
type WebhookNotifier struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker
	log    *logger.Logger
}

// NewWebhookNotifier creates a webhook notifier. An empty url disables
// dispatch (every call becomes a logged no-op).
func NewWebhookNotifier(url string, log *logger.Logger) *WebhookNotifier {
	if log == nil {
		log = logger.Default()
	}

	cbSettings := gobreaker.Settings{
		Name:        "urgent-webhook",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithField("breaker", name).
				WithField("from", from.String()).
				WithField("to", to.String()).
				Warn("circuit breaker state changed")
		},
	}

	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
		log:    log,
	}
}

// urgentPayload is the webhook body for one urgent analysis.
type urgentPayload struct {
	UserID    string   `json:"user_id"`
	EmailID   string   `json:"email_id"`
	Priority  string   `json:"priority"`
	Category  string   `json:"category"`
	Urgency   int      `json:"urgency_score"`
	Reasoning string   `json:"reasoning"`
	Actions   []string `json:"suggested_actions"`
}

// NotifyUrgent posts the analysis to the webhook. Errors (including an open
// breaker) are returned so the caller can decide whether the handoff counts
// as sent.
func (n *WebhookNotifier) NotifyUrgent(ctx context.Context, analysis *domain.EmailAnalysis) error {
	if n.url == "" {
		n.log.WithField("email_id", analysis.EmailID).Debug("urgent webhook not configured, skipping dispatch")
		return nil
	}

	body, err := json.Marshal(urgentPayload{
		UserID:    analysis.UserID.String(),
		EmailID:   analysis.EmailID,
		Priority:  string(analysis.PriorityLevel),
		Category:  string(analysis.Category),
		Urgency:   analysis.UrgencyScore,
		Reasoning: analysis.Reasoning,
		Actions:   analysis.SuggestedActions,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	_, err = n.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("urgent webhook dispatch: %w", err)
	}

	return nil
}
