package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/warehouselens/warehouse-sentinel/internal/config"
	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// WebhookNotifier posts reports as markdown to a chat webhook.
type WebhookNotifier struct {
	webhookURL string
	retries    int
	retryDelay time.Duration
	costs      config.CostsConfig
	client     *http.Client
}

// webhookMessage is the posted payload. The markdown-in-JSON shape is
// accepted by most chat webhook endpoints.
type webhookMessage struct {
	MsgType  string           `json:"msgtype"`
	Markdown *markdownContent `json:"markdown,omitempty"`
}

type markdownContent struct {
	Content string `json:"content"`
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(cfg *config.NotifierConfig, costs config.CostsConfig) (*WebhookNotifier, error) {
	retryDelay, err := cfg.RetryDelayParsed()
	if err != nil {
		retryDelay = time.Second
	}

	return &WebhookNotifier{
		webhookURL: cfg.WebhookURL,
		retries:    cfg.Retries,
		retryDelay: retryDelay,
		costs:      costs,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns the notifier name.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// Send posts the report to the webhook.
func (w *WebhookNotifier) Send(ctx context.Context, report *model.Report) error {
	msg := webhookMessage{
		MsgType: "markdown",
		Markdown: &markdownContent{
			Content: w.formatMessage(report),
		},
	}

	return w.sendWithRetry(ctx, msg)
}

// formatMessage creates a markdown message from the report.
func (w *WebhookNotifier) formatMessage(report *model.Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## %s Warehouse Sentinel Report\n\n", statusEmoji(report.Summary.HealthStatus)))

	sb.WriteString("### 📊 Summary\n")
	sb.WriteString(fmt.Sprintf("> **Health Score**: %d/100 (%s)\n",
		report.Summary.HealthScore, report.Summary.HealthStatus))
	sb.WriteString(fmt.Sprintf("> **Window**: %s ~ %s\n",
		report.Window.Start.Format("2006-01-02"),
		report.Window.End.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("> **Window Spend**: %s\n", currency(report.WarehouseCosts.GrandTotal, w.costs)))
	if projected, change, ok := forecastDelta(report); ok {
		sb.WriteString(fmt.Sprintf("> **Projected**: %s over next %d days (**%+.1f%%**)\n",
			currency(projected, w.costs), len(report.Forecast), change))
	}
	sb.WriteString("\n")

	if alerts := alertedAnomalies(report.Anomalies); len(alerts) > 0 {
		sb.WriteString("### 🚨 Cost Anomalies\n")
		for i, a := range alerts {
			if i >= 5 {
				sb.WriteString(fmt.Sprintf("... and %d more\n", len(alerts)-5))
				break
			}
			sb.WriteString(fmt.Sprintf("%s **%s**: %.1f credits (baseline %.1f, z=%.2f)\n",
				severityEmoji(a.Severity), a.Date.Format("2006-01-02"),
				a.Observed, a.BaselineMean, a.ZScore))
		}
		sb.WriteString("\n")
	}

	if recs := actionable(report.Recommendations); len(recs) > 0 {
		sb.WriteString("### 🧭 Sizing Recommendations\n")
		for i, rec := range recs {
			if i >= 5 {
				sb.WriteString(fmt.Sprintf("... and %d more\n", len(recs)-5))
				break
			}
			sb.WriteString(fmt.Sprintf("- **%s** → `%s`: %s\n", rec.ResourceID, rec.Action, rec.Reason))
		}
		sb.WriteString("\n")
	}

	if len(report.Issues) > 0 {
		sb.WriteString("### 🔍 Query Issues\n")
		for i, issue := range report.Issues {
			if i >= 5 {
				sb.WriteString(fmt.Sprintf("... and %d more\n", len(report.Issues)-5))
				break
			}
			sb.WriteString(fmt.Sprintf("- `%s` ×%d (avg %.1fs)\n",
				issue.Tag, issue.Count, issue.AvgElapsedSeconds))
		}
		sb.WriteString("\n")
	}

	if report.WarehouseCosts.ConcentrationCount > 0 {
		sb.WriteString(fmt.Sprintf("**Top %d warehouses drive %.1f%% of spend**\n\n",
			report.WarehouseCosts.ConcentrationCount, report.WarehouseCosts.ConcentrationPercent))
	}

	sb.WriteString("---\n")
	sb.WriteString(fmt.Sprintf("*Report ID: %s*\n", report.ReqID))

	return sb.String()
}

// sendWithRetry sends the message with exponential backoff retry.
func (w *WebhookNotifier) sendWithRetry(ctx context.Context, msg webhookMessage) error {
	var lastErr error
	delay := w.retryDelay

	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2 // Exponential backoff
			}
		}

		err := w.send(ctx, msg)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d retries: %w", w.retries, lastErr)
}

// send performs the actual HTTP request.
func (w *WebhookNotifier) send(ctx context.Context, msg webhookMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
