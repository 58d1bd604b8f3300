package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-analytics/internal/config"
	"github.com/spec-kit/ticket-analytics/internal/events"
)

// SLAAlert is posted to the webhook when incident SLA compliance drops below the threshold.
type SLAAlert struct {
	Kind           string  `json:"kind"`
	Checksum       string  `json:"checksum"`
	SLACompliance  float64 `json:"sla_compliance"`
	Threshold      float64 `json:"threshold"`
	TotalIncidents int     `json:"total_incidents"`
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	client     *http.Client
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventDatasetReplaced, n.handleDatasetReplaced)
	n.dispatcher.Subscribe(events.EventAnalysisCompleted, n.handleAnalysisCompleted)
	n.dispatcher.Subscribe(events.EventIngestionFailed, n.handleIngestionFailed)
}

func (n *NotificationService) handleDatasetReplaced(ctx context.Context, event events.Event) error {
	n.logger.Info("DatasetReplaced", zap.String("source", event.Source), zap.Any("payload", event.Payload))
	return n.postWebhook(ctx, event)
}

func (n *NotificationService) handleAnalysisCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AnalysisCompletedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Debug("AnalysisCompleted",
		zap.String("source", event.Source),
		zap.String("checksum", payload.Checksum),
		zap.Bool("cached", payload.Cached),
		zap.Bool("repeat", payload.Repeat))

	if payload.Cached || payload.Repeat || payload.TotalIncidents == 0 || payload.SLACompliance >= n.cfg.SLAAlertThreshold {
		return nil
	}
	n.logger.Warn("sla compliance below threshold",
		zap.Float64("sla_compliance", payload.SLACompliance),
		zap.Float64("threshold", n.cfg.SLAAlertThreshold))
	return n.postWebhook(ctx, events.Event{
		ID:        event.ID,
		Type:      event.Type,
		Source:    event.Source,
		Timestamp: event.Timestamp,
		Payload: SLAAlert{
			Kind:           "sla_breach",
			Checksum:       payload.Checksum,
			SLACompliance:  payload.SLACompliance,
			Threshold:      n.cfg.SLAAlertThreshold,
			TotalIncidents: payload.TotalIncidents,
		},
	})
}

func (n *NotificationService) handleIngestionFailed(ctx context.Context, event events.Event) error {
	n.logger.Warn("IngestionFailed", zap.String("source", event.Source), zap.Any("payload", event.Payload))
	return n.postWebhook(ctx, event)
}

func (n *NotificationService) postWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("webhook rejected", zap.String("event_type", string(event.Type)), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
