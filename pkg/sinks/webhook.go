package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"notifyhub/internal/circuitbreaker"
	"notifyhub/internal/config"
	"notifyhub/internal/ratelimiter"
	"notifyhub/pkg/notify"
)

// webhookPayload is the illustrative sink protocol from spec §6: a JSON POST
// carrying the routing key, text, and a hint about how to render it.
type webhookPayload struct {
	ChannelKey string `json:"channel_key"`
	Text       string `json:"text"`
	FormatHint string `json:"format_hint"`
}

// WebhookSink posts each message in a batch as its own JSON request,
// guarded by a circuit breaker and rate limiter so a flapping endpoint
// cannot be hammered by a large batch.
type WebhookSink struct {
	SinkName string
	cfg      config.WebhookSinkConfig
	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	limiter  *ratelimiter.Limiter
	logger   *logrus.Logger
}

// NewWebhookSink builds a WebhookSink from its configuration.
func NewWebhookSink(name string, cfg config.WebhookSinkConfig, logger *logrus.Logger) *WebhookSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WebhookSink{
		SinkName: name,
		cfg:      cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		breaker:  circuitbreaker.New(circuitbreaker.Config{MaxFailures: int64(cfg.FailThreshold)}),
		limiter:  ratelimiter.New(ratelimiter.Config{InitialRPS: float64(cfg.RateLimitRPS)}),
		logger:   logger,
	}
}

func (s *WebhookSink) Name() string { return s.SinkName }

func (s *WebhookSink) ProcessBatch(ctx context.Context, batch []notify.Message) error {
	for _, m := range batch {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("webhook %s: rate limiter: %w", s.SinkName, err)
		}
		start := time.Now()
		err := s.breaker.Execute(func() error { return s.post(ctx, m) })
		s.limiter.Report(time.Since(start))
		if err != nil {
			return fmt.Errorf("webhook %s: %w", s.SinkName, err)
		}
	}
	return nil
}

func (s *WebhookSink) post(ctx context.Context, m notify.Message) error {
	if s.cfg.Development {
		s.logger.WithField("channel", m.ChannelID).Info("webhook (dev mode): " + m.String())
		return nil
	}

	body, err := json.Marshal(webhookPayload{
		ChannelKey: m.ChannelID,
		Text:       m.Text,
		FormatHint: string(m.Level),
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
