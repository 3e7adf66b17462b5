package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/OriginProtocol/origin-bridge/internal/model"
)

const pushTimeout = 5 * time.Second

// ErrEndpointGone means the gateway reported the device token as no longer
// deliverable; the endpoint should be deactivated.
var ErrEndpointGone = errors.New("push endpoint no longer deliverable")

// PushSender delivers one notification to a device endpoint.
type PushSender interface {
	Send(ctx context.Context, endpoint *model.NotificationEndpoint, eventType, message string) error
}

type pushRequest struct {
	Provider    model.NotificationProvider `json:"provider"`
	DeviceToken string                     `json:"device_token"`
	EventType   string                     `json:"event_type"`
	Message     string                     `json:"message"`
}

// NoopPushSender stands in when no push gateway is configured.
type NoopPushSender struct{}

func (NoopPushSender) Send(ctx context.Context, endpoint *model.NotificationEndpoint, eventType, message string) error {
	log.Debug().
		Str("provider", string(endpoint.Provider)).
		Str("eventType", eventType).
		Msg("push gateway not configured, dropping notification")
	return nil
}

// GatewayPushSender forwards notifications to the push gateway, which
// holds the APN and FCM credentials.
type GatewayPushSender struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewGatewayPushSender(baseURL, token string) *GatewayPushSender {
	return &GatewayPushSender{
		client: &http.Client{
			Timeout: pushTimeout,
		},
		baseURL: baseURL,
		token:   token,
	}
}

func (s *GatewayPushSender) Send(ctx context.Context, endpoint *model.NotificationEndpoint, eventType, message string) error {
	body, err := json.Marshal(pushRequest{
		Provider:    endpoint.Provider,
		DeviceToken: endpoint.DeviceToken,
		EventType:   eventType,
		Message:     message,
	})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/push", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("provider", string(endpoint.Provider)).
			Dur("elapsed", elapsed).
			Msg("push gateway error")
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		log.Warn().
			Str("provider", string(endpoint.Provider)).
			Int("status", resp.StatusCode).
			Msg("push gateway reports endpoint gone")
		return ErrEndpointGone
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Str("provider", string(endpoint.Provider)).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("push gateway rejected notification")
		return fmt.Errorf("push failed with status %d", resp.StatusCode)
	}

	log.Info().
		Str("provider", string(endpoint.Provider)).
		Str("eventType", eventType).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("push delivered")

	return nil
}
