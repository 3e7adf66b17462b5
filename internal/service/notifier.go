package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/OriginProtocol/origin-bridge/internal/errors"
	"github.com/OriginProtocol/origin-bridge/internal/model"
	"github.com/OriginProtocol/origin-bridge/internal/redis"
	"github.com/OriginProtocol/origin-bridge/internal/repository"
	"github.com/OriginProtocol/origin-bridge/internal/util"
)

const (
	eventTransactionPending = "TRANSACTION_PENDING"
	eventNewMessage         = "NEW_MESSAGE"

	msgTransactionPending = "A transaction is waiting for your signature."
	msgNewMessage         = "You have a new message."
)

// NotifierService handles out-of-band wakes. Push goes through the gateway
// when the account has a registered endpoint; the redis publish wakes any
// long-lived wallet connection regardless.
type NotifierService struct {
	endpoints repository.NotificationEndpointRepository
	push      PushSender
	redis     *redis.Client
}

func NewNotifierService(endpoints repository.NotificationEndpointRepository, push PushSender, redisClient *redis.Client) *NotifierService {
	return &NotifierService{
		endpoints: endpoints,
		push:      push,
		redis:     redisClient,
	}
}

// RegisterEndpoint stores (or reactivates) a push endpoint for an address.
func (s *NotifierService) RegisterEndpoint(ctx context.Context, ethAddress, deviceToken string, provider model.NotificationProvider) (*model.NotificationEndpoint, error) {
	if !util.IsHexAddress(ethAddress) {
		return nil, apperrors.InvalidInput("eth_address", "not a valid Ethereum address")
	}
	if deviceToken == "" {
		return nil, apperrors.MissingRequired("device_token")
	}
	switch provider {
	case model.NotificationProviderAPN, model.NotificationProviderFCM:
	default:
		return nil, apperrors.InvalidInput("provider", "must be APN or FCM")
	}

	checksummed, err := util.ChecksumAddress(ethAddress)
	if err != nil {
		return nil, apperrors.InvalidInput("eth_address", "not a valid Ethereum address")
	}

	endpoint, err := s.endpoints.Upsert(ctx, checksummed, deviceToken, provider)
	if err != nil {
		return nil, fmt.Errorf("upsert endpoint: %w", err)
	}

	log.Info().
		Str("ethAddress", checksummed).
		Str("provider", string(provider)).
		Msg("notification endpoint registered")
	return endpoint, nil
}

// TransactionPending wakes the wallet holding the given account. Failures
// are logged and swallowed: the call is already queued and will be picked
// up on the next poll either way.
func (s *NotifierService) TransactionPending(ctx context.Context, ethAddress, walletToken string) {
	s.notify(ctx, ethAddress, walletToken, eventTransactionPending, msgTransactionPending)
}

// NewEthMessage notifies each receiver that a message is waiting for them.
// Returns the checksummed addresses that had at least one active endpoint.
func (s *NotifierService) NewEthMessage(ctx context.Context, receivers []string) ([]string, error) {
	if len(receivers) == 0 {
		return nil, apperrors.MissingRequired("receivers")
	}

	var notified []string
	for _, receiver := range receivers {
		if !util.IsHexAddress(receiver) {
			return nil, apperrors.InvalidInput("receivers", fmt.Sprintf("%q is not a valid Ethereum address", receiver))
		}
		checksummed, err := util.ChecksumAddress(receiver)
		if err != nil {
			return nil, apperrors.InvalidInput("receivers", fmt.Sprintf("%q is not a valid Ethereum address", receiver))
		}

		endpoints, err := s.endpoints.ListActiveByAddress(ctx, checksummed)
		if err != nil {
			return nil, fmt.Errorf("list endpoints: %w", err)
		}
		if len(endpoints) == 0 {
			continue
		}

		for _, endpoint := range endpoints {
			if err := s.push.Send(ctx, &endpoint, eventNewMessage, msgNewMessage); err != nil {
				s.handlePushFailure(ctx, &endpoint, err)
			}
		}
		notified = append(notified, checksummed)
	}
	return notified, nil
}

func (s *NotifierService) notify(ctx context.Context, ethAddress, walletToken, eventType, message string) {
	if s.redis != nil {
		if err := s.redis.Publish(ctx, redis.WalletChannel(walletToken), eventType).Err(); err != nil {
			log.Warn().Err(err).Msg("wallet wake publish failed")
		}
	}

	checksummed, err := util.ChecksumAddress(ethAddress)
	if err != nil {
		log.Warn().Str("ethAddress", ethAddress).Msg("skipping push for malformed address")
		return
	}

	endpoint, err := s.endpoints.FindActive(ctx, checksummed, walletToken)
	if err != nil {
		log.Warn().Err(err).Str("ethAddress", checksummed).Msg("endpoint lookup failed")
		return
	}
	if endpoint == nil {
		return
	}

	if err := s.push.Send(ctx, endpoint, eventType, message); err != nil {
		s.handlePushFailure(ctx, endpoint, err)
	}
}

// handlePushFailure deactivates endpoints the gateway reports as gone so
// dead device tokens stop generating outbound traffic.
func (s *NotifierService) handlePushFailure(ctx context.Context, endpoint *model.NotificationEndpoint, err error) {
	if !errors.Is(err, ErrEndpointGone) {
		log.Warn().
			Err(err).
			Str("ethAddress", endpoint.EthAddress).
			Str("provider", string(endpoint.Provider)).
			Msg("push notification failed")
		return
	}

	if derr := s.endpoints.Deactivate(ctx, endpoint.ID); derr != nil {
		log.Warn().Err(derr).Int64("endpointId", endpoint.ID).Msg("endpoint deactivation failed")
		return
	}
	log.Info().
		Int64("endpointId", endpoint.ID).
		Str("ethAddress", endpoint.EthAddress).
		Msg("push endpoint deactivated")
}
