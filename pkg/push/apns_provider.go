package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"go.uber.org/zap"

	"simora-backend/pkg/logger"
)

// APNsProvider implements Provider interface for Apple Push Notification Service
type APNsProvider struct {
	client     *apns2.Client
	production bool
	bundleID   string
}

// APNsConfig contains configuration for APNs provider
type APNsConfig struct {
	// Token-based authentication (recommended)
	KeyPath string // Path to .p8 private key file
	KeyID   string // 10-character Key ID from Apple Developer Portal
	TeamID  string // 10-character Team ID from Apple Developer Portal

	// Certificate-based authentication (legacy)
	CertificatePath     string
	CertificatePassword string

	BundleID   string // Bundle ID of the app (e.g., app.simora.academy)
	Production bool   // Use production APNs endpoint (true) or sandbox (false)
}

// NewAPNsProvider creates a new APNs provider
func NewAPNsProvider(config *APNsConfig) (*APNsProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("APNs config is required")
	}
	if config.BundleID == "" {
		return nil, fmt.Errorf("BundleID is required")
	}

	var client *apns2.Client

	if config.KeyPath != "" && config.KeyID != "" && config.TeamID != "" {
		authKey, err := token.AuthKeyFromFile(config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load APNs key: %w", err)
		}

		client = apns2.NewTokenClient(&token.Token{
			AuthKey: authKey,
			KeyID:   config.KeyID,
			TeamID:  config.TeamID,
		})

		logger.Info("APNs provider initialized with token authentication",
			zap.String("bundle_id", config.BundleID),
			zap.Bool("production", config.Production))
	} else if config.CertificatePath != "" {
		cert, err := certificate.FromP12File(config.CertificatePath, config.CertificatePassword)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate: %w", err)
		}

		client = apns2.NewClient(cert)

		logger.Info("APNs provider initialized with certificate authentication",
			zap.String("bundle_id", config.BundleID),
			zap.Bool("production", config.Production))
	} else {
		return nil, fmt.Errorf("either token-based (KeyPath, KeyID, TeamID) or certificate-based (CertificatePath) authentication must be provided")
	}

	if config.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsProvider{
		client:     client,
		production: config.Production,
		bundleID:   config.BundleID,
	}, nil
}

// Send implements Provider interface for APNs
func (a *APNsProvider) Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	if a.client == nil {
		return nil, fmt.Errorf("APNs client is not initialized")
	}

	if len(tokens) == 0 {
		return &SendResult{}, nil
	}

	result := &SendResult{}

	for _, deviceToken := range tokens {
		p := payload.NewPayload().
			AlertTitle(notification.Title).
			AlertBody(notification.Body)

		if notification.Sound != "" {
			p.Sound(notification.Sound)
		}
		if notification.Category != "" {
			p.Category(notification.Category)
		}
		for key, value := range notification.Data {
			p.Custom(key, value)
		}

		apnsNotification := &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       a.bundleID,
			Payload:     p,
		}
		if notification.Priority == "high" {
			apnsNotification.Priority = apns2.PriorityHigh
		} else {
			apnsNotification.Priority = apns2.PriorityLow
		}

		response, err := a.client.PushWithContext(ctx, apnsNotification)
		if err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, err)
			continue
		}

		if response.Sent() {
			result.SuccessCount++
			continue
		}

		result.FailureCount++
		result.Errors = append(result.Errors, fmt.Errorf("APNs rejected: %s", response.Reason))

		// Stale or unregistered device tokens should not be retried
		if response.Reason == apns2.ReasonBadDeviceToken || response.Reason == apns2.ReasonUnregistered {
			result.InvalidTokens = append(result.InvalidTokens, deviceToken)
		}
	}

	logger.Debug("APNs batch sent",
		zap.Int("success_count", result.SuccessCount),
		zap.Int("failure_count", result.FailureCount))

	return result, nil
}
