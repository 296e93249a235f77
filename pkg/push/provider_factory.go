package push

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"simora-backend/pkg/env"
	"simora-backend/pkg/logger"
)

// ProviderType represents the type of push notification provider
type ProviderType string

const (
	ProviderTypeMock ProviderType = "mock"
	ProviderTypeFCM  ProviderType = "fcm"
	ProviderTypeAPNs ProviderType = "apns"
)

// NewProvider creates a push notification provider based on the
// PUSH_PROVIDER environment variable
func NewProvider() (Provider, error) {
	providerType := ProviderType(env.GetString("PUSH_PROVIDER", "mock"))

	logger.Info("Initializing push notification provider",
		zap.String("provider_type", string(providerType)))

	switch providerType {
	case ProviderTypeFCM:
		return newFCMProvider()
	case ProviderTypeAPNs:
		return newAPNsProvider()
	case ProviderTypeMock:
		return &MockProvider{}, nil
	default:
		logger.Warn("Unknown push provider type, falling back to mock",
			zap.String("provider_type", string(providerType)))
		return &MockProvider{}, nil
	}
}

func newFCMProvider() (Provider, error) {
	projectID := env.GetString("FCM_PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("FCM_PROJECT_ID environment variable is required for FCM provider")
	}

	return NewFCMProvider(&FCMConfig{
		ProjectID:       projectID,
		CredentialsPath: env.GetString("FCM_CREDENTIALS_PATH", ""),
	})
}

func newAPNsProvider() (Provider, error) {
	bundleID := env.GetString("APNS_BUNDLE_ID", "")
	if bundleID == "" {
		return nil, fmt.Errorf("APNS_BUNDLE_ID environment variable is required for APNs provider")
	}

	return NewAPNsProvider(&APNsConfig{
		BundleID:            bundleID,
		KeyPath:             env.GetString("APNS_KEY_PATH", ""),
		KeyID:               env.GetString("APNS_KEY_ID", ""),
		TeamID:              env.GetString("APNS_TEAM_ID", ""),
		CertificatePath:     env.GetString("APNS_CERT_PATH", ""),
		CertificatePassword: env.GetString("APNS_CERT_PASSWORD", ""),
		Production:          env.GetBool("APNS_PRODUCTION", false),
	})
}

// MockProvider logs notifications instead of delivering them. Used in
// development and in environments without push credentials.
type MockProvider struct{}

// Send implements Provider for the mock
func (m *MockProvider) Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	logger.Info("Mock push notification",
		zap.String("title", notification.Title),
		zap.String("body", notification.Body),
		zap.Int("token_count", len(tokens)))

	return &SendResult{SuccessCount: len(tokens)}, nil
}
