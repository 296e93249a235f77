package push

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"simora-backend/pkg/logger"
)

// Provider defines interface for sending push notifications
type Provider interface {
	Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error)
}

// SendResult contains the result of a push notification send operation
type SendResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
	Errors        []error
}

// Notification represents a push notification
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"` // high, normal, low
	Sound    string            `json:"sound,omitempty"`
	Category string            `json:"category,omitempty"`
}

// TokenType represents the type of push notification token
type TokenType string

const (
	TokenTypeFCM  TokenType = "fcm"  // Firebase Cloud Messaging
	TokenTypeAPNs TokenType = "apns" // Apple Push Notification Service
	TokenTypeWeb  TokenType = "web"  // Web Push
)

// Token represents a push notification token for a user's device
type Token struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	Type      TokenType `json:"type"`
	Platform  string    `json:"platform,omitempty"` // ios, android, web
	Active    bool      `json:"active"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
}

// TokenRepository defines interface for storing and retrieving push tokens
type TokenRepository interface {
	Store(ctx context.Context, token *Token) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Token, error)
	GetByToken(ctx context.Context, token string) (*Token, error)
	MarkInactive(ctx context.Context, tokenValue string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

// Service handles push notification operations
type Service struct {
	provider Provider
	repo     TokenRepository
}

// NewService creates a new push notification service
func NewService(provider Provider, repo TokenRepository) *Service {
	return &Service{
		provider: provider,
		repo:     repo,
	}
}

// RegisterToken registers a push notification token for a user's device
func (s *Service) RegisterToken(ctx context.Context, token *Token) error {
	existing, err := s.repo.GetByToken(ctx, token.Token)
	if err == nil && existing != nil {
		existing.Active = true
		existing.Platform = token.Platform
		existing.UpdatedAt = time.Now().Unix()
		return s.repo.Store(ctx, existing)
	}

	return s.repo.Store(ctx, token)
}

// UnregisterAllTokens removes all tokens for a user (logout)
func (s *Service) UnregisterAllTokens(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteByUserID(ctx, userID)
}

// SendToUser sends a notification to every active device token of a user
func (s *Service) SendToUser(ctx context.Context, userID uuid.UUID, notification *Notification) (*SendResult, error) {
	tokens, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get push tokens: %w", err)
	}

	var active []string
	for _, token := range tokens {
		if token.Active {
			active = append(active, token.Token)
		}
	}

	if len(active) == 0 {
		logger.Debug("No active push tokens for user",
			zap.String("user_id", userID.String()))
		return &SendResult{}, nil
	}

	result, err := s.provider.Send(ctx, notification, active)
	if err != nil {
		return nil, fmt.Errorf("failed to send push notification: %w", err)
	}

	if len(result.InvalidTokens) > 0 {
		s.handleInvalidTokens(ctx, result.InvalidTokens)
	}

	return result, nil
}

// handleInvalidTokens marks rejected tokens inactive so they are not retried
func (s *Service) handleInvalidTokens(ctx context.Context, invalidTokens []string) {
	for _, tokenValue := range invalidTokens {
		if err := s.repo.MarkInactive(ctx, tokenValue); err != nil {
			logger.Warn("Failed to mark token inactive",
				zap.Error(err))
		}
	}

	logger.Info("Invalid push tokens deactivated",
		zap.Int("count", len(invalidTokens)))
}
