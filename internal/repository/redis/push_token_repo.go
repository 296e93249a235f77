package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"simora-backend/pkg/logger"
	"simora-backend/pkg/push"
)

// pushTokenExpiry bounds how long a device token set lives without a refresh
const pushTokenExpiry = 30 * 24 * time.Hour

// PushTokenRepository handles push notification token storage in Redis
type PushTokenRepository struct {
	client *redis.Client
}

// NewPushTokenRepository creates a new push token repository
func NewPushTokenRepository(client *redis.Client) *PushTokenRepository {
	return &PushTokenRepository{client: client}
}

func tokenKey(token string) string {
	return fmt.Sprintf("push:token:%s", token)
}

func userTokensKey(userID uuid.UUID) string {
	return fmt.Sprintf("push:user:%s:tokens", userID)
}

// Store stores a push notification token
func (r *PushTokenRepository) Store(ctx context.Context, token *push.Token) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	now := time.Now().Unix()
	if token.CreatedAt == 0 {
		token.CreatedAt = now
	}
	token.UpdatedAt = now

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := r.client.Set(ctx, tokenKey(token.Token), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	key := userTokensKey(token.UserID)
	if err := r.client.SAdd(ctx, key, token.Token).Err(); err != nil {
		return fmt.Errorf("failed to add token to user set: %w", err)
	}

	if err := r.client.Expire(ctx, key, pushTokenExpiry).Err(); err != nil {
		logger.Warn("Failed to set expiration on user tokens set",
			zap.String("user_id", token.UserID.String()),
			zap.Error(err))
	}

	return nil
}

// GetByToken retrieves a token by its value. Returns (nil, nil) when unknown.
func (r *PushTokenRepository) GetByToken(ctx context.Context, tokenStr string) (*push.Token, error) {
	data, err := r.client.Get(ctx, tokenKey(tokenStr)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var token push.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

// GetByUserID retrieves all tokens registered for a user
func (r *PushTokenRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*push.Token, error) {
	values, err := r.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user token set: %w", err)
	}

	var tokens []*push.Token
	for _, value := range values {
		token, err := r.GetByToken(ctx, value)
		if err != nil {
			logger.Warn("Failed to load push token",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			continue
		}
		if token == nil {
			// Token record expired; drop the dangling set member
			r.client.SRem(ctx, userTokensKey(userID), value)
			continue
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}

// MarkInactive flags a token so it is no longer used for delivery
func (r *PushTokenRepository) MarkInactive(ctx context.Context, tokenValue string) error {
	token, err := r.GetByToken(ctx, tokenValue)
	if err != nil {
		return err
	}
	if token == nil {
		return nil
	}

	token.Active = false
	token.UpdatedAt = time.Now().Unix()

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := r.client.Set(ctx, tokenKey(tokenValue), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}

	return nil
}

// DeleteByUserID removes every token registered for a user (logout)
func (r *PushTokenRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	key := userTokensKey(userID)

	values, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to get user token set: %w", err)
	}

	for _, value := range values {
		if err := r.client.Del(ctx, tokenKey(value)).Err(); err != nil {
			logger.Warn("Failed to delete push token",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete user token set: %w", err)
	}

	return nil
}
