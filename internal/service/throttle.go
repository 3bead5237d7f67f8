package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const throttleKeyPrefix = "login_throttle:"

// LoginThrottle bounds local login attempts per username and source address
// using a fixed Redis window. It is advisory: if Redis is unreachable the
// attempt proceeds, since the credential check itself still gates access.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginThrottle builds the throttle.
func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LoginThrottle{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

// Allow records an attempt and reports whether it may proceed.
func (t *LoginThrottle) Allow(ctx context.Context, username, remoteIP string) bool {
	if t == nil || t.client == nil {
		return true
	}

	key := throttleKeyPrefix + username + ":" + remoteIP
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		t.logger.Warn("login throttle unavailable", zap.Error(err))
		return true
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			t.logger.Warn("login throttle expire failed", zap.Error(err))
		}
	}
	return count <= int64(t.maxAttempts)
}
