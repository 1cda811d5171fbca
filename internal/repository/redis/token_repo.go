package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRedisUnavailable = errors.New("redis unavailable")
	ErrTokenRevoked     = errors.New("token already revoked")
)

const TokenBlacklistPrefix = "token:blacklist"

// TokenRepository refresh token 黑名单，key 为 jti，过期时间与 token 剩余有效期一致
type TokenRepository struct {
	Client *redis.Client
}

func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{Client: client}
}

func (r *TokenRepository) key(jti string) string {
	return fmt.Sprintf("%s:%s", TokenBlacklistPrefix, jti)
}

// Revoke SETNX 写入黑名单，同一 jti 只有一次能成功，其余返回 ErrTokenRevoked。
// ttl<=0 时 token 已过期，无需记录
func (r *TokenRepository) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ok, err := r.Client.SetNX(ctx, r.key(jti), 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrTokenRevoked
	}
	return nil
}

func (r *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.Client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}
