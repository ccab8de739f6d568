package repository

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const codeMarkerKeyPrefix = "oauth:code:"

// RedisCodeMarker はRedisのSET NXを使用した使用済みコードマーカー。
// REDIS_URLが設定されている場合にPostgreSQL実装の代わりに使用する。
type RedisCodeMarker struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisClient はREDIS_URLからRedisクライアントを生成する。
// rediss:// スキームの場合はTLS 1.2以上を要求する。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if opts.TLSConfig != nil {
		opts.TLSConfig.MinVersion = tls.VersionTLS12
	}
	return redis.NewClient(opts), nil
}

// NewRedisCodeMarker はRedisCodeMarkerを生成する。
// retentionはマーカーの保持期間で、経過後はキーが自動的に失効する。
func NewRedisCodeMarker(client *redis.Client, retention time.Duration) *RedisCodeMarker {
	return &RedisCodeMarker{client: client, retention: retention}
}

// MarkUsed は認可コードのハッシュをキーとしてSET NXする。
func (m *RedisCodeMarker) MarkUsed(ctx context.Context, code string) (bool, error) {
	ok, err := m.client.SetNX(ctx, codeMarkerKeyPrefix+HashCode(code), time.Now().Unix(), m.retention).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark oauth code in redis: %w", err)
	}
	return ok, nil
}

// compile-time interface check
var _ CodeMarker = (*RedisCodeMarker)(nil)
