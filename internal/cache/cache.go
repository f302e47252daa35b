// Package cache はRedisを使用した読み取りキャッシュを提供する。
// プロフィールと再生中トラックのカタログAPI応答をTTL付きで保持する。
// Redisが未設定・接続不可の場合はキャッシュ無効として動作し、
// 呼び出し側は常にオリジンへフォールバックできる。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connect はRedisクライアントを生成する。
// addrが空の場合はnilを返し、キャッシュは無効になる。
// 接続確認に失敗した場合もnilを返す（キャッシュなしで継続する）。
func Connect(addr, password string, logger *slog.Logger) *redis.Client {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redisへの接続に失敗しました。キャッシュなしで継続します",
			slog.String("addr", addr),
			slog.String("error", err.Error()),
		)
		return nil
	}

	logger.Info("Redisに接続しました", slog.String("addr", addr))
	return client
}

// ErrCacheMiss はキーが存在しない場合に返される。
var ErrCacheMiss = errors.New("cache miss")

// Store はJSON値のTTL付きキャッシュ。clientがnilの場合は常にミスする。
type Store struct {
	client *redis.Client
}

// NewStore はStoreを生成する。clientはnil可（キャッシュ無効）。
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Enabled はキャッシュが有効かを返す。
func (s *Store) Enabled() bool {
	return s.client != nil
}

// GetJSON はキーの値をoutへデコードする。
// キーが存在しない場合・キャッシュ無効時はErrCacheMissを返す。
func (s *Store) GetJSON(ctx context.Context, key string, out any) error {
	if s.client == nil {
		return ErrCacheMiss
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("キャッシュの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("キャッシュ値のパースに失敗しました: %w", err)
	}
	return nil
}

// SetJSON は値をJSONエンコードしてTTL付きで保存する。キャッシュ無効時は何もしない。
func (s *Store) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("キャッシュ値のエンコードに失敗しました: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュの書き込みに失敗しました: %w", err)
	}
	return nil
}

// Delete はキーを削除する。キャッシュ無効時は何もしない。
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("キャッシュの削除に失敗しました: %w", err)
	}
	return nil
}
