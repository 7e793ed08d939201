package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// ScreeningLock は上映単位の分散ロック。
// 座席クレームの検証と書き込みを他の予約リクエストに対して直列化する。
// 最終的な安全性はDBの一意制約が保証するため、ロックは競合窓を狭める役割。
type ScreeningLock struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// ScreeningLockManager は上映単位の分散ロックを管理する
type ScreeningLockManager struct {
	client *redis.Client
}

func NewScreeningLockManager(client *redis.Client) *ScreeningLockManager {
	return &ScreeningLockManager{client: client}
}

// Acquire は上映IDに対するロックを取得する
func (m *ScreeningLockManager) Acquire(ctx context.Context, screeningID int64, ttl time.Duration) (*ScreeningLock, error) {
	lockKey := fmt.Sprintf("lock:screening:%d", screeningID)
	lockValue := uuid.New().String()

	// SetNX を使用してロックを取得（キーが存在しない場合のみ設定）
	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &ScreeningLock{
		client: m.client,
		key:    lockKey,
		value:  lockValue,
		ttl:    ttl,
	}, nil
}

// AcquireWithRetry はリトライ付きでロックを取得する
func (m *ScreeningLockManager) AcquireWithRetry(ctx context.Context, screeningID int64, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*ScreeningLock, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lock, err := m.Acquire(ctx, screeningID, ttl)
		if err == nil {
			return lock, nil
		}
		lastErr = err
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, lastErr
}

// Release はロックを解放する（Lua スクリプトで所有者確認と削除をアトミックに実行）
func (l *ScreeningLock) Release(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	result, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// Extend はロックの有効期限を延長する
func (l *ScreeningLock) Extend(ctx context.Context, ttl time.Duration) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("PEXPIRE", KEYS[1], ARGV[2])
		else
			return 0
		end
	`
	result, err := l.client.Eval(ctx, script, []string{l.key}, l.value, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("ロック延長に失敗: %w", err)
	}
	if result == 0 {
		return ErrLockNotOwned
	}
	l.ttl = ttl
	return nil
}
