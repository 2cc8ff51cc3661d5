package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 场景：同一用户的下单请求因为网络抖动被重复提交。
//
// 没有锁时两个请求会各自读购物车、各自扣库存、各自生成订单，
// 同一车货被卖出两次。加了按用户维度的锁之后，第二个请求要么等第一个
// 完成后发现购物车已被清空（EmptyCart），要么直接拿锁失败。
//
// 加锁：SET key value NX EX timeout
//   - NX 保证互斥，EX 防止持锁进程崩溃后死锁
//   - value 记录持有者，释放时校验，避免误删别人的锁
// 释放：Lua 脚本保证"校验 + 删除"原子执行
//
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，Lua 脚本校验 value 后删除
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewCheckoutLock 下单锁（按买家维度）
// 不同买家可以并发下单，同一买家的并发请求串行化；
// 库存本身的并发安全由数据库条件更新保证，这把锁挡的是重复提交
func NewCheckoutLock(client *redis.Client, userID int64) *DistributedLock {
	key := fmt.Sprintf("order:lock:user:%d", userID)
	value := fmt.Sprintf("%d", time.Now().UnixNano())
	return NewDistributedLock(client, key, value, 30*time.Second)
}
