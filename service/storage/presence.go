package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// PresenceStore 把在线状态镜像到 Redis，供平台其它服务读取。
// 网关对它只写不读：断言来源永远是内存里的 Registry。
// 所有方法对 nil receiver 安全（未配置 Redis 时网关照常工作）。
type PresenceStore struct {
	client *goredis.Client
	nodeID string
	ttl    time.Duration
}

func NewPresenceStore(client *goredis.Client, nodeID string, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PresenceStore{client: client, nodeID: nodeID, ttl: ttl}
}

func (p *PresenceStore) connKey(connID string) string {
	return fmt.Sprintf("online:%s:conn:%s", p.nodeID, connID)
}

func (p *PresenceStore) userKey(userID string) string {
	return fmt.Sprintf("online:%s:user:%s", p.nodeID, userID)
}

// Online 连接进入 Authenticated 后登记
func (p *PresenceStore) Online(ctx context.Context, userID, connID string) error {
	if p == nil {
		return nil
	}
	pipe := p.client.Pipeline()
	pipe.Set(ctx, p.connKey(connID), userID, p.ttl)
	pipe.SAdd(ctx, p.userKey(userID), connID)
	pipe.Expire(ctx, p.userKey(userID), p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "presence online")
	}
	return nil
}

// Touch 心跳续期。连接可能刚被清理，key 不存在不算错。
func (p *PresenceStore) Touch(ctx context.Context, userID, connID string) error {
	if p == nil {
		return nil
	}
	pipe := p.client.Pipeline()
	pipe.Expire(ctx, p.connKey(connID), p.ttl)
	pipe.Expire(ctx, p.userKey(userID), p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "presence touch")
	}
	return nil
}

// Offline teardown 时调用；幂等
func (p *PresenceStore) Offline(ctx context.Context, userID, connID string) error {
	if p == nil {
		return nil
	}
	pipe := p.client.Pipeline()
	pipe.Del(ctx, p.connKey(connID))
	if userID != "" {
		pipe.SRem(ctx, p.userKey(userID), connID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "presence offline")
	}
	return nil
}
