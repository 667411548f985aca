package chat

import (
	"sync"
)

// Registry 连接注册表，"谁在线" 的唯一事实来源。
// 双索引：conn_id -> client 为主，user -> (conn_id -> client) 为辅
// （同一用户允许多端同时在线）。
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Client
	byUser map[string]map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
	}
}

// Register 认证成功后登记；未认证连接不进注册表
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[c.ConnID] = c
	m := r.byUser[c.userID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[c.userID] = m
	}
	m[c.ConnID] = c
}

func (r *Registry) Lookup(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

// Remove 幂等：优雅断开与超时清理可能竞争同一连接，重复删除是 no-op
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if m := r.byUser[c.userID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, c.userID)
		}
	}
}

// ListByUser 某用户的全部在线连接
func (r *Registry) ListByUser(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// Snapshot 全量连接（关停时用）
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}
