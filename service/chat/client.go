package chat

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// 连接状态机：Connecting → Authenticating → Authenticated → Disconnected。
// Disconnected 为终态，进入即触发一次性 teardown。

type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateAuthenticated
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Client 网关上的一条活跃连接。
// Send 是多生产者（其它连接的 fan-out）单消费者（自己的写协程）的有界队列；
// 除 Send 外其它连接不触碰彼此的私有状态。
type Client struct {
	ConnID string
	ws     *websocket.Conn

	state  atomic.Int32
	userID string // 认证成功后写一次，此后只读

	mu    sync.Mutex
	rooms map[string]struct{} // 本连接的房间缓存，只由自己的 join/leave 修改

	Send chan []byte

	limiter *rateLimiter

	drops      atomic.Int32 // 连续投递失败次数
	maxDrops   int32
	violations atomic.Int32

	slow     chan struct{} // 判定为慢消费者后关闭，写协程据此退出
	slowOnce sync.Once

	done     chan struct{} // teardown 时关闭
	downOnce sync.Once
}

func newClient(connID string, ws *websocket.Conn, queueSize int, limiter *rateLimiter, maxDrops int) *Client {
	if queueSize <= 0 {
		queueSize = 32
	}
	if maxDrops <= 0 {
		maxDrops = 50
	}
	c := &Client{
		ConnID:   connID,
		ws:       ws,
		rooms:    make(map[string]struct{}),
		Send:     make(chan []byte, queueSize),
		limiter:  limiter,
		maxDrops: int32(maxDrops),
		slow:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) setState(s State) { c.state.Store(int32(s)) }

func (c *Client) UserID() string { return c.userID }

// enqueue 非阻塞投递。队列满则丢弃本条（CapacityError 策略），
// 连续溢出超过阈值时把该连接标记为慢消费者。
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- payload:
		c.drops.Store(0)
		return true
	default:
		if c.drops.Add(1) >= c.maxDrops {
			c.slowOnce.Do(func() { close(c.slow) })
		}
		return false
	}
}

// ---- 房间缓存（与 RoomIndex 经 join/leave 协议保持一致） ----

func (c *Client) addRoom(roomID string) {
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) removeRoom(roomID string) {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
}

func (c *Client) roomSnapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		out = append(out, id)
	}
	return out
}
