package chat

import (
	"time"

	errs "github.com/streamverse/realtime-gateway/tools/errs"
)

// Router 校验、限流并把入站消息 fan-out 给房间内其它成员。
// 所有前置检查失败都是静默丢弃（不给发送方回错，避免暴露房间成员信息）；
// 返回的 error 只用于调用方的日志与违规计数。
type Router struct {
	reg     *Registry
	rooms   *RoomIndex
	maxBody int
	sink    *SinkDispatcher
}

func NewRouter(reg *Registry, rooms *RoomIndex, maxBody int, sink *SinkDispatcher) *Router {
	if maxBody <= 0 {
		maxBody = 2000
	}
	return &Router{reg: reg, rooms: rooms, maxBody: maxBody, sink: sink}
}

// Route 把 body 投递给 roomID 内除发送者以外的全部当前成员。
// 前置条件：连接已认证，且按 RoomIndex（而不是连接自己的缓存）确属房间成员。
func (rt *Router) Route(connID, roomID, body string) error {
	c := rt.reg.Lookup(connID)
	if c == nil || c.State() != StateAuthenticated {
		return errs.ErrAuthInvalid.WithDetail("route before authenticated")
	}
	if len(body) > rt.maxBody {
		return errs.ErrBodyTooLarge
	}
	if c.limiter != nil && !c.limiter.allow() {
		return errs.ErrRateLimited
	}

	members, ok := rt.rooms.MembersIfMember(roomID, connID)
	if !ok {
		// 不在房间里：按设计静默丢弃
		return nil
	}

	payload := BuildChat(roomID, c.userID, body, time.Now())
	for _, m := range members {
		if m.ConnID == connID {
			continue // 不回显给发送者
		}
		m.enqueue(payload) // 队列满即丢，慢读者不拖慢路由
	}

	rt.sink.ArchiveChat(roomID, payload)
	return nil
}
