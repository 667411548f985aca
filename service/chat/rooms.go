package chat

import (
	"sync"
)

// RoomIndex 房间 -> 成员集合，"谁在哪个房间" 的唯一事实来源。
// 外层锁只保护 rooms map；成员变更与 presence 广播在每房间自己的锁下进行，
// 保证同一房间的 presence 事件对所有成员是同一个全序。
type RoomIndex struct {
	mu    sync.Mutex
	rooms map[string]*room

	sink *SinkDispatcher // 可为 nil
}

type room struct {
	mu      sync.Mutex
	members map[string]*Client // conn_id -> client
}

func NewRoomIndex(sink *SinkDispatcher) *RoomIndex {
	return &RoomIndex{rooms: make(map[string]*room), sink: sink}
}

// Join 加入房间（首次 join 惰性建房）。幂等：已在房间内则不产生重复事件。
// user-joined 只发给已有成员，不回发给加入者本人。
func (ri *RoomIndex) Join(roomID string, c *Client) {
	ri.mu.Lock()
	r := ri.rooms[roomID]
	if r == nil {
		r = &room{members: make(map[string]*Client)}
		ri.rooms[roomID] = r
	}
	r.mu.Lock() // 先拿房间锁再放外层锁，防止房间被并发 prune
	ri.mu.Unlock()
	defer r.mu.Unlock()

	if _, exists := r.members[c.ConnID]; exists {
		return
	}
	r.members[c.ConnID] = c
	c.addRoom(roomID)

	payload := BuildPresence(EventUserJoined, roomID, c.userID)
	for id, m := range r.members {
		if id == c.ConnID {
			continue
		}
		m.enqueue(payload)
	}
	ri.sink.NotifyPresence(roomID, payload)
}

// Leave 离开房间并向剩余成员广播 user-left；清空后的房间立即从索引摘除
func (ri *RoomIndex) Leave(roomID string, c *Client) {
	ri.mu.Lock()
	r := ri.rooms[roomID]
	if r == nil {
		ri.mu.Unlock()
		return
	}
	r.mu.Lock()
	if _, exists := r.members[c.ConnID]; !exists {
		r.mu.Unlock()
		ri.mu.Unlock()
		return
	}
	delete(r.members, c.ConnID)
	c.removeRoom(roomID)
	if len(r.members) == 0 {
		delete(ri.rooms, roomID)
	}
	ri.mu.Unlock()

	payload := BuildPresence(EventUserLeft, roomID, c.userID)
	for _, m := range r.members {
		m.enqueue(payload)
	}
	r.mu.Unlock()

	ri.sink.NotifyPresence(roomID, payload)
}

// LeaveAll teardown 时调用一次；连接不在任何房间时也安全
func (ri *RoomIndex) LeaveAll(c *Client) {
	for _, roomID := range c.roomSnapshot() {
		ri.Leave(roomID, c)
	}
}

// MembersIfMember 一次加锁完成成员资格校验 + 成员快照。
// 以索引为准（不是连接自己的缓存）；不在房间内时 ok=false。
func (ri *RoomIndex) MembersIfMember(roomID, connID string) ([]*Client, bool) {
	ri.mu.Lock()
	r := ri.rooms[roomID]
	if r == nil {
		ri.mu.Unlock()
		return nil, false
	}
	r.mu.Lock()
	ri.mu.Unlock()
	defer r.mu.Unlock()

	if _, exists := r.members[connID]; !exists {
		return nil, false
	}
	out := make([]*Client, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out, true
}

// Members 成员快照（测试与 /stats 用）
func (ri *RoomIndex) Members(roomID string) []*Client {
	ri.mu.Lock()
	r := ri.rooms[roomID]
	if r == nil {
		ri.mu.Unlock()
		return nil
	}
	r.mu.Lock()
	ri.mu.Unlock()
	defer r.mu.Unlock()

	out := make([]*Client, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out
}

// Stats 房间数与成员总数
func (ri *RoomIndex) Stats() (rooms, members int) {
	ri.mu.Lock()
	snap := make([]*room, 0, len(ri.rooms))
	for _, r := range ri.rooms {
		snap = append(snap, r)
	}
	ri.mu.Unlock()

	for _, r := range snap {
		r.mu.Lock()
		members += len(r.members)
		r.mu.Unlock()
	}
	return len(snap), members
}
