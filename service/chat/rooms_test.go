package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinBroadcastsToExistingMembersOnly(t *testing.T) {
	ri := NewRoomIndex(nil)
	a := testClient(t, "c1", "alice", 8)
	b := testClient(t, "c2", "bob", 8)

	ri.Join("lobby", a)
	assert.Empty(t, drainEvents(t, a), "first member must not receive any event")

	ri.Join("lobby", b)

	got := drainEvents(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, EventUserJoined, got[0].Type)
	assert.Equal(t, "lobby", got[0].RoomID)
	assert.Equal(t, "bob", got[0].UserID)

	assert.Empty(t, drainEvents(t, b), "joiner must not see its own user-joined")
}

func TestJoinIdempotent(t *testing.T) {
	ri := NewRoomIndex(nil)
	a := testClient(t, "c1", "alice", 8)
	b := testClient(t, "c2", "bob", 8)

	ri.Join("lobby", a)
	ri.Join("lobby", b)
	drainEvents(t, a)

	ri.Join("lobby", b) // 重复加入
	assert.Empty(t, drainEvents(t, a), "duplicate join must not emit a second event")

	_, members := ri.Stats()
	assert.Equal(t, 2, members)
}

func TestLeaveBroadcastsAndPrunes(t *testing.T) {
	ri := NewRoomIndex(nil)
	a := testClient(t, "c1", "alice", 8)
	b := testClient(t, "c2", "bob", 8)

	ri.Join("lobby", a)
	ri.Join("lobby", b)
	drainEvents(t, a)

	ri.Leave("lobby", b)

	got := drainEvents(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, EventUserLeft, got[0].Type)
	assert.Equal(t, "bob", got[0].UserID)
	assert.Empty(t, drainEvents(t, b), "leaver must not see its own user-left")
	assert.Empty(t, b.roomSnapshot())

	rooms, members := ri.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, members)

	// 最后一个成员离开后房间立即摘除
	ri.Leave("lobby", a)
	rooms, members = ri.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, members)
	assert.Nil(t, ri.Members("lobby"))
}

func TestLeaveNonMemberNoop(t *testing.T) {
	ri := NewRoomIndex(nil)
	a := testClient(t, "c1", "alice", 8)
	b := testClient(t, "c2", "bob", 8)

	ri.Join("lobby", a)
	ri.Leave("lobby", b)      // 不在房间里
	ri.Leave("nowhere", b)    // 房间不存在

	assert.Empty(t, drainEvents(t, a))
	rooms, members := ri.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, members)
}

func TestRoomRecreatedAfterPrune(t *testing.T) {
	ri := NewRoomIndex(nil)
	a := testClient(t, "c1", "alice", 8)

	ri.Join("lobby", a)
	ri.Leave("lobby", a)
	ri.Join("lobby", a) // 摘除后再建

	rooms, members := ri.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, members)
}

func TestLeaveAll(t *testing.T) {
	ri := NewRoomIndex(nil)
	a := testClient(t, "c1", "alice", 8)
	b := testClient(t, "c2", "bob", 16)

	ri.Join("lobby", a)
	ri.Join("game", a)
	ri.Join("lobby", b)
	ri.Join("game", b)
	drainEvents(t, a)
	drainEvents(t, b)

	ri.LeaveAll(a)

	got := drainEvents(t, b)
	require.Len(t, got, 2)
	for _, ev := range got {
		assert.Equal(t, EventUserLeft, ev.Type)
		assert.Equal(t, "alice", ev.UserID)
	}
	assert.Empty(t, a.roomSnapshot())

	rooms, members := ri.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 2, members)

	ri.LeaveAll(a) // 已不在任何房间，安全
}

func TestMembersIfMember(t *testing.T) {
	ri := NewRoomIndex(nil)
	a := testClient(t, "c1", "alice", 8)
	b := testClient(t, "c2", "bob", 8)

	ri.Join("lobby", a)
	ri.Join("lobby", b)

	members, ok := ri.MembersIfMember("lobby", "c1")
	require.True(t, ok)
	assert.ElementsMatch(t, []*Client{a, b}, members)

	_, ok = ri.MembersIfMember("lobby", "c9")
	assert.False(t, ok, "non-member must not get a snapshot")

	_, ok = ri.MembersIfMember("nowhere", "c1")
	assert.False(t, ok)
}

// 同一房间的 presence 事件对每个成员是同一个全序
func TestPresenceOrderingPerRoom(t *testing.T) {
	ri := NewRoomIndex(nil)
	a := testClient(t, "c0", "watcher", 64)
	ri.Join("lobby", a)

	for i := 0; i < 10; i++ {
		c := testClient(t, fmt.Sprintf("c%d", i+1), fmt.Sprintf("user%d", i+1), 8)
		ri.Join("lobby", c)
	}

	got := drainEvents(t, a)
	require.Len(t, got, 10)
	for i, ev := range got {
		assert.Equal(t, EventUserJoined, ev.Type)
		assert.Equal(t, fmt.Sprintf("user%d", i+1), ev.UserID)
	}
}
