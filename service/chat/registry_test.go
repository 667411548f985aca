package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterLookup(t *testing.T) {
	reg := NewRegistry()
	a := testClient(t, "c1", "u1", 4)

	reg.Register(a)
	require.Same(t, a, reg.Lookup("c1"))
	assert.Equal(t, 1, reg.Count())
	assert.Nil(t, reg.Lookup("missing"))
}

func TestRegistryMultiDevice(t *testing.T) {
	reg := NewRegistry()
	phone := testClient(t, "c1", "u1", 4)
	laptop := testClient(t, "c2", "u1", 4)

	reg.Register(phone)
	reg.Register(laptop)

	conns := reg.ListByUser("u1")
	assert.Len(t, conns, 2)
	assert.Equal(t, 2, reg.Count())

	reg.Remove("c1")
	conns = reg.ListByUser("u1")
	require.Len(t, conns, 1)
	assert.Same(t, laptop, conns[0])

	reg.Remove("c2")
	assert.Nil(t, reg.ListByUser("u1"))
	assert.Equal(t, 0, reg.Count())
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	reg := NewRegistry()
	a := testClient(t, "c1", "u1", 4)
	reg.Register(a)

	reg.Remove("c1")
	reg.Remove("c1") // 重复删除必须是 no-op
	reg.Remove("never-existed")

	assert.Equal(t, 0, reg.Count())
	assert.Nil(t, reg.Lookup("c1"))
}

func TestRegistrySnapshot(t *testing.T) {
	reg := NewRegistry()
	a := testClient(t, "c1", "u1", 4)
	b := testClient(t, "c2", "u2", 4)
	reg.Register(a)
	reg.Register(b)

	snap := reg.Snapshot()
	assert.ElementsMatch(t, []*Client{a, b}, snap)
}
