package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := newRateLimiter(5, time.Hour) // 补充速率慢到可以忽略

	for i := 0; i < 5; i++ {
		assert.True(t, rl.allow(), "message %d within burst", i+1)
	}
	assert.False(t, rl.allow(), "message 6 must be denied")
	assert.False(t, rl.allow())
}

func TestRateLimiterRefill(t *testing.T) {
	rl := newRateLimiter(1, 50*time.Millisecond)

	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	time.Sleep(120 * time.Millisecond)
	assert.True(t, rl.allow(), "token must refill after interval")
}

func TestRateLimiterCapacityClamp(t *testing.T) {
	rl := newRateLimiter(2, 10*time.Millisecond)

	// 长时间空闲后令牌不超过桶容量
	time.Sleep(100 * time.Millisecond)
	assert.True(t, rl.allow())
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())
}

func TestRateLimiterZeroConfig(t *testing.T) {
	rl := newRateLimiter(0, 0)
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())
}
