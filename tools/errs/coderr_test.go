package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeErrorIsMatchesByCode(t *testing.T) {
	assert.True(t, ErrAuthExpired.Is(ErrAuthExpired.WithDetail("exp=123")))
	assert.False(t, ErrAuthExpired.Is(ErrAuthInvalid))
	assert.False(t, ErrAuthExpired.Is(errors.New("plain")))

	// 包装链里也能匹配
	wrapped := ErrRateLimited.Wrap("route")
	assert.True(t, ErrRateLimited.Is(wrapped))
	assert.False(t, ErrQueueFull.Is(wrapped))
}

func TestWithDetailDoesNotMutate(t *testing.T) {
	d := ErrFrameMalformed.WithDetail("bad json")
	assert.Empty(t, ErrFrameMalformed.Detail, "sentinel must stay clean")
	assert.Equal(t, ErrFrameMalformed.Code, d.Code)
	assert.Contains(t, d.Error(), "bad json")

	d2 := d.WithDetail("second")
	assert.Contains(t, d2.Detail, "bad json")
	assert.Contains(t, d2.Detail, "second")
}

func TestAsCode(t *testing.T) {
	require.Nil(t, AsCode(nil))
	require.Nil(t, AsCode(errors.New("plain")))

	ce := AsCode(ErrBodyTooLarge.Wrap("handler"))
	require.NotNil(t, ce)
	assert.Equal(t, ErrBodyTooLarge.Code, ce.Code)
}

func TestAuthReason(t *testing.T) {
	assert.Equal(t, "malformed", AuthReason(ErrAuthMalformed))
	assert.Equal(t, "expired", AuthReason(ErrAuthExpired.WithDetail("exp")))
	assert.Equal(t, "timeout", AuthReason(ErrAuthTimeout))
	assert.Equal(t, "invalid", AuthReason(ErrAuthInvalid))
	assert.Equal(t, "invalid", AuthReason(errors.New("plain")))
	assert.Equal(t, "invalid", AuthReason(ErrTransport))
}
