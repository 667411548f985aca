package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/streamverse/realtime-gateway/tools/errs"
)

var testSecret = []byte("unit-test-secret")

func TestVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions(testSecret)

	token, exp, err := Generate(opts, "user_1001", []string{"chat"})
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	ident, err := Verify(opts, token)
	require.NoError(t, err)
	assert.Equal(t, "user_1001", ident.UserID)
}

func TestVerifyExpired(t *testing.T) {
	opts := DefaultOptions(testSecret)
	opts.TTL = -time.Minute

	token, _, err := Generate(opts, "user_1001", nil)
	require.NoError(t, err)

	_, err = Verify(DefaultOptions(testSecret), token)
	require.Error(t, err)
	assert.True(t, errs.ErrAuthExpired.Is(err), "want expired, got %v", err)
}

func TestVerifyMalformed(t *testing.T) {
	opts := DefaultOptions(testSecret)

	for _, token := range []string{"", "   ", "not-a-jwt", "a.b"} {
		_, err := Verify(opts, token)
		require.Error(t, err, "token %q", token)
		assert.True(t, errs.ErrAuthMalformed.Is(err), "token %q: got %v", token, err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("other-secret")), "user_1001", nil)
	require.NoError(t, err)

	_, err = Verify(DefaultOptions(testSecret), token)
	require.Error(t, err)
	assert.True(t, errs.ErrAuthInvalid.Is(err), "want invalid, got %v", err)
}

func TestVerifyDeterministic(t *testing.T) {
	opts := DefaultOptions(testSecret)
	token, _, err := Generate(opts, "user_1001", nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ident, err := Verify(opts, token)
		require.NoError(t, err)
		assert.Equal(t, "user_1001", ident.UserID)
	}
}

func TestUnsupportedAlg(t *testing.T) {
	opts := Options{Secret: testSecret, Alg: "RS256", TTL: time.Hour}
	_, _, err := Generate(opts, "user_1001", nil)
	require.Error(t, err)
}
