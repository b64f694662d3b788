package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_IssueVerify(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	c := NewCodec(NewSessionSecret([]byte("codec-secret")), WithCodecClock(clock.Now))
	require.True(t, c.Configured())

	tok, expires, err := c.Issue()
	require.NoError(t, err)
	assert.True(t, expires.Equal(clock.Now().Add(SessionDuration)))
	assert.True(t, c.Verify(tok))

	clock.Advance(SessionDuration - time.Millisecond)
	assert.True(t, c.Verify(tok))
	clock.Advance(time.Millisecond)
	assert.False(t, c.Verify(tok))
}

func TestCodec_DifferentSecretsDoNotInteroperate(t *testing.T) {
	a := NewCodec(NewSessionSecret([]byte("secret-a")))
	b := NewCodec(NewSessionSecret([]byte("secret-b")))

	tok, _, err := a.Issue()
	require.NoError(t, err)
	assert.False(t, b.Verify(tok))
}

func TestCodec_Unconfigured(t *testing.T) {
	for _, c := range []*Codec{NewCodec(nil), NewCodec(NewSessionSecret(nil))} {
		assert.False(t, c.Configured())
		_, _, err := c.Issue()
		assert.ErrorIs(t, err, ErrMissingSecret)
		assert.False(t, c.Verify("a.1.b"))
	}
}

func TestSessionSecret_WipesSource(t *testing.T) {
	key := []byte("wipe-me")
	s := NewSessionSecret(key)
	assert.Equal(t, make([]byte, len(key)), key)

	err := s.Use(func(k []byte) error {
		assert.Equal(t, "wipe-me", string(k))
		return nil
	})
	require.NoError(t, err)
}
