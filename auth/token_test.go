package auth

import (
	"encoding/hex"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("a-test-secret-that-is-long-enough-for-hmac")

func TestIssueToken_Format(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tok, err := IssueToken(testSecret, now)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)

	nonce, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, nonce, 32)

	ms, err := strconv.ParseInt(parts[1], 10, 64)
	require.NoError(t, err)
	assert.Equal(t, now.Add(SessionDuration).UnixMilli(), ms)

	sig, err := hex.DecodeString(parts[2])
	require.NoError(t, err)
	assert.Len(t, sig, 32)
}

func TestIssueToken_Unique(t *testing.T) {
	now := time.Now()
	a, err := IssueToken(testSecret, now)
	require.NoError(t, err)
	b, err := IssueToken(testSecret, now)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIssueToken_MissingSecret(t *testing.T) {
	_, err := IssueToken(nil, time.Now())
	assert.ErrorIs(t, err, ErrMissingSecret)
	_, err = IssueToken([]byte{}, time.Now())
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestVerifyToken_Fresh(t *testing.T) {
	now := time.Now()
	tok, err := IssueToken(testSecret, now)
	require.NoError(t, err)
	assert.True(t, VerifyToken(tok, testSecret, now))
}

func TestVerifyToken_AnySingleCharacterMutationFails(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tok, err := IssueToken(testSecret, now)
	require.NoError(t, err)

	for i := range len(tok) {
		for _, repl := range []byte{'0', 'f', 'A', '.', 'z'} {
			if tok[i] == repl {
				continue
			}
			mutated := tok[:i] + string(repl) + tok[i+1:]
			assert.False(t, VerifyToken(mutated, testSecret, now), "mutation at %d to %q", i, repl)
		}
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	now := time.Now()
	tok, err := IssueToken(testSecret, now)
	require.NoError(t, err)
	assert.False(t, VerifyToken(tok, []byte("some-other-secret"), now))
}

func TestVerifyToken_Expiry(t *testing.T) {
	issued := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tok, err := IssueToken(testSecret, issued)
	require.NoError(t, err)

	expiry := issued.Add(SessionDuration)
	assert.True(t, VerifyToken(tok, testSecret, expiry.Add(-time.Millisecond)))
	assert.False(t, VerifyToken(tok, testSecret, expiry))
	assert.False(t, VerifyToken(tok, testSecret, expiry.Add(time.Hour)))
}

func TestVerifyToken_Malformed(t *testing.T) {
	now := time.Now()
	cases := []string{
		"",
		"abc",
		"a.b",
		"a.b.c.d",
		"nonce.notanumber.sig",
		"nonce.+1700000000000.sig",
		"nonce.01700000000000.sig",
	}
	for _, c := range cases {
		assert.False(t, VerifyToken(c, testSecret, now), "token %q", c)
	}
}

func TestVerifyToken_EmptySecret(t *testing.T) {
	now := time.Now()
	tok, err := IssueToken(testSecret, now)
	require.NoError(t, err)
	assert.False(t, VerifyToken(tok, nil, now))
}

func TestVerifyToken_RejectsForgedSignatureForExtendedExpiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	tok, err := NewToken(testSecret, now)
	require.NoError(t, err)

	tok.ExpiresAt = tok.ExpiresAt.Add(365 * 24 * time.Hour)
	assert.False(t, VerifyToken(tok.Encode(), testSecret, now))
}

func TestParseToken_RoundTrip(t *testing.T) {
	tok, err := NewToken(testSecret, time.Now())
	require.NoError(t, err)

	parsed, err := ParseToken(tok.Encode())
	require.NoError(t, err)
	assert.Equal(t, tok.Nonce, parsed.Nonce)
	assert.True(t, tok.ExpiresAt.Equal(parsed.ExpiresAt))
	assert.Equal(t, tok.Signature, parsed.Signature)
	assert.Equal(t, tok.Encode(), parsed.Encode())
}
