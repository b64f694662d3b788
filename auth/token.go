package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jmcleod/eventdesk/internal/util"
)

const (
	// SessionDuration is the lifetime of an issued token.
	SessionDuration = 7 * 24 * time.Hour
	// nonceBytes is the amount of randomness in each token.
	nonceBytes = 32
	separator  = "."
)

var (
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("session secret is not configured")
	// ErrMalformedToken is returned by ParseToken for input that is not
	// three dot-separated parts with a canonical integer expiry.
	ErrMalformedToken = errors.New("malformed session token")
)

// Token is a decoded session token: {nonce}.{expiresAtMillis}.{signature}.
type Token struct {
	Nonce     string
	ExpiresAt time.Time
	Signature string
}

// Payload is the signed portion of the token.
func (t Token) Payload() string {
	return t.Nonce + separator + strconv.FormatInt(t.ExpiresAt.UnixMilli(), 10)
}

// Encode renders the token in its wire form.
func (t Token) Encode() string {
	return t.Payload() + separator + t.Signature
}

// ParseToken splits a wire token into its parts. The expiry must be the
// canonical decimal form so that Encode(ParseToken(s)) == s.
func ParseToken(s string) (Token, error) {
	parts := strings.Split(s, separator)
	if len(parts) != 3 {
		return Token{}, ErrMalformedToken
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || strconv.FormatInt(ms, 10) != parts[1] {
		return Token{}, ErrMalformedToken
	}
	return Token{
		Nonce:     parts[0],
		ExpiresAt: time.UnixMilli(ms).UTC(),
		Signature: parts[2],
	}, nil
}

// sign returns the lowercase hex HMAC-SHA256 of payload under secret.
func sign(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewToken creates a signed token expiring SessionDuration after now.
func NewToken(secret []byte, now time.Time) (Token, error) {
	if len(secret) == 0 {
		return Token{}, ErrMissingSecret
	}
	nonce, err := util.RandomHex(nonceBytes)
	if err != nil {
		return Token{}, err
	}
	t := Token{
		Nonce:     nonce,
		ExpiresAt: time.UnixMilli(now.Add(SessionDuration).UnixMilli()).UTC(),
	}
	t.Signature = sign(secret, t.Payload())
	return t, nil
}

// IssueToken returns the wire form of a freshly signed token.
func IssueToken(secret []byte, now time.Time) (string, error) {
	t, err := NewToken(secret, now)
	if err != nil {
		return "", err
	}
	return t.Encode(), nil
}

// VerifyToken reports whether token carries a valid signature under secret
// and has not expired at now. Every failure is a plain false.
func VerifyToken(token string, secret []byte, now time.Time) bool {
	if len(secret) == 0 {
		slog.Error("session token verification skipped", slog.String("error", ErrMissingSecret.Error()))
		return false
	}
	t, err := ParseToken(token)
	if err != nil {
		return false
	}
	if now.UnixMilli() >= t.ExpiresAt.UnixMilli() {
		return false
	}
	expected := sign(secret, t.Payload())
	return hmac.Equal([]byte(expected), []byte(t.Signature))
}
