package auth

import (
	"time"
)

// Codec issues and verifies session tokens with a sealed server secret.
type Codec struct {
	secret *SessionSecret
	now    Clock
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithCodecClock overrides the time source.
func WithCodecClock(now Clock) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a Codec bound to secret. A nil or empty secret is
// allowed; Issue then fails with ErrMissingSecret and Verify returns false.
func NewCodec(secret *SessionSecret, opts ...CodecOption) *Codec {
	c := &Codec{secret: secret, now: systemClock}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a signing secret is present.
func (c *Codec) Configured() bool {
	return c.secret.Configured()
}

// Issue returns a new wire token and its expiry.
func (c *Codec) Issue() (string, time.Time, error) {
	var tok Token
	err := c.secret.Use(func(key []byte) error {
		var err error
		tok, err = NewToken(key, c.now())
		return err
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return tok.Encode(), tok.ExpiresAt, nil
}

// Verify reports whether token is currently valid.
func (c *Codec) Verify(token string) bool {
	valid := false
	err := c.secret.Use(func(key []byte) error {
		valid = VerifyToken(token, key, c.now())
		return nil
	})
	if err != nil {
		return VerifyToken(token, nil, c.now())
	}
	return valid
}
