package auth

import (
	"github.com/awnumar/memguard"
)

// SessionSecret holds the HMAC key used to sign session tokens. The key is
// kept sealed in a memguard enclave and only decrypted for the duration of
// a signing or verification call.
type SessionSecret struct {
	enclave *memguard.Enclave
}

// NewSessionSecret seals key into an enclave. The source slice is wiped.
// An empty key yields an unconfigured secret whose use fails with
// ErrMissingSecret.
func NewSessionSecret(key []byte) *SessionSecret {
	if len(key) == 0 {
		return &SessionSecret{}
	}
	return &SessionSecret{enclave: memguard.NewEnclave(key)}
}

// Configured reports whether a non-empty key is present.
func (s *SessionSecret) Configured() bool {
	return s != nil && s.enclave != nil
}

// Use decrypts the key, passes it to fn, and destroys the plaintext copy
// before returning. fn must not retain the slice.
func (s *SessionSecret) Use(fn func(key []byte) error) error {
	if !s.Configured() {
		return ErrMissingSecret
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}
