package util

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestBytes(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03}
	WipeBytes(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Errorf("WipeBytes left %v", b)
	}
}

func TestRandom(t *testing.T) {
	t.Run("RandomBytes", func(t *testing.T) {
		b1, err := RandomBytes(32)
		if err != nil {
			t.Fatalf("RandomBytes failed: %v", err)
		}
		b2, err := RandomBytes(32)
		if err != nil {
			t.Fatalf("RandomBytes failed: %v", err)
		}
		if len(b1) != 32 {
			t.Errorf("expected 32 bytes, got %d", len(b1))
		}
		if bytes.Equal(b1, b2) {
			t.Error("RandomBytes should produce different outputs")
		}
	})

	t.Run("RandomHex", func(t *testing.T) {
		s1, err := RandomHex(32)
		if err != nil {
			t.Fatalf("RandomHex failed: %v", err)
		}
		s2, err := RandomHex(32)
		if err != nil {
			t.Fatalf("RandomHex failed: %v", err)
		}
		if len(s1) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(s1))
		}
		if _, err := hex.DecodeString(s1); err != nil {
			t.Errorf("RandomHex produced invalid hex: %v", err)
		}
		if s1 == s2 {
			t.Error("RandomHex should produce different outputs")
		}
	})
}
