package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	s, err := NewSealer(bytes.Repeat([]byte{1}, KeySize), bytes.Repeat([]byte{2}, KeySize))
	if err != nil {
		t.Fatalf("failed to create sealer: %v", err)
	}
	return s
}

func TestSealOpen(t *testing.T) {
	s := newTestSealer(t)

	sealed, err := s.Seal("slept badly, walked anyway")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if strings.Contains(sealed, "walked") {
		t.Fatal("sealed text leaks plaintext")
	}
	again, _ := s.Seal("slept badly, walked anyway")
	if sealed == again {
		t.Error("expected a fresh nonce per seal")
	}

	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened != "slept badly, walked anyway" {
		t.Errorf("unexpected plaintext %q", opened)
	}

	if empty, _ := s.Seal(""); empty != "" {
		t.Errorf("expected empty input to stay empty, got %q", empty)
	}
	if _, err := s.Open("AAAA"); err != ErrCiphertextTooShort {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestBlindIndexIsDeterministic(t *testing.T) {
	s := newTestSealer(t)
	if s.BlindIndex("a@b.c") != s.BlindIndex("a@b.c") {
		t.Error("blind index must be deterministic")
	}
	if s.BlindIndex("a@b.c") == s.BlindIndex("x@b.c") {
		t.Error("different inputs should not collide")
	}
}

func TestKeyValidation(t *testing.T) {
	if _, err := NewSealer([]byte("short"), bytes.Repeat([]byte{2}, KeySize)); err == nil {
		t.Error("expected error for short encryption key")
	}
	if _, err := DecodeKey(strings.Repeat("ab", KeySize)); err != nil {
		t.Errorf("expected valid hex key, got %v", err)
	}
	if _, err := DecodeKey("zz"); err == nil {
		t.Error("expected error for non-hex key")
	}
}
