package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndVerify(t *testing.T) {
	h, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	hash, err := h.Hash("correct-pw")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !h.Supports(hash) {
		t.Fatalf("expected bcrypt prefix, got %s", hash)
	}

	ok, err := h.Verify("correct-pw", hash)
	if err != nil || !ok {
		t.Fatalf("expected match: ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong-pw", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch: ok=%v err=%v", ok, err)
	}
}

func TestBcryptDefaults(t *testing.T) {
	h, err := NewBcrypt(0)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	hash, err := h.Hash("seed-secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	cost, err := h.Cost(hash)
	if err != nil {
		t.Fatalf("Cost error: %v", err)
	}
	if cost != DefaultBcryptCost {
		t.Fatalf("expected cost %d, got %d", DefaultBcryptCost, cost)
	}

	if _, err := NewBcrypt(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected out of range cost to fail")
	}
}

func TestBcryptRejectsBadInput(t *testing.T) {
	h, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if _, err := h.Verify("pw", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
}

func TestChainVerifiesLegacyHashes(t *testing.T) {
	primary, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	legacy, err := NewArgon2(Config{Memory: minArgonMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	chain, err := NewChain(primary, legacy)
	if err != nil {
		t.Fatalf("NewChain error: %v", err)
	}

	oldHash, err := legacy.Hash("migrating-pw")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	ok, err := chain.Verify("migrating-pw", oldHash)
	if err != nil || !ok {
		t.Fatalf("expected legacy hash to verify: ok=%v err=%v", ok, err)
	}
	if !chain.NeedsRehash(oldHash) {
		t.Fatal("expected legacy hash to need rehash")
	}

	newHash, err := chain.Hash("migrating-pw")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !primary.Supports(newHash) || chain.NeedsRehash(newHash) {
		t.Fatal("expected chain to hash with primary")
	}

	if _, err := chain.Verify("x", "plaintext"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
	if _, err := NewChain(nil); err == nil {
		t.Fatal("expected nil primary to fail")
	}
}
