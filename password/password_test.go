package password

import (
	"errors"
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := New(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher(t)

	encoded, err := h.Hash("Abcd1234!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=") {
		t.Errorf("unexpected PHC prefix: %q", encoded)
	}

	ok, err := h.Verify("Abcd1234!", encoded)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("correct password rejected")
	}

	ok, err = h.Verify("Wrong1234!", encoded)
	if err != nil {
		t.Fatalf("verify wrong: %v", err)
	}
	if ok {
		t.Error("wrong password accepted")
	}
}

func TestHashIsSalted(t *testing.T) {
	h := testHasher(t)

	first, err := h.Hash("Abcd1234!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := h.Hash("Abcd1234!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Error("two hashes of the same password must differ")
	}
}

func TestVerifyUsesEmbeddedParameters(t *testing.T) {
	strong, err := New(Config{
		Memory:      16 * 1024,
		Time:        2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	encoded, err := strong.Hash("Abcd1234!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	// A hasher with different cost settings still verifies the old hash.
	weak := testHasher(t)
	ok, err := weak.Verify("Abcd1234!", encoded)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Error("hash with embedded parameters rejected")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h := testHasher(t)

	bad := []string{
		"",
		"plainhash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!$AAAA",
	}
	for _, encoded := range bad {
		if _, err := h.Verify("x", encoded); err == nil {
			t.Errorf("malformed hash accepted: %q", encoded)
		}
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak := testHasher(t)
	encoded, err := weak.Hash("Abcd1234!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if needs, err := weak.NeedsUpgrade(encoded); err != nil || needs {
		t.Errorf("same-parameter hash reported (%v, %v)", needs, err)
	}

	strong, err := New(Config{
		Memory:      16 * 1024,
		Time:        2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	if needs, err := strong.NeedsUpgrade(encoded); err != nil || !needs {
		t.Errorf("weaker hash reported (%v, %v)", needs, err)
	}

	if _, err := strong.NeedsUpgrade("not-a-hash"); err == nil {
		t.Error("malformed hash must error")
	}
}

func TestNewRejectsWeakParameters(t *testing.T) {
	bad := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for i, cfg := range bad {
		if _, err := New(cfg); err == nil {
			t.Errorf("config %d accepted", i)
		}
	}
}

func TestPolicyCheck(t *testing.T) {
	p := DefaultPolicy()

	if err := p.Check("Abcd1234!"); err != nil {
		t.Fatalf("valid password rejected: %v", err)
	}

	weak := []string{
		"Ab1!",      // too short
		"abcd1234!", // no upper
		"ABCD1234!", // no lower
		"Abcdefgh!", // no digit
		"Abcd12345", // no symbol
	}
	for _, pw := range weak {
		err := p.Check(pw)
		if !errors.Is(err, ErrPolicy) {
			t.Errorf("Check(%q) = %v, want ErrPolicy", pw, err)
		}
	}
}

func TestPolicyDisabledRules(t *testing.T) {
	p := Policy{MinLength: 4}
	if err := p.Check("aaaa"); err != nil {
		t.Errorf("relaxed policy rejected: %v", err)
	}
}
