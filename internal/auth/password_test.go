package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

func deriveForTest(password string, salt []byte, p argon2Params) []byte {
	return argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.lanes, keyLength)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("compost-heap-42")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=1$") {
		t.Errorf("hash prefix = %q, want PHC header with default cost", hash)
	}

	ok, err := VerifyPassword("compost-heap-42", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("correct password did not verify")
	}

	ok, err = VerifyPassword("compost-heap-43", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("wrong password verified")
	}
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if first == second {
		t.Error("two hashes of one password are identical, salt is not random")
	}
}

func TestVerifyPassword_OldCostStillVerifies(t *testing.T) {
	// A hash written under lighter cost settings than the current default.
	p := argon2Params{memory: 32 * 1024, passes: 2, lanes: 1}
	salt := []byte("0123456789abcdef")
	key := deriveForTest("legacy-password", salt, p)
	stored := encodePHC(p, salt, key)

	ok, err := VerifyPassword("legacy-password", stored)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("hash with non-default cost did not verify")
	}
}

func TestVerifyPassword_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"plaintext", "hunter2"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=1$c2FsdA$a2V5"},
		{"missing key part", "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA"},
		{"bad version", "$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$a2V5"},
		{"bad base64 salt", "$argon2id$v=19$m=65536,t=3,p=1$!!$a2V5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyPassword("anything", tt.stored)
			if !errors.Is(err, ErrMalformedHash) {
				t.Errorf("VerifyPassword() error = %v, want ErrMalformedHash", err)
			}
		})
	}
}
