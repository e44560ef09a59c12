package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned when a stored password hash cannot be parsed.
var ErrMalformedHash = errors.New("auth: malformed password hash")

// argon2Params carries the Argon2id cost settings encoded alongside a hash.
type argon2Params struct {
	memory uint32 // KiB
	passes uint32
	lanes  uint8
}

// Cost for newly hashed passwords. 64 MiB with a single lane follows the
// OWASP guidance and stays affordable on the Raspberry Pi class hardware
// the garden controller runs on.
var defaultArgon2 = argon2Params{memory: 64 * 1024, passes: 3, lanes: 1}

const (
	saltLength = 16
	keyLength  = 32
)

// HashPassword derives an Argon2id hash of password and encodes it in PHC
// string form: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<key>.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("reading salt: %w", err)
	}

	p := defaultArgon2
	key := argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.lanes, keyLength)
	return encodePHC(p, salt, key), nil
}

// VerifyPassword reports whether password matches the stored PHC hash.
// Cost parameters come from the hash itself, so user records written under
// older cost settings keep verifying after the defaults change.
func VerifyPassword(password, stored string) (bool, error) {
	p, salt, key, err := decodePHC(stored)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.lanes, uint32(len(key))) //nolint:gosec // G115: key length always fits uint32
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func encodePHC(p argon2Params, salt, key []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.passes, p.lanes,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

func decodePHC(stored string) (p argon2Params, salt, key []byte, err error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, ErrMalformedHash
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}

	var version int
	if _, scanErr := fmt.Sscanf(parts[2], "v=%d", &version); scanErr != nil {
		return p, nil, nil, fmt.Errorf("%w: version field", ErrMalformedHash)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: argon2 version %d", ErrMalformedHash, version)
	}
	if _, scanErr := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.passes, &p.lanes); scanErr != nil {
		return p, nil, nil, fmt.Errorf("%w: cost field", ErrMalformedHash)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return p, nil, nil, fmt.Errorf("%w: key: %v", ErrMalformedHash, err)
	}
	return p, salt, key, nil
}
