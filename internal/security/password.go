package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters, roughly the RFC 9106 second recommended option.
const (
	hashTime    uint32 = 3
	hashMemory  uint32 = 64 * 1024
	hashThreads uint8  = 2
	hashKeyLen  uint32 = 32
	hashSaltLen        = 16
)

// HashPassword derives an argon2id hash in the standard
// $argon2id$v=19$m=..,t=..,p=..$salt$hash encoded form.
func HashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, hashTime, hashMemory, hashThreads, hashKeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		hashMemory, hashTime, hashThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword re-derives the key using the parameters embedded in the
// stored hash, so old hashes keep verifying after a parameter bump, and
// compares in constant time.
func VerifyPassword(encoded, password string) (bool, error) {
	params, salt, expected, err := decodePasswordHash(encoded)
	if err != nil {
		return false, err
	}
	if uint64(len(expected)) > uint64(math.MaxUint32) {
		return false, fmt.Errorf("invalid hash length")
	}
	actual := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

type hashParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decodePasswordHash(encoded string) (hashParams, []byte, []byte, error) {
	var p hashParams
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return p, nil, nil, fmt.Errorf("malformed password hash")
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("malformed hash parameters")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("malformed hash salt")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("malformed hash payload")
	}
	return p, salt, key, nil
}
