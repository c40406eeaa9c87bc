// Package password derives and verifies salted argon2id password hashes.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltLength is the number of characters in a generated salt.
	SaltLength = 20

	// minSaltBytes is the argon2 lower bound on salt length.
	minSaltBytes = 8

	// maxMemory caps the memory parameter accepted from a stored hash (KiB).
	maxMemory = 1 << 20

	// maxTime caps the iteration count accepted from a stored hash.
	maxTime = 64

	saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	// ErrSaltTooShort is returned when the salt is shorter than argon2 allows.
	ErrSaltTooShort = errors.New("salt must be at least 8 bytes")

	// ErrInvalidConfig is returned when the work factors cannot be used.
	ErrInvalidConfig = errors.New("invalid argon2 configuration")
)

// Config holds the argon2id work factors.
type Config struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8  // parallelism
	KeyLen  uint32 // output length in bytes
}

// DefaultConfig returns the fixed configuration used for every stored hash.
func DefaultConfig() Config {
	return Config{
		Time:    2,
		Memory:  19 * 1024,
		Threads: 1,
		KeyLen:  32,
	}
}

func (c Config) validate() error {
	if c.Time == 0 || c.Time > maxTime || c.Threads == 0 || c.KeyLen < 4 {
		return ErrInvalidConfig
	}
	if c.Memory < 8*uint32(c.Threads) || c.Memory > maxMemory {
		return ErrInvalidConfig
	}
	return nil
}

// Argon2idHasher hashes passwords with a caller-supplied salt so that the
// same password and salt always produce the same encoded string.
type Argon2idHasher struct {
	cfg Config
}

// NewArgon2idHasher creates a hasher using cfg.
func NewArgon2idHasher(cfg Config) *Argon2idHasher {
	return &Argon2idHasher{cfg: cfg}
}

// Hash returns the PHC-encoded argon2id hash of password under salt:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
func (h *Argon2idHasher) Hash(password, salt string) (string, error) {
	if err := h.cfg.validate(); err != nil {
		return "", err
	}
	if len(salt) < minSaltBytes {
		return "", ErrSaltTooShort
	}

	key := argon2.IDKey([]byte(password), []byte(salt), h.cfg.Time, h.cfg.Memory, h.cfg.Threads, h.cfg.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.cfg.Memory,
		h.cfg.Time,
		h.cfg.Threads,
		base64.RawStdEncoding.EncodeToString([]byte(salt)),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches the encoded hash. A malformed
// hash never matches.
func (h *Argon2idHasher) Verify(password, encodedHash string) bool {
	p, err := decode(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.cfg.Time, p.cfg.Memory, p.cfg.Threads, p.cfg.KeyLen)
	return subtle.ConstantTimeCompare(computed, p.key) == 1
}

type params struct {
	cfg  Config
	salt []byte
	key  []byte
}

func decode(encodedHash string) (*params, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, fmt.Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, err
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return nil, err
	}
	if threads > 255 {
		return nil, fmt.Errorf("threads value %d exceeds uint8 max", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, err
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, err
	}
	if len(key) > 1<<10 {
		return nil, fmt.Errorf("invalid hash key length: %d", len(key))
	}

	cfg := Config{Time: iterations, Memory: memory, Threads: uint8(threads), KeyLen: uint32(len(key))}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(salt) < minSaltBytes {
		return nil, ErrSaltTooShort
	}

	return &params{cfg: cfg, salt: salt, key: key}, nil
}

// NewSalt returns SaltLength characters drawn uniformly from [A-Za-z0-9]
// using crypto/rand.
func NewSalt() (string, error) {
	max := big.NewInt(int64(len(saltAlphabet)))
	var b strings.Builder
	b.Grow(SaltLength)
	for range SaltLength {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
		b.WriteByte(saltAlphabet[n.Int64()])
	}
	return b.String(), nil
}
