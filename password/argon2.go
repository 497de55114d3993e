// Package password hashes and verifies directory secrets with argon2id,
// encoded in the PHC string format ($argon2id$v=19$m=..,t=..,p=..$salt$hash).
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

var (
	// ErrMalformedHash is returned when an encoded hash is not a valid argon2id PHC string.
	ErrMalformedHash = errors.New("malformed argon2id hash")
	// ErrSecretTooShort is returned by Hash for secrets below Config.MinSecretBytes.
	ErrSecretTooShort = errors.New("secret too short")
	// ErrWeakConfig is returned by NewArgon2 for parameters below the accepted floor.
	ErrWeakConfig = errors.New("argon2 parameters below minimum")
)

var b64 = base64.RawStdEncoding

// Config holds argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinSecretBytes int
}

// DefaultConfig returns the parameters used for directory secrets.
func DefaultConfig() Config {
	return Config{
		Memory:         64 * 1024,
		Time:           2,
		Parallelism:    2,
		SaltLength:     16,
		KeyLength:      32,
		MinSecretBytes: 6,
	}
}

// Argon2 hashes secrets with a fixed parameter set and verifies hashes
// produced with any parameter set.
type Argon2 struct {
	cfg Config
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < 8*1024:
		return nil, fmt.Errorf("%w: memory must be >= 8192 KiB", ErrWeakConfig)
	case cfg.Time < 1:
		return nil, fmt.Errorf("%w: time must be >= 1", ErrWeakConfig)
	case cfg.Parallelism < 1:
		return nil, fmt.Errorf("%w: parallelism must be >= 1", ErrWeakConfig)
	case cfg.SaltLength < 16:
		return nil, fmt.Errorf("%w: salt length must be >= 16", ErrWeakConfig)
	case cfg.KeyLength < 16:
		return nil, fmt.Errorf("%w: key length must be >= 16", ErrWeakConfig)
	case cfg.MinSecretBytes < 1:
		cfg.MinSecretBytes = 1
	}
	return &Argon2{cfg: cfg}, nil
}

// Hash derives a new salted hash for secret. Secret bytes are used as given.
func (a *Argon2) Hash(secret string) (string, error) {
	if len(secret) < a.cfg.MinSecretBytes {
		return "", fmt.Errorf("%w: need at least %d bytes", ErrSecretTooShort, a.cfg.MinSecretBytes)
	}

	salt := make([]byte, a.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(secret), salt, a.cfg.Time, a.cfg.Memory, a.cfg.Parallelism, a.cfg.KeyLength)

	return encode(phc{
		memory:      a.cfg.Memory,
		time:        a.cfg.Time,
		parallelism: a.cfg.Parallelism,
		salt:        salt,
		key:         key,
	}), nil
}

// Verify reports whether secret matches encoded. The comparison is constant time.
func (a *Argon2) Verify(secret, encoded string) (bool, error) {
	h, err := decode(encoded)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(secret), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(key, h.key) == 1, nil
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters
// than the hasher's current configuration.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return h.memory < a.cfg.Memory ||
		h.time < a.cfg.Time ||
		h.parallelism < a.cfg.Parallelism ||
		uint32(len(h.key)) != a.cfg.KeyLength, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func encode(h phc) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version, h.memory, h.time, h.parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func decode(encoded string) (phc, error) {
	var h phc

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return h, ErrMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return h, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	seen := 0
	for _, pair := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return h, fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, pair)
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil || n == 0 {
			return h, fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, pair)
		}
		switch name {
		case "m":
			h.memory = uint32(n)
		case "t":
			h.time = uint32(n)
		case "p":
			if n > 255 {
				return h, fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, pair)
			}
			h.parallelism = uint8(n)
		default:
			return h, fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, name)
		}
		seen++
	}
	if seen != 3 || h.memory == 0 || h.time == 0 || h.parallelism == 0 {
		return h, fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}

	var err error
	if h.salt, err = b64.DecodeString(parts[4]); err != nil || len(h.salt) < 8 {
		return h, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if h.key, err = b64.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return h, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return h, nil
}
