package jwt

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm of sealed records.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrInvalidConfig is returned by NewSealer for unusable key material or options.
	ErrInvalidConfig = errors.New("invalid sealer configuration")
	// ErrSealBroken is returned by Open when a token fails verification.
	ErrSealBroken = errors.New("sealed record failed verification")
)

// Config configures a Sealer. For HS256 PrivateKey is the shared secret.
// Ed25519 keys may be raw or PEM encoded; a verify-only sealer needs just
// PublicKey.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	// TTL bounds the lifetime of a sealed record. Zero means no expiry.
	TTL    time.Duration
	Leeway time.Duration
}

// Sealer signs and verifies opaque JSON payloads.
type Sealer struct {
	cfg     Config
	method  jwt.SigningMethod
	signKey any
	verKey  any
}

type recordClaims struct {
	Record json.RawMessage `json:"rec"`
	jwt.RegisteredClaims
}

// NewSealer validates cfg and parses its keys.
func NewSealer(cfg Config) (*Sealer, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, fmt.Errorf("%w: leeway out of range", ErrInvalidConfig)
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("%w: negative ttl", ErrInvalidConfig)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	s := &Sealer{cfg: cfg}
	switch cfg.SigningMethod {
	case MethodHS256, "":
		if len(cfg.PrivateKey) < 16 {
			return nil, fmt.Errorf("%w: hs256 secret must be at least 16 bytes", ErrInvalidConfig)
		}
		s.cfg.SigningMethod = MethodHS256
		s.method = jwt.SigningMethodHS256
		s.signKey = cfg.PrivateKey
		s.verKey = cfg.PrivateKey
	case MethodEd25519:
		s.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			s.signKey = priv
			s.verKey = priv.Public()
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			s.verKey = pub
		}
		if s.verKey == nil {
			return nil, fmt.Errorf("%w: ed25519 requires a private or public key", ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported signing method %q", ErrInvalidConfig, cfg.SigningMethod)
	}

	return s, nil
}

// Seal signs payload, which must be valid JSON.
func (s *Sealer) Seal(payload []byte) (string, error) {
	if s.signKey == nil {
		return "", fmt.Errorf("%w: sealer is verify-only", ErrInvalidConfig)
	}
	if !json.Valid(payload) {
		return "", errors.New("seal payload is not valid JSON")
	}

	now := time.Now()
	claims := recordClaims{
		Record: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   s.cfg.Issuer,
		},
	}
	if s.cfg.TTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.cfg.TTL))
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}

	token := jwt.NewWithClaims(s.method, claims)
	if s.cfg.KeyID != "" {
		token.Header["kid"] = s.cfg.KeyID
	}
	return token.SignedString(s.signKey)
}

// Open verifies token and returns the sealed payload.
func (s *Sealer) Open(token string) ([]byte, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuedAt(),
	}
	if s.cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.cfg.Leeway))
	}
	if s.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		options = append(options, jwt.WithAudience(s.cfg.Audience))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &recordClaims{}, func(t *jwt.Token) (any, error) {
		if s.cfg.KeyID != "" {
			if kid, _ := t.Header["kid"].(string); kid != s.cfg.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return s.verKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealBroken, err)
	}

	claims, ok := parsed.Claims.(*recordClaims)
	if !ok || !parsed.Valid || len(claims.Record) == 0 {
		return nil, fmt.Errorf("%w: missing record claim", ErrSealBroken)
	}
	return claims.Record, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ed25519 private key", ErrInvalidConfig)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: invalid ed25519 private key type", ErrInvalidConfig)
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ed25519 public key", ErrInvalidConfig)
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: invalid ed25519 public key type", ErrInvalidConfig)
	}
	return edKey, nil
}
