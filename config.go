package authstore

import (
	"errors"
	"strings"
	"time"

	"github.com/starshipcosmos/authstore/jwt"
)

// Namespace keys of the three store variants. Each variant owns one key and
// the keys never overlap, so variants sharing a backend do not contend.
const (
	UserNamespace    = "starship_user_session"
	CompanyNamespace = "starship_company_session"
	AdminNamespace   = "cosmos_admin_session"
)

// Config configures a Store. Build copies it; later changes have no effect.
type Config struct {
	// Namespace is the backend key holding this store's session record.
	Namespace string
	Record    RecordConfig
	Directory DirectoryConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	// OperationTimeout bounds each backend call made on the store's behalf
	// when the caller's context has no deadline. Zero disables it.
	OperationTimeout time.Duration
}

/*
====================================
RECORD CONFIG
====================================
*/

// RecordConfig selects the persisted record format.
type RecordConfig struct {
	// Signed seals records as JWTs so edited records are purged on read.
	Signed        bool
	SigningMethod jwt.SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

// DirectoryConfig controls the built-in demo directories of the company and
// admin variants.
type DirectoryConfig struct {
	// Hints makes rejections list valid identifiers and the demo secret.
	Hints bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Record: RecordConfig{
			SigningMethod: jwt.MethodHS256,
			Issuer:        "authstore",
		},
		Directory: DirectoryConfig{
			Hints: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		OperationTimeout: 0,
	}
}

// DefaultConfig returns the baseline configuration for namespace.
func DefaultConfig(namespace string) Config {
	cfg := defaultConfig()
	cfg.Namespace = namespace
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Record.PrivateKey = cloneBytes(cfg.Record.PrivateKey)
	out.Record.PublicKey = cloneBytes(cfg.Record.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Namespace) == "" {
		return errors.New("Namespace must not be empty")
	}
	if strings.ContainsAny(c.Namespace, " \t\r\n") {
		return errors.New("Namespace must not contain whitespace")
	}

	if c.Record.Signed {
		switch c.Record.SigningMethod {
		case jwt.MethodHS256:
			if len(c.Record.PrivateKey) < 16 {
				return errors.New("Record hs256 signing requires a key of at least 16 bytes")
			}
		case jwt.MethodEd25519:
			if len(c.Record.PrivateKey) == 0 && len(c.Record.PublicKey) == 0 {
				return errors.New("Record ed25519 signing requires a private or public key")
			}
		default:
			return errors.New("unsupported Record signing method")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	if c.OperationTimeout < 0 {
		return errors.New("OperationTimeout must be >= 0")
	}

	return nil
}
